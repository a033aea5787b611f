package decision

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billdesk/bill-audit/internal/models"
)

func TestBuildPayloadShape(t *testing.T) {
	date := "2025-07-01"
	total := 250.0
	policy := json.RawMessage(`{"meal_daily_limit": 500}`)

	body, err := BuildPayload(policy, []models.DecisionGroup{{
		EmployeeID:   "E042",
		EmployeeName: "Ashwini Kumar",
		Category:     models.CategoryMeal,
		Date:         &date,
		ValidBills:   []string{"m1", "m2"},
		InvalidBills: []string{},
		DailyTotal:   &total,
	}})
	require.NoError(t, err)

	var decoded struct {
		Policy map[string]any   `json:"policy"`
		Groups []map[string]any `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, float64(500), decoded.Policy["meal_daily_limit"])
	require.Len(t, decoded.Groups, 1)

	g := decoded.Groups[0]
	assert.Equal(t, "E042", g["employee_id"])
	assert.Equal(t, "meal", g["category"])
	assert.Equal(t, "2025-07-01", g["date"])
	assert.Equal(t, float64(250), g["daily_total"])
	assert.Nil(t, g["monthly_total"], "only one total may be populated")
	assert.Equal(t, []any{"m1", "m2"}, g["valid_bills"])
}

func TestBuildPayloadEmptyGroups(t *testing.T) {
	body, err := BuildPayload(json.RawMessage(`{}`), nil)
	require.NoError(t, err)

	var decoded struct {
		Groups []any `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.NotNil(t, decoded.Groups, "groups must serialize as [] rather than null")
	assert.Empty(t, decoded.Groups)
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"commute_monthly_limit": 3000}`), 0644))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"commute_monthly_limit": 3000}`, string(policy))
}

func TestLoadPolicyRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(path, []byte("limit: 3000"), 0644))

	_, err := LoadPolicy(path)
	require.Error(t, err)
}
