package validate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// vectorEncoder returns canned vectors per address string so similarity
// scores are fully deterministic.
type vectorEncoder struct {
	vectors map[string][]float32
}

func (e *vectorEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

const (
	pickupAddr = "Gate 1, Forum Mall"
	dropAddr   = "96 Tulsi Theater Rd"
	homeAddr   = "Forum Shantiniketan Mall Whitefield"
	clientAddr = "96, Tulsi Theater Rd, Marathahalli"
)

func newTestEncoder() *vectorEncoder {
	// Pickup is close to home, drop is close to the client site, and
	// the cross pairs land well under the 0.40 threshold.
	return &vectorEncoder{vectors: map[string][]float32{
		pickupAddr: {1, 0},
		homeAddr:   {0.9, 0.1},
		dropAddr:   {0, 1},
		clientAddr: {0.1, 0.9},
	}}
}

func testEmployee() models.EmployeeReference {
	return models.EmployeeReference{
		EmployeeID:      "E042",
		EmployeeName:    "Ashwini Kumar",
		HomeAddress:     homeAddr,
		ClientAddresses: []string{clientAddr},
		BillDate:        "2025-06-23",
	}
}

func commuteReceipt() models.Receipt {
	return models.Receipt{
		ID:            "bill-1",
		Filename:      "ride_001.pdf",
		Category:      models.CategoryCommute,
		RiderName:     "Ashwini K",
		Date:          "2025-06-23",
		PickupAddress: pickupAddr,
		DropAddress:   dropAddr,
	}
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return New(DefaultThresholds(), newTestEncoder(), zap.NewNop())
}

func TestValidateMatchingCommuteReceipt(t *testing.T) {
	v := newTestValidator(t)

	verdict, err := v.Validate(context.Background(), commuteReceipt(), testEmployee())
	require.NoError(t, err)

	assert.True(t, verdict.NameMatch, "abbreviated surname should clear the fuzzy threshold")
	assert.True(t, verdict.DateMatch)
	assert.True(t, verdict.PickupMatch, "pickup should match the home address")
	assert.True(t, verdict.DropMatch, "drop should match the client site")
	assert.False(t, verdict.InsufficientData)
	assert.True(t, ReceiptValid(verdict, models.CategoryCommute))
}

func TestValidateDateMismatchInvalidatesCommute(t *testing.T) {
	v := newTestValidator(t)

	receipt := commuteReceipt()
	receipt.Date = "2025-06-24"

	verdict, err := v.Validate(context.Background(), receipt, testEmployee())
	require.NoError(t, err)

	assert.True(t, verdict.NameMatch)
	assert.False(t, verdict.DateMatch)
	assert.True(t, verdict.PickupMatch)
	assert.True(t, verdict.DropMatch)
	assert.False(t, ReceiptValid(verdict, models.CategoryCommute),
		"a date mismatch alone must invalidate the receipt")
}

func TestValidateScoresStayInRange(t *testing.T) {
	v := newTestValidator(t)

	receipts := []models.Receipt{
		commuteReceipt(),
		{Filename: "empty.pdf", Category: models.CategoryCommute},
		{Filename: "partial.pdf", Category: models.CategoryCommute, RiderName: "Someone Else"},
	}

	for _, r := range receipts {
		verdict, err := v.Validate(context.Background(), r, testEmployee())
		require.NoError(t, err)

		assert.GreaterOrEqual(t, verdict.NameScore, 0)
		assert.LessOrEqual(t, verdict.NameScore, 100)
		assert.GreaterOrEqual(t, verdict.PickupScore, 0.0)
		assert.LessOrEqual(t, verdict.PickupScore, 1.0)
		assert.GreaterOrEqual(t, verdict.DropScore, 0.0)
		assert.LessOrEqual(t, verdict.DropScore, 1.0)
	}
}

func TestValidateIdempotent(t *testing.T) {
	v := newTestValidator(t)

	first, err := v.Validate(context.Background(), commuteReceipt(), testEmployee())
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), commuteReceipt(), testEmployee())
	require.NoError(t, err)

	assert.Equal(t, first, second, "same inputs must yield bit-identical verdicts")
}

func TestValidateMissingFieldsAreNonMatches(t *testing.T) {
	v := newTestValidator(t)

	receipt := models.Receipt{Filename: "blank.pdf", Category: models.CategoryCommute}
	verdict, err := v.Validate(context.Background(), receipt, testEmployee())
	require.NoError(t, err, "absent optional fields must never raise")

	assert.False(t, verdict.NameMatch)
	assert.False(t, verdict.DateMatch)
	assert.False(t, verdict.PickupMatch)
	assert.False(t, verdict.DropMatch)
	assert.Zero(t, verdict.NameScore)
	assert.Zero(t, verdict.PickupScore)
	assert.Zero(t, verdict.DropScore)
	assert.True(t, verdict.InsufficientData, "fully blank receipts are flagged for audit")
	assert.False(t, ReceiptValid(verdict, models.CategoryCommute))
}

func TestValidateNameThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		wantMatch bool
	}{
		{name: "exact threshold matches", score: 75, wantMatch: true},
		{name: "one below does not", score: 74, wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t)
			v.nameScore = func(_, _ string) int { return tt.score }

			verdict, err := v.Validate(context.Background(), commuteReceipt(), testEmployee())
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, verdict.NameMatch)
			assert.Equal(t, tt.score, verdict.NameScore)
		})
	}
}

func TestValidateMalformedEmployeeReference(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Validate(context.Background(), commuteReceipt(), models.EmployeeReference{EmployeeID: "E042"})
	require.ErrorIs(t, err, models.ErrInvalidEmployeeReference)
}

func TestReceiptValidCategoryClasses(t *testing.T) {
	addressed := models.Verdict{NameMatch: true, DateMatch: true, PickupMatch: true, DropMatch: true}
	unaddressed := models.Verdict{NameMatch: true, DateMatch: true}

	tests := []struct {
		name     string
		verdict  models.Verdict
		category models.Category
		want     bool
	}{
		{name: "meal needs only name and date", verdict: unaddressed, category: models.CategoryMeal, want: true},
		{name: "fuel needs only name and date", verdict: unaddressed, category: models.CategoryFuel, want: true},
		{name: "commute needs addresses too", verdict: unaddressed, category: models.CategoryCommute, want: false},
		{name: "commute with all four passes", verdict: addressed, category: models.CategoryCommute, want: true},
		{name: "cab alias behaves like commute", verdict: unaddressed, category: models.Category("cab"), want: false},
		{name: "name failure sinks everything", verdict: models.Verdict{DateMatch: true}, category: models.CategoryMeal, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReceiptValid(tt.verdict, tt.category))
		})
	}
}
