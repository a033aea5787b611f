package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/config"
	"github.com/billdesk/bill-audit/internal/models"
	"github.com/billdesk/bill-audit/internal/service"
)

type stubAuditRunner struct {
	result *service.RunResult
	err    error
}

func (s *stubAuditRunner) Run(ctx context.Context) (*service.RunResult, error) {
	return s.result, s.err
}

type stubExtractRunner struct{ err error }

func (s *stubExtractRunner) Run(ctx context.Context) error { return s.err }

type stubRunStore struct {
	groups   []models.DecisionGroup
	decision string
	err      error
}

func (s *stubRunStore) GroupsByRun(runID int64) ([]models.DecisionGroup, error) {
	return s.groups, s.err
}

func (s *stubRunStore) RunDecision(runID int64) (string, error) {
	return s.decision, s.err
}

type stubEmployeeStore struct {
	upserted []models.EmployeeReference
	list     []models.EmployeeReference
	err      error
}

func (s *stubEmployeeStore) Upsert(ref *models.EmployeeReference) error {
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, *ref)
	return nil
}

func (s *stubEmployeeStore) List() ([]models.EmployeeReference, error) {
	return s.list, s.err
}

func newTestServer(audits AuditRunner, extractor ExtractRunner, runs RunStore, employees EmployeeStore) *Server {
	logger := zap.NewNop()
	handlers := NewHandlers(audits, extractor, runs, employees, logger)
	return New(config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, handlers, logger)
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&stubAuditRunner{}, &stubExtractRunner{}, &stubRunStore{}, &stubEmployeeStore{})

	w := doRequest(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestTriggerAudit(t *testing.T) {
	runner := &stubAuditRunner{result: &service.RunResult{RunID: 7, Decision: "APPROVE"}}
	srv := newTestServer(runner, &stubExtractRunner{}, &stubRunStore{}, &stubEmployeeStore{})

	w := doRequest(srv, http.MethodPost, "/api/v1/audits", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestTriggerAuditFailure(t *testing.T) {
	runner := &stubAuditRunner{err: errors.New("no policy file")}
	srv := newTestServer(runner, &stubExtractRunner{}, &stubRunStore{}, &stubEmployeeStore{})

	w := doRequest(srv, http.MethodPost, "/api/v1/audits", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "no policy file")
}

func TestGetRunGroups(t *testing.T) {
	date := "2025-07-01"
	total := 250.0
	store := &stubRunStore{groups: []models.DecisionGroup{{
		EmployeeID:   "E042",
		EmployeeName: "Ashwini Kumar",
		Category:     models.CategoryMeal,
		Date:         &date,
		ValidBills:   []string{"m1"},
		InvalidBills: []string{},
		DailyTotal:   &total,
	}}}
	srv := newTestServer(&stubAuditRunner{}, &stubExtractRunner{}, store, &stubEmployeeStore{})

	w := doRequest(srv, http.MethodGet, "/api/v1/audits/3/groups", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"daily_total":250`)
	assert.Contains(t, w.Body.String(), `"valid_bills":["m1"]`)
}

func TestGetRunGroupsBadID(t *testing.T) {
	srv := newTestServer(&stubAuditRunner{}, &stubExtractRunner{}, &stubRunStore{}, &stubEmployeeStore{})

	w := doRequest(srv, http.MethodGet, "/api/v1/audits/abc/groups", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRunDecision(t *testing.T) {
	store := &stubRunStore{decision: "PARTIAL"}
	srv := newTestServer(&stubAuditRunner{}, &stubExtractRunner{}, store, &stubEmployeeStore{})

	w := doRequest(srv, http.MethodGet, "/api/v1/audits/3/decision", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"decision":"PARTIAL"`)
}

func TestUpsertEmployee(t *testing.T) {
	store := &stubEmployeeStore{}
	srv := newTestServer(&stubAuditRunner{}, &stubExtractRunner{}, &stubRunStore{}, store)

	body := `{"emp_name":"Ashwini Kumar","employee_address":"12 MG Road","client_addresses":["1 Tower Rd"],"bill_date":"2025-07-01"}`
	w := doRequest(srv, http.MethodPut, "/api/v1/employees/E042", body)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, "E042", store.upserted[0].EmployeeID)
	assert.Equal(t, "Ashwini Kumar", store.upserted[0].EmployeeName)
}

func TestUpsertEmployeeMissingName(t *testing.T) {
	srv := newTestServer(&stubAuditRunner{}, &stubExtractRunner{}, &stubRunStore{}, &stubEmployeeStore{})

	w := doRequest(srv, http.MethodPut, "/api/v1/employees/E042", `{"employee_address":"12 MG Road"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid employee reference")
}

func TestListEmployees(t *testing.T) {
	store := &stubEmployeeStore{list: []models.EmployeeReference{
		{EmployeeID: "E001", EmployeeName: "Priya Nair"},
	}}
	srv := newTestServer(&stubAuditRunner{}, &stubExtractRunner{}, &stubRunStore{}, store)

	w := doRequest(srv, http.MethodGet, "/api/v1/employees", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Priya Nair")
}
