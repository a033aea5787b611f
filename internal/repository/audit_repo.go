package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// AuditRepository persists the artifacts of one audit run: receipts
// with their verdicts, decision groups, and the final decision text.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRun opens a new audit run and returns its id.
func (r *AuditRepository) CreateRun() (int64, error) {
	result, err := r.db.Exec(`INSERT INTO audit_runs (started_at, status) VALUES (?, 'running')`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// FinishRun marks a run completed and records the adjudication text.
func (r *AuditRepository) FinishRun(runID int64, status, decision string) error {
	_, err := r.db.Exec(
		`UPDATE audit_runs SET ended_at = ?, status = ?, decision = ? WHERE id = ?`,
		time.Now(), status, decision, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// SaveReceipt stores one receipt together with its verdict and derived
// validity.
func (r *AuditRepository) SaveReceipt(tx *sql.Tx, runID int64, receipt models.Receipt, verdict models.Verdict, valid bool) error {
	verdictJSON, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}

	query := `
		INSERT INTO receipts (
			run_id, bill_id, filename, category, emp_id, emp_name,
			rider_name, bill_date, amount, currency,
			pickup_address, drop_address, verdict, is_valid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []any{
		runID, receipt.ID, receipt.Filename, string(receipt.Category),
		receipt.EmployeeID, receipt.EmployeeName,
		receipt.RiderName, receipt.Date, receipt.Amount, receipt.Currency,
		receipt.PickupAddress, receipt.DropAddress, string(verdictJSON), valid,
	}

	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to save receipt",
			zap.String("bill_id", receipt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

// SaveGroups stores the decision groups of one run.
func (r *AuditRepository) SaveGroups(tx *sql.Tx, runID int64, groups []models.DecisionGroup) error {
	query := `
		INSERT INTO decision_groups (run_id, emp_id, emp_name, category, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, g := range groups {
		payload, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("failed to encode group: %w", err)
		}

		if tx != nil {
			_, err = tx.Exec(query, runID, g.EmployeeID, g.EmployeeName, string(g.Category), string(payload))
		} else {
			_, err = r.db.Exec(query, runID, g.EmployeeID, g.EmployeeName, string(g.Category), string(payload))
		}
		if err != nil {
			return fmt.Errorf("failed to save group: %w", err)
		}
	}
	return nil
}

// GroupsByRun returns the stored decision groups of a run in insertion
// order.
func (r *AuditRepository) GroupsByRun(runID int64) ([]models.DecisionGroup, error) {
	rows, err := r.db.Query(`SELECT payload FROM decision_groups WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []models.DecisionGroup
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		var g models.DecisionGroup
		if err := json.Unmarshal([]byte(payload), &g); err != nil {
			return nil, fmt.Errorf("corrupt group payload: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// RunDecision returns the stored adjudication text for a run.
func (r *AuditRepository) RunDecision(runID int64) (string, error) {
	var decision string
	err := r.db.QueryRow(`SELECT decision FROM audit_runs WHERE id = ?`, runID).Scan(&decision)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query run: %w", err)
	}
	return decision, nil
}
