package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// EmployeeRepository reads and writes the employee reference dataset.
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) *EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores or replaces one employee reference. References are
// immutable within a run; replacement only happens between runs when
// the policy dataset is reloaded.
func (r *EmployeeRepository) Upsert(ref *models.EmployeeReference) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	clients, err := json.Marshal(ref.ClientAddresses)
	if err != nil {
		return fmt.Errorf("failed to encode client addresses: %w", err)
	}

	query := `
		INSERT INTO employee_references (emp_id, emp_name, employee_address, client_addresses, bill_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(emp_id) DO UPDATE SET
			emp_name = excluded.emp_name,
			employee_address = excluded.employee_address,
			client_addresses = excluded.client_addresses,
			bill_date = excluded.bill_date
	`
	if _, err := r.db.Exec(query, ref.EmployeeID, ref.EmployeeName, ref.HomeAddress, string(clients), ref.BillDate); err != nil {
		r.logger.Error("Failed to upsert employee reference",
			zap.String("emp_id", ref.EmployeeID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert employee reference: %w", err)
	}
	return nil
}

// GetByID retrieves one employee reference, or nil when unknown.
func (r *EmployeeRepository) GetByID(empID string) (*models.EmployeeReference, error) {
	query := `
		SELECT emp_id, emp_name, employee_address, client_addresses, bill_date
		FROM employee_references WHERE emp_id = ?
	`
	row := r.db.QueryRow(query, empID)

	ref, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee reference: %w", err)
	}
	return ref, nil
}

// List returns all employee references ordered by id.
func (r *EmployeeRepository) List() ([]models.EmployeeReference, error) {
	query := `
		SELECT emp_id, emp_name, employee_address, client_addresses, bill_date
		FROM employee_references ORDER BY emp_id
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee references: %w", err)
	}
	defer rows.Close()

	var refs []models.EmployeeReference
	for rows.Next() {
		ref, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee reference: %w", err)
		}
		refs = append(refs, *ref)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*models.EmployeeReference, error) {
	var ref models.EmployeeReference
	var clients string

	if err := row.Scan(&ref.EmployeeID, &ref.EmployeeName, &ref.HomeAddress, &clients, &ref.BillDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(clients), &ref.ClientAddresses); err != nil {
		return nil, fmt.Errorf("corrupt client_addresses for %s: %w", ref.EmployeeID, err)
	}
	return &ref, nil
}
