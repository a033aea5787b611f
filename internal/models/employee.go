package models

import "errors"

// ErrInvalidEmployeeReference reports a reference record missing its
// identity fields. This is an upstream data integrity bug: fatal for
// that employee's run, not for the batch.
var ErrInvalidEmployeeReference = errors.New("invalid employee reference: missing id or name")

// EmployeeReference carries the ground-truth facts a claim is audited
// against for one run. Immutable once constructed; EmployeeID is unique
// within a run.
type EmployeeReference struct {
	EmployeeID      string   `json:"emp_id"`
	EmployeeName    string   `json:"emp_name"`
	HomeAddress     string   `json:"employee_address"`
	ClientAddresses []string `json:"client_addresses"`
	BillDate        string   `json:"bill_date"` // expected ISO date for date-bound categories
}

// Validate checks the caller precondition on identity fields.
func (e *EmployeeReference) Validate() error {
	if e.EmployeeID == "" || e.EmployeeName == "" {
		return ErrInvalidEmployeeReference
	}
	return nil
}

// CandidateAddresses returns the home/office address followed by all
// known client sites. A commute leg is plausible if it touches any of
// them, so address matching takes the maximum score over this set.
func (e *EmployeeReference) CandidateAddresses() []string {
	out := make([]string, 0, len(e.ClientAddresses)+1)
	out = append(out, e.HomeAddress)
	out = append(out, e.ClientAddresses...)
	return out
}
