package models

// DecisionGroup is the smallest bundle of bills handed to policy
// adjudication as one reviewable item: one employee, one category and,
// for date-partitioned categories, one calendar date.
//
// Exactly one of DailyTotal/MonthlyTotal is populated, matching the
// category class. ValidBills and InvalidBills partition the receipts of
// the group with no overlap and no omission.
type DecisionGroup struct {
	EmployeeID   string   `json:"employee_id"`
	EmployeeName string   `json:"employee_name"`
	Category     Category `json:"category"`
	Date         *string  `json:"date"`
	ValidBills   []string `json:"valid_bills"`
	InvalidBills []string `json:"invalid_bills"`
	DailyTotal   *float64 `json:"daily_total"`
	MonthlyTotal *float64 `json:"monthly_total"`
}

// FileManifest records, per employee and category, which source
// filenames were judged valid and invalid. It only drives file
// placement; financial logic never reads it.
type FileManifest struct {
	EmployeeID   string   `json:"employee_id"`
	EmployeeName string   `json:"employee_name"`
	Category     Category `json:"category"`
	ValidFiles   []string `json:"valid_files"`
	InvalidFiles []string `json:"invalid_files"`
}
