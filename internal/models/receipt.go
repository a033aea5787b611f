package models

// Category identifies the expense bucket a receipt was filed under.
// Categories arrive from the extraction pipeline via folder convention.
type Category string

const (
	CategoryMeal    Category = "meal"
	CategoryCommute Category = "commute"
	CategoryFuel    Category = "fuel"
	CategoryOther   Category = "other"

	// categoryCab is a legacy folder alias still produced by older
	// extraction runs; it is normalized to commute everywhere.
	categoryCab Category = "cab"
)

// DefaultCurrency is assumed when the extractor could not read one.
const DefaultCurrency = "INR"

// NormalizeCategory maps legacy aliases onto their canonical category.
func NormalizeCategory(c Category) Category {
	if c == categoryCab {
		return CategoryCommute
	}
	return c
}

// Receipt is one normalized bill record produced by the extraction
// pipeline. It is read-only to the audit core: validation never mutates
// it, it only produces a Verdict keyed back by filename.
//
// All claim fields are optional. An absent field is "no signal" for the
// validator, never an error.
type Receipt struct {
	ID            string   `json:"id"`
	Filename      string   `json:"filename"`
	Category      Category `json:"category"`
	EmployeeID    string   `json:"emp_id"`
	EmployeeName  string   `json:"emp_name"`
	RiderName     string   `json:"rider_name,omitempty"`
	Date          string   `json:"date,omitempty"` // ISO calendar date (YYYY-MM-DD)
	Amount        string   `json:"amount,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	PickupAddress string   `json:"pickup_address,omitempty"`
	DropAddress   string   `json:"drop_address,omitempty"`
}
