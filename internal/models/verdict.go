package models

// Verdict is the per-receipt validation outcome. Exactly one exists per
// receipt per run and it is immutable once produced. It references the
// receipt by filename, not by pointer.
//
// All four flags and all three scores are always populated, even when a
// signal fails: a human reviewer sees the full picture.
type Verdict struct {
	Filename    string  `json:"filename"`
	NameMatch   bool    `json:"name_match"`
	DateMatch   bool    `json:"date_match"`
	PickupMatch bool    `json:"pickup_match"`
	DropMatch   bool    `json:"drop_match"`
	NameScore   int     `json:"name_match_score"`   // 0..100
	PickupScore float64 `json:"pickup_match_score"` // 0.0..1.0
	DropScore   float64 `json:"drop_match_score"`   // 0.0..1.0

	// InsufficientData marks receipts where every optional claim field
	// was absent. Such receipts are still invalid, but the flag keeps
	// them distinguishable from receipts that failed real comparisons.
	InsufficientData bool `json:"insufficient_data,omitempty"`
}
