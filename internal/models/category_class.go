package models

// CategoryClass determines how a category's valid bills are grouped for
// adjudication.
type CategoryClass int

const (
	// MonthlyAggregate emits a single group per category summing all
	// valid amounts in the run.
	MonthlyAggregate CategoryClass = iota
	// DatePartitioned emits one group per distinct calendar date of the
	// valid bills.
	DatePartitioned
)

// CategoryClassTable maps categories to their grouping policy. The
// table encodes business policy, not an algorithmic necessity, so it is
// built from configuration; DefaultClasses is the compatibility
// default.
type CategoryClassTable map[Category]CategoryClass

// DefaultClasses returns the stock policy: meal bills are adjudicated
// per day, everything else per month.
func DefaultClasses() CategoryClassTable {
	return CategoryClassTable{
		CategoryMeal:    DatePartitioned,
		CategoryCommute: MonthlyAggregate,
		CategoryFuel:    MonthlyAggregate,
		CategoryOther:   MonthlyAggregate,
	}
}

// ClassOf resolves the grouping policy for a category. Categories the
// table does not know fall back to MonthlyAggregate; that is a policy
// default, not a failure.
func (t CategoryClassTable) ClassOf(c Category) CategoryClass {
	if cls, ok := t[NormalizeCategory(c)]; ok {
		return cls
	}
	return MonthlyAggregate
}

// AddressBearing reports whether a category carries pickup/drop
// semantics that participate in overall receipt validity.
func AddressBearing(c Category) bool {
	return NormalizeCategory(c) == CategoryCommute
}
