package aggregate

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// TaggedReceipt pairs a receipt with its derived overall validity (see
// validate.ReceiptValid). The aggregator never re-derives validity.
type TaggedReceipt struct {
	Receipt models.Receipt
	Valid   bool
}

// Aggregator groups one employee's validated receipts into the decision
// units handed to policy adjudication, plus the per-category file
// manifests that drive source-document sorting.
//
// Input order is preserved throughout: the caller's scan order fixes
// the order of categories, of bill ids within groups, and of filenames
// within manifests.
type Aggregator struct {
	classes models.CategoryClassTable
	logger  *zap.Logger
}

// New creates an aggregator with the given category-class policy table.
func New(classes models.CategoryClassTable, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		classes: classes,
		logger:  logger,
	}
}

// Aggregate partitions receipts by category and validity and emits the
// decision groups and manifests for one employee.
//
// A category with zero receipts produces nothing; a receipt whose
// amount fails numeric parsing contributes 0 to totals rather than
// aborting its siblings.
func (a *Aggregator) Aggregate(employeeID, employeeName string, receipts []TaggedReceipt) ([]models.DecisionGroup, []models.FileManifest) {
	var order []models.Category
	byCategory := make(map[models.Category][]TaggedReceipt)
	for _, tr := range receipts {
		cat := models.NormalizeCategory(tr.Receipt.Category)
		if _, seen := byCategory[cat]; !seen {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], tr)
	}

	groups := make([]models.DecisionGroup, 0, len(order))
	manifests := make([]models.FileManifest, 0, len(order))

	for _, cat := range order {
		var valid, invalid []models.Receipt
		for _, tr := range byCategory[cat] {
			if tr.Valid {
				valid = append(valid, tr.Receipt)
			} else {
				invalid = append(invalid, tr.Receipt)
			}
		}

		// Date partitioning needs at least one valid bill to anchor a
		// date; a date-partitioned category with none falls back to a
		// single monthly group so its invalid bills still surface.
		if a.classes.ClassOf(cat) == models.DatePartitioned && len(valid) > 0 {
			groups = append(groups, a.dailyGroups(employeeID, employeeName, cat, valid, invalid)...)
		} else {
			groups = append(groups, a.monthlyGroup(employeeID, employeeName, cat, valid, invalid))
		}

		manifests = append(manifests, models.FileManifest{
			EmployeeID:   employeeID,
			EmployeeName: employeeName,
			Category:     cat,
			ValidFiles:   filenames(valid),
			InvalidFiles: filenames(invalid),
		})
	}

	a.logger.Debug("Receipts aggregated",
		zap.String("emp_id", employeeID),
		zap.Int("receipts", len(receipts)),
		zap.Int("groups", len(groups)))

	return groups, manifests
}

// dailyGroups emits one group per distinct date of the valid bills, in
// first-seen order. Invalid bills attach to the group whose date they
// claim.
func (a *Aggregator) dailyGroups(employeeID, employeeName string, cat models.Category, valid, invalid []models.Receipt) []models.DecisionGroup {
	var dates []string
	totals := make(map[string]float64)
	for _, r := range valid {
		if _, seen := totals[r.Date]; !seen {
			dates = append(dates, r.Date)
		}
		totals[r.Date] += parseAmount(r.Amount)
	}

	groups := make([]models.DecisionGroup, 0, len(dates))
	for _, date := range dates {
		d := date
		total := totals[date]
		groups = append(groups, models.DecisionGroup{
			EmployeeID:   employeeID,
			EmployeeName: employeeName,
			Category:     cat,
			Date:         &d,
			ValidBills:   idsOnDate(valid, date),
			InvalidBills: idsOnDate(invalid, date),
			DailyTotal:   &total,
		})
	}
	return groups
}

// monthlyGroup emits the single per-category group summing all valid
// amounts regardless of date.
func (a *Aggregator) monthlyGroup(employeeID, employeeName string, cat models.Category, valid, invalid []models.Receipt) models.DecisionGroup {
	var total float64
	for _, r := range valid {
		total += parseAmount(r.Amount)
	}

	return models.DecisionGroup{
		EmployeeID:   employeeID,
		EmployeeName: employeeName,
		Category:     cat,
		ValidBills:   ids(valid),
		InvalidBills: ids(invalid),
		MonthlyTotal: &total,
	}
}

// parseAmount turns a claimed amount into a number, substituting 0 for
// absent or unparsable values so one bad receipt cannot block totals
// for its siblings.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func ids(receipts []models.Receipt) []string {
	out := make([]string, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, r.ID)
	}
	return out
}

func idsOnDate(receipts []models.Receipt, date string) []string {
	out := make([]string, 0, len(receipts))
	for _, r := range receipts {
		if r.Date == date {
			out = append(out, r.ID)
		}
	}
	return out
}

func filenames(receipts []models.Receipt) []string {
	out := make([]string, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, r.Filename)
	}
	return out
}
