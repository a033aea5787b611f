package validate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
	"github.com/billdesk/bill-audit/internal/similarity"
)

// Thresholds are the signal cut-offs. They are deployment policy, not
// algorithmic constants, and come from configuration; the defaults
// below are the compatibility contract.
type Thresholds struct {
	Name    int     // minimum fuzzy name score, inclusive
	Address float64 // minimum cosine similarity, inclusive
}

// DefaultThresholds returns the stock cut-offs: 75 for names, 0.40 for
// addresses.
func DefaultThresholds() Thresholds {
	return Thresholds{Name: 75, Address: 0.40}
}

// Validator scores one receipt against the claiming employee's
// reference facts. The four signals are computed independently with no
// short-circuiting, so a reviewer always sees the full picture even
// when an early signal fails.
type Validator struct {
	thresholds Thresholds
	encoder    similarity.Encoder
	nameScore  func(a, b string) int
	logger     *zap.Logger
}

// New creates a validator. The encoder is owned by the caller and may
// be shared across validators and goroutines.
func New(thresholds Thresholds, encoder similarity.Encoder, logger *zap.Logger) *Validator {
	return &Validator{
		thresholds: thresholds,
		encoder:    encoder,
		nameScore:  similarity.NameSimilarity,
		logger:     logger,
	}
}

// Validate produces the verdict for one (receipt, employee) pair.
//
// Missing optional receipt fields score their signal as non-matching;
// they never produce an error. The only failure modes are a malformed
// employee reference, which is a caller precondition violation, and an
// encoder failure.
func (v *Validator) Validate(ctx context.Context, receipt models.Receipt, employee models.EmployeeReference) (models.Verdict, error) {
	verdict := models.Verdict{Filename: receipt.Filename}

	if err := employee.Validate(); err != nil {
		return verdict, err
	}

	// Name: fuzzy token-set ratio against the reference name.
	if receipt.RiderName != "" {
		verdict.NameScore = v.nameScore(receipt.RiderName, employee.EmployeeName)
		verdict.NameMatch = verdict.NameScore >= v.thresholds.Name
	}

	// Date: exact equality with the expected bill date. An absent
	// receipt date is a non-match.
	verdict.DateMatch = receipt.Date != "" && receipt.Date == employee.BillDate

	// Pickup and drop are scored independently against the same
	// candidate set.
	candidates := employee.CandidateAddresses()

	var err error
	verdict.PickupScore, verdict.PickupMatch, err = v.scoreAddress(ctx, receipt.PickupAddress, candidates)
	if err != nil {
		return verdict, fmt.Errorf("pickup address: %w", err)
	}
	verdict.DropScore, verdict.DropMatch, err = v.scoreAddress(ctx, receipt.DropAddress, candidates)
	if err != nil {
		return verdict, fmt.Errorf("drop address: %w", err)
	}

	verdict.InsufficientData = receipt.RiderName == "" && receipt.Date == "" &&
		receipt.PickupAddress == "" && receipt.DropAddress == ""

	v.logger.Debug("Receipt validated",
		zap.String("filename", receipt.Filename),
		zap.String("emp_id", employee.EmployeeID),
		zap.Bool("name_match", verdict.NameMatch),
		zap.Bool("date_match", verdict.DateMatch),
		zap.Bool("pickup_match", verdict.PickupMatch),
		zap.Bool("drop_match", verdict.DropMatch))

	return verdict, nil
}

// scoreAddress takes the best similarity over the candidate set: a
// commute leg is plausible if it touches the home/office or any known
// client site, not one canonical address.
func (v *Validator) scoreAddress(ctx context.Context, addr string, candidates []string) (float64, bool, error) {
	if addr == "" {
		return 0, false, nil
	}

	var best float64
	for _, candidate := range candidates {
		score, err := similarity.AddressSimilarity(ctx, v.encoder, addr, candidate)
		if err != nil {
			return 0, false, err
		}
		if score > best {
			best = score
		}
	}
	return best, best >= v.thresholds.Address, nil
}

// ReceiptValid derives the overall outcome from a verdict and the
// receipt's category. Address-bearing categories (commute) require all
// four signals; categories without address semantics require only name
// and date. The derivation must stay identical wherever validity is
// consumed.
func ReceiptValid(verdict models.Verdict, category models.Category) bool {
	if !verdict.NameMatch || !verdict.DateMatch {
		return false
	}
	if models.AddressBearing(category) {
		return verdict.PickupMatch && verdict.DropMatch
	}
	return true
}
