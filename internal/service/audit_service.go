package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/aggregate"
	"github.com/billdesk/bill-audit/internal/config"
	"github.com/billdesk/bill-audit/internal/decision"
	"github.com/billdesk/bill-audit/internal/extract"
	"github.com/billdesk/bill-audit/internal/models"
	"github.com/billdesk/bill-audit/internal/notify"
	"github.com/billdesk/bill-audit/internal/repository"
	"github.com/billdesk/bill-audit/internal/storage"
	"github.com/billdesk/bill-audit/internal/validate"
	"github.com/billdesk/bill-audit/internal/worker"
	"github.com/billdesk/bill-audit/pkg/database"
)

// AuditService runs the full audit pipeline: load extracted receipts,
// validate each against its employee's reference record, aggregate into
// decision groups, persist, adjudicate against policy, sort the source
// files, and write the summary report.
type AuditService struct {
	cfg         *config.Config
	db          *database.DB
	employees   *repository.EmployeeRepository
	audits      *repository.AuditRepository
	loader      *extract.Loader
	validator   *validate.Validator
	aggregator  *aggregate.Aggregator
	adjudicator Adjudicator
	sorter      *storage.FileSorter
	reporter    Reporter
	notifier    *notify.Notifier
	pool        *worker.Pool
	logger      *zap.Logger
}

// Reporter writes the audit summary artifact. Satisfied by
// report.Writer; an interface so tests can capture output.
type Reporter interface {
	Write(path string, groups []models.DecisionGroup, decision string) error
}

// Adjudicator turns the grouped totals plus the reimbursement policy
// into a final decision. Satisfied by decision.Adjudicator.
type Adjudicator interface {
	Decide(ctx context.Context, policy json.RawMessage, groups []models.DecisionGroup) (string, error)
}

// Deps carries the collaborators AuditService needs.
type Deps struct {
	Config      *config.Config
	DB          *database.DB
	Employees   *repository.EmployeeRepository
	Audits      *repository.AuditRepository
	Loader      *extract.Loader
	Validator   *validate.Validator
	Aggregator  *aggregate.Aggregator
	Adjudicator Adjudicator
	Sorter      *storage.FileSorter
	Reporter    Reporter
	Notifier    *notify.Notifier
	Logger      *zap.Logger
}

// NewAuditService wires an audit service from its collaborators.
func NewAuditService(d Deps) *AuditService {
	return &AuditService{
		cfg:         d.Config,
		db:          d.DB,
		employees:   d.Employees,
		audits:      d.Audits,
		loader:      d.Loader,
		validator:   d.Validator,
		aggregator:  d.Aggregator,
		adjudicator: d.Adjudicator,
		sorter:      d.Sorter,
		reporter:    d.Reporter,
		notifier:    d.Notifier,
		pool:        worker.NewPool(d.Config.Audit.Workers, d.Logger),
		logger:      d.Logger,
	}
}

// RunResult summarizes a finished audit run.
type RunResult struct {
	RunID      int64                  `json:"run_id"`
	Groups     []models.DecisionGroup `json:"groups"`
	Decision   string                 `json:"decision"`
	ReportPath string                 `json:"report_path"`
	Failures   []string               `json:"failures,omitempty"`
}

// employeeOutcome is what one employee job hands back to the batch.
type employeeOutcome struct {
	groups    []models.DecisionGroup
	manifests []models.FileManifest
}

// Run executes one audit over everything under the extracted directory.
// A failure for one employee is recorded and skipped; the batch keeps
// going for the rest.
func (s *AuditService) Run(ctx context.Context) (*RunResult, error) {
	runID, err := s.audits.CreateRun()
	if err != nil {
		return nil, fmt.Errorf("failed to create audit run: %w", err)
	}
	s.logger.Info("Audit run started", zap.Int64("run_id", runID))

	result, err := s.run(ctx, runID)
	if err != nil {
		if ferr := s.audits.FinishRun(runID, "failed", ""); ferr != nil {
			s.logger.Error("Failed to mark run failed", zap.Error(ferr))
		}
		if s.notifier != nil {
			if nerr := s.notifier.NotifyRunFailed(ctx, runID, err); nerr != nil {
				s.logger.Warn("Failed to send failure notification", zap.Error(nerr))
			}
		}
		return nil, err
	}

	if s.notifier != nil {
		if nerr := s.notifier.NotifyRunComplete(ctx, runID, result.Groups, result.Decision); nerr != nil {
			s.logger.Warn("Failed to send completion notification", zap.Error(nerr))
		}
	}

	return result, nil
}

func (s *AuditService) run(ctx context.Context, runID int64) (*RunResult, error) {
	receipts, err := s.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load extracted receipts: %w", err)
	}
	if len(receipts) == 0 {
		s.logger.Warn("No extracted receipts found, nothing to audit")
	}

	byEmployee, order := groupByEmployee(receipts)

	var (
		mu       sync.Mutex
		outcomes = make(map[string]employeeOutcome, len(order))
	)

	jobs := make([]worker.Job, 0, len(order))
	for _, empID := range order {
		empID := empID
		empReceipts := byEmployee[empID]
		jobs = append(jobs, func(ctx context.Context) error {
			outcome, err := s.auditEmployee(ctx, runID, empID, empReceipts)
			if err != nil {
				return fmt.Errorf("employee %s: %w", empID, err)
			}
			mu.Lock()
			outcomes[empID] = *outcome
			mu.Unlock()
			return nil
		})
	}

	var failures []string
	for _, jerr := range s.pool.Run(ctx, jobs) {
		if jerr != nil {
			s.logger.Error("Employee audit failed", zap.Error(jerr))
			failures = append(failures, jerr.Error())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit run interrupted: %w", err)
	}

	// Stitch results back in deterministic employee order.
	var (
		groups    []models.DecisionGroup
		manifests []models.FileManifest
	)
	for _, empID := range order {
		outcome, ok := outcomes[empID]
		if !ok {
			continue
		}
		groups = append(groups, outcome.groups...)
		manifests = append(manifests, outcome.manifests...)
	}

	if err := s.db.WithTransaction(func(tx *sql.Tx) error {
		return s.audits.SaveGroups(tx, runID, groups)
	}); err != nil {
		return nil, fmt.Errorf("failed to persist decision groups: %w", err)
	}

	policy, err := decision.LoadPolicy(s.cfg.Audit.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit policy: %w", err)
	}
	verdict, err := s.adjudicator.Decide(ctx, policy, groups)
	if err != nil {
		return nil, fmt.Errorf("failed to adjudicate groups: %w", err)
	}

	for _, manifest := range manifests {
		if err := s.sorter.Sort(manifest); err != nil {
			s.logger.Warn("Failed to sort source files",
				zap.String("employee_id", manifest.EmployeeID),
				zap.String("category", string(manifest.Category)),
				zap.Error(err))
		}
	}

	reportPath := s.cfg.Report.OutputPath
	if err := s.reporter.Write(reportPath, groups, verdict); err != nil {
		return nil, fmt.Errorf("failed to write audit report: %w", err)
	}

	if err := s.audits.FinishRun(runID, "completed", verdict); err != nil {
		return nil, fmt.Errorf("failed to finish audit run: %w", err)
	}

	s.logger.Info("Audit run completed",
		zap.Int64("run_id", runID),
		zap.Int("employees", len(order)),
		zap.Int("groups", len(groups)),
		zap.Int("failures", len(failures)))

	return &RunResult{
		RunID:      runID,
		Groups:     groups,
		Decision:   verdict,
		ReportPath: reportPath,
		Failures:   failures,
	}, nil
}

// auditEmployee validates and aggregates one employee's receipts. A
// missing or malformed reference record fails this employee only.
func (s *AuditService) auditEmployee(ctx context.Context, runID int64, empID string, receipts []models.Receipt) (*employeeOutcome, error) {
	ref, err := s.employees.GetByID(empID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference record: %w", err)
	}
	if ref == nil {
		return nil, fmt.Errorf("no reference record: %w", models.ErrInvalidEmployeeReference)
	}

	tagged := make([]aggregate.TaggedReceipt, 0, len(receipts))
	verdicts := make([]models.Verdict, 0, len(receipts))
	for _, receipt := range receipts {
		verdict, err := s.validator.Validate(ctx, receipt, *ref)
		if err != nil {
			return nil, fmt.Errorf("failed to validate %s: %w", receipt.Filename, err)
		}
		valid := validate.ReceiptValid(verdict, receipt.Category)
		tagged = append(tagged, aggregate.TaggedReceipt{Receipt: receipt, Valid: valid})
		verdicts = append(verdicts, verdict)
	}

	if err := s.db.WithTransaction(func(tx *sql.Tx) error {
		for i, t := range tagged {
			if err := s.audits.SaveReceipt(tx, runID, t.Receipt, verdicts[i], t.Valid); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to persist verdicts: %w", err)
	}

	groups, manifests := s.aggregator.Aggregate(ref.EmployeeID, ref.EmployeeName, tagged)
	return &employeeOutcome{groups: groups, manifests: manifests}, nil
}

// groupByEmployee partitions receipts by employee id, returning the
// partition and a sorted id list for deterministic iteration.
func groupByEmployee(receipts []models.Receipt) (map[string][]models.Receipt, []string) {
	byEmployee := make(map[string][]models.Receipt)
	for _, r := range receipts {
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
	}
	order := make([]string, 0, len(byEmployee))
	for empID := range byEmployee {
		order = append(order, empID)
	}
	sort.Strings(order)
	return byEmployee, order
}
