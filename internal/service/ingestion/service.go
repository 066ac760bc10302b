package ingestion

import (
	"context"
	"log/slog"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/errors"
	"github.com/racunko/racunko-backend/internal/domain/values"
	"github.com/racunko/racunko-backend/internal/service/reconciliation"
)

// Outcome is what the workflow did with an ingested bill
type Outcome int

const (
	// OutcomeInserted means the bill was stored as new
	OutcomeInserted Outcome = iota
	// OutcomeSkipped means the bill was rejected as a duplicate or a
	// redundant cancellation
	OutcomeSkipped
	// OutcomeReplaced means the bill superseded a stored cancellation
	// placeholder
	OutcomeReplaced
	// OutcomeWarning means a cancellation arrived for an already-paid bill;
	// the bill was rejected and the inconsistency needs the user's attention
	OutcomeWarning
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Result reports what happened to one ingested bill
type Result struct {
	Outcome     Outcome
	Bill        *bill.Bill
	Disposition reconciliation.Disposition
	Message     string
}

// service applies classifier dispositions to storage. One ingestion holds a
// short lock scoped to the bill's identity so concurrent imports of the
// same receipt serialize instead of double-inserting.
type service struct {
	classifier reconciliation.Service
	store      BillStore
	locker     Locker
	logger     *slog.Logger
}

// NewService creates the ingestion workflow
func NewService(classifier reconciliation.Service, store BillStore, locker Locker, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		classifier: classifier,
		store:      store,
		locker:     locker,
		logger:     logger,
	}
}

// IngestBill classifies one parsed bill and applies the disposition:
// insert, skip, replace, or flag for user warning. Storage failures abort
// the whole ingestion; the caller records the bill as failed and retries
// ingestion from scratch, never a partial reconciliation step.
func (s *service) IngestBill(ctx context.Context, b *bill.Bill, period values.BillingPeriod) (Result, error) {
	release, err := s.locker.Acquire(ctx, lockKey(b, period))
	if err != nil {
		return Result{}, errors.Wrap(err, "could not serialize bill import")
	}
	defer release()

	disposition, err := s.classifier.Classify(ctx, b, period)
	if err != nil {
		return Result{}, err
	}

	switch disposition.Kind {
	case reconciliation.NoDuplicate:
		return s.insert(ctx, b, period, disposition)

	case reconciliation.ReplaceExisting:
		return s.replace(ctx, b, period, disposition)

	case reconciliation.BlockDuplicateOfPaid, reconciliation.BlockDuplicateOfUnpaid:
		s.logger.InfoContext(ctx, "bill skipped as duplicate",
			"merchant", b.MerchantName,
			"reason", disposition.Reason,
			"kind", disposition.Kind.String())
		return Result{
			Outcome:     OutcomeSkipped,
			Disposition: disposition,
			Message:     "bill already tracked: " + disposition.Reason,
		}, nil

	case reconciliation.SuppressRedundantCancellation:
		// Silent: the original is already tracked.
		return Result{
			Outcome:     OutcomeSkipped,
			Disposition: disposition,
			Message:     "cancellation already covered by tracked bill",
		}, nil

	case reconciliation.BlockCancellationOfPaid:
		s.logger.WarnContext(ctx, "cancellation received for an already paid bill",
			"merchant", b.MerchantName,
			"existing_id", disposition.Existing.ID)
		return Result{
			Outcome:     OutcomeWarning,
			Disposition: disposition,
			Message:     "cancellation arrived for a bill that is already paid; check with the biller",
		}, nil

	default:
		return Result{}, errors.NewInternalError("unhandled disposition kind").
			WithDetails(map[string]interface{}{"kind": disposition.Kind.String()})
	}
}

func (s *service) insert(ctx context.Context, b *bill.Bill, period values.BillingPeriod, d reconciliation.Disposition) (Result, error) {
	prepared := b.PrepareForSave()
	prepared.BillingPeriod = period

	if err := s.store.Create(ctx, &prepared); err != nil {
		return Result{}, errors.Wrap(err, "bill insert failed")
	}

	s.logger.InfoContext(ctx, "bill stored",
		"id", prepared.ID,
		"merchant", prepared.MerchantName,
		"cancellation", prepared.IsCancellation)

	return Result{Outcome: OutcomeInserted, Bill: &prepared, Disposition: d}, nil
}

func (s *service) replace(ctx context.Context, b *bill.Bill, period values.BillingPeriod, d reconciliation.Disposition) (Result, error) {
	prepared := b.PrepareForSave()
	prepared.BillingPeriod = period

	if err := s.store.ReplaceCancellation(ctx, d.Existing.ID, &prepared); err != nil {
		return Result{}, errors.Wrap(err, "placeholder replacement failed")
	}

	s.logger.InfoContext(ctx, "bill replaced cancellation placeholder",
		"id", prepared.ID,
		"placeholder_id", d.Existing.ID,
		"merchant", prepared.MerchantName)

	return Result{Outcome: OutcomeReplaced, Bill: &prepared, Disposition: d}, nil
}

// lockKey scopes the import lock to the bill's strongest available
// identity: the billing period when present, otherwise the issue month.
func lockKey(b *bill.Bill, period values.BillingPeriod) string {
	scope := period.Token()
	if scope == "" {
		scope = b.Date.Format("2006-01")
	}
	return "ingest:" + values.Normalize(b.MerchantName) + ":" + scope
}
