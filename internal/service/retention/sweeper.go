package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/errors"
)

// DefaultRetentionDays is how long cancellation placeholders are kept before
// the sweeper purges them.
const DefaultRetentionDays = 7

// BillRepository is the slice of bill storage the sweeper consumes
type BillRepository interface {
	// FindCancellationsOlderThan returns cancellation bills created before cutoff
	FindCancellationsOlderThan(ctx context.Context, cutoff time.Time) ([]*bill.Bill, error)

	// DeleteByIDs removes the given bills
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

// SweepResult reports one sweep run
type SweepResult struct {
	DeletedCount int          `json:"deleted_count"`
	Message      string       `json:"message"`
	DeletedBills []*bill.Bill `json:"deleted_bills,omitempty"`
}

// Sweeper purges cancellation placeholders past the retention window. Sweeps
// are idempotent: deleting per matched record means an interrupted run can
// simply be re-run.
type Sweeper struct {
	repo   BillRepository
	logger *slog.Logger
	clock  bill.Clock
}

// NewSweeper creates a retention sweeper
func NewSweeper(repo BillRepository, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		repo:   repo,
		logger: logger,
		clock:  bill.RealClock{},
	}
}

// SetClock injects a clock for tests
func (s *Sweeper) SetClock(c bill.Clock) {
	s.clock = c
}

// SweepOldCancellations deletes all cancellation bills older than
// retentionDays. A non-positive retentionDays falls back to the default.
func (s *Sweeper) SweepOldCancellations(ctx context.Context, retentionDays int) (SweepResult, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	cutoff := s.clock.Now().AddDate(0, 0, -retentionDays)

	expired, err := s.repo.FindCancellationsOlderThan(ctx, cutoff)
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "expired cancellation lookup failed")
	}

	if len(expired) == 0 {
		return SweepResult{Message: "no expired cancellation bills"}, nil
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, b := range expired {
		ids = append(ids, b.ID)
	}

	if err := s.repo.DeleteByIDs(ctx, ids); err != nil {
		return SweepResult{}, errors.Wrap(err, "expired cancellation delete failed")
	}

	s.logger.InfoContext(ctx, "swept expired cancellation bills",
		"deleted_count", len(expired),
		"retention_days", retentionDays,
		"cutoff", cutoff)

	return SweepResult{
		DeletedCount: len(expired),
		Message:      fmt.Sprintf("removed %d expired cancellation bills", len(expired)),
		DeletedBills: expired,
	}, nil
}

// Start runs the sweeper on a fixed interval until ctx is cancelled. Sweep
// failures are logged and the loop keeps running; storage being briefly
// unavailable must not kill the schedule.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration, retentionDays int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "retention sweeper started",
		"interval", interval,
		"retention_days", retentionDays)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "retention sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOldCancellations(ctx, retentionDays); err != nil {
				s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
			}
		}
	}
}
