package reconciliation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/values"
)

// Service classifies newly parsed bills against stored ones
type Service interface {
	// Classify decides whether newBill is new, a duplicate, a replacement,
	// or a cancellation of a previously stored bill. The billing period is
	// optional; pass the zero value when the parser extracted none.
	// Classification never errors for an unmatchable bill; it errors only
	// when a storage lookup fails, and the storage error is propagated
	// unchanged.
	Classify(ctx context.Context, newBill *bill.Bill, period values.BillingPeriod) (Disposition, error)
}

// BillRepository is the slice of bill storage the classifier consumes.
// Both queries return candidates ordered oldest created_at first.
type BillRepository interface {
	// FindByBillingPeriodAndAmount returns bills whose stored billing period
	// token equals period and whose amount is within an absolute tolerance
	// of amount.
	FindByBillingPeriodAndAmount(ctx context.Context, period string, amount values.Money, tolerance decimal.Decimal) ([]*bill.Bill, error)

	// FindInDateRange returns bills dated within [start, end].
	FindInDateRange(ctx context.Context, start, end time.Time) ([]*bill.Bill, error)
}

// Metrics records classification outcomes
type Metrics interface {
	RecordDisposition(kind DispositionKind, reason string)
}
