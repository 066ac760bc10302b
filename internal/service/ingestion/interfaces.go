package ingestion

import (
	"context"

	"github.com/google/uuid"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/values"
)

// BillStore is the slice of bill storage the ingestion workflow consumes
// for writes. Reads go through the classifier's own repository interface.
type BillStore interface {
	// Create inserts a new bill and fills in its storage-assigned id
	Create(ctx context.Context, b *bill.Bill) error

	// ReplaceCancellation atomically deletes a stored cancellation
	// placeholder and inserts the real bill superseding it
	ReplaceCancellation(ctx context.Context, placeholderID uuid.UUID, replacement *bill.Bill) error
}

// Locker serializes concurrent imports of the same bill so two simultaneous
// ingestions cannot both observe "no match" and both insert.
type Locker interface {
	// Acquire takes the named lock, returning a release func, or reports
	// that another import currently holds it.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Service runs the full ingestion workflow for one parsed bill
type Service interface {
	IngestBill(ctx context.Context, b *bill.Bill, period values.BillingPeriod) (Result, error)
}
