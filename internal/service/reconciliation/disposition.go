package reconciliation

import (
	"github.com/racunko/racunko-backend/internal/domain/bill"
)

// DispositionKind enumerates every decision the classifier can reach for an
// incoming bill. The set is closed: callers switch over the kind and must
// handle all of them, so a new kind cannot be silently ignored.
type DispositionKind int

const (
	// NoDuplicate means the bill is new; proceed to insert.
	NoDuplicate DispositionKind = iota

	// BlockDuplicateOfPaid means the bill matches one already marked paid.
	// Insertion must be rejected.
	BlockDuplicateOfPaid

	// BlockDuplicateOfUnpaid means the bill matches a non-cancellation bill
	// not yet paid. Insertion must be rejected as a duplicate notification.
	BlockDuplicateOfUnpaid

	// BlockCancellationOfPaid means an incoming cancellation targets a bill
	// that is already paid. This is a billing anomaly upstream and is
	// surfaced as a warning, never silently dropped.
	BlockCancellationOfPaid

	// SuppressRedundantCancellation means an incoming cancellation is
	// redundant: an equivalent original is already tracked for the period.
	SuppressRedundantCancellation

	// ReplaceExisting means a real bill supersedes a stored cancellation
	// placeholder for the same period.
	ReplaceExisting
)

func (k DispositionKind) String() string {
	switch k {
	case NoDuplicate:
		return "no_duplicate"
	case BlockDuplicateOfPaid:
		return "block_duplicate_of_paid"
	case BlockDuplicateOfUnpaid:
		return "block_duplicate_of_unpaid"
	case BlockCancellationOfPaid:
		return "block_cancellation_of_paid"
	case SuppressRedundantCancellation:
		return "suppress_redundant_cancellation"
	case ReplaceExisting:
		return "replace_existing"
	default:
		return "unknown"
	}
}

// Match reasons attached to dispositions, in pass priority order.
const (
	ReasonPeriodAmountMerchant = "same period+amount+merchant"
	ReasonPeriodAmountAccount  = "same period+amount+account (different merchant)"
	ReasonInvoiceNumber        = "same invoice number"
)

// Disposition is the classifier's decision for a new bill. Existing is set
// for every kind except NoDuplicate and points at the stored bill the
// decision was made against.
type Disposition struct {
	Kind     DispositionKind
	Existing *bill.Bill
	Reason   string
}

// IsNoDuplicate reports whether the bill should simply be inserted
func (d Disposition) IsNoDuplicate() bool {
	return d.Kind == NoDuplicate
}

// Blocks reports whether the caller must reject insertion outright
func (d Disposition) Blocks() bool {
	switch d.Kind {
	case BlockDuplicateOfPaid, BlockDuplicateOfUnpaid, BlockCancellationOfPaid, SuppressRedundantCancellation:
		return true
	default:
		return false
	}
}

func noDuplicate() Disposition {
	return Disposition{Kind: NoDuplicate}
}
