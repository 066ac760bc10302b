package bill

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/racunko/racunko-backend/internal/domain/values"
)

// Bill is a parsed record of a single payable or cancelled invoice. It is
// the unit under reconciliation: every newly parsed bill is classified
// against stored bills before it is persisted.
type Bill struct {
	ID           uuid.UUID    `json:"id"`
	MerchantName string       `json:"merchant_name"`
	Date         time.Time    `json:"date"`
	TotalAmount  values.Money `json:"total_amount"`

	// External references extracted by the parser
	InvoiceNumber    string `json:"invoice_number,omitempty"`
	BillingAccountID string `json:"billing_account_id,omitempty"` // "naplatni broj"

	// BillingPeriod is the cycle the charges cover; zero when the parser
	// extracted none. Stored as its token and used as a join key.
	BillingPeriod values.BillingPeriod `json:"billing_period,omitzero"`

	// A cancellation (STORNO) notice reverses a prior bill and is not
	// itself payable. Cancellations are stored hidden.
	IsCancellation bool `json:"is_cancellation"`
	IsVisible      bool `json:"is_visible"`

	PaymentStatus Status `json:"payment_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusUnpaid Status = iota
	StatusProcessing
	StatusPaid
)

func (s Status) String() string {
	switch s {
	case StatusUnpaid:
		return "unpaid"
	case StatusProcessing:
		return "processing"
	case StatusPaid:
		return "paid"
	default:
		return "unknown"
	}
}

// ParseStatus maps a storage enum string back to a Status
func ParseStatus(s string) (Status, error) {
	switch s {
	case "unpaid":
		return StatusUnpaid, nil
	case "processing":
		return StatusProcessing, nil
	case "paid":
		return StatusPaid, nil
	default:
		return StatusUnpaid, fmt.Errorf("unknown payment status: %q", s)
	}
}

// NewBill creates a not-yet-persisted bill. The ID stays nil until storage
// assigns one on insert.
func NewBill(merchantName string, date time.Time, amount values.Money) (*Bill, error) {
	if merchantName == "" {
		return nil, fmt.Errorf("merchant name cannot be empty")
	}

	if date.IsZero() {
		return nil, fmt.Errorf("bill date cannot be zero")
	}

	if amount.IsZero() || amount.IsNegative() {
		return nil, fmt.Errorf("bill amount must be positive")
	}

	now := clock.Now()
	return &Bill{
		MerchantName:  merchantName,
		Date:          date,
		TotalAmount:   amount,
		IsVisible:     true,
		PaymentStatus: StatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsPersisted reports whether storage has assigned an id
func (b *Bill) IsPersisted() bool {
	return b.ID != uuid.Nil
}

// MarkProcessing transitions UNPAID -> PROCESSING
func (b *Bill) MarkProcessing() error {
	if b.PaymentStatus != StatusUnpaid {
		return fmt.Errorf("cannot start payment from status %s", b.PaymentStatus)
	}
	b.PaymentStatus = StatusProcessing
	b.UpdatedAt = clock.Now()
	return nil
}

// MarkPaid transitions PROCESSING -> PAID. A paid bill is immutable ground
// truth for reconciliation: once one bill in a period is paid, further
// inserts for that period are blocked.
func (b *Bill) MarkPaid() error {
	if b.PaymentStatus != StatusProcessing {
		return fmt.Errorf("cannot complete payment from status %s", b.PaymentStatus)
	}
	b.PaymentStatus = StatusPaid
	b.UpdatedAt = clock.Now()
	return nil
}

// PrepareForSave returns a copy adjusted for persistence: cancellation
// notices are always stored hidden. Non-cancellation bills pass through
// unchanged. The receiver is never mutated.
func (b Bill) PrepareForSave() Bill {
	if b.IsCancellation {
		b.IsVisible = false
	}
	return b
}

// MatchableOn reports whether the bill carries at least one usable identity
// signal. A bill with no comparable merchant name, invoice number, or
// billing account id cannot match anything; classification of such a bill
// always ends in NoDuplicate rather than an error.
func (b *Bill) MatchableOn() bool {
	return values.Normalize(b.MerchantName) != "" ||
		values.Normalize(b.InvoiceNumber) != "" ||
		values.Normalize(b.BillingAccountID) != ""
}
