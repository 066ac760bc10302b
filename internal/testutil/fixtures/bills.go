package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/values"
)

// BillBuilder builds test Bill entities
type BillBuilder struct {
	t                *testing.T
	id               uuid.UUID
	merchant         string
	date             time.Time
	amount           values.Money
	invoiceNumber    string
	billingAccountID string
	period           values.BillingPeriod
	isCancellation   bool
	isVisible        bool
	status           bill.Status
	createdAt        time.Time
}

// NewBillBuilder creates a new BillBuilder with defaults: a visible, unpaid
// EPS bill dated mid October 2025.
func NewBillBuilder(t *testing.T) *BillBuilder {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	return &BillBuilder{
		t:         t,
		id:        id,
		merchant:  "EPS SNABDEVANJE",
		date:      date,
		amount:    values.MustNewMoneyFromString("4521.36", "RSD"),
		isVisible: true,
		status:    bill.StatusUnpaid,
		createdAt: date,
	}
}

// WithID sets the bill ID
func (b *BillBuilder) WithID(id uuid.UUID) *BillBuilder {
	b.id = id
	return b
}

// Unpersisted clears the ID, modeling a bill not yet stored
func (b *BillBuilder) Unpersisted() *BillBuilder {
	b.id = uuid.Nil
	return b
}

// WithMerchant sets the merchant name
func (b *BillBuilder) WithMerchant(name string) *BillBuilder {
	b.merchant = name
	return b
}

// WithDate sets the bill's issue date
func (b *BillBuilder) WithDate(date time.Time) *BillBuilder {
	b.date = date
	return b
}

// WithAmount sets the total amount from a decimal string in RSD
func (b *BillBuilder) WithAmount(amount string) *BillBuilder {
	b.amount = values.MustNewMoneyFromString(amount, "RSD")
	return b
}

// WithInvoiceNumber sets the external invoice reference
func (b *BillBuilder) WithInvoiceNumber(n string) *BillBuilder {
	b.invoiceNumber = n
	return b
}

// WithBillingAccountID sets the biller-assigned account reference
func (b *BillBuilder) WithBillingAccountID(id string) *BillBuilder {
	b.billingAccountID = id
	return b
}

// WithBillingPeriod sets the billing cycle from a "start_end" token
func (b *BillBuilder) WithBillingPeriod(token string) *BillBuilder {
	p, err := values.ParseBillingPeriod(token)
	require.NoError(b.t, err)
	b.period = p
	return b
}

// AsCancellation marks the bill as a STORNO notice (stored hidden)
func (b *BillBuilder) AsCancellation() *BillBuilder {
	b.isCancellation = true
	b.isVisible = false
	return b
}

// WithStatus sets the payment status
func (b *BillBuilder) WithStatus(status bill.Status) *BillBuilder {
	b.status = status
	return b
}

// WithCreatedAt sets the insertion timestamp (drives candidate ordering)
func (b *BillBuilder) WithCreatedAt(ts time.Time) *BillBuilder {
	b.createdAt = ts
	return b
}

// Build creates the Bill entity
func (b *BillBuilder) Build() *bill.Bill {
	return &bill.Bill{
		ID:               b.id,
		MerchantName:     b.merchant,
		Date:             b.date,
		TotalAmount:      b.amount,
		InvoiceNumber:    b.invoiceNumber,
		BillingAccountID: b.billingAccountID,
		BillingPeriod:    b.period,
		IsCancellation:   b.isCancellation,
		IsVisible:        b.isVisible,
		PaymentStatus:    b.status,
		CreatedAt:        b.createdAt,
		UpdatedAt:        b.createdAt,
	}
}
