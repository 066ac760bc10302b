package values

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// billingPeriodLayout is the date layout inside a period token.
const billingPeriodLayout = "2006-01-02"

// BillingPeriod identifies the billing cycle a bill's charges cover.
// It is carried as an opaque "start_end" token (e.g.
// "2025-10-05_2025-11-01") and used as a high-confidence join key
// alongside the amount when looking for duplicates.
type BillingPeriod struct {
	start time.Time
	end   time.Time
}

// NewBillingPeriod creates a BillingPeriod from explicit bounds.
func NewBillingPeriod(start, end time.Time) (BillingPeriod, error) {
	if start.IsZero() || end.IsZero() {
		return BillingPeriod{}, fmt.Errorf("billing period bounds cannot be zero")
	}
	if end.Before(start) {
		return BillingPeriod{}, fmt.Errorf("billing period end %s precedes start %s",
			end.Format(billingPeriodLayout), start.Format(billingPeriodLayout))
	}

	return BillingPeriod{start: start, end: end}, nil
}

// ParseBillingPeriod parses a "start_end" token produced by the receipt
// parser. An empty token yields the zero BillingPeriod without error: most
// scanned receipts carry no structured period at all.
func ParseBillingPeriod(token string) (BillingPeriod, error) {
	if token == "" {
		return BillingPeriod{}, nil
	}

	parts := strings.SplitN(token, "_", 2)
	if len(parts) != 2 {
		return BillingPeriod{}, fmt.Errorf("malformed billing period token: %q", token)
	}

	start, err := time.Parse(billingPeriodLayout, parts[0])
	if err != nil {
		return BillingPeriod{}, fmt.Errorf("invalid period start: %w", err)
	}

	end, err := time.Parse(billingPeriodLayout, parts[1])
	if err != nil {
		return BillingPeriod{}, fmt.Errorf("invalid period end: %w", err)
	}

	return NewBillingPeriod(start, end)
}

// MustNewBillingPeriod creates a BillingPeriod and panics on error (for tests)
func MustNewBillingPeriod(start, end time.Time) BillingPeriod {
	p, err := NewBillingPeriod(start, end)
	if err != nil {
		panic(err)
	}
	return p
}

// Start returns the first day of the period
func (p BillingPeriod) Start() time.Time {
	return p.start
}

// End returns the last day of the period
func (p BillingPeriod) End() time.Time {
	return p.end
}

// IsZero reports whether no billing period was provided
func (p BillingPeriod) IsZero() bool {
	return p.start.IsZero() && p.end.IsZero()
}

// Token returns the canonical "start_end" form used as the storage join key
func (p BillingPeriod) Token() string {
	if p.IsZero() {
		return ""
	}
	return p.start.Format(billingPeriodLayout) + "_" + p.end.Format(billingPeriodLayout)
}

// Equal compares two periods by their canonical token
func (p BillingPeriod) Equal(other BillingPeriod) bool {
	return p.Token() == other.Token()
}

// PaymentIdentity builds the composite identity key the parser derives for a
// bill: billing account id plus period bounds. It is the strongest duplicate
// signal when all three parts are present; empty when any part is missing.
func (p BillingPeriod) PaymentIdentity(billingAccountID string) string {
	if p.IsZero() || billingAccountID == "" {
		return ""
	}
	return Normalize(billingAccountID) + "_" + p.Token()
}

func (p BillingPeriod) String() string {
	return p.Token()
}

// MarshalJSON emits the canonical token
func (p BillingPeriod) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Token())
}

// UnmarshalJSON parses a token, accepting empty as the zero period
func (p *BillingPeriod) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}

	parsed, err := ParseBillingPeriod(token)
	if err != nil {
		return err
	}

	*p = parsed
	return nil
}
