package reconciliation

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/errors"
	"github.com/racunko/racunko-backend/internal/domain/values"
)

// amountTolerance is the absolute tolerance, in currency units, applied when
// joining on billing period + amount. It absorbs rounding differences
// between a scanned receipt and an emailed one. Deliberately absolute, not
// relative to the amount's magnitude.
var amountTolerance = decimal.NewFromFloat(0.1)

// service implements Service. It runs the matching passes in strict priority
// order: billing period + amount first (structured fields the parser
// extracts with high confidence), invoice number second (free text prone to
// OCR noise). Bare amount + merchant + date-proximity matching is not a
// signal here; it produced false positives and was removed.
type service struct {
	repo    BillRepository
	logger  *slog.Logger
	metrics Metrics
}

// NewService creates the duplicate classifier
func NewService(repo BillRepository, logger *slog.Logger, metrics Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// Classify runs the matching passes against storage and evaluates any
// confirmed match set through the reconciliation rules. The first pass whose
// match set yields a non-NoDuplicate disposition wins.
func (s *service) Classify(ctx context.Context, newBill *bill.Bill, period values.BillingPeriod) (Disposition, error) {
	// A bill with no usable identity signal cannot match anything. This is
	// not an error; it simply classifies as new on every pass.
	if !newBill.MatchableOn() {
		s.logger.DebugContext(ctx, "bill carries no comparable identity, skipping classification",
			"merchant", newBill.MerchantName)
		return s.record(noDuplicate()), nil
	}

	if !period.IsZero() {
		d, err := s.classifyByPeriodAndAmount(ctx, newBill, period)
		if err != nil {
			return Disposition{}, err
		}
		if !d.IsNoDuplicate() {
			return s.record(d), nil
		}
	}

	d, err := s.classifyByInvoiceNumber(ctx, newBill)
	if err != nil {
		return Disposition{}, err
	}
	return s.record(d), nil
}

// classifyByPeriodAndAmount is the highest-priority pass: bills sharing the
// exact billing period token and an amount within the absolute tolerance. A
// coincidental amount alone is not enough; the merchant name or the billing
// account id has to confirm the match.
func (s *service) classifyByPeriodAndAmount(ctx context.Context, newBill *bill.Bill, period values.BillingPeriod) (Disposition, error) {
	candidates, err := s.repo.FindByBillingPeriodAndAmount(ctx, period.Token(), newBill.TotalAmount, amountTolerance)
	if err != nil {
		return Disposition{}, errors.Wrap(err, "period+amount candidate lookup failed")
	}

	var matches []*bill.Bill
	reasons := make(map[*bill.Bill]string)

	for _, c := range candidates {
		if c.ID == newBill.ID && newBill.IsPersisted() {
			continue
		}

		switch {
		case values.TextMatches(c.MerchantName, newBill.MerchantName):
			matches = append(matches, c)
			reasons[c] = ReasonPeriodAmountMerchant
		case bothAccountIDsEqual(c, newBill):
			matches = append(matches, c)
			reasons[c] = ReasonPeriodAmountAccount
		default:
			// Different company, coincidental amount.
			s.logger.DebugContext(ctx, "candidate shares period+amount but nothing else",
				"candidate_merchant", c.MerchantName,
				"new_merchant", newBill.MerchantName,
				"period", period.Token())
		}
	}

	return s.evaluate(ctx, newBill, matches, ReasonPeriodAmountMerchant, reasons), nil
}

// classifyByInvoiceNumber is the fallback pass: any bill in the calendar
// month window carrying the same normalized invoice number. Two empty
// invoice numbers never match.
func (s *service) classifyByInvoiceNumber(ctx context.Context, newBill *bill.Bill) (Disposition, error) {
	start, end := CandidateWindow(newBill.Date)

	candidates, err := s.repo.FindInDateRange(ctx, start, end)
	if err != nil {
		return Disposition{}, errors.Wrap(err, "window candidate lookup failed")
	}

	var matches []*bill.Bill
	for _, c := range candidates {
		if c.ID == newBill.ID && newBill.IsPersisted() {
			continue
		}
		if values.TextMatches(c.InvoiceNumber, newBill.InvoiceNumber) {
			matches = append(matches, c)
		}
	}

	return s.evaluate(ctx, newBill, matches, ReasonInvoiceNumber, nil), nil
}

// evaluate hands the full match set of one pass to the reconciliation
// rules. Oldest bills are considered first; paid-status precedence inside
// the rules keeps the outcome deterministic even when the set is ambiguous.
// When per-match reasons are supplied, the disposition carries the reason
// for the match it ultimately names.
func (s *service) evaluate(ctx context.Context, newBill *bill.Bill, matches []*bill.Bill, reason string, reasons map[*bill.Bill]string) Disposition {
	if len(matches) == 0 {
		return noDuplicate()
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	if len(matches) > 1 {
		s.logger.WarnContext(ctx, "ambiguous match set, resolving by status precedence",
			"reason", reason,
			"match_count", len(matches),
			"merchant", newBill.MerchantName)
	}

	d := Evaluate(newBill, matches, reason)
	if r, ok := reasons[d.Existing]; ok {
		d.Reason = r
	}
	return d
}

func (s *service) record(d Disposition) Disposition {
	if s.metrics != nil {
		s.metrics.RecordDisposition(d.Kind, d.Reason)
	}
	return d
}

func bothAccountIDsEqual(a, b *bill.Bill) bool {
	return values.TextMatches(a.BillingAccountID, b.BillingAccountID)
}
