package reconciliation

import (
	"github.com/racunko/racunko-backend/internal/domain/bill"
)

// Evaluate decides the disposition for newBill given a set of stored bills
// one of the matching passes confirmed. The match set is expected non-empty
// and ordered oldest created_at first; an empty set yields NoDuplicate.
//
// The case ordering is load-bearing and must not be rearranged: a paid bill
// is immutable ground truth, so paid status takes precedence over
// cancellation and placeholder logic in both branches.
func Evaluate(newBill *bill.Bill, matches []*bill.Bill, matchReason string) Disposition {
	if len(matches) == 0 {
		return noDuplicate()
	}

	if newBill.IsCancellation {
		return evaluateCancellation(matches, matchReason)
	}
	return evaluateRegular(matches, matchReason)
}

// evaluateCancellation handles an incoming STORNO notice.
func evaluateCancellation(matches []*bill.Bill, matchReason string) Disposition {
	// A cancellation arriving after payment is recorded is a contradictory
	// state; surface it instead of suppressing.
	if paid := firstWithStatus(matches, bill.StatusPaid); paid != nil {
		return Disposition{
			Kind:     BlockCancellationOfPaid,
			Existing: paid,
			Reason:   matchReason,
		}
	}

	// The original bill is already tracked; no second hidden placeholder.
	return Disposition{
		Kind:     SuppressRedundantCancellation,
		Existing: matches[0],
		Reason:   matchReason,
	}
}

// evaluateRegular handles an incoming normal (payable) bill.
func evaluateRegular(matches []*bill.Bill, matchReason string) Disposition {
	if paid := firstWithStatus(matches, bill.StatusPaid); paid != nil {
		return Disposition{
			Kind:     BlockDuplicateOfPaid,
			Existing: paid,
			Reason:   matchReason,
		}
	}

	// An unpaid original outranks any cancellation placeholder in the set.
	for _, m := range matches {
		if !m.IsCancellation {
			return Disposition{
				Kind:     BlockDuplicateOfUnpaid,
				Existing: m,
				Reason:   matchReason,
			}
		}
	}

	// Only cancellation placeholders remain: the real bill supersedes the
	// temporary marker.
	return Disposition{
		Kind:     ReplaceExisting,
		Existing: matches[0],
		Reason:   matchReason,
	}
}

func firstWithStatus(matches []*bill.Bill, status bill.Status) *bill.Bill {
	for _, m := range matches {
		if m.PaymentStatus == status {
			return m
		}
	}
	return nil
}
