package reconciliation_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/values"
	"github.com/racunko/racunko-backend/internal/service/reconciliation"
)

// memoryBillRepo is an in-memory BillRepository for classifier tests. Both
// queries return candidates ordered oldest created_at first, matching the
// storage contract.
type memoryBillRepo struct {
	mu    sync.Mutex
	bills []*bill.Bill

	findPeriodErr error
	findRangeErr  error
}

func (r *memoryBillRepo) add(bills ...*bill.Bill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills = append(r.bills, bills...)
}

func (r *memoryBillRepo) FindByBillingPeriodAndAmount(_ context.Context, period string, amount values.Money, tolerance decimal.Decimal) ([]*bill.Bill, error) {
	if r.findPeriodErr != nil {
		return nil, r.findPeriodErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*bill.Bill
	for _, b := range r.bills {
		if b.BillingPeriod.Token() == period && b.TotalAmount.WithinTolerance(amount, tolerance) {
			out = append(out, b)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (r *memoryBillRepo) FindInDateRange(_ context.Context, start, end time.Time) ([]*bill.Bill, error) {
	if r.findRangeErr != nil {
		return nil, r.findRangeErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*bill.Bill
	for _, b := range r.bills {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func sortOldestFirst(bills []*bill.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		return bills[i].CreatedAt.Before(bills[j].CreatedAt)
	})
}

// recordingMetrics captures disposition counts per kind
type recordingMetrics struct {
	mu    sync.Mutex
	kinds map[reconciliation.DispositionKind]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{kinds: make(map[reconciliation.DispositionKind]int)}
}

func (m *recordingMetrics) RecordDisposition(kind reconciliation.DispositionKind, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds[kind]++
}

func (m *recordingMetrics) count(kind reconciliation.DispositionKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kinds[kind]
}
