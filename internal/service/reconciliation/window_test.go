package reconciliation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/racunko/racunko-backend/internal/service/reconciliation"
)

func TestCandidateWindow(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid-month bill",
			date:      time.Date(2025, 10, 15, 12, 30, 0, 0, time.UTC),
			wantStart: time.Date(2025, 9, 26, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 11, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "first of month",
			date:      time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 12, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "last of month",
			date:      time.Date(2025, 10, 31, 23, 59, 0, 0, time.UTC),
			wantStart: time.Date(2025, 9, 26, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 11, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "january window crosses year boundary",
			date:      time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 12, 27, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "february window",
			date:      time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := reconciliation.CandidateWindow(tt.date)
			assert.True(t, start.Equal(tt.wantStart), "start: got %s, want %s", start, tt.wantStart)
			assert.True(t, end.Equal(tt.wantEnd), "end: got %s, want %s", end, tt.wantEnd)
		})
	}
}

func TestCandidateWindow_AdjacentCycleOverlap(t *testing.T) {
	// A bill on the 31st and one on the 1st of the next month must land in
	// each other's windows when they represent the same cycle.
	octLast := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	novFirst := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	start, end := reconciliation.CandidateWindow(octLast)
	assert.True(t, !novFirst.Before(start) && !novFirst.After(end),
		"november 1st must fall inside october's window [%s, %s]", start, end)

	start, end = reconciliation.CandidateWindow(novFirst)
	assert.True(t, !octLast.Before(start) && !octLast.After(end),
		"october 31st must fall inside november's window [%s, %s]", start, end)
}
