package reconciliation

import "time"

// windowBuffer absorbs timezone and parse skew around month boundaries: a
// bill timestamped on the 31st and one on the 1st of the next cycle must
// land in the same candidate window when they represent the same cycle.
const windowBuffer = 5 * 24 * time.Hour

// CandidateWindow computes the date range queried from storage to find
// plausible duplicates for a bill issued on date: the first calendar day of
// the bill's month minus the buffer through the first day of the following
// month plus the buffer. The range only bounds the candidate query; it is
// not itself a matching criterion.
func CandidateWindow(date time.Time) (start, end time.Time) {
	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	nextMonthStart := monthStart.AddDate(0, 1, 0)
	return monthStart.Add(-windowBuffer), nextMonthStart.Add(windowBuffer)
}
