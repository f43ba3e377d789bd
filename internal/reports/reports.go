package reports

import (
	"time"

	"github.com/mopay/agent-service/internal/models"
)

// Range bounds a report window. A zero From or To leaves that side unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Summarize aggregates ledger activity over the given range. Records with an
// unparsable timestamp are only included when the range is unbounded.
func Summarize(txns []models.Transaction, r Range) models.Summary {
	summary := models.Summary{
		ByType:    make(map[string]models.TypeBreakdown),
		ByNetwork: make(map[string]models.NetworkBreakdown),
	}
	if !r.From.IsZero() {
		summary.From = r.From.UTC().Format(time.RFC3339)
	}
	if !r.To.IsZero() {
		summary.To = r.To.UTC().Format(time.RFC3339)
	}

	bounded := !r.From.IsZero() || !r.To.IsZero()
	for _, txn := range txns {
		if bounded {
			ts, err := time.Parse(time.RFC3339, txn.Timestamp)
			if err != nil || !r.Contains(ts) {
				continue
			}
		}

		summary.Count++
		summary.TotalAmount += txn.Amount
		summary.TotalCommission += txn.Commission

		byType := summary.ByType[txn.Type]
		byType.Count++
		byType.Amount += txn.Amount
		summary.ByType[txn.Type] = byType

		byNet := summary.ByNetwork[txn.NetworkID]
		byNet.Count++
		byNet.Amount += txn.Amount
		byNet.Commission += txn.Commission
		summary.ByNetwork[txn.NetworkID] = byNet
	}
	return summary
}
