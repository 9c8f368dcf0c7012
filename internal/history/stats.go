// Package history aggregates a user's past sessions for the dashboard.
package history

import (
	"quickconnect/internal/models"
	"quickconnect/internal/pricing"
	"quickconnect/internal/upstream"
)

// Stats summarises a user's consultation history.
type Stats struct {
	TotalSessions int   `json:"total_sessions"`
	TotalMinutes  int   `json:"total_minutes"`
	TotalSpent    int64 `json:"total_spent"`
}

// Compute folds history records into totals. Records missing a cost are
// priced through the authoritative amount function.
func Compute(records []upstream.SessionRecord) Stats {
	var stats Stats
	stats.TotalSessions = len(records)
	for _, rec := range records {
		stats.TotalMinutes += int(rec.Duration)
		if rec.Cost > 0 {
			stats.TotalSpent += int64(rec.Cost)
			continue
		}
		stats.TotalSpent += pricing.Amount(rec.Rate, models.NormalizeType(rec.SessionType))
	}
	return stats
}
