package service

import (
	"time"

	"github.com/amaumene/streamscout/internal/domain"
)

// EpisodeAirsToday compares calendar dates in UTC, not timestamps. A missing
// fact or air date is never eligible.
func EpisodeAirsToday(fact *domain.SubjectFact, now time.Time) bool {
	if fact == nil || fact.AirDate == nil {
		return false
	}
	return sameUTCDate(*fact.AirDate, now)
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// IsStale reports whether the item was added strictly before now-after.
// Items without a timestamp are not stale.
func IsStale(item domain.WatchlistItem, now time.Time, after time.Duration) bool {
	if item.AddedAt.IsZero() {
		return false
	}
	return item.AddedAt.Before(now.Add(-after))
}

// ReleaseMatches is the release trigger's eligibility: the match itself.
func ReleaseMatches(audience domain.UserSet) bool {
	return len(audience) > 0
}
