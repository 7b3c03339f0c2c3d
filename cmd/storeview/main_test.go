package main

import (
	"testing"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCalculateStats(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := &snapshot{
		tracked: []domain.TrackedSubject{
			{SubjectID: 42, OwnerUserID: "A"},
			{SubjectID: 42, OwnerUserID: "B"},
			{SubjectID: 7, OwnerUserID: "A"},
			{SubjectID: 0, OwnerUserID: "C"},
		},
		profiles: []domain.UserProfile{
			{UserID: "A", DeliveryTokens: []string{"a1", "a2"}},
			{UserID: "B", DeliveryTokens: []string{""}},
		},
		watchlist: []domain.WatchlistItem{
			{OwnerUserID: "A", AddedAt: now.AddDate(0, -3, 0)},
			{OwnerUserID: "A", AddedAt: now.Add(-time.Hour)},
			{OwnerUserID: "B"},
		},
	}

	stats := calculateStats(snap, now, 30*24*time.Hour)
	assert.Equal(t, storeStats{
		TrackingRecords: 4,
		TrackedShows:    2,
		Malformed:       1,
		Users:           2,
		UsersWithTokens: 1,
		Tokens:          2,
		WatchlistItems:  3,
		StaleItems:      1,
	}, stats)
}

func TestGroupAudience(t *testing.T) {
	audience, ids := groupAudience([]domain.TrackedSubject{
		{SubjectID: 42, OwnerUserID: "B"},
		{SubjectID: 42, OwnerUserID: "A"},
		{SubjectID: 42, OwnerUserID: "A"},
		{SubjectID: 7, OwnerUserID: "A"},
		{SubjectID: 9},
	})

	assert.Equal(t, []int64{7, 42}, ids)
	assert.Equal(t, []string{"A", "B"}, audience[42])
}

func TestGetColorizer(t *testing.T) {
	assert.Equal(t, "plain", getColorizer(true)("red", "plain"))
	assert.Equal(t, colorRed+"x"+colorReset, getColorizer(false)("red", "x"))
	assert.Equal(t, "x", getColorizer(false)("unknown", "x"))
}
