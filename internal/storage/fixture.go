package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/amaumene/streamscout/internal/domain"
)

// Fixture is the JSON document accepted by Import.
type Fixture struct {
	TrackedSubjects []domain.TrackedSubject `json:"episodeTracking"`
	Watchlist       []domain.WatchlistItem  `json:"watchlist"`
	Users           []domain.UserProfile    `json:"users"`
}

type ImportStats struct {
	TrackedSubjects int
	WatchlistItems  int
	Users           int
}

func LoadFixture(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer file.Close()

	return DecodeFixture(file)
}

func DecodeFixture(r io.Reader) (*Fixture, error) {
	var fixture Fixture
	if err := json.NewDecoder(r).Decode(&fixture); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	return &fixture, nil
}

// Import upserts every record of the fixture.
func (s *BoltStore) Import(ctx context.Context, fixture *Fixture) (ImportStats, error) {
	var stats ImportStats

	for i := range fixture.Users {
		if err := s.SaveUserProfile(ctx, &fixture.Users[i]); err != nil {
			return stats, err
		}
		stats.Users++
	}
	for i := range fixture.TrackedSubjects {
		if err := s.SaveTrackedSubject(ctx, &fixture.TrackedSubjects[i]); err != nil {
			return stats, err
		}
		stats.TrackedSubjects++
	}
	for i := range fixture.Watchlist {
		if err := s.SaveWatchlistItem(ctx, &fixture.Watchlist[i]); err != nil {
			return stats, err
		}
		stats.WatchlistItems++
	}
	return stats, nil
}
