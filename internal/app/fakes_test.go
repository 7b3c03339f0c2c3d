package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/amaumene/streamscout/internal/service"
)

type memStore struct {
	tracked   []domain.TrackedSubject
	profiles  []domain.UserProfile
	watchlist []domain.WatchlistItem
	err       error

	// profileRead overrides GetUserProfile when set.
	profileRead func(userID string) (*domain.UserProfile, error)
}

func (s *memStore) ListTrackedSubjects(ctx context.Context) ([]domain.TrackedSubject, error) {
	return s.tracked, s.err
}

func (s *memStore) ListUserProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	return s.profiles, s.err
}

func (s *memStore) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if s.profileRead != nil {
		return s.profileRead(userID)
	}
	for _, p := range s.profiles {
		if p.UserID == userID {
			profile := p
			return &profile, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (s *memStore) FindStaleWatchlistItems(ctx context.Context, userID string, before time.Time, limit int) ([]domain.WatchlistItem, error) {
	var out []domain.WatchlistItem
	for _, item := range s.watchlist {
		if item.OwnerUserID == userID && !item.AddedAt.IsZero() && item.AddedAt.Before(before) && len(out) < limit {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memStore) FindWatchlistByMedia(ctx context.Context, mediaID string) ([]domain.WatchlistItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.WatchlistItem
	for _, item := range s.watchlist {
		if item.MediaID == mediaID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

type stubMetadata struct {
	mu    sync.Mutex
	facts map[int64]*domain.SubjectFact
	fail  map[int64]bool
	panic map[int64]bool
	calls map[int64]int
}

func newStubMetadata() *stubMetadata {
	return &stubMetadata{
		facts: make(map[int64]*domain.SubjectFact),
		fail:  make(map[int64]bool),
		panic: make(map[int64]bool),
		calls: make(map[int64]int),
	}
}

func (m *stubMetadata) FetchShow(ctx context.Context, subjectID int64) (*domain.SubjectFact, error) {
	m.mu.Lock()
	m.calls[subjectID]++
	m.mu.Unlock()

	if m.panic[subjectID] {
		panic("provider exploded")
	}
	if m.fail[subjectID] {
		return nil, fmt.Errorf("provider down for %d", subjectID)
	}
	fact, ok := m.facts[subjectID]
	if !ok {
		return nil, domain.ErrUnknownSubject
	}
	return fact, nil
}

type recordingDelivery struct {
	mu       sync.Mutex
	bad      map[string]bool
	messages []*domain.Message
	tokens   [][]string
}

func newRecordingDelivery(bad ...string) *recordingDelivery {
	d := &recordingDelivery{bad: make(map[string]bool)}
	for _, token := range bad {
		d.bad[token] = true
	}
	return d
}

func (d *recordingDelivery) SendMulticast(ctx context.Context, msg *domain.Message, tokens []string) (*domain.BatchResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	d.tokens = append(d.tokens, append([]string(nil), tokens...))

	resp := &domain.BatchResponse{Responses: make([]domain.SendResponse, len(tokens))}
	for i, token := range tokens {
		resp.Responses[i].Success = !d.bad[token]
	}
	return resp, nil
}

func (d *recordingDelivery) allTokens() []string {
	var out []string
	for _, batch := range d.tokens {
		out = append(out, batch...)
	}
	return out
}

type fixedRand struct{}

func (fixedRand) IntN(n int) int { return 0 }

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestJobs(store *memStore, metadata *stubMetadata, delivery *recordingDelivery) *Jobs {
	resolver := service.NewAudienceResolver(store, service.WithRandSource(fixedRand{}))
	jobs := NewJobs(NewRunner(time.Minute), resolver, metadata, service.NewTokenCollector(store, 2), service.NewDispatcher(delivery))
	jobs.now = func() time.Time { return testNow }
	return jobs
}

func dayPtr(t time.Time) *time.Time {
	return &t
}
