package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
)

type fakeStore struct {
	tracked   []domain.TrackedSubject
	profiles  map[string]domain.UserProfile
	watchlist []domain.WatchlistItem

	listErr       error
	profileErrs   map[string]error
	nilProfiles   map[string]bool
	panicProfiles map[string]bool
	staleErrs     map[string]error

	mu           sync.Mutex
	profileReads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:      make(map[string]domain.UserProfile),
		profileErrs:   make(map[string]error),
		nilProfiles:   make(map[string]bool),
		panicProfiles: make(map[string]bool),
		staleErrs:     make(map[string]error),
	}
}

func (s *fakeStore) addProfile(userID string, tokens ...string) {
	s.profiles[userID] = domain.UserProfile{UserID: userID, DeliveryTokens: tokens}
}

func (s *fakeStore) ListTrackedSubjects(ctx context.Context) ([]domain.TrackedSubject, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tracked, nil
}

func (s *fakeStore) ListUserProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.UserProfile, 0, len(s.profiles))
	for _, id := range domain.NewUserSet(keys(s.profiles)...).Sorted() {
		out = append(out, s.profiles[id])
	}
	return out, nil
}

func (s *fakeStore) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.Lock()
	s.profileReads++
	s.mu.Unlock()

	if s.panicProfiles[userID] {
		panic("decoding profile " + userID)
	}
	if s.nilProfiles[userID] {
		return nil, nil
	}
	if err := s.profileErrs[userID]; err != nil {
		return nil, err
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrProfileNotFound)
	}
	return &profile, nil
}

func (s *fakeStore) FindStaleWatchlistItems(ctx context.Context, userID string, before time.Time, limit int) ([]domain.WatchlistItem, error) {
	if err := s.staleErrs[userID]; err != nil {
		return nil, err
	}
	var out []domain.WatchlistItem
	for _, item := range s.watchlist {
		if item.OwnerUserID != userID || item.AddedAt.IsZero() || !item.AddedAt.Before(before) {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) FindWatchlistByMedia(ctx context.Context, mediaID string) ([]domain.WatchlistItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.WatchlistItem
	for _, item := range s.watchlist {
		if item.MediaID == mediaID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

func keys(m map[string]domain.UserProfile) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type fakeMetadata struct {
	facts map[int64]*domain.SubjectFact
	errs  map[int64]error
	calls map[int64]int
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		facts: make(map[int64]*domain.SubjectFact),
		errs:  make(map[int64]error),
		calls: make(map[int64]int),
	}
}

func (m *fakeMetadata) FetchShow(ctx context.Context, subjectID int64) (*domain.SubjectFact, error) {
	m.calls[subjectID]++
	if err := m.errs[subjectID]; err != nil {
		return nil, err
	}
	fact, ok := m.facts[subjectID]
	if !ok {
		return nil, domain.ErrUnknownSubject
	}
	return fact, nil
}

// fakeDelivery records every batch and fails the tokens listed in bad.
type fakeDelivery struct {
	bad     map[string]bool
	failAll error
	batches [][]string
}

func newFakeDelivery(bad ...string) *fakeDelivery {
	d := &fakeDelivery{bad: make(map[string]bool)}
	for _, token := range bad {
		d.bad[token] = true
	}
	return d
}

func (d *fakeDelivery) SendMulticast(ctx context.Context, msg *domain.Message, tokens []string) (*domain.BatchResponse, error) {
	d.batches = append(d.batches, append([]string(nil), tokens...))
	if len(tokens) > domain.MaxTokensPerBatch {
		return nil, domain.ErrBatchTooLarge
	}
	if d.failAll != nil {
		return nil, d.failAll
	}
	resp := &domain.BatchResponse{Responses: make([]domain.SendResponse, len(tokens))}
	for i, token := range tokens {
		if d.bad[token] {
			resp.Responses[i] = domain.SendResponse{Err: errors.New("registration-token-not-registered")}
			continue
		}
		resp.Responses[i] = domain.SendResponse{Success: true}
	}
	return resp, nil
}

type fixedRand struct{ n int }

func (r fixedRand) IntN(n int) int {
	return r.n % n
}

func makeTokens(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%04d", prefix, i)
	}
	return out
}

func datePtr(t time.Time) *time.Time {
	return &t
}
