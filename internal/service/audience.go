package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultStaleAfter      = 30 * 24 * time.Hour
	DefaultStaleSampleSize = 5
)

// RandSource picks the stale watchlist item. *rand.Rand from math/rand/v2
// satisfies it, which lets tests use a seeded generator.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

type AudienceResolver struct {
	store      domain.SubjectStore
	rng        RandSource
	staleAfter time.Duration
	sampleSize int
}

type AudienceOption func(*AudienceResolver)

func WithRandSource(rng RandSource) AudienceOption {
	return func(r *AudienceResolver) {
		if rng != nil {
			r.rng = rng
		}
	}
}

func WithStaleness(after time.Duration, sampleSize int) AudienceOption {
	return func(r *AudienceResolver) {
		if after > 0 {
			r.staleAfter = after
		}
		if sampleSize > 0 {
			r.sampleSize = sampleSize
		}
	}
}

func NewAudienceResolver(store domain.SubjectStore, opts ...AudienceOption) *AudienceResolver {
	r := &AudienceResolver{
		store:      store,
		rng:        globalRand{},
		staleAfter: DefaultStaleAfter,
		sampleSize: DefaultStaleSampleSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EpisodeAudience maps each tracked show to the set of users tracking it.
type EpisodeAudience struct {
	Subjects  map[int64]domain.UserSet
	Malformed int
}

// SubjectIDs returns the tracked subjects in ascending order.
func (a *EpisodeAudience) SubjectIDs() []int64 {
	ids := make([]int64, 0, len(a.Subjects))
	for id := range a.Subjects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *AudienceResolver) ResolveEpisodeAudience(ctx context.Context) (*EpisodeAudience, error) {
	records, err := r.store.ListTrackedSubjects(ctx)
	if err != nil {
		return nil, storeUnavailable("scanning tracked subjects", err)
	}
	return groupBySubject(records), nil
}

func groupBySubject(records []domain.TrackedSubject) *EpisodeAudience {
	audience := &EpisodeAudience{Subjects: make(map[int64]domain.UserSet)}
	for _, record := range records {
		if !record.Valid() {
			audience.Malformed++
			continue
		}
		if record.Kind == domain.SubjectMovie {
			continue
		}

		users, ok := audience.Subjects[record.SubjectID]
		if !ok {
			users = domain.NewUserSet()
			audience.Subjects[record.SubjectID] = users
		}
		users.Add(record.OwnerUserID)
	}
	return audience
}

// StaleCandidate is the one watchlist item a user will be reminded about,
// drawn from Sample.
type StaleCandidate struct {
	UserID string
	Tokens []string
	Item   domain.WatchlistItem
	Sample []domain.WatchlistItem
}

type StaleScan struct {
	Candidates    []StaleCandidate
	UsersScanned  int
	UsersNoTokens int
	Malformed     int
	FailedUsers   int
}

// ResolveStaleCandidates samples, per user holding delivery tokens, at most
// sampleSize watchlist items older than the staleness threshold and picks one
// of them uniformly at random. A failing per-user query skips that user.
func (r *AudienceResolver) ResolveStaleCandidates(ctx context.Context, now time.Time) (*StaleScan, error) {
	profiles, err := r.store.ListUserProfiles(ctx)
	if err != nil {
		return nil, storeUnavailable("listing user profiles", err)
	}

	before := now.Add(-r.staleAfter)
	scan := &StaleScan{}
	for _, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if profile.UserID == "" {
			scan.Malformed++
			continue
		}
		if !profile.HasTokens() {
			scan.UsersNoTokens++
			continue
		}

		scan.UsersScanned++
		candidate, err := r.staleCandidate(ctx, profile, before, now)
		if err != nil {
			log.WithFields(log.Fields{
				"userID": profile.UserID,
				"error":  err,
			}).Warn("failed to query stale watchlist items")
			scan.FailedUsers++
			continue
		}
		if candidate != nil {
			scan.Candidates = append(scan.Candidates, *candidate)
		}
	}
	return scan, nil
}

func (r *AudienceResolver) staleCandidate(ctx context.Context, profile domain.UserProfile, before, now time.Time) (*StaleCandidate, error) {
	items, err := r.store.FindStaleWatchlistItems(ctx, profile.UserID, before, r.sampleSize)
	if err != nil {
		return nil, err
	}

	sample := make([]domain.WatchlistItem, 0, len(items))
	for _, item := range items {
		if len(sample) == r.sampleSize {
			break
		}
		if IsStale(item, now, r.staleAfter) {
			sample = append(sample, item)
		}
	}
	if len(sample) == 0 {
		return nil, nil
	}

	return &StaleCandidate{
		UserID: profile.UserID,
		Tokens: nonEmptyTokens(profile.DeliveryTokens),
		Item:   sample[r.rng.IntN(len(sample))],
		Sample: sample,
	}, nil
}

// ResolveReleaseAudience returns the owners of every watchlist entry holding
// mediaID.
func (r *AudienceResolver) ResolveReleaseAudience(ctx context.Context, mediaID string) (domain.UserSet, error) {
	items, err := r.store.FindWatchlistByMedia(ctx, mediaID)
	if err != nil {
		return nil, storeUnavailable("matching watchlist entries", err)
	}

	users := domain.NewUserSet()
	for _, item := range items {
		if item.OwnerUserID == "" {
			continue
		}
		users.Add(item.OwnerUserID)
	}
	return users, nil
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func nonEmptyTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}
