package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/google/uuid"
	"github.com/timshannon/bolthold"
)

type BoltStore struct {
	store *bolthold.Store
}

func OpenBolt(path string, perm os.FileMode) (*BoltStore, error) {
	store, err := bolthold.Open(path, perm, nil)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return NewBoltStore(store), nil
}

func NewBoltStore(store *bolthold.Store) *BoltStore {
	return &BoltStore{store: store}
}

func (s *BoltStore) ListTrackedSubjects(ctx context.Context) ([]domain.TrackedSubject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var subjects []domain.TrackedSubject
	if err := s.store.Find(&subjects, nil); err != nil {
		return nil, fmt.Errorf("listing tracked subjects: %w", err)
	}
	return subjects, nil
}

func (s *BoltStore) ListUserProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var profiles []domain.UserProfile
	if err := s.store.Find(&profiles, nil); err != nil {
		return nil, fmt.Errorf("listing user profiles: %w", err)
	}
	return profiles, nil
}

func (s *BoltStore) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var profile domain.UserProfile
	err := s.store.Get(userID, &profile)
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user profile: %w", err)
	}
	profile.UserID = userID
	return &profile, nil
}

func (s *BoltStore) FindStaleWatchlistItems(ctx context.Context, userID string, before time.Time, limit int) ([]domain.WatchlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := bolthold.Where("OwnerUserID").Eq(userID).
		And("AddedAt").Lt(before).
		And("AddedAt").Gt(time.Time{}).
		SortBy("AddedAt").
		Limit(limit)

	var items []domain.WatchlistItem
	if err := s.store.Find(&items, query); err != nil {
		return nil, fmt.Errorf("finding stale watchlist items: %w", err)
	}
	return items, nil
}

func (s *BoltStore) FindWatchlistByMedia(ctx context.Context, mediaID string) ([]domain.WatchlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []domain.WatchlistItem
	err := s.store.Find(&items, bolthold.Where("MediaID").Eq(mediaID).Index("MediaID"))
	if err != nil {
		return nil, fmt.Errorf("finding watchlist by media: %w", err)
	}
	return items, nil
}

func (s *BoltStore) SaveTrackedSubject(ctx context.Context, subject *domain.TrackedSubject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}

	if err := s.store.Upsert(subject.ID, subject); err != nil {
		return fmt.Errorf("saving tracked subject: %w", err)
	}
	return nil
}

func (s *BoltStore) SaveWatchlistItem(ctx context.Context, item *domain.WatchlistItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	if err := s.store.Upsert(item.ID, item); err != nil {
		return fmt.Errorf("saving watchlist item: %w", err)
	}
	return nil
}

func (s *BoltStore) SaveUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile.UserID == "" {
		return fmt.Errorf("saving user profile: %w", domain.ErrMalformedRecord)
	}

	if err := s.store.Upsert(profile.UserID, profile); err != nil {
		return fmt.Errorf("saving user profile: %w", err)
	}
	return nil
}

func (s *BoltStore) ListWatchlistItems(ctx context.Context) ([]domain.WatchlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []domain.WatchlistItem
	if err := s.store.Find(&items, bolthold.Where("OwnerUserID").Ne("").SortBy("OwnerUserID", "AddedAt")); err != nil {
		return nil, fmt.Errorf("listing watchlist items: %w", err)
	}
	return items, nil
}

func (s *BoltStore) Close() error {
	return s.store.Close()
}
