package domain

import (
	"context"
	"sort"
	"time"
)

type SubjectKind string

const (
	SubjectShow  SubjectKind = "show"
	SubjectMovie SubjectKind = "movie"
)

// TrackedSubject is one (user, subject) opt-in. Many users may track the
// same subject; the same user may even track it twice.
type TrackedSubject struct {
	ID          string      `json:"id" bson:"-" boltholdKey:"ID"`
	SubjectID   int64       `json:"showId" bson:"showId" boltholdIndex:"SubjectID"`
	Kind        SubjectKind `json:"kind,omitempty" bson:"kind,omitempty"`
	OwnerUserID string      `json:"userId" bson:"userId"`
}

// Valid reports whether the record carries both an owner and a subject.
func (t TrackedSubject) Valid() bool {
	return t.SubjectID != 0 && t.OwnerUserID != ""
}

type WatchlistItem struct {
	ID          string    `json:"id" bson:"-" boltholdKey:"ID"`
	OwnerUserID string    `json:"userId" bson:"userId" boltholdIndex:"OwnerUserID"`
	MediaID     string    `json:"mediaId" bson:"mediaId" boltholdIndex:"MediaID"`
	MediaType   string    `json:"type,omitempty" bson:"type,omitempty"`
	Title       string    `json:"title" bson:"title"`
	AddedAt     time.Time `json:"timestamp" bson:"timestamp"`
}

type UserProfile struct {
	UserID         string   `json:"id" bson:"_id" boltholdKey:"UserID"`
	DeliveryTokens []string `json:"fcmTokens" bson:"fcmTokens"`
}

// HasTokens reports whether at least one non-empty token is registered.
func (p UserProfile) HasTokens() bool {
	for _, token := range p.DeliveryTokens {
		if token != "" {
			return true
		}
	}
	return false
}

// UserSet holds the audience of one subject. A user tracking the same
// subject twice is still a single member.
type UserSet map[string]struct{}

func NewUserSet(ids ...string) UserSet {
	set := make(UserSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

func (s UserSet) Add(id string) {
	s[id] = struct{}{}
}

func (s UserSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in a stable order for logging and iteration.
func (s UserSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SubjectStore is the read side of the record store. The engine never
// writes through it.
type SubjectStore interface {
	ListTrackedSubjects(ctx context.Context) ([]TrackedSubject, error)
	ListUserProfiles(ctx context.Context) ([]UserProfile, error)
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)
	FindStaleWatchlistItems(ctx context.Context, userID string, before time.Time, limit int) ([]WatchlistItem, error)
	FindWatchlistByMedia(ctx context.Context, mediaID string) ([]WatchlistItem, error)
	Close() error
}
