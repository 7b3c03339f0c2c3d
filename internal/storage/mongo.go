package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	collectionEpisodeTracking = "episode_tracking"
	collectionWatchlist       = "watchlist"
	collectionUsers           = "users"
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, url, database string, connectTimeout time.Duration) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(url).SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// ListTrackedSubjects decodes records one by one. A document that does not
// decode is returned as an empty record so the caller counts it as
// malformed instead of losing the whole scan.
func (s *MongoStore) ListTrackedSubjects(ctx context.Context) ([]domain.TrackedSubject, error) {
	cursor, err := s.db.Collection(collectionEpisodeTracking).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing tracked subjects: %w", err)
	}
	defer cursor.Close(ctx)

	var subjects []domain.TrackedSubject
	for cursor.Next(ctx) {
		var subject domain.TrackedSubject
		if err := cursor.Decode(&subject); err != nil {
			log.WithFields(log.Fields{
				"collection": collectionEpisodeTracking,
				"error":      err,
			}).Debug("undecodable tracking document")
			subject = domain.TrackedSubject{}
		}
		subjects = append(subjects, subject)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracked subjects: %w", err)
	}
	return subjects, nil
}

func (s *MongoStore) ListUserProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	cursor, err := s.db.Collection(collectionUsers).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing user profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []domain.UserProfile
	for cursor.Next(ctx) {
		var profile domain.UserProfile
		if err := cursor.Decode(&profile); err != nil {
			log.WithFields(log.Fields{
				"collection": collectionUsers,
				"error":      err,
			}).Debug("undecodable user document")
			continue
		}
		profiles = append(profiles, profile)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating user profiles: %w", err)
	}
	return profiles, nil
}

func (s *MongoStore) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := s.db.Collection(collectionUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user profile: %w", err)
	}
	return &profile, nil
}

func (s *MongoStore) FindStaleWatchlistItems(ctx context.Context, userID string, before time.Time, limit int) ([]domain.WatchlistItem, error) {
	filter := staleWatchlistFilter(userID, before)
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(int64(limit))

	return s.findWatchlist(ctx, filter, opts)
}

// staleWatchlistFilter excludes documents without a timestamp, which decode
// as the zero time.
func staleWatchlistFilter(userID string, before time.Time) bson.M {
	return bson.M{
		"userId":    userID,
		"timestamp": bson.M{"$lt": before, "$gt": time.Time{}},
	}
}

func (s *MongoStore) FindWatchlistByMedia(ctx context.Context, mediaID string) ([]domain.WatchlistItem, error) {
	return s.findWatchlist(ctx, bson.M{"mediaId": mediaID}, options.Find())
}

func (s *MongoStore) findWatchlist(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]domain.WatchlistItem, error) {
	cursor, err := s.db.Collection(collectionWatchlist).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding watchlist items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []domain.WatchlistItem
	for cursor.Next(ctx) {
		var item domain.WatchlistItem
		if err := cursor.Decode(&item); err != nil {
			log.WithFields(log.Fields{
				"collection": collectionWatchlist,
				"error":      err,
			}).Debug("undecodable watchlist document")
			continue
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating watchlist items: %w", err)
	}
	return items, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
