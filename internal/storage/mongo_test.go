package storage

import (
	"testing"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func decodeDocument(t *testing.T, doc bson.M, out any) {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(raw, out))
}

func TestMongoDecode_TrackedSubject(t *testing.T) {
	tests := []struct {
		name      string
		doc       bson.M
		want      domain.TrackedSubject
		wantValid bool
	}{
		{
			name:      "int32 show id",
			doc:       bson.M{"_id": bson.NewObjectID(), "showId": int32(42), "userId": "A"},
			want:      domain.TrackedSubject{SubjectID: 42, OwnerUserID: "A"},
			wantValid: true,
		},
		{
			name:      "int64 show id with kind",
			doc:       bson.M{"showId": int64(7), "userId": "B", "kind": "show"},
			want:      domain.TrackedSubject{SubjectID: 7, OwnerUserID: "B", Kind: domain.SubjectShow},
			wantValid: true,
		},
		{
			name: "missing owner",
			doc:  bson.M{"showId": int32(9)},
			want: domain.TrackedSubject{SubjectID: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.TrackedSubject
			decodeDocument(t, tt.doc, &got)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantValid, got.Valid())
		})
	}
}

func TestMongoDecode_UserProfile(t *testing.T) {
	var profile domain.UserProfile
	decodeDocument(t, bson.M{"_id": "A", "fcmTokens": bson.A{"t1", "t2"}, "displayName": "ignored"}, &profile)

	assert.Equal(t, "A", profile.UserID)
	assert.Equal(t, []string{"t1", "t2"}, profile.DeliveryTokens)
	assert.True(t, profile.HasTokens())
}

func TestMongoDecode_WatchlistItem(t *testing.T) {
	added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var item domain.WatchlistItem
	decodeDocument(t, bson.M{
		"_id":       bson.NewObjectID(),
		"userId":    "A",
		"mediaId":   "603",
		"type":      "movie",
		"title":     "The Matrix",
		"timestamp": added,
	}, &item)

	assert.Equal(t, "A", item.OwnerUserID)
	assert.Equal(t, "603", item.MediaID)
	assert.Equal(t, "movie", item.MediaType)
	assert.Equal(t, "The Matrix", item.Title)
	assert.True(t, item.AddedAt.Equal(added))
	assert.Empty(t, item.ID)
}

func TestStaleWatchlistFilter(t *testing.T) {
	before := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	filter := staleWatchlistFilter("A", before)

	assert.Equal(t, "A", filter["userId"])
	timestamp, ok := filter["timestamp"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, before, timestamp["$lt"])
	assert.Equal(t, time.Time{}, timestamp["$gt"])
}
