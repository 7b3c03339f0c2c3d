package domain

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

func (k ChangeKind) Valid() bool {
	switch k {
	case ChangeCreated, ChangeUpdated, ChangeDeleted:
		return true
	}
	return false
}

type ReleaseEvent struct {
	MediaID    string
	Title      string
	MediaType  string
	ChangeKind ChangeKind
}

// ReleaseRecord is one snapshot of a release document as delivered by the
// change feed. Fields may be missing.
type ReleaseRecord struct {
	MediaID   string `json:"mediaId"`
	Title     string `json:"title"`
	MediaType string `json:"mediaType,omitempty"`
}

type ReleaseChange struct {
	Kind   ChangeKind     `json:"kind"`
	Before *ReleaseRecord `json:"before,omitempty"`
	After  *ReleaseRecord `json:"after,omitempty"`
}

// Event extracts the release event carried by the change. It returns false
// for unknown kinds, deletions, empty after-snapshots and snapshots missing the media id or
// title: all of them are no-ops rather than errors.
func (c ReleaseChange) Event() (ReleaseEvent, bool) {
	if !c.Kind.Valid() || c.Kind == ChangeDeleted || c.After == nil {
		return ReleaseEvent{}, false
	}
	if c.After.MediaID == "" || c.After.Title == "" {
		return ReleaseEvent{}, false
	}
	return ReleaseEvent{
		MediaID:    c.After.MediaID,
		Title:      c.After.Title,
		MediaType:  c.After.MediaType,
		ChangeKind: c.Kind,
	}, true
}
