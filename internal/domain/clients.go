package domain

import (
	"context"
	"time"
)

// SubjectFact is what one metadata lookup learned about a show. It lives for
// a single run and is never persisted.
type SubjectFact struct {
	SubjectID     int64
	ShowName      string
	AirDate       *time.Time
	SeasonNumber  int64
	EpisodeNumber int64
	EpisodeName   string
}

type MetadataProvider interface {
	FetchShow(ctx context.Context, subjectID int64) (*SubjectFact, error)
}

type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

type SendResponse struct {
	Success bool
	Err     error
}

// BatchResponse holds one response per token, in the order the tokens were
// submitted.
type BatchResponse struct {
	Responses []SendResponse
}

// MaxTokensPerBatch is the delivery channel's hard per-call ceiling.
const MaxTokensPerBatch = 500

type DeliveryProvider interface {
	SendMulticast(ctx context.Context, msg *Message, tokens []string) (*BatchResponse, error)
}

type DispatchResult struct {
	Sent         int      `json:"sent"`
	Failed       int      `json:"failed"`
	FailedTokens []string `json:"failedTokens,omitempty"`
}

// Err returns a *DispatchPartialFailure when at least one token failed.
func (r DispatchResult) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return &DispatchPartialFailure{Sent: r.Sent, FailedTokens: r.FailedTokens}
}
