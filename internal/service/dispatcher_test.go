package service

import (
	"context"
	"errors"
	"testing"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchBatching(t *testing.T) {
	tests := []struct {
		name        string
		tokens      int
		wantBatches []int
	}{
		{name: "empty", tokens: 0, wantBatches: nil},
		{name: "single", tokens: 1, wantBatches: []int{1}},
		{name: "exactly one batch", tokens: 500, wantBatches: []int{500}},
		{name: "one over", tokens: 501, wantBatches: []int{500, 1}},
		{name: "several", tokens: 1234, wantBatches: []int{500, 500, 234}},
	}

	msg := &domain.Message{Title: "t", Body: "b"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := newFakeDelivery()
			tokens := makeTokens("tok", tt.tokens)

			result := NewDispatcher(delivery).Dispatch(context.Background(), msg, tokens)

			var sizes []int
			for _, batch := range delivery.batches {
				sizes = append(sizes, len(batch))
			}
			assert.Equal(t, tt.wantBatches, sizes)
			assert.Equal(t, tt.tokens, result.Sent+result.Failed)
			assert.Equal(t, tt.tokens, result.Sent)
			assert.NoError(t, result.Err())
		})
	}
}

func TestDispatchMapsFailuresAcrossBatches(t *testing.T) {
	tokens := makeTokens("tok", 501)
	delivery := newFakeDelivery(tokens[3], tokens[500])

	result := NewDispatcher(delivery).Dispatch(context.Background(), &domain.Message{}, tokens)

	require.Len(t, delivery.batches, 2)
	assert.Equal(t, tokens[:500], delivery.batches[0])
	assert.Equal(t, tokens[500:], delivery.batches[1])
	assert.Equal(t, 499, result.Sent)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{tokens[3], tokens[500]}, result.FailedTokens)

	var partial *domain.DispatchPartialFailure
	require.ErrorAs(t, result.Err(), &partial)
	assert.Equal(t, 499, partial.Sent)
}

func TestDispatchWholeBatchFailure(t *testing.T) {
	tokens := makeTokens("tok", 700)
	delivery := newFakeDelivery()
	delivery.failAll = errors.New("503 unavailable")

	result := NewDispatcher(delivery).Dispatch(context.Background(), &domain.Message{}, tokens)

	assert.Len(t, delivery.batches, 2)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 700, result.Failed)
	assert.Equal(t, tokens, result.FailedTokens)
}

type shortDelivery struct{}

func (shortDelivery) SendMulticast(ctx context.Context, msg *domain.Message, tokens []string) (*domain.BatchResponse, error) {
	return &domain.BatchResponse{Responses: []domain.SendResponse{{Success: true}}}, nil
}

func TestDispatchCountsMissingResponsesAsFailed(t *testing.T) {
	result := NewDispatcher(shortDelivery{}).Dispatch(context.Background(), &domain.Message{}, []string{"a", "b", "c"})
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{"b", "c"}, result.FailedTokens)
}

type emptyDelivery struct{}

func (emptyDelivery) SendMulticast(ctx context.Context, msg *domain.Message, tokens []string) (*domain.BatchResponse, error) {
	return nil, nil
}

func TestDispatchNilResponseFailsChunk(t *testing.T) {
	tokens := makeTokens("tok", 3)
	result := NewDispatcher(emptyDelivery{}).Dispatch(context.Background(), &domain.Message{}, tokens)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, tokens, result.FailedTokens)
}
