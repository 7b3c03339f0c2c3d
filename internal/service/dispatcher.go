package service

import (
	"context"
	"errors"

	"github.com/amaumene/streamscout/internal/domain"
	log "github.com/sirupsen/logrus"
)

// Dispatcher splits a token list into provider-sized chunks and aggregates
// per-token outcomes. It neither retries nor prunes tokens.
type Dispatcher struct {
	provider  domain.DeliveryProvider
	batchSize int
}

func NewDispatcher(provider domain.DeliveryProvider) *Dispatcher {
	return &Dispatcher{provider: provider, batchSize: domain.MaxTokensPerBatch}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg *domain.Message, tokens []string) domain.DispatchResult {
	var result domain.DispatchResult
	for start := 0; start < len(tokens); start += d.batchSize {
		end := min(start+d.batchSize, len(tokens))
		d.sendChunk(ctx, msg, tokens[start:end], &result)
	}
	return result
}

// sendChunk counts every token of the chunk exactly once. Responses missing
// from a short provider reply count as failures.
func (d *Dispatcher) sendChunk(ctx context.Context, msg *domain.Message, chunk []string, result *domain.DispatchResult) {
	resp, err := d.provider.SendMulticast(ctx, msg, chunk)
	if err == nil && resp == nil {
		err = errors.New("provider returned no batch response")
	}
	if err != nil {
		log.WithFields(log.Fields{
			"tokens": len(chunk),
			"error":  err,
		}).Error("batch delivery failed")
		result.Failed += len(chunk)
		result.FailedTokens = append(result.FailedTokens, chunk...)
		return
	}

	for idx, token := range chunk {
		if idx < len(resp.Responses) && resp.Responses[idx].Success {
			result.Sent++
			continue
		}
		result.Failed++
		result.FailedTokens = append(result.FailedTokens, token)
	}
}
