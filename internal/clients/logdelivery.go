package clients

import (
	"context"
	"fmt"

	"github.com/amaumene/streamscout/internal/domain"
	log "github.com/sirupsen/logrus"
)

// LogDelivery reports every token as delivered without contacting a push
// provider. It is used for dry runs and when no FCM credentials are set.
type LogDelivery struct{}

func NewLogDelivery() *LogDelivery {
	return &LogDelivery{}
}

func (d *LogDelivery) SendMulticast(ctx context.Context, msg *domain.Message, tokens []string) (*domain.BatchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tokens) > domain.MaxTokensPerBatch {
		return nil, fmt.Errorf("%w: %d tokens", domain.ErrBatchTooLarge, len(tokens))
	}

	log.WithFields(log.Fields{
		"component": "delivery",
		"title":     msg.Title,
		"body":      msg.Body,
		"mediaId":   msg.Data["mediaId"],
		"tokens":    len(tokens),
	}).Info("dry run: push not sent")

	responses := make([]domain.SendResponse, len(tokens))
	for i := range responses {
		responses[i].Success = true
	}
	return &domain.BatchResponse{Responses: responses}, nil
}
