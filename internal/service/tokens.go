package service

import (
	"context"
	"errors"

	"github.com/amaumene/streamscout/internal/domain"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultProfileParallelism = 8

type TokenCollector struct {
	store       domain.SubjectStore
	parallelism int
}

func NewTokenCollector(store domain.SubjectStore, parallelism int) *TokenCollector {
	if parallelism <= 0 {
		parallelism = DefaultProfileParallelism
	}
	return &TokenCollector{store: store, parallelism: parallelism}
}

// TokenCollection is the flattened token list of an audience. Tokens follow
// the sorted user order; FailedUsers counts profile reads that errored.
type TokenCollection struct {
	Tokens      []string
	Users       int
	NoTokens    int
	FailedUsers int
}

// Collect reads one profile per user. Users without a profile or without
// tokens contribute nothing. A failed read skips that user only; the
// returned error is non-nil only when ctx is done.
func (c *TokenCollector) Collect(ctx context.Context, users domain.UserSet) (*TokenCollection, error) {
	ids := users.Sorted()
	perUser := make([][]string, len(ids))
	failed := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i, userID := range ids {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					log.WithFields(log.Fields{
						"userID": userID,
						"panic":  p,
					}).Error("recovered panic while reading user profile")
					failed[i] = true
				}
			}()

			profile, err := c.store.GetUserProfile(ctx, userID)
			switch {
			case errors.Is(err, domain.ErrProfileNotFound), err == nil && profile == nil:
				return nil
			case err != nil:
				log.WithFields(log.Fields{
					"userID": userID,
					"error":  err,
				}).Warn("failed to read user profile")
				failed[i] = true
				return nil
			}
			perUser[i] = nonEmptyTokens(profile.DeliveryTokens)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &TokenCollection{Users: len(ids)}
	for i, tokens := range perUser {
		if failed[i] {
			out.FailedUsers++
			continue
		}
		if len(tokens) == 0 {
			out.NoTokens++
			continue
		}
		out.Tokens = append(out.Tokens, tokens...)
	}
	return out, nil
}
