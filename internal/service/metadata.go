package service

import (
	"context"
	"errors"

	"github.com/amaumene/streamscout/internal/domain"
)

type fetchResult struct {
	fact *domain.SubjectFact
	err  error
}

// MetadataFetcher memoizes provider lookups for the lifetime of one run, so
// each subject costs exactly one provider call however large its audience
// is. Failures are memoized as well. It is not safe for concurrent use.
type MetadataFetcher struct {
	provider domain.MetadataProvider
	results  map[int64]fetchResult
}

func NewMetadataFetcher(provider domain.MetadataProvider) *MetadataFetcher {
	return &MetadataFetcher{
		provider: provider,
		results:  make(map[int64]fetchResult),
	}
}

func (f *MetadataFetcher) Fetch(ctx context.Context, subjectID int64) (*domain.SubjectFact, error) {
	if res, ok := f.results[subjectID]; ok {
		return res.fact, res.err
	}

	fact, err := f.provider.FetchShow(ctx, subjectID)
	switch {
	case err != nil:
		fact = nil
		var metaErr *domain.MetadataError
		if !errors.As(err, &metaErr) {
			err = &domain.MetadataError{SubjectID: subjectID, Err: err}
		}
	case fact == nil:
		err = &domain.MetadataError{SubjectID: subjectID, Err: errors.New("empty response")}
	}

	f.results[subjectID] = fetchResult{fact: fact, err: err}
	return fact, err
}

// Calls returns the number of distinct subjects looked up so far.
func (f *MetadataFetcher) Calls() int {
	return len(f.results)
}
