package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable = errors.New("subject store unavailable")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrProfileNotFound  = errors.New("user profile not found")
	ErrUnknownSubject   = errors.New("unknown subject")
	ErrBatchTooLarge    = errors.New("token batch exceeds provider limit")
	ErrUnknownJob       = errors.New("unknown job")
	ErrJobRunning       = errors.New("job already running")
)

// MetadataError reports a failed metadata lookup for one subject. It never
// aborts a run: the subject is skipped and the remaining ones are processed.
type MetadataError struct {
	SubjectID int64
	Err       error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata for subject %d: %v", e.SubjectID, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// DispatchPartialFailure lists the tokens a provider rejected while the rest
// of the fan-out went through.
type DispatchPartialFailure struct {
	Sent         int
	FailedTokens []string
}

func (e *DispatchPartialFailure) Error() string {
	return fmt.Sprintf("dispatch partially failed: %d sent, %d failed", e.Sent, len(e.FailedTokens))
}
