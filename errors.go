package boardlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-boardlist/pkg/stream"
)

var (
	// ErrInvalidInput reports an Input without exactly one of query or id.
	ErrInvalidInput = errors.New("boardlist: input must carry either a query or an id")
	// ErrMapperRequired reports a fetch attempted without a DataMapper.
	ErrMapperRequired = errors.New("boardlist: data mapper is required")
	// ErrQueryMissing reports a fetch that returned neither a query nor an error.
	ErrQueryMissing = errors.New("boardlist: data mapper returned no query")
	// ErrNotInitialized reports a List used before Init.
	ErrNotInitialized = errors.New("boardlist: list not initialized")
	// ErrAlreadyInitialized reports a second Init call.
	ErrAlreadyInitialized = errors.New("boardlist: list already initialized")
	// ErrRenameRejected reports a settled name refused by the rename rule.
	ErrRenameRejected = errors.New("boardlist: rename rejected by rule")
)

// FetchError is the terminal error of a query stream whose fetch failed.
type FetchError struct {
	ID  Identifier
	Err error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("boardlist: fetch query %q: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CommitError reports a rename that could not be persisted.
type CommitError struct {
	ID   Identifier
	Name string
	Err  error
}

func (e *CommitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("boardlist: commit rename of %q to %q: %v", e.ID, e.Name, e.Err)
}

func (e *CommitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// isCancellation reports errors caused by teardown rather than failures.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, stream.ErrClosed)
}
