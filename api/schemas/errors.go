package schemas

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound marks a referenced company, study, interaction or file that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedInput marks an entity that is missing a required field.
	ErrMalformedInput = errors.New("malformed input")
	// ErrRemoteConflict marks a write rejected because the remote version changed.
	// Callers may refetch and retry.
	ErrRemoteConflict = errors.New("remote version conflict")
	// ErrNoInsights marks a study that has no insight data to report on.
	ErrNoInsights = errors.New("no insights available")
)

// BatchError reports a write batch in which some files failed. Successful writes are
// not rolled back.
type BatchError struct {
	Failed    map[string]error
	Succeeded []string
}

func (e *BatchError) Error() string {
	paths := e.FailedPaths()
	return fmt.Sprintf("%d of %d report writes failed: %s",
		len(paths), len(paths)+len(e.Succeeded), strings.Join(paths, ", "))
}

// FailedPaths returns the failed paths in sorted order.
func (e *BatchError) FailedPaths() []string {
	paths := make([]string, 0, len(e.Failed))
	for p := range e.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, p := range e.FailedPaths() {
		errs = append(errs, e.Failed[p])
	}
	return errs
}
