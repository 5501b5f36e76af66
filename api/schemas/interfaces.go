package schemas

import (
	"context"
)

// -- Entity Source --

// EntitySource loads the entity collections a report run works from. A collection
// that does not exist yet is returned as an empty slice, not an error.
//
//go:generate mockery --name EntitySource --output ../../internal/mocks --outpkg mocks
type EntitySource interface {
	Companies(ctx context.Context) ([]Company, error)
	Interactions(ctx context.Context) ([]Interaction, error)
	Studies(ctx context.Context) ([]Study, error)
}

// -- Remote File Store --

// FileStore is a remote location generated reports are persisted to. Writes are
// conditional on a version token: an empty token creates a new file, a non-empty
// token updates the file only if it still carries that version. A mismatch is
// reported as ErrRemoteConflict.
//
//go:generate mockery --name FileStore --output ../../internal/mocks --outpkg mocks
type FileStore interface {
	// List returns the files directly inside dir.
	List(ctx context.Context, dir string) ([]RemoteFile, error)
	// Put creates or updates path.
	Put(ctx context.Context, path string, content []byte, version string) error
	// Delete removes path if it still carries version.
	Delete(ctx context.Context, path string, version string) error
	// Flush makes pending writes durable (for stores that batch them).
	Flush(ctx context.Context, message string) error
}
