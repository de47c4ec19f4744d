package storage

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateCode is returned by Create when the code collides with an
// active link. The unique index on the store is the authoritative guard;
// callers must handle this even after a successful existence pre-check.
var ErrDuplicateCode = errors.New("duplicate code")

type LinkStorage interface {
	// Create inserts a new link. Returns ErrDuplicateCode on a code collision.
	Create(ctx context.Context, link *Link) error
	// GetByCode returns the active link for code, or nil if absent.
	GetByCode(ctx context.Context, code string) (*Link, error)
	// CodeExists reports whether code is taken. With includeDeleted it also
	// considers soft-deleted rows.
	CodeExists(ctx context.Context, code string, includeDeleted bool) (bool, error)
	// List returns a page of active links ordered by creation time, newest
	// first, plus the total count of matches. A non-empty search matches
	// code or target URL as a case-insensitive substring.
	List(ctx context.Context, page, limit int, search string) ([]Link, int64, error)
	// RecordVisit atomically increments the click counter and stamps the
	// visit time in a single store operation, returning the updated link.
	// Returns nil if the code is absent or deleted.
	RecordVisit(ctx context.Context, code string, at time.Time) (*Link, error)
	// MarkDeleted soft-deletes the link. Returns false if absent.
	MarkDeleted(ctx context.Context, code string) (bool, error)
}
