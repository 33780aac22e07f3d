package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sifan077/curto/internal/app/model"
)

var (
	// ErrLinkNotFound signals that no stored link has the requested ID. It
	// reports absence and is never counted as a store failure.
	ErrLinkNotFound = errors.New("link not found")

	// ErrDuplicateID signals that the ID being inserted is already stored.
	ErrDuplicateID = errors.New("link id already in use")

	// ErrTimeout signals that the store did not answer before the deadline.
	ErrTimeout = errors.New("store timeout")

	// ErrStoreFailure wraps any other error reported by the backend.
	ErrStoreFailure = errors.New("store failure")
)

// LinkStore defines the data access contract for short links.
//
// IncrementRedirectCount must be a single atomic update so that concurrent
// redirects never lose an increment.
type LinkStore interface {
	Insert(ctx context.Context, id, targetURL string) (*model.Link, error)
	FindByID(ctx context.Context, id string) (*model.Link, error)
	ListAll(ctx context.Context) ([]model.Link, error)
	IncrementRedirectCount(ctx context.Context, id string) (*model.Link, error)
}

func storeFailure(op string, err error) error {
	if errors.Is(err, ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}
