package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/poofware/todo-service/shared/go-utils"
)

// DefaultMaxRetries bounds the optimistic-locking loop.
const DefaultMaxRetries = 3

// EntityWithVersion is a row guarded by a row_version column. The type must
// be comparable so a missing row can be detected against its zero value.
type EntityWithVersion interface {
	comparable
	GetID() string
	GetRowVersion() int64
	SetRowVersion(int64)
}

// UpdateIfVersionFunc writes entity only while the stored version still
// equals expected; zero rows affected means another writer got there first.
type UpdateIfVersionFunc[T EntityWithVersion] func(ctx context.Context, entity T, expected int64) (pgconn.CommandTag, error)

// GetByIDFunc loads a fresh copy, returning the zero T when absent.
type GetByIDFunc[T EntityWithVersion] func(ctx context.Context, id string) (T, error)

// WithRetry reloads, mutates and conditionally writes the entity until a
// write lands or maxRetries attempts are spent. An absent row returns
// notFound. Running out of attempts wraps utils.ErrRowVersionConflict.
func WithRetry[T EntityWithVersion](
	ctx context.Context,
	maxRetries int,
	id string,
	getByID GetByIDFunc[T],
	updateIfVersion UpdateIfVersionFunc[T],
	mutate func(T) error,
	notFound error,
) error {
	var zero T
	for attempt := 1; attempt <= maxRetries; attempt++ {
		current, err := getByID(ctx, id)
		if err != nil {
			return err
		}
		if current == zero {
			return notFound
		}

		seen := current.GetRowVersion()
		if err := mutate(current); err != nil {
			return err
		}

		tag, err := updateIfVersion(ctx, current, seen)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			current.SetRowVersion(seen + 1)
			return nil
		}
	}
	return fmt.Errorf("%w: gave up on %q after %d attempts", utils.ErrRowVersionConflict, id, maxRetries)
}
