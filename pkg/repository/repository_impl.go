package repository

import (
	"context"

	"github.com/smallbiznis/restobill/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Finder[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Finder[T] {
	if tx == nil {
		return r
	}
	return &store[T]{db: tx}
}

// Find applies the zero-value-skipping struct filter, then opts in order.
func (r *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	err := r.query(ctx, filter, opts...).Find(&result).Error
	return result, err
}

func (r *store[T]) query(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	stmt := r.db.WithContext(ctx)
	if filter != nil {
		stmt = stmt.Where(filter)
	}
	for _, opt := range opts {
		if opt != nil {
			stmt = opt.Apply(stmt)
		}
	}
	return stmt
}
