// Package repository offers a generic read-side store used by list queries.
package repository

import (
	"context"

	"github.com/smallbiznis/restobill/pkg/db/option"
	"gorm.io/gorm"
)

// Finder lists rows of T matching a struct filter plus query options.
type Finder[T any] interface {
	WithTrx(tx *gorm.DB) Finder[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
}
