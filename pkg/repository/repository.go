// Package repository provides the generic gorm-backed store the domain
// services share for plain CRUD. Anything beyond struct-equality filters
// (windowed counts, targeted column updates) lives in the feature's own
// repository instead.
package repository

import (
	"context"

	"github.com/billora/billora/pkg/db/option"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	// WithTrx rebinds the store to an open transaction.
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns (nil, nil) when no row matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Update(ctx context.Context, id snowflake.ID, values any) error
}
