// Package repo holds the gorm plumbing shared by the domain repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Table is a typed handle on the table backing T. It is a value type; WithTx
// returns a copy bound to the transaction.
type Table[T any] struct {
	db *gorm.DB
}

func NewTable[T any](db *gorm.DB) Table[T] {
	return Table[T]{db: db}
}

// DB returns the connection bound to ctx; a nil ctx yields the raw handle.
func (t Table[T]) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return t.db
	}
	return t.db.WithContext(ctx)
}

func (t Table[T]) WithTx(tx *gorm.DB) Table[T] {
	if tx == nil {
		return t
	}
	return Table[T]{db: tx}
}

// Model starts a query scoped to T's table.
func (t Table[T]) Model(ctx context.Context) *gorm.DB {
	var zero T
	return t.DB(ctx).Model(&zero)
}

func (t Table[T]) Insert(ctx context.Context, row *T) error {
	if row == nil {
		return errors.New("row is required")
	}
	return t.DB(ctx).Create(row).Error
}

// First runs q and returns nil without error when nothing matches.
func First[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
