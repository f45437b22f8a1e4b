package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

// Service is the read side of orders exposed to the storefront.
type Service interface {
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	return &service{repo: repo}, nil
}

var errAnonymous = pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")

// GetForUser hides orders owned by other users behind NOT_FOUND.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	if userID == uuid.Nil {
		return nil, errAnonymous
	}
	order, err := s.repo.FindByID(ctx, orderID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	case order == nil || order.UserID != userID:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := toOrderView(*order)
	return &view, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	if userID == uuid.Nil {
		return nil, errAnonymous
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	page, next := pagination.Next(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	views := make([]OrderView, 0, len(page))
	for _, o := range page {
		views = append(views, toOrderView(o))
	}
	return &OrderPage{Items: views, Cursor: next}, nil
}
