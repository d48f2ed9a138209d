package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

// Service exposes customer order reads plus lifecycle transitions.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, page pagination.Params, filters OrderListFilters) (*OrderListResult, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, note string) error
	TransitionInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, to enums.OrderStatus, note string) error
	MarkShipped(ctx context.Context, orderID uuid.UUID, trackingNumber, note string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs an orders service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Get resolves an order by id or public number, scoped to the owner.
func (s *service) Get(ctx context.Context, userID uuid.UUID, ref string) (*OrderDTO, error) {
	key := strings.TrimSpace(ref)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order identifier required")
	}

	var (
		order *models.Order
		err   error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		order, err = s.repo.FindByIDForUser(ctx, id, userID)
	} else {
		order, err = s.repo.FindByNumber(ctx, key, userID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return NewOrderDTO(order), nil
}

// List pages through the user's orders.
func (s *service) List(ctx context.Context, userID uuid.UUID, page pagination.Params, filters OrderListFilters) (*OrderListResult, error) {
	result, err := s.repo.ListByUser(ctx, userID, page, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return result, nil
}

// Cancel moves a pending or confirmed order to cancelled on behalf of the
// owning customer.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		order, err := txRepo.LockForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Cancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
		}

		if err := txRepo.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return txRepo.AppendHistory(ctx, orderID, order.Status, enums.OrderStatusCancelled, "cancelled by customer")
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return NewOrderDTO(order), nil
}

// Transition applies a lifecycle move in its own transaction.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, note string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.TransitionInTx(ctx, tx, orderID, to, note)
	})
}

// TransitionInTx applies a lifecycle move inside the caller's transaction so
// payment success and order confirmation commit or roll back together.
func (s *service) TransitionInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, to enums.OrderStatus, note string) error {
	txRepo := s.repo.WithTx(tx)

	order, err := txRepo.LockForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}

	if order.Status == to {
		// already there, keep the operation idempotent
		return nil
	}
	if !CanTransition(order.Status, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("transition %s -> %s disallowed", order.Status, to))
	}

	if err := txRepo.UpdateStatus(ctx, orderID, to); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return txRepo.AppendHistory(ctx, orderID, order.Status, to, note)
}

// MarkShipped transitions the order to shipped and records the carrier
// tracking number in the same transaction.
func (s *service) MarkShipped(ctx context.Context, orderID uuid.UUID, trackingNumber, note string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.TransitionInTx(ctx, tx, orderID, enums.OrderStatusShipped, note); err != nil {
			return err
		}
		if trackingNumber == "" {
			return nil
		}
		if err := txRepo.SetTrackingNumber(ctx, orderID, trackingNumber); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set tracking number")
		}
		return nil
	})
}
