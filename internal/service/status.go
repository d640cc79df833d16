package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/linkamarket/api/internal/database"
)

// StatusStore defines the DB methods needed to move an order through its
// lifecycle. Satisfied by *database.Queries (and its WithTx variant).
type StatusStore interface {
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrderByCustomer(ctx context.Context, arg database.CancelOrderByCustomerParams) (database.Order, error)
	CancelOrderByShop(ctx context.Context, arg database.CancelOrderByShopParams) (database.Order, error)
	ClaimOrder(ctx context.Context, arg database.ClaimOrderParams) (database.Order, error)
	AdvanceDriverOrder(ctx context.Context, arg database.AdvanceDriverOrderParams) (database.Order, error)
	CreateStatusHistory(ctx context.Context, arg database.CreateStatusHistoryParams) (database.OrderStatusHistory, error)
}

// NewStatusStore creates a StatusStore from a DBTX (pool or tx).
type NewStatusStore func(db database.DBTX) StatusStore

// StatusService applies order status transitions. The conditional update and
// its history row commit in one transaction, so the timeline never misses a
// step the order actually took.
type StatusService struct {
	pool     TxBeginner
	newStore NewStatusStore
}

// NewStatusService creates a new StatusService.
func NewStatusService(pool TxBeginner, newStore NewStatusStore) *StatusService {
	return &StatusService{pool: pool, newStore: newStore}
}

// UpdateShopOrderStatus moves a shop's order along the merchant part of the
// lifecycle, recording who changed it.
func (s *StatusService) UpdateShopOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams, changedBy uuid.UUID) (database.Order, error) {
	return s.transition(ctx, changedBy, func(store StatusStore) (database.Order, error) {
		return store.UpdateOrderStatus(ctx, arg)
	})
}

// CancelByCustomer cancels a still-pending order on behalf of its customer.
func (s *StatusService) CancelByCustomer(ctx context.Context, arg database.CancelOrderByCustomerParams) (database.Order, error) {
	return s.transition(ctx, arg.CustomerID, func(store StatusStore) (database.Order, error) {
		return store.CancelOrderByCustomer(ctx, arg)
	})
}

// CancelByShop cancels an order that has not started preparation yet.
func (s *StatusService) CancelByShop(ctx context.Context, arg database.CancelOrderByShopParams, changedBy uuid.UUID) (database.Order, error) {
	return s.transition(ctx, changedBy, func(store StatusStore) (database.Order, error) {
		return store.CancelOrderByShop(ctx, arg)
	})
}

// Claim assigns an unclaimed ready_for_pickup order to the driver.
func (s *StatusService) Claim(ctx context.Context, arg database.ClaimOrderParams) (database.Order, error) {
	return s.transition(ctx, arg.DriverID, func(store StatusStore) (database.Order, error) {
		return store.ClaimOrder(ctx, arg)
	})
}

// AdvanceDelivery moves one of the driver's deliveries to its next status.
func (s *StatusService) AdvanceDelivery(ctx context.Context, arg database.AdvanceDriverOrderParams) (database.Order, error) {
	return s.transition(ctx, arg.DriverID, func(store StatusStore) (database.Order, error) {
		return store.AdvanceDriverOrder(ctx, arg)
	})
}

// transition runs one conditional status update plus its history row inside a
// transaction. Errors from the update itself (pgx.ErrNoRows included) pass
// through unwrapped so callers can map stale transitions to conflicts.
func (s *StatusService) transition(ctx context.Context, changedBy uuid.UUID, apply func(store StatusStore) (database.Order, error)) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := apply(store)
	if err != nil {
		return database.Order{}, err
	}

	if _, err := store.CreateStatusHistory(ctx, database.CreateStatusHistoryParams{
		OrderID:   order.ID,
		Status:    order.Status,
		ChangedBy: changedBy,
	}); err != nil {
		return database.Order{}, fmt.Errorf("create status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}
