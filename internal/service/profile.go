package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/linkamarket/api/internal/database"
)

// ProfileStore defines the DB methods needed to manage a user's addresses and
// payment methods. Satisfied by *database.Queries (and its WithTx variant).
type ProfileStore interface {
	CreateAddress(ctx context.Context, arg database.CreateAddressParams) (database.UserAddress, error)
	UpdateAddress(ctx context.Context, arg database.UpdateAddressParams) (database.UserAddress, error)
	ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error
	CreatePaymentMethod(ctx context.Context, arg database.CreatePaymentMethodParams) (database.UserPaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, arg database.SetDefaultPaymentMethodParams) (database.UserPaymentMethod, error)
	ClearDefaultPaymentMethod(ctx context.Context, userID uuid.UUID) error
}

// NewProfileStore creates a ProfileStore from a DBTX (pool or tx).
type NewProfileStore func(db database.DBTX) ProfileStore

// ProfileService owns the writes that must keep the "at most one default"
// rule for addresses and payment methods. Clearing the old default and
// setting the new one happen in the same transaction.
type ProfileService struct {
	pool     TxBeginner
	newStore NewProfileStore
}

// NewProfileService creates a new ProfileService.
func NewProfileService(pool TxBeginner, newStore NewProfileStore) *ProfileService {
	return &ProfileService{pool: pool, newStore: newStore}
}

// CreateAddress inserts an address. When it is marked default, the previous
// default is cleared in the same transaction.
func (s *ProfileService) CreateAddress(ctx context.Context, arg database.CreateAddressParams) (database.UserAddress, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.UserAddress{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if arg.IsDefault {
		if err := store.ClearDefaultAddress(ctx, arg.UserID); err != nil {
			return database.UserAddress{}, err
		}
	}
	address, err := store.CreateAddress(ctx, arg)
	if err != nil {
		return database.UserAddress{}, err
	}
	return address, tx.Commit(ctx)
}

// UpdateAddress rewrites an address. When it becomes the default, the previous
// default is cleared in the same transaction.
func (s *ProfileService) UpdateAddress(ctx context.Context, arg database.UpdateAddressParams) (database.UserAddress, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.UserAddress{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if arg.IsDefault {
		if err := store.ClearDefaultAddress(ctx, arg.UserID); err != nil {
			return database.UserAddress{}, err
		}
	}
	address, err := store.UpdateAddress(ctx, arg)
	if err != nil {
		return database.UserAddress{}, err
	}
	return address, tx.Commit(ctx)
}

// CreatePaymentMethod inserts a payment method. When it is marked default, the
// previous default is cleared in the same transaction.
func (s *ProfileService) CreatePaymentMethod(ctx context.Context, arg database.CreatePaymentMethodParams) (database.UserPaymentMethod, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.UserPaymentMethod{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if arg.IsDefault {
		if err := store.ClearDefaultPaymentMethod(ctx, arg.UserID); err != nil {
			return database.UserPaymentMethod{}, err
		}
	}
	method, err := store.CreatePaymentMethod(ctx, arg)
	if err != nil {
		return database.UserPaymentMethod{}, err
	}
	return method, tx.Commit(ctx)
}

// SetDefaultPaymentMethod makes one of the user's payment methods the default,
// clearing the previous one in the same transaction. pgx.ErrNoRows means the
// method does not exist or is not the user's.
func (s *ProfileService) SetDefaultPaymentMethod(ctx context.Context, arg database.SetDefaultPaymentMethodParams) (database.UserPaymentMethod, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.UserPaymentMethod{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if err := store.ClearDefaultPaymentMethod(ctx, arg.UserID); err != nil {
		return database.UserPaymentMethod{}, err
	}
	method, err := store.SetDefaultPaymentMethod(ctx, arg)
	if err != nil {
		return database.UserPaymentMethod{}, err
	}
	return method, tx.Commit(ctx)
}
