package database

import (
	"context"

	"github.com/google/uuid"
)

const addressColumns = `id, user_id, label, address, is_default, created_at`

const createAddress = `
INSERT INTO user_addresses (user_id, label, address, is_default)
VALUES ($1, $2, $3, $4)
RETURNING ` + addressColumns

type CreateAddressParams struct {
	UserID    uuid.UUID
	Label     string
	Address   string
	IsDefault bool
}

func (q *Queries) CreateAddress(ctx context.Context, arg CreateAddressParams) (UserAddress, error) {
	row := q.db.QueryRow(ctx, createAddress, arg.UserID, arg.Label, arg.Address, arg.IsDefault)
	return scanAddress(row)
}

const getAddressForUser = `
SELECT ` + addressColumns + ` FROM user_addresses WHERE id = $1 AND user_id = $2
`

type GetAddressForUserParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) GetAddressForUser(ctx context.Context, arg GetAddressForUserParams) (UserAddress, error) {
	return scanAddress(q.db.QueryRow(ctx, getAddressForUser, arg.ID, arg.UserID))
}

const listAddressesByUser = `
SELECT ` + addressColumns + `
FROM user_addresses
WHERE user_id = $1
ORDER BY is_default DESC, created_at
`

func (q *Queries) ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]UserAddress, error) {
	rows, err := q.db.Query(ctx, listAddressesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []UserAddress
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

const updateAddress = `
UPDATE user_addresses
SET label = $3, address = $4, is_default = $5
WHERE id = $1 AND user_id = $2
RETURNING ` + addressColumns

type UpdateAddressParams struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Label     string
	Address   string
	IsDefault bool
}

func (q *Queries) UpdateAddress(ctx context.Context, arg UpdateAddressParams) (UserAddress, error) {
	row := q.db.QueryRow(ctx, updateAddress, arg.ID, arg.UserID, arg.Label, arg.Address, arg.IsDefault)
	return scanAddress(row)
}

const clearDefaultAddress = `
UPDATE user_addresses SET is_default = false WHERE user_id = $1 AND is_default = true
`

// ClearDefaultAddress unsets the current default before another address takes
// over. Run it in the same transaction as the insert or update that sets the
// new default.
func (q *Queries) ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearDefaultAddress, userID)
	return err
}

const deleteAddress = `
DELETE FROM user_addresses WHERE id = $1 AND user_id = $2
`

type DeleteAddressParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) DeleteAddress(ctx context.Context, arg DeleteAddressParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAddress, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAddress(row interface{ Scan(...any) error }) (UserAddress, error) {
	var a UserAddress
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.Address, &a.IsDefault, &a.CreatedAt)
	return a, err
}
