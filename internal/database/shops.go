package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const shopColumns = `id, owner_id, name, description, address, phone, is_active, created_at, updated_at`

const createShop = `
INSERT INTO shops (owner_id, name, description, address, phone)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + shopColumns

type CreateShopParams struct {
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	Address     string
	Phone       pgtype.Text
}

func (q *Queries) CreateShop(ctx context.Context, arg CreateShopParams) (Shop, error) {
	row := q.db.QueryRow(ctx, createShop,
		arg.OwnerID, arg.Name, arg.Description, arg.Address, arg.Phone)
	return scanShop(row)
}

const getShop = `
SELECT ` + shopColumns + ` FROM shops WHERE id = $1
`

func (q *Queries) GetShop(ctx context.Context, id uuid.UUID) (Shop, error) {
	return scanShop(q.db.QueryRow(ctx, getShop, id))
}

const getShopByOwner = `
SELECT ` + shopColumns + ` FROM shops WHERE owner_id = $1
`

// GetShopByOwner resolves the merchant's shop. Each merchant owns at most one
// shop (unique constraint on owner_id).
func (q *Queries) GetShopByOwner(ctx context.Context, ownerID uuid.UUID) (Shop, error) {
	return scanShop(q.db.QueryRow(ctx, getShopByOwner, ownerID))
}

const updateShop = `
UPDATE shops
SET name = $3, description = $4, address = $5, phone = $6, is_active = $7, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + shopColumns

type UpdateShopParams struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	Address     string
	Phone       pgtype.Text
	IsActive    bool
}

func (q *Queries) UpdateShop(ctx context.Context, arg UpdateShopParams) (Shop, error) {
	row := q.db.QueryRow(ctx, updateShop,
		arg.ID, arg.OwnerID, arg.Name, arg.Description, arg.Address, arg.Phone, arg.IsActive)
	return scanShop(row)
}

const listShops = `
SELECT ` + shopColumns + `
FROM shops
WHERE is_active = true
ORDER BY name
LIMIT $1 OFFSET $2
`

type ListShopsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListShops(ctx context.Context, arg ListShopsParams) ([]Shop, error) {
	rows, err := q.db.Query(ctx, listShops, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, s)
	}
	return shops, rows.Err()
}

func scanShop(row interface{ Scan(...any) error }) (Shop, error) {
	var s Shop
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.Address,
		&s.Phone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
