package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertFavorite = `
INSERT INTO favorites (user_id, product_id)
VALUES ($1, $2)
ON CONFLICT (user_id, product_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, product_id, created_at
`

type UpsertFavoriteParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
}

// UpsertFavorite is idempotent: favoriting an already-favorited product
// returns the existing row.
func (q *Queries) UpsertFavorite(ctx context.Context, arg UpsertFavoriteParams) (Favorite, error) {
	var f Favorite
	err := q.db.QueryRow(ctx, upsertFavorite, arg.UserID, arg.ProductID).
		Scan(&f.ID, &f.UserID, &f.ProductID, &f.CreatedAt)
	return f, err
}

const listFavoritesByUser = `
SELECT f.id, f.product_id, f.created_at,
       p.name, p.price, p.image_urls, p.is_active, p.shop_id, s.name
FROM favorites f
JOIN products p ON p.id = f.product_id
JOIN shops s ON s.id = p.shop_id
WHERE f.user_id = $1
ORDER BY f.created_at DESC
`

type ListFavoritesByUserRow struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	CreatedAt     time.Time
	ProductName   string
	Price         pgtype.Numeric
	ImageUrls     []string
	ProductActive bool
	ShopID        uuid.UUID
	ShopName      string
}

func (q *Queries) ListFavoritesByUser(ctx context.Context, userID uuid.UUID) ([]ListFavoritesByUserRow, error) {
	rows, err := q.db.Query(ctx, listFavoritesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []ListFavoritesByUserRow
	for rows.Next() {
		var f ListFavoritesByUserRow
		if err := rows.Scan(&f.ID, &f.ProductID, &f.CreatedAt, &f.ProductName,
			&f.Price, &f.ImageUrls, &f.ProductActive, &f.ShopID, &f.ShopName); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

const deleteFavorite = `
DELETE FROM favorites WHERE user_id = $1 AND product_id = $2
`

type DeleteFavoriteParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) DeleteFavorite(ctx context.Context, arg DeleteFavoriteParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteFavorite, arg.UserID, arg.ProductID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
