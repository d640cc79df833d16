package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getCartByUser = `
SELECT id, user_id, created_at FROM carts WHERE user_id = $1
`

func (q *Queries) GetCartByUser(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, getCartByUser, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	return c, err
}

const ensureCart = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, created_at
`

// EnsureCart returns the user's cart, creating it lazily on first use.
func (q *Queries) EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, ensureCart, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	return c, err
}

const upsertCartItem = `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
RETURNING id, cart_id, product_id, quantity, created_at, updated_at
`

type UpsertCartItemParams struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
}

// UpsertCartItem inserts a line item or increments the quantity of an
// existing one for the same product.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, upsertCartItem, arg.CartID, arg.ProductID, arg.Quantity))
}

const updateCartItemQuantity = `
UPDATE cart_items
SET quantity = $3, updated_at = now()
WHERE id = $1 AND cart_id = $2
RETURNING id, cart_id, product_id, quantity, created_at, updated_at
`

type UpdateCartItemQuantityParams struct {
	ID       uuid.UUID
	CartID   uuid.UUID
	Quantity int32
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, updateCartItemQuantity, arg.ID, arg.CartID, arg.Quantity))
}

const deleteCartItem = `
DELETE FROM cart_items WHERE id = $1 AND cart_id = $2
`

type DeleteCartItemParams struct {
	ID     uuid.UUID
	CartID uuid.UUID
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.CartID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const clearCart = `
DELETE FROM cart_items WHERE cart_id = $1
`

func (q *Queries) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearCart, cartID)
	return err
}

const listCartItems = `
SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
       p.name, p.price, p.image_urls, p.stock_quantity, p.is_active,
       p.shop_id, s.name, s.address
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
JOIN shops s ON s.id = p.shop_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at
`

// ListCartItemsRow is a cart line joined with live product and shop data.
// Price is the product's current price, not a snapshot; the displayed
// subtotal follows price changes until checkout locks it in.
type ListCartItemsRow struct {
	ID            uuid.UUID
	CartID        uuid.UUID
	ProductID     uuid.UUID
	Quantity      int32
	ProductName   string
	Price         pgtype.Numeric
	ImageUrls     []string
	StockQuantity int32
	ProductActive bool
	ShopID        uuid.UUID
	ShopName      string
	ShopAddress   string
}

func (q *Queries) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]ListCartItemsRow, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListCartItemsRow
	for rows.Next() {
		var it ListCartItemsRow
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity,
			&it.ProductName, &it.Price, &it.ImageUrls, &it.StockQuantity, &it.ProductActive,
			&it.ShopID, &it.ShopName, &it.ShopAddress); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanCartItem(row interface{ Scan(...any) error }) (CartItem, error) {
	var ci CartItem
	err := row.Scan(&ci.ID, &ci.CartID, &ci.ProductID, &ci.Quantity, &ci.CreatedAt, &ci.UpdatedAt)
	return ci, err
}
