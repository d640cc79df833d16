package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, shop_id, category_id, name, description, price, original_price,
	stock_quantity, image_urls, is_active, created_at, updated_at`

const createProduct = `
INSERT INTO products (shop_id, category_id, name, description, price, original_price, stock_quantity, image_urls)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + productColumns

type CreateProductParams struct {
	ShopID        uuid.UUID
	CategoryID    pgtype.UUID
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	OriginalPrice pgtype.Numeric
	StockQuantity int32
	ImageUrls     []string
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.ShopID, arg.CategoryID, arg.Name, arg.Description, arg.Price,
		arg.OriginalPrice, arg.StockQuantity, arg.ImageUrls)
	return scanProduct(row)
}

const getProduct = `
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProducts = `
SELECT ` + productColumns + `
FROM products
WHERE is_active = true
  AND ($1::uuid IS NULL OR shop_id = $1)
  AND ($2::uuid IS NULL OR category_id = $2)
  AND ($3::text IS NULL OR name ILIKE '%' || $3 || '%')
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListProductsParams struct {
	ShopID     pgtype.UUID
	CategoryID pgtype.UUID
	Search     pgtype.Text
	Limit      int32
	Offset     int32
}

// ListProducts is the public catalog query: active products only, with
// optional shop, category and name filters.
func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts,
		arg.ShopID, arg.CategoryID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

const listProductsByShop = `
SELECT ` + productColumns + `
FROM products
WHERE shop_id = $1
ORDER BY created_at DESC
`

// ListProductsByShop returns every product of a shop, inactive ones included.
// Used by the merchant's own product management view.
func (q *Queries) ListProductsByShop(ctx context.Context, shopID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsByShop, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

const updateProduct = `
UPDATE products
SET category_id = $3, name = $4, description = $5, price = $6, original_price = $7,
    stock_quantity = $8, image_urls = $9, updated_at = now()
WHERE id = $1 AND shop_id = $2
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID            uuid.UUID
	ShopID        uuid.UUID
	CategoryID    pgtype.UUID
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	OriginalPrice pgtype.Numeric
	StockQuantity int32
	ImageUrls     []string
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.ShopID, arg.CategoryID, arg.Name, arg.Description,
		arg.Price, arg.OriginalPrice, arg.StockQuantity, arg.ImageUrls)
	return scanProduct(row)
}

const setProductActive = `
UPDATE products
SET is_active = $3, updated_at = now()
WHERE id = $1 AND shop_id = $2
RETURNING ` + productColumns

type SetProductActiveParams struct {
	ID       uuid.UUID
	ShopID   uuid.UUID
	IsActive bool
}

func (q *Queries) SetProductActive(ctx context.Context, arg SetProductActiveParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, setProductActive, arg.ID, arg.ShopID, arg.IsActive))
}

const deleteProduct = `
DELETE FROM products WHERE id = $1 AND shop_id = $2
`

type DeleteProductParams struct {
	ID     uuid.UUID
	ShopID uuid.UUID
}

func (q *Queries) DeleteProduct(ctx context.Context, arg DeleteProductParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteProduct, arg.ID, arg.ShopID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const decrementProductStock = `
UPDATE products
SET stock_quantity = stock_quantity - $2, updated_at = now()
WHERE id = $1 AND is_active = true AND stock_quantity >= $2
RETURNING ` + productColumns

type DecrementProductStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementProductStock reserves stock for an order line. The stock_quantity
// guard in the WHERE clause means pgx.ErrNoRows when the product is inactive
// or has too little stock left.
func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, decrementProductStock, arg.ID, arg.Quantity))
}

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ShopID, &p.CategoryID, &p.Name, &p.Description,
		&p.Price, &p.OriginalPrice, &p.StockQuantity, &p.ImageUrls,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
