package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_id, shop_id, driver_id, delivery_address_id,
	total_amount, delivery_fee, payment_method, payment_status, status, created_at, updated_at`

const createOrder = `
INSERT INTO orders (customer_id, shop_id, delivery_address_id, total_amount, delivery_fee, payment_method)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	CustomerID        uuid.UUID
	ShopID            uuid.UUID
	DeliveryAddressID uuid.UUID
	TotalAmount       pgtype.Numeric
	DeliveryFee       pgtype.Numeric
	PaymentMethod     string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CustomerID, arg.ShopID, arg.DeliveryAddressID,
		arg.TotalAmount, arg.DeliveryFee, arg.PaymentMethod)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, product_id, quantity, unit_price, total_price
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var oi OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice, arg.TotalPrice).
		Scan(&oi.ID, &oi.OrderID, &oi.ProductID, &oi.Quantity, &oi.UnitPrice, &oi.TotalPrice)
	return oi, err
}

const getOrder = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForCustomer = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND customer_id = $2
`

type GetOrderForCustomerParams struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
}

func (q *Queries) GetOrderForCustomer(ctx context.Context, arg GetOrderForCustomerParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForCustomer, arg.ID, arg.CustomerID))
}

const getOrderForShop = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND shop_id = $2
`

type GetOrderForShopParams struct {
	ID     uuid.UUID
	ShopID uuid.UUID
}

func (q *Queries) GetOrderForShop(ctx context.Context, arg GetOrderForShopParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForShop, arg.ID, arg.ShopID))
}

const listOrdersByCustomer = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersByCustomerParams struct {
	CustomerID uuid.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, arg ListOrdersByCustomerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrdersByShop = `
SELECT ` + orderColumns + `
FROM orders
WHERE shop_id = $1
  AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersByShopParams struct {
	ShopID uuid.UUID
	Status NullOrderStatus
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersByShop(ctx context.Context, arg ListOrdersByShopParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByShop, arg.ShopID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrderItemsByOrder = `
SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, oi.total_price, p.name
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = $1
`

type ListOrderItemsByOrderRow struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	Quantity    int32
	UnitPrice   pgtype.Numeric
	TotalPrice  pgtype.Numeric
	ProductName string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var it ListOrderItemsByOrderRow
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.ProductName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $4, updated_at = now()
WHERE id = $1 AND shop_id = $2 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID           uuid.UUID
	ShopID       uuid.UUID
	FromStatus   OrderStatus
	TargetStatus OrderStatus
}

// UpdateOrderStatus moves a shop's order from one status to another.
// The WHERE clause on the expected current status makes the transition a
// compare-and-swap: pgx.ErrNoRows means another actor moved the order first.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.ShopID, arg.FromStatus, arg.TargetStatus)
	return scanOrder(row)
}

const cancelOrderByCustomer = `
UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND customer_id = $2 AND status = 'pending'
RETURNING ` + orderColumns

type CancelOrderByCustomerParams struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
}

// CancelOrderByCustomer only succeeds while the order is still pending; once a
// merchant has confirmed it the customer can no longer cancel.
func (q *Queries) CancelOrderByCustomer(ctx context.Context, arg CancelOrderByCustomerParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrderByCustomer, arg.ID, arg.CustomerID))
}

const cancelOrderByShop = `
UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND shop_id = $2 AND status IN ('pending', 'confirmed')
RETURNING ` + orderColumns

type CancelOrderByShopParams struct {
	ID     uuid.UUID
	ShopID uuid.UUID
}

func (q *Queries) CancelOrderByShop(ctx context.Context, arg CancelOrderByShopParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrderByShop, arg.ID, arg.ShopID))
}

const listAvailableOrders = `
SELECT o.id, o.customer_id, o.shop_id, o.total_amount, o.delivery_fee, o.created_at,
       s.name, s.address, ua.label, ua.address
FROM orders o
JOIN shops s ON s.id = o.shop_id
JOIN user_addresses ua ON ua.id = o.delivery_address_id
WHERE o.status = 'ready_for_pickup' AND o.driver_id IS NULL
ORDER BY o.created_at
LIMIT $1
`

// AvailableOrderRow is a claimable delivery as shown on the driver board:
// pickup shop plus drop-off address.
type AvailableOrderRow struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	ShopID          uuid.UUID
	TotalAmount     pgtype.Numeric
	DeliveryFee     pgtype.Numeric
	CreatedAt       time.Time
	ShopName        string
	ShopAddress     string
	DeliveryLabel   string
	DeliveryAddress string
}

func (q *Queries) ListAvailableOrders(ctx context.Context, limit int32) ([]AvailableOrderRow, error) {
	rows, err := q.db.Query(ctx, listAvailableOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []AvailableOrderRow
	for rows.Next() {
		var o AvailableOrderRow
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.ShopID, &o.TotalAmount, &o.DeliveryFee,
			&o.CreatedAt, &o.ShopName, &o.ShopAddress, &o.DeliveryLabel, &o.DeliveryAddress); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const claimOrder = `
UPDATE orders
SET driver_id = $2, status = 'picked_up', updated_at = now()
WHERE id = $1 AND status = 'ready_for_pickup' AND driver_id IS NULL
RETURNING ` + orderColumns

type ClaimOrderParams struct {
	ID       uuid.UUID
	DriverID uuid.UUID
}

// ClaimOrder assigns an unclaimed order to a driver. The driver_id IS NULL
// guard makes concurrent claims race-safe: exactly one driver's UPDATE matches
// the row, every other one gets pgx.ErrNoRows.
func (q *Queries) ClaimOrder(ctx context.Context, arg ClaimOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, claimOrder, arg.ID, arg.DriverID))
}

const advanceDriverOrder = `
UPDATE orders
SET status = $4, updated_at = now()
WHERE id = $1 AND driver_id = $2 AND status = $3
RETURNING ` + orderColumns

type AdvanceDriverOrderParams struct {
	ID           uuid.UUID
	DriverID     uuid.UUID
	FromStatus   OrderStatus
	TargetStatus OrderStatus
}

func (q *Queries) AdvanceDriverOrder(ctx context.Context, arg AdvanceDriverOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, advanceDriverOrder, arg.ID, arg.DriverID, arg.FromStatus, arg.TargetStatus)
	return scanOrder(row)
}

const listActiveDeliveries = `
SELECT ` + orderColumns + `
FROM orders
WHERE driver_id = $1 AND status IN ('picked_up', 'in_transit')
ORDER BY created_at
`

func (q *Queries) ListActiveDeliveries(ctx context.Context, driverID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listActiveDeliveries, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listDeliveriesByDriver = `
SELECT ` + orderColumns + `
FROM orders
WHERE driver_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListDeliveriesByDriver(ctx context.Context, driverID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listDeliveriesByDriver, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const getShopOrderStats = `
SELECT
	count(*),
	count(*) FILTER (WHERE status = 'pending'),
	count(*) FILTER (WHERE status = 'delivered'),
	count(*) FILTER (WHERE status = 'cancelled'),
	COALESCE(sum(total_amount) FILTER (WHERE status = 'delivered'), 0)
FROM orders
WHERE shop_id = $1
`

type GetShopOrderStatsRow struct {
	TotalOrders     int64
	PendingOrders   int64
	DeliveredOrders int64
	CancelledOrders int64
	Revenue         pgtype.Numeric
}

// GetShopOrderStats aggregates the merchant dashboard counters. Revenue only
// counts delivered orders.
func (q *Queries) GetShopOrderStats(ctx context.Context, shopID uuid.UUID) (GetShopOrderStatsRow, error) {
	var s GetShopOrderStatsRow
	err := q.db.QueryRow(ctx, getShopOrderStats, shopID).
		Scan(&s.TotalOrders, &s.PendingOrders, &s.DeliveredOrders, &s.CancelledOrders, &s.Revenue)
	return s, err
}

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.ShopID, &o.DriverID, &o.DeliveryAddressID,
		&o.TotalAmount, &o.DeliveryFee, &o.PaymentMethod, &o.PaymentStatus,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func collectOrders(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
