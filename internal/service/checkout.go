package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/linkamarket/api/internal/database"
	"github.com/shopspring/decimal"
)

// Errors returned by the checkout service.
var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrAddressNotFound        = errors.New("delivery address not found")
	ErrPaymentMethodNotFound  = errors.New("payment method not found")
	ErrInvalidPaymentMethodID = errors.New("invalid payment_method_id")
	ErrInvalidAddressID       = errors.New("invalid delivery_address_id")
)

// UnavailableProductError reports a cart line that can no longer be ordered,
// identifying the shop so the client can show which part of the cart failed.
type UnavailableProductError struct {
	ShopID      uuid.UUID
	ShopName    string
	ProductID   uuid.UUID
	ProductName string
	Requested   int32
	InStock     int32
}

func (e *UnavailableProductError) Error() string {
	if e.InStock == 0 {
		return fmt.Sprintf("%s: %q is no longer available", e.ShopName, e.ProductName)
	}
	return fmt.Sprintf("%s: only %d of %q in stock, %d requested", e.ShopName, e.InStock, e.ProductName, e.Requested)
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CheckoutStore defines the DB methods needed to turn a cart into orders.
// Satisfied by *database.Queries (and its WithTx variant).
type CheckoutStore interface {
	GetCartByUser(ctx context.Context, userID uuid.UUID) (database.Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsRow, error)
	GetAddressForUser(ctx context.Context, arg database.GetAddressForUserParams) (database.UserAddress, error)
	GetPaymentMethodForUser(ctx context.Context, arg database.GetPaymentMethodForUserParams) (database.UserPaymentMethod, error)
	DecrementProductStock(ctx context.Context, arg database.DecrementProductStockParams) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateStatusHistory(ctx context.Context, arg database.CreateStatusHistoryParams) (database.OrderStatusHistory, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

// NewCheckoutStore creates a CheckoutStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewCheckoutStore func(db database.DBTX) CheckoutStore

// CheckoutRequest is the validated input for checking out a cart.
type CheckoutRequest struct {
	CustomerID        uuid.UUID
	DeliveryAddressID string
	PaymentMethodID   string
}

// CheckoutResult is the set of orders created from one cart, one per shop.
type CheckoutResult struct {
	Orders []CheckoutOrder
}

// CheckoutOrder is a created order with its items.
type CheckoutOrder struct {
	Order database.Order
	Items []database.OrderItem
}

// CheckoutService turns a customer's cart into per-shop orders.
type CheckoutService struct {
	pool     TxBeginner
	newStore NewCheckoutStore
	fees     FeeCalculator
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(pool TxBeginner, newStore NewCheckoutStore, fees FeeCalculator) *CheckoutService {
	return &CheckoutService{pool: pool, newStore: newStore, fees: fees}
}

// shopGroup collects the cart lines that belong to one shop.
type shopGroup struct {
	shopID   uuid.UUID
	shopName string
	items    []database.ListCartItemsRow
}

// Checkout validates the cart, splits it into one order per shop, and creates
// all orders atomically. Either every shop's order is created and the cart is
// cleared, or nothing is written at all: a single unavailable product fails
// the whole checkout.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	addressID, err := uuid.Parse(req.DeliveryAddressID)
	if err != nil {
		return nil, ErrInvalidAddressID
	}
	paymentMethodID, err := uuid.Parse(req.PaymentMethodID)
	if err != nil {
		return nil, ErrInvalidPaymentMethodID
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Validate the delivery address belongs to the customer ---
	address, err := store.GetAddressForUser(ctx, database.GetAddressForUserParams{
		ID:     addressID,
		UserID: req.CustomerID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("get address: %w", err)
	}

	// --- Validate the payment method belongs to the customer ---
	method, err := store.GetPaymentMethodForUser(ctx, database.GetPaymentMethodForUserParams{
		ID:     paymentMethodID,
		UserID: req.CustomerID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}

	// --- Load the cart ---
	cart, err := store.GetCartByUser(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	lines, err := store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// --- Partition lines by shop, preserving cart order ---
	groups := groupByShop(lines)

	// --- One order per shop ---
	var orders []CheckoutOrder
	for _, g := range groups {
		order, err := s.createShopOrder(ctx, store, req, address.ID, method.MethodType, g)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	// --- Empty the cart ---
	if err := store.ClearCart(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CheckoutResult{Orders: orders}, nil
}

// createShopOrder reserves stock, prices, and inserts one shop's order with
// its items and the initial pending status history row. The order records the
// type of the customer's saved payment method (tmoney, flooz, cash).
func (s *CheckoutService) createShopOrder(ctx context.Context, store CheckoutStore, req CheckoutRequest, addressID uuid.UUID, paymentMethod string, g shopGroup) (*CheckoutOrder, error) {
	itemsTotal := decimal.Zero
	type pricedLine struct {
		productID  uuid.UUID
		quantity   int32
		unitPrice  decimal.Decimal
		totalPrice decimal.Decimal
	}
	var priced []pricedLine

	for _, line := range g.items {
		// Reserve stock first: the conditional update is what detects
		// inactive products and oversells, not the stale cart join.
		product, err := store.DecrementProductStock(ctx, database.DecrementProductStockParams{
			ID:       line.ProductID,
			Quantity: line.Quantity,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				inStock := line.StockQuantity
				if !line.ProductActive {
					inStock = 0
				}
				return nil, &UnavailableProductError{
					ShopID:      g.shopID,
					ShopName:    g.shopName,
					ProductID:   line.ProductID,
					ProductName: line.ProductName,
					Requested:   line.Quantity,
					InStock:     inStock,
				}
			}
			return nil, fmt.Errorf("decrement stock: %w", err)
		}

		unitPrice := numericToDecimal(product.Price)
		totalPrice := unitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		itemsTotal = itemsTotal.Add(totalPrice)
		priced = append(priced, pricedLine{
			productID:  line.ProductID,
			quantity:   line.Quantity,
			unitPrice:  unitPrice,
			totalPrice: totalPrice,
		})
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerID:        req.CustomerID,
		ShopID:            g.shopID,
		DeliveryAddressID: addressID,
		TotalAmount:       decimalToNumeric(itemsTotal),
		DeliveryFee:       decimalToNumeric(s.fees.DeliveryFee(itemsTotal)),
		PaymentMethod:     paymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for _, p := range priced {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			ProductID:  p.productID,
			Quantity:   p.quantity,
			UnitPrice:  decimalToNumeric(p.unitPrice),
			TotalPrice: decimalToNumeric(p.totalPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if _, err := store.CreateStatusHistory(ctx, database.CreateStatusHistoryParams{
		OrderID:   order.ID,
		Status:    database.OrderStatusPending,
		ChangedBy: req.CustomerID,
	}); err != nil {
		return nil, fmt.Errorf("create status history: %w", err)
	}

	return &CheckoutOrder{Order: order, Items: items}, nil
}

// groupByShop partitions cart lines by shop, in order of first appearance.
func groupByShop(lines []database.ListCartItemsRow) []shopGroup {
	index := make(map[uuid.UUID]int)
	var groups []shopGroup
	for _, line := range lines {
		i, ok := index[line.ShopID]
		if !ok {
			i = len(groups)
			index[line.ShopID] = i
			groups = append(groups, shopGroup{shopID: line.ShopID, shopName: line.ShopName})
		}
		groups[i].items = append(groups[i].items, line)
	}
	return groups
}
