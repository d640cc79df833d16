package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/enum"
	"github.com/linkamarket/api/internal/handler"
	mw "github.com/linkamarket/api/internal/middleware"
	"github.com/linkamarket/api/internal/service"
)

// --- Mock store ---

type mockCartStore struct {
	carts    map[uuid.UUID]database.Cart // keyed by user ID
	items    map[uuid.UUID]database.CartItem
	lines    map[uuid.UUID][]database.ListCartItemsRow // keyed by cart ID
	products map[uuid.UUID]database.Product
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{
		carts:    make(map[uuid.UUID]database.Cart),
		items:    make(map[uuid.UUID]database.CartItem),
		lines:    make(map[uuid.UUID][]database.ListCartItemsRow),
		products: make(map[uuid.UUID]database.Product),
	}
}

func (m *mockCartStore) EnsureCart(_ context.Context, userID uuid.UUID) (database.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		c = database.Cart{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
		m.carts[userID] = c
	}
	return c, nil
}

func (m *mockCartStore) ListCartItems(_ context.Context, cartID uuid.UUID) ([]database.ListCartItemsRow, error) {
	return m.lines[cartID], nil
}

func (m *mockCartStore) GetProduct(_ context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockCartStore) UpsertCartItem(_ context.Context, arg database.UpsertCartItemParams) (database.CartItem, error) {
	for id, it := range m.items {
		if it.CartID == arg.CartID && it.ProductID == arg.ProductID {
			it.Quantity += arg.Quantity
			m.items[id] = it
			return it, nil
		}
	}
	it := database.CartItem{
		ID:        uuid.New(),
		CartID:    arg.CartID,
		ProductID: arg.ProductID,
		Quantity:  arg.Quantity,
		CreatedAt: time.Now(),
	}
	m.items[it.ID] = it
	return it, nil
}

func (m *mockCartStore) UpdateCartItemQuantity(_ context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error) {
	it, ok := m.items[arg.ID]
	if !ok || it.CartID != arg.CartID {
		return database.CartItem{}, pgx.ErrNoRows
	}
	it.Quantity = arg.Quantity
	m.items[it.ID] = it
	return it, nil
}

func (m *mockCartStore) DeleteCartItem(_ context.Context, arg database.DeleteCartItemParams) (int64, error) {
	it, ok := m.items[arg.ID]
	if !ok || it.CartID != arg.CartID {
		return 0, nil
	}
	delete(m.items, it.ID)
	return 1, nil
}

func (m *mockCartStore) ClearCart(_ context.Context, cartID uuid.UUID) error {
	for id, it := range m.items {
		if it.CartID == cartID {
			delete(m.items, id)
		}
	}
	delete(m.lines, cartID)
	return nil
}

// --- Mock checkout service ---

type mockCheckoutService struct {
	result *service.CheckoutResult
	err    error
	called bool
	req    service.CheckoutRequest
}

func (m *mockCheckoutService) Checkout(_ context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	m.called = true
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// --- Helpers ---

func setupCartRouter(store *mockCartStore, checkout *mockCheckoutService, notifier *mockNotifier) *chi.Mux {
	h := handler.NewCartHandler(store, checkout, notifier)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(testJWTSecret))
		r.Route("/client", h.RegisterRoutes)
	})
	return r
}

func seedCartLine(t *testing.T, store *mockCartStore, cartID, shopID uuid.UUID, shopName, productName, price string, qty, stock int32) database.ListCartItemsRow {
	t.Helper()
	line := database.ListCartItemsRow{
		ID:            uuid.New(),
		CartID:        cartID,
		ProductID:     uuid.New(),
		Quantity:      qty,
		ProductName:   productName,
		Price:         makeNumeric(t, price),
		StockQuantity: stock,
		ProductActive: true,
		ShopID:        shopID,
		ShopName:      shopName,
	}
	store.lines[cartID] = append(store.lines[cartID], line)
	return line
}

// --- Tests ---

func TestCartGetGroupsByShop(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	userID := uuid.New()
	cart, _ := store.EnsureCart(context.Background(), userID)

	shopA := uuid.New()
	shopB := uuid.New()
	seedCartLine(t, store, cart.ID, shopA, "Boutique Koffi", "Riz parfumé 5kg", "4500.00", 2, 10)
	seedCartLine(t, store, cart.ID, shopA, "Boutique Koffi", "Huile rouge 1L", "1200.00", 1, 5)
	seedCartLine(t, store, cart.ID, shopB, "Chez Ama", "Tomates fraîches", "800.00", 3, 20)

	token := makeToken(t, userID, enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodGet, "/client/cart", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	shops, ok := resp["shops"].([]interface{})
	if !ok || len(shops) != 2 {
		t.Fatalf("expected 2 shop groups, got %v", resp["shops"])
	}
	first := shops[0].(map[string]interface{})
	if first["shop_name"] != "Boutique Koffi" {
		t.Errorf("first shop: got %v, want Boutique Koffi", first["shop_name"])
	}
	if first["subtotal"] != "10200.00" {
		t.Errorf("first shop subtotal: got %v, want 10200.00", first["subtotal"])
	}
	if resp["total"] != "12600.00" {
		t.Errorf("total: got %v, want 12600.00", resp["total"])
	}
}

func TestCartGetEmpty(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodGet, "/client/cart", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if resp := decodeMap(t, rr); resp["total"] != "0.00" {
		t.Errorf("total: got %v, want 0.00", resp["total"])
	}
}

func TestCartAddItem(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	product := database.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Riz parfumé 5kg", IsActive: true, StockQuantity: 10}
	store.products[product.ID] = product

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/items", map[string]interface{}{
		"product_id": product.ID.String(),
		"quantity":   2,
	}, token)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d; body: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeMap(t, rr); resp["quantity"].(float64) != 2 {
		t.Errorf("quantity: got %v, want 2", resp["quantity"])
	}
}

func TestCartAddItemIncrementsExisting(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	product := database.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Riz parfumé 5kg", IsActive: true, StockQuantity: 10}
	store.products[product.ID] = product

	userID := uuid.New()
	token := makeToken(t, userID, enum.UserTypeClient)
	body := map[string]interface{}{"product_id": product.ID.String(), "quantity": 2}

	doAuthRequest(t, router, http.MethodPost, "/client/cart/items", body, token)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/items", body, token)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if resp := decodeMap(t, rr); resp["quantity"].(float64) != 4 {
		t.Errorf("quantity: got %v, want 4", resp["quantity"])
	}
}

func TestCartAddInactiveProduct(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	product := database.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Riz parfumé 5kg", IsActive: false}
	store.products[product.ID] = product

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/items", map[string]interface{}{
		"product_id": product.ID.String(),
		"quantity":   1,
	}, token)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestCartAddUnknownProduct(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/items", map[string]interface{}{
		"product_id": uuid.New().String(),
		"quantity":   1,
	}, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestCartUpdateItemQuantity(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	userID := uuid.New()
	cart, _ := store.EnsureCart(context.Background(), userID)
	item := database.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: uuid.New(), Quantity: 1}
	store.items[item.ID] = item

	token := makeToken(t, userID, enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPatch, "/client/cart/items/"+item.ID.String(),
		map[string]interface{}{"quantity": 5}, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", rr.Code, rr.Body.String())
	}
	if store.items[item.ID].Quantity != 5 {
		t.Errorf("quantity: got %d, want 5", store.items[item.ID].Quantity)
	}
}

func TestCartUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	userID := uuid.New()
	cart, _ := store.EnsureCart(context.Background(), userID)
	item := database.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: uuid.New(), Quantity: 2}
	store.items[item.ID] = item

	token := makeToken(t, userID, enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPatch, "/client/cart/items/"+item.ID.String(),
		map[string]interface{}{"quantity": 0}, token)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d; body: %s", rr.Code, rr.Body.String())
	}
	if _, ok := store.items[item.ID]; ok {
		t.Error("expected item to be removed from the cart")
	}
}

func TestCartUpdateItemZeroQuantityUnknownItem(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPatch, "/client/cart/items/"+uuid.New().String(),
		map[string]interface{}{"quantity": 0}, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestCartRemoveItemNotFound(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodDelete, "/client/cart/items/"+uuid.New().String(), nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestCartClear(t *testing.T) {
	store := newMockCartStore()
	router := setupCartRouter(store, &mockCheckoutService{}, newMockNotifier())

	userID := uuid.New()
	cart, _ := store.EnsureCart(context.Background(), userID)
	item := database.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: uuid.New(), Quantity: 1}
	store.items[item.ID] = item

	token := makeToken(t, userID, enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodDelete, "/client/cart", nil, token)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if len(store.items) != 0 {
		t.Errorf("expected empty cart, got %d items", len(store.items))
	}
}

func TestCheckoutCreatesOrdersAndNotifiesShops(t *testing.T) {
	store := newMockCartStore()
	notifier := newMockNotifier()

	shopA := uuid.New()
	shopB := uuid.New()
	customerID := uuid.New()
	checkout := &mockCheckoutService{
		result: &service.CheckoutResult{
			Orders: []service.CheckoutOrder{
				{
					Order: database.Order{
						ID: uuid.New(), CustomerID: customerID, ShopID: shopA,
						TotalAmount: makeNumeric(t, "10200.00"), DeliveryFee: makeNumeric(t, "1500.00"),
						Status: database.OrderStatusPending, CreatedAt: time.Now(),
					},
					Items: []database.OrderItem{{ID: uuid.New()}, {ID: uuid.New()}},
				},
				{
					Order: database.Order{
						ID: uuid.New(), CustomerID: customerID, ShopID: shopB,
						TotalAmount: makeNumeric(t, "2400.00"), DeliveryFee: makeNumeric(t, "1500.00"),
						Status: database.OrderStatusPending, CreatedAt: time.Now(),
					},
					Items: []database.OrderItem{{ID: uuid.New()}},
				},
			},
		},
	}
	router := setupCartRouter(store, checkout, notifier)

	paymentMethodID := uuid.New()
	token := makeToken(t, customerID, enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/checkout", map[string]string{
		"delivery_address_id": uuid.New().String(),
		"payment_method_id":   paymentMethodID.String(),
	}, token)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d; body: %s", rr.Code, rr.Body.String())
	}
	if checkout.req.CustomerID != customerID {
		t.Errorf("customer_id passed to service: got %s, want %s", checkout.req.CustomerID, customerID)
	}
	if checkout.req.PaymentMethodID != paymentMethodID.String() {
		t.Errorf("payment_method_id passed to service: got %s, want %s", checkout.req.PaymentMethodID, paymentMethodID)
	}

	resp := decodeMap(t, rr)
	orders, ok := resp["orders"].([]interface{})
	if !ok || len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %v", resp["orders"])
	}
	first := orders[0].(map[string]interface{})
	if first["total_amount"] != "10200.00" {
		t.Errorf("total_amount: got %v, want 10200.00", first["total_amount"])
	}
	if first["item_count"].(float64) != 2 {
		t.Errorf("item_count: got %v, want 2", first["item_count"])
	}

	if len(notifier.shopEvents[shopA]) != 1 || len(notifier.shopEvents[shopB]) != 1 {
		t.Errorf("expected one order.created event per shop, got %d/%d",
			len(notifier.shopEvents[shopA]), len(notifier.shopEvents[shopB]))
	}
	if notifier.shopEvents[shopA][0].Type != "order.created" {
		t.Errorf("event type: got %s, want order.created", notifier.shopEvents[shopA][0].Type)
	}
}

func TestCheckoutUnavailableProduct(t *testing.T) {
	store := newMockCartStore()
	productID := uuid.New()
	shopID := uuid.New()
	checkout := &mockCheckoutService{
		err: &service.UnavailableProductError{
			ShopID:      shopID,
			ShopName:    "Boutique Koffi",
			ProductID:   productID,
			ProductName: "Riz parfumé 5kg",
			Requested:   4,
			InStock:     2,
		},
	}
	router := setupCartRouter(store, checkout, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/checkout", map[string]string{
		"delivery_address_id": uuid.New().String(),
		"payment_method_id":   uuid.New().String(),
	}, token)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["shop_name"] != "Boutique Koffi" {
		t.Errorf("shop_name: got %v", resp["shop_name"])
	}
	if resp["product_id"] != productID.String() {
		t.Errorf("product_id: got %v, want %s", resp["product_id"], productID)
	}
	if resp["in_stock"].(float64) != 2 {
		t.Errorf("in_stock: got %v, want 2", resp["in_stock"])
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := newMockCartStore()
	checkout := &mockCheckoutService{err: service.ErrEmptyCart}
	router := setupCartRouter(store, checkout, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/checkout", map[string]string{
		"delivery_address_id": uuid.New().String(),
		"payment_method_id":   uuid.New().String(),
	}, token)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestCheckoutAddressNotFound(t *testing.T) {
	store := newMockCartStore()
	checkout := &mockCheckoutService{err: service.ErrAddressNotFound}
	router := setupCartRouter(store, checkout, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/checkout", map[string]string{
		"delivery_address_id": uuid.New().String(),
		"payment_method_id":   uuid.New().String(),
	}, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestCheckoutPaymentMethodNotFound(t *testing.T) {
	store := newMockCartStore()
	checkout := &mockCheckoutService{err: service.ErrPaymentMethodNotFound}
	router := setupCartRouter(store, checkout, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/checkout", map[string]string{
		"delivery_address_id": uuid.New().String(),
		"payment_method_id":   uuid.New().String(),
	}, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestCheckoutMissingFields(t *testing.T) {
	store := newMockCartStore()
	checkout := &mockCheckoutService{}
	router := setupCartRouter(store, checkout, newMockNotifier())

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPost, "/client/cart/checkout", map[string]string{
		"payment_method_id": uuid.New().String(),
	}, token)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if checkout.called {
		t.Error("service should not be called when validation fails")
	}
}
