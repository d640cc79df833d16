package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/middleware"
	"github.com/linkamarket/api/internal/service"
	"github.com/linkamarket/api/internal/ws"
	"github.com/shopspring/decimal"
)

// CartStore defines the database methods needed by cart handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CartStore interface {
	EnsureCart(ctx context.Context, userID uuid.UUID) (database.Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsRow, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	UpsertCartItem(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error)
	DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (int64, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

// CheckoutServicer defines the service methods needed by the checkout handler.
// Satisfied by *service.CheckoutService; narrow interface for testability.
type CheckoutServicer interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
}

// Notifier pushes order events onto the live feeds. Satisfied by *ws.Hub.
type Notifier interface {
	BroadcastToShop(shopID uuid.UUID, event ws.Event)
	BroadcastToDrivers(event ws.Event)
}

// CartHandler handles the customer's cart and checkout endpoints.
type CartHandler struct {
	store    CartStore
	checkout CheckoutServicer
	notifier Notifier
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(store CartStore, checkout CheckoutServicer, notifier Notifier) *CartHandler {
	return &CartHandler{store: store, checkout: checkout, notifier: notifier}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
// Expected to be mounted inside the client-only subrouter.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{id}", h.UpdateItem)
	r.Delete("/cart/items/{id}", h.RemoveItem)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/checkout", h.Checkout)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type checkoutRequest struct {
	DeliveryAddressID string `json:"delivery_address_id"`
	PaymentMethodID   string `json:"payment_method_id"`
}

type cartItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   string    `json:"unit_price"`
	Quantity    int32     `json:"quantity"`
	Subtotal    string    `json:"subtotal"`
	InStock     int32     `json:"in_stock"`
	Available   bool      `json:"available"`
	ImageUrls   []string  `json:"image_urls"`
	ShopID      uuid.UUID `json:"shop_id"`
	ShopName    string    `json:"shop_name"`
}

// cartShopResponse groups a shop's cart lines the way checkout will split
// them, so the client can render one section per shop.
type cartShopResponse struct {
	ShopID   uuid.UUID          `json:"shop_id"`
	ShopName string             `json:"shop_name"`
	Subtotal string             `json:"subtotal"`
	Items    []cartItemResponse `json:"items"`
}

type cartResponse struct {
	ID    uuid.UUID          `json:"id"`
	Shops []cartShopResponse `json:"shops"`
	Total string             `json:"total"`
}

type checkoutOrderResponse struct {
	ID          uuid.UUID `json:"id"`
	ShopID      uuid.UUID `json:"shop_id"`
	TotalAmount string    `json:"total_amount"`
	DeliveryFee string    `json:"delivery_fee"`
	Status      string    `json:"status"`
	ItemCount   int       `json:"item_count"`
}

type checkoutResponse struct {
	Orders []checkoutOrderResponse `json:"orders"`
}

type checkoutErrorResponse struct {
	Error       string     `json:"error"`
	ShopID      *uuid.UUID `json:"shop_id,omitempty"`
	ShopName    string     `json:"shop_name,omitempty"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name,omitempty"`
	InStock     *int32     `json:"in_stock,omitempty"`
}

// orderCreatedEvent is pushed to a shop's order feed after checkout.
type orderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	TotalAmount string    `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Handlers ---

// Get returns the cart grouped by shop with live prices.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	cart, err := h.store.EnsureCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: ensure cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lines, err := h.store.ListCartItems(r.Context(), cart.ID)
	if err != nil {
		log.Printf("ERROR: list cart items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart, lines))
}

// AddItem adds a product to the cart, incrementing quantity if it is
// already there.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !product.IsActive {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "product is no longer available"})
		return
	}

	cart, err := h.store.EnsureCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: ensure cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	item, err := h.store.UpsertCartItem(r.Context(), database.UpsertCartItemParams{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		log.Printf("ERROR: upsert cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         item.ID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
}

// UpdateItem sets the quantity of a cart line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cart, err := h.store.EnsureCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: ensure cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Quantity zero (or below) removes the line, same as DELETE.
	if req.Quantity <= 0 {
		affected, err := h.store.DeleteCartItem(r.Context(), database.DeleteCartItemParams{
			ID:     itemID,
			CartID: cart.ID,
		})
		if err != nil {
			log.Printf("ERROR: delete cart item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if affected == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	item, err := h.store.UpdateCartItemQuantity(r.Context(), database.UpdateCartItemQuantityParams{
		ID:       itemID,
		CartID:   cart.ID,
		Quantity: req.Quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
			return
		}
		log.Printf("ERROR: update cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         item.ID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
}

// RemoveItem deletes a cart line.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	cart, err := h.store.EnsureCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: ensure cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	affected, err := h.store.DeleteCartItem(r.Context(), database.DeleteCartItemParams{
		ID:     itemID,
		CartID: cart.ID,
	})
	if err != nil {
		log.Printf("ERROR: delete cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear empties the whole cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	cart, err := h.store.EnsureCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: ensure cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.store.ClearCart(r.Context(), cart.ID); err != nil {
		log.Printf("ERROR: clear cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Checkout turns the cart into one order per shop, atomically.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.DeliveryAddressID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delivery_address_id is required"})
		return
	}
	if req.PaymentMethodID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method_id is required"})
		return
	}

	result, err := h.checkout.Checkout(r.Context(), service.CheckoutRequest{
		CustomerID:        claims.UserID,
		DeliveryAddressID: req.DeliveryAddressID,
		PaymentMethodID:   req.PaymentMethodID,
	})
	if err != nil {
		var unavailable *service.UnavailableProductError
		switch {
		case errors.As(err, &unavailable):
			writeJSON(w, http.StatusConflict, checkoutErrorResponse{
				Error:       unavailable.Error(),
				ShopID:      &unavailable.ShopID,
				ShopName:    unavailable.ShopName,
				ProductID:   &unavailable.ProductID,
				ProductName: unavailable.ProductName,
				InStock:     &unavailable.InStock,
			})
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrInvalidPaymentMethodID),
			errors.Is(err, service.ErrInvalidAddressID):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrAddressNotFound),
			errors.Is(err, service.ErrPaymentMethodNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: checkout: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	// Notify each shop's live order feed.
	if h.notifier != nil {
		for _, o := range result.Orders {
			event, err := ws.NewEvent("order.created", orderCreatedEvent{
				OrderID:     o.Order.ID,
				ShopID:      o.Order.ShopID,
				TotalAmount: numericToString(o.Order.TotalAmount),
				Status:      string(o.Order.Status),
				CreatedAt:   o.Order.CreatedAt,
			})
			if err != nil {
				log.Printf("ERROR: marshal order event: %v", err)
				continue
			}
			h.notifier.BroadcastToShop(o.Order.ShopID, event)
		}
	}

	resp := checkoutResponse{Orders: make([]checkoutOrderResponse, len(result.Orders))}
	for i, o := range result.Orders {
		resp.Orders[i] = checkoutOrderResponse{
			ID:          o.Order.ID,
			ShopID:      o.Order.ShopID,
			TotalAmount: numericToString(o.Order.TotalAmount),
			DeliveryFee: numericToString(o.Order.DeliveryFee),
			Status:      string(o.Order.Status),
			ItemCount:   len(o.Items),
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- Helpers ---

func toCartResponse(cart database.Cart, lines []database.ListCartItemsRow) cartResponse {
	resp := cartResponse{ID: cart.ID}

	index := make(map[uuid.UUID]int)
	total := decimal.Zero
	for _, line := range lines {
		unitPrice := numericToDecimal(line.Price)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		total = total.Add(subtotal)

		i, ok := index[line.ShopID]
		if !ok {
			i = len(resp.Shops)
			index[line.ShopID] = i
			resp.Shops = append(resp.Shops, cartShopResponse{
				ShopID:   line.ShopID,
				ShopName: line.ShopName,
			})
		}
		resp.Shops[i].Items = append(resp.Shops[i].Items, cartItemResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   unitPrice.StringFixed(2),
			Quantity:    line.Quantity,
			Subtotal:    subtotal.StringFixed(2),
			InStock:     line.StockQuantity,
			Available:   line.ProductActive && line.StockQuantity >= line.Quantity,
			ImageUrls:   line.ImageUrls,
			ShopID:      line.ShopID,
			ShopName:    line.ShopName,
		})
	}

	for i := range resp.Shops {
		shopTotal := decimal.Zero
		for _, it := range resp.Shops[i].Items {
			sub, _ := decimal.NewFromString(it.Subtotal)
			shopTotal = shopTotal.Add(sub)
		}
		resp.Shops[i].Subtotal = shopTotal.StringFixed(2)
	}
	resp.Total = total.StringFixed(2)
	return resp
}
