package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/middleware"
	"github.com/linkamarket/api/internal/ws"
)

// MerchantOrderStore defines the database methods needed by the merchant
// order handlers. Satisfied by *database.Queries; narrow interface for
// testability.
type MerchantOrderStore interface {
	GetShopByOwner(ctx context.Context, ownerID uuid.UUID) (database.Shop, error)
	ListOrdersByShop(ctx context.Context, arg database.ListOrdersByShopParams) ([]database.Order, error)
	GetOrderForShop(ctx context.Context, arg database.GetOrderForShopParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
}

// MerchantStatusServicer applies status transitions with their history row in
// one transaction. Satisfied by *service.StatusService.
type MerchantStatusServicer interface {
	UpdateShopOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams, changedBy uuid.UUID) (database.Order, error)
	CancelByShop(ctx context.Context, arg database.CancelOrderByShopParams, changedBy uuid.UUID) (database.Order, error)
}

// MerchantOrderHandler handles the merchant's order management endpoints.
type MerchantOrderHandler struct {
	store    MerchantOrderStore
	status   MerchantStatusServicer
	notifier Notifier
}

// NewMerchantOrderHandler creates a new MerchantOrderHandler.
func NewMerchantOrderHandler(store MerchantOrderStore, status MerchantStatusServicer, notifier Notifier) *MerchantOrderHandler {
	return &MerchantOrderHandler{store: store, status: status, notifier: notifier}
}

// RegisterRoutes registers merchant order endpoints on the given Chi router.
// Expected to be mounted inside the merchant-only subrouter.
func (h *MerchantOrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Post("/orders/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

// orderAvailableEvent is pushed to the driver feed when an order becomes
// claimable.
type orderAvailableEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	TotalAmount string    `json:"total_amount"`
	DeliveryFee string    `json:"delivery_fee"`
	CreatedAt   time.Time `json:"created_at"`
}

// orderUpdatedEvent is pushed to a shop's order feed on any status change.
type orderUpdatedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

// --- Handlers ---

// List returns a page of the shop's orders, newest first, with an optional
// status filter.
func (h *MerchantOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	limit, offset, ok := parsePagination(w, r)
	if !ok {
		return
	}

	params := database.ListOrdersByShopParams{ShopID: shop.ID, Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		status := database.OrderStatus(s)
		if !isValidOrderStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = database.NullOrderStatus{OrderStatus: status, Valid: true}
	}

	orders, err := h.store.ListOrdersByShop(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list shop orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one of the shop's orders with items and status timeline.
func (h *MerchantOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrderForShop(r.Context(), database.GetOrderForShopParams{
		ID:     orderID,
		ShopID: shop.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get shop order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	history, err := h.store.ListStatusHistory(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list status history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemResponses := make([]orderItemResponse, len(items))
	for i, it := range items {
		itemResponses[i] = dbOrderItemToResponse(it)
	}
	historyResponses := make([]statusHistoryResponse, len(history))
	for i, hrow := range history {
		historyResponses[i] = statusHistoryResponse{
			Status:    string(hrow.Status),
			ChangedBy: hrow.ChangedBy,
			CreatedAt: hrow.CreatedAt,
		}
		if hrow.Notes.Valid {
			historyResponses[i].Notes = &hrow.Notes.String
		}
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: dbOrderToResponse(order),
		Items:         itemResponses,
		History:       historyResponses,
	})
}

// UpdateStatus moves an order along the merchant's part of the lifecycle.
func (h *MerchantOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	newStatus := database.OrderStatus(req.Status)
	if !isValidOrderStatus(newStatus) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	// Fetch current order to validate the transition
	current, err := h.store.GetOrderForShop(r.Context(), database.GetOrderForShopParams{
		ID:     orderID,
		ShopID: shop.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := validateMerchantTransition(current.Status, newStatus); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.status.UpdateShopOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:           orderID,
		ShopID:       shop.ID,
		FromStatus:   current.Status,
		TargetStatus: newStatus,
	}, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No rows updated means the status changed between our read
			// and write (race condition)
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.notifyStatusChange(updated)

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Cancel cancels an order that has not started preparation yet.
func (h *MerchantOrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	cancelled, err := h.status.CancelByShop(r.Context(), database.CancelOrderByShopParams{
		ID:     orderID,
		ShopID: shop.ID,
	}, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, fetchErr := h.store.GetOrderForShop(r.Context(), database.GetOrderForShopParams{
				ID:     orderID,
				ShopID: shop.ID,
			})
			if fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
					return
				}
				log.Printf("ERROR: get order for cancel: %v", fetchErr)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			if current.Status == database.OrderStatusCancelled {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already cancelled"})
				return
			}
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order can no longer be cancelled"})
			return
		}
		log.Printf("ERROR: cancel shop order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.notifyStatusChange(cancelled)

	writeJSON(w, http.StatusOK, dbOrderToResponse(cancelled))
}

// --- Helpers ---

func (h *MerchantOrderHandler) resolveShop(w http.ResponseWriter, r *http.Request) (database.Shop, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return database.Shop{}, false
	}

	shop, err := h.store.GetShopByOwner(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shop not found"})
			return database.Shop{}, false
		}
		log.Printf("ERROR: get shop: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Shop{}, false
	}
	return shop, true
}

// notifyStatusChange pushes feed events for a changed order. Orders that
// became ready_for_pickup also go to the shared driver feed.
func (h *MerchantOrderHandler) notifyStatusChange(order database.Order) {
	if h.notifier == nil {
		return
	}

	event, err := ws.NewEvent("order.updated", orderUpdatedEvent{
		OrderID: order.ID,
		Status:  string(order.Status),
	})
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
		return
	}
	h.notifier.BroadcastToShop(order.ShopID, event)

	if order.Status == database.OrderStatusReadyForPickup {
		available, err := ws.NewEvent("order.available", orderAvailableEvent{
			OrderID:     order.ID,
			ShopID:      order.ShopID,
			TotalAmount: numericToString(order.TotalAmount),
			DeliveryFee: numericToString(order.DeliveryFee),
			CreatedAt:   order.CreatedAt,
		})
		if err != nil {
			log.Printf("ERROR: marshal driver event: %v", err)
			return
		}
		h.notifier.BroadcastToDrivers(available)
	}
}

// isValidOrderStatus checks if the given status is a valid order status.
func isValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPending,
		database.OrderStatusConfirmed,
		database.OrderStatusPreparing,
		database.OrderStatusReadyForPickup,
		database.OrderStatusPickedUp,
		database.OrderStatusInTransit,
		database.OrderStatusDelivered,
		database.OrderStatusCancelled:
		return true
	}
	return false
}

// merchantTransitions defines the transitions a merchant may perform.
// Key is current status, value is the set of statuses it can move to.
// Everything from ready_for_pickup onward belongs to the assigned driver.
var merchantTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending:   {database.OrderStatusConfirmed, database.OrderStatusCancelled},
	database.OrderStatusConfirmed: {database.OrderStatusPreparing, database.OrderStatusCancelled},
	database.OrderStatusPreparing: {database.OrderStatusReadyForPickup},
}

// validateMerchantTransition checks if the transition from current to next is
// allowed for the shop.
func validateMerchantTransition(current, next database.OrderStatus) error {
	allowed, ok := merchantTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
