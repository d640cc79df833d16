package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/middleware"
)

// OrderStore defines the database methods needed by the customer order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
	GetOrderForCustomer(ctx context.Context, arg database.GetOrderForCustomerParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
}

// OrderStatusServicer applies status transitions with their history row in
// one transaction. Satisfied by *service.StatusService.
type OrderStatusServicer interface {
	CancelByCustomer(ctx context.Context, arg database.CancelOrderByCustomerParams) (database.Order, error)
}

// OrderHandler handles the customer's order endpoints.
type OrderHandler struct {
	store  OrderStore
	status OrderStatusServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, status OrderStatusServicer) *OrderHandler {
	return &OrderHandler{store: store, status: status}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside the client-only subrouter.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/cancel", h.Cancel)
}

// --- Response types ---

type orderResponse struct {
	ID                uuid.UUID `json:"id"`
	ShopID            uuid.UUID `json:"shop_id"`
	DriverID          *string   `json:"driver_id"`
	DeliveryAddressID uuid.UUID `json:"delivery_address_id"`
	TotalAmount       string    `json:"total_amount"`
	DeliveryFee       string    `json:"delivery_fee"`
	GrandTotal        string    `json:"grand_total"`
	PaymentMethod     string    `json:"payment_method"`
	PaymentStatus     string    `json:"payment_status"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	TotalPrice  string    `json:"total_price"`
}

type statusHistoryResponse struct {
	Status    string    `json:"status"`
	ChangedBy uuid.UUID `json:"changed_by"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// orderDetailResponse extends orderResponse with items and the status
// timeline for the GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Items   []orderItemResponse     `json:"items"`
	History []statusHistoryResponse `json:"history"`
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		ShopID:            o.ShopID,
		DeliveryAddressID: o.DeliveryAddressID,
		TotalAmount:       numericToString(o.TotalAmount),
		DeliveryFee:       numericToString(o.DeliveryFee),
		GrandTotal:        numericToDecimal(o.TotalAmount).Add(numericToDecimal(o.DeliveryFee)).StringFixed(2),
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     string(o.PaymentStatus),
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.DriverID.Valid {
		s := uuid.UUID(o.DriverID.Bytes).String()
		resp.DriverID = &s
	}
	return resp
}

func dbOrderItemToResponse(it database.ListOrderItemsByOrderRow) orderItemResponse {
	return orderItemResponse{
		ID:          it.ID,
		ProductID:   it.ProductID,
		ProductName: it.ProductName,
		Quantity:    it.Quantity,
		UnitPrice:   numericToString(it.UnitPrice),
		TotalPrice:  numericToString(it.TotalPrice),
	}
}

// --- Handlers ---

// List returns a page of the customer's orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset, ok := parsePagination(w, r)
	if !ok {
		return
	}

	orders, err := h.store.ListOrdersByCustomer(r.Context(), database.ListOrdersByCustomerParams{
		CustomerID: claims.UserID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one of the customer's orders with items and status timeline.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrderForCustomer(r.Context(), database.GetOrderForCustomerParams{
		ID:         orderID,
		CustomerID: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
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

// Cancel cancels an order while it is still pending. The SQL enforces the
// precondition atomically: zero rows updated means the merchant got there
// first.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	cancelled, err := h.status.CancelByCustomer(r.Context(), database.CancelOrderByCustomerParams{
		ID:         orderID,
		CustomerID: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the order is not the customer's, or it moved past
			// pending. Fetch to give a precise error.
			current, fetchErr := h.store.GetOrderForCustomer(r.Context(), database.GetOrderForCustomerParams{
				ID:         orderID,
				CustomerID: claims.UserID,
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
		log.Printf("ERROR: cancel order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(cancelled))
}
