package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/middleware"
	"github.com/linkamarket/api/internal/ws"
)

// DriverStore defines the database methods needed by the driver handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DriverStore interface {
	ListAvailableOrders(ctx context.Context, limit int32) ([]database.AvailableOrderRow, error)
	ListActiveDeliveries(ctx context.Context, driverID uuid.UUID) ([]database.Order, error)
	ListDeliveriesByDriver(ctx context.Context, driverID uuid.UUID) ([]database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// DriverStatusServicer applies status transitions with their history row in
// one transaction. Satisfied by *service.StatusService.
type DriverStatusServicer interface {
	Claim(ctx context.Context, arg database.ClaimOrderParams) (database.Order, error)
	AdvanceDelivery(ctx context.Context, arg database.AdvanceDriverOrderParams) (database.Order, error)
}

// DriverHandler handles the driver's delivery endpoints.
type DriverHandler struct {
	store    DriverStore
	status   DriverStatusServicer
	notifier Notifier
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(store DriverStore, status DriverStatusServicer, notifier Notifier) *DriverHandler {
	return &DriverHandler{store: store, status: status, notifier: notifier}
}

// RegisterRoutes registers driver endpoints on the given Chi router.
// Expected to be mounted inside the driver-only subrouter.
func (h *DriverHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/available", h.Available)
	r.Post("/orders/{id}/claim", h.Claim)
	r.Get("/deliveries", h.History)
	r.Get("/deliveries/active", h.Active)
	r.Post("/deliveries/{id}/advance", h.Advance)
}

// --- Response types ---

type availableOrderResponse struct {
	ID              uuid.UUID `json:"id"`
	ShopID          uuid.UUID `json:"shop_id"`
	ShopName        string    `json:"shop_name"`
	ShopAddress     string    `json:"shop_address"`
	DeliveryLabel   string    `json:"delivery_label"`
	DeliveryAddress string    `json:"delivery_address"`
	TotalAmount     string    `json:"total_amount"`
	DeliveryFee     string    `json:"delivery_fee"`
	CreatedAt       time.Time `json:"created_at"`
}

// --- Handlers ---

// Available lists unclaimed orders that are ready for pickup, oldest first.
func (h *DriverHandler) Available(w http.ResponseWriter, r *http.Request) {
	limit := int32(10)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		if n > 50 {
			n = 50
		}
		limit = int32(n)
	}

	orders, err := h.store.ListAvailableOrders(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: list available orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]availableOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = availableOrderResponse{
			ID:              o.ID,
			ShopID:          o.ShopID,
			ShopName:        o.ShopName,
			ShopAddress:     o.ShopAddress,
			DeliveryLabel:   o.DeliveryLabel,
			DeliveryAddress: o.DeliveryAddress,
			TotalAmount:     numericToString(o.TotalAmount),
			DeliveryFee:     numericToString(o.DeliveryFee),
			CreatedAt:       o.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Claim assigns an available order to the authenticated driver. The update is
// guarded so only one driver wins a simultaneous claim.
func (h *DriverHandler) Claim(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.status.Claim(r.Context(), database.ClaimOrderParams{
		ID:       orderID,
		DriverID: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, fetchErr := h.store.GetOrder(r.Context(), orderID); fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
					return
				}
				log.Printf("ERROR: get order for claim: %v", fetchErr)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order already claimed"})
			return
		}
		log.Printf("ERROR: claim order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.notifyShop(order)

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Active lists the driver's in-progress deliveries.
func (h *DriverHandler) Active(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListActiveDeliveries(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list active deliveries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// History lists every delivery the driver has ever carried, newest first.
func (h *DriverHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListDeliveriesByDriver(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list deliveries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// driverTransitions defines the single next step from each in-delivery status.
var driverTransitions = map[database.OrderStatus]database.OrderStatus{
	database.OrderStatusPickedUp:  database.OrderStatusInTransit,
	database.OrderStatusInTransit: database.OrderStatusDelivered,
}

// Advance moves one of the driver's deliveries to its next status:
// picked_up -> in_transit -> delivered.
func (h *DriverHandler) Advance(w http.ResponseWriter, r *http.Request) {
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

	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery not found"})
			return
		}
		log.Printf("ERROR: get order for advance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !current.DriverID.Valid || uuid.UUID(current.DriverID.Bytes) != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery not found"})
		return
	}

	next, ok := driverTransitions[current.Status]
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("cannot advance from %s", current.Status),
		})
		return
	}

	updated, err := h.status.AdvanceDelivery(r.Context(), database.AdvanceDriverOrderParams{
		ID:           orderID,
		DriverID:     claims.UserID,
		FromStatus:   current.Status,
		TargetStatus: next,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: advance delivery: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.notifyShop(updated)

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// notifyShop pushes the order's new status to the shop's feed.
func (h *DriverHandler) notifyShop(order database.Order) {
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
}
