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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/middleware"
)

// ShopStore defines the database methods needed by the merchant shop handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ShopStore interface {
	CreateShop(ctx context.Context, arg database.CreateShopParams) (database.Shop, error)
	GetShopByOwner(ctx context.Context, ownerID uuid.UUID) (database.Shop, error)
	UpdateShop(ctx context.Context, arg database.UpdateShopParams) (database.Shop, error)
	GetShopOrderStats(ctx context.Context, shopID uuid.UUID) (database.GetShopOrderStatsRow, error)
}

// ShopHandler handles the merchant's shop endpoints.
type ShopHandler struct {
	store ShopStore
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(store ShopStore) *ShopHandler {
	return &ShopHandler{store: store}
}

// RegisterRoutes registers shop endpoints on the given Chi router.
// Expected to be mounted inside the merchant-only subrouter.
func (h *ShopHandler) RegisterRoutes(r chi.Router) {
	r.Post("/shop", h.Create)
	r.Get("/shop", h.Get)
	r.Put("/shop", h.Update)
	r.Get("/stats", h.Stats)
}

// --- Request / Response types ---

type createShopRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
}

type updateShopRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	IsActive    *bool  `json:"is_active"`
}

type shopResponse struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Address     string    `json:"address"`
	Phone       *string   `json:"phone"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type shopStatsResponse struct {
	TotalOrders     int64  `json:"total_orders"`
	PendingOrders   int64  `json:"pending_orders"`
	DeliveredOrders int64  `json:"delivered_orders"`
	CancelledOrders int64  `json:"cancelled_orders"`
	Revenue         string `json:"revenue"`
}

func toShopResponse(s database.Shop) shopResponse {
	resp := shopResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Name:      s.Name,
		Address:   s.Address,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Description.Valid {
		resp.Description = &s.Description.String
	}
	if s.Phone.Valid {
		resp.Phone = &s.Phone.String
	}
	return resp
}

// --- Handlers ---

// Create opens the merchant's shop. Each merchant owns at most one.
func (h *ShopHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
		return
	}

	var description pgtype.Text
	if req.Description != "" {
		description = pgtype.Text{String: req.Description, Valid: true}
	}
	var phone pgtype.Text
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	shop, err := h.store.CreateShop(r.Context(), database.CreateShopParams{
		OwnerID:     claims.UserID,
		Name:        req.Name,
		Description: description,
		Address:     req.Address,
		Phone:       phone,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "merchant already has a shop"})
			return
		}
		log.Printf("ERROR: create shop: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toShopResponse(shop))
}

// Get returns the merchant's own shop.
func (h *ShopHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	shop, err := h.store.GetShopByOwner(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shop not found"})
			return
		}
		log.Printf("ERROR: get shop: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toShopResponse(shop))
}

// Update modifies the merchant's shop.
func (h *ShopHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	shop, err := h.store.GetShopByOwner(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shop not found"})
			return
		}
		log.Printf("ERROR: get shop: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var req updateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
		return
	}

	var description pgtype.Text
	if req.Description != "" {
		description = pgtype.Text{String: req.Description, Valid: true}
	}
	var phone pgtype.Text
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}
	isActive := shop.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	updated, err := h.store.UpdateShop(r.Context(), database.UpdateShopParams{
		ID:          shop.ID,
		OwnerID:     claims.UserID,
		Name:        req.Name,
		Description: description,
		Address:     req.Address,
		Phone:       phone,
		IsActive:    isActive,
	})
	if err != nil {
		log.Printf("ERROR: update shop: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toShopResponse(updated))
}

// Stats returns the merchant dashboard counters.
func (h *ShopHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	shop, err := h.store.GetShopByOwner(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shop not found"})
			return
		}
		log.Printf("ERROR: get shop for stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	stats, err := h.store.GetShopOrderStats(r.Context(), shop.ID)
	if err != nil {
		log.Printf("ERROR: get shop stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, shopStatsResponse{
		TotalOrders:     stats.TotalOrders,
		PendingOrders:   stats.PendingOrders,
		DeliveredOrders: stats.DeliveredOrders,
		CancelledOrders: stats.CancelledOrders,
		Revenue:         numericToString(stats.Revenue),
	})
}
