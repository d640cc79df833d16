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

// FavoriteStore defines the database methods needed by the favorites handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type FavoriteStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	UpsertFavorite(ctx context.Context, arg database.UpsertFavoriteParams) (database.Favorite, error)
	ListFavoritesByUser(ctx context.Context, userID uuid.UUID) ([]database.ListFavoritesByUserRow, error)
	DeleteFavorite(ctx context.Context, arg database.DeleteFavoriteParams) (int64, error)
}

// FavoriteHandler handles the customer's favorites endpoints.
type FavoriteHandler struct {
	store FavoriteStore
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(store FavoriteStore) *FavoriteHandler {
	return &FavoriteHandler{store: store}
}

// RegisterRoutes registers favorites endpoints on the given Chi router.
// Expected to be mounted inside the client-only subrouter.
func (h *FavoriteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/favorites", h.List)
	r.Put("/favorites/{productID}", h.Add)
	r.Delete("/favorites/{productID}", h.Remove)
}

// --- Response types ---

type favoriteResponse struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Price         string    `json:"price"`
	ImageUrls     []string  `json:"image_urls"`
	ProductActive bool      `json:"product_active"`
	ShopID        uuid.UUID `json:"shop_id"`
	ShopName      string    `json:"shop_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// --- Handlers ---

// List returns the customer's favorited products, newest first.
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	favorites, err := h.store.ListFavoritesByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list favorites: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]favoriteResponse, len(favorites))
	for i, f := range favorites {
		resp[i] = favoriteResponse{
			ID:            f.ID,
			ProductID:     f.ProductID,
			ProductName:   f.ProductName,
			Price:         numericToString(f.Price),
			ImageUrls:     f.ImageUrls,
			ProductActive: f.ProductActive,
			ShopID:        f.ShopID,
			ShopName:      f.ShopName,
			CreatedAt:     f.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Add favorites a product. Favoriting the same product twice is a no-op.
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for favorite: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	favorite, err := h.store.UpsertFavorite(r.Context(), database.UpsertFavoriteParams{
		UserID:    claims.UserID,
		ProductID: productID,
	})
	if err != nil {
		log.Printf("ERROR: upsert favorite: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         favorite.ID,
		"product_id": favorite.ProductID,
		"created_at": favorite.CreatedAt,
	})
}

// Remove unfavorites a product.
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	affected, err := h.store.DeleteFavorite(r.Context(), database.DeleteFavoriteParams{
		UserID:    claims.UserID,
		ProductID: productID,
	})
	if err != nil {
		log.Printf("ERROR: delete favorite: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "favorite not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
