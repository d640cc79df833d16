package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/linkamarket/api/internal/database"
)

// CatalogStore defines the database methods needed by the public catalog
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListShops(ctx context.Context, arg database.ListShopsParams) ([]database.Shop, error)
	GetShop(ctx context.Context, id uuid.UUID) (database.Shop, error)
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
}

// CatalogHandler serves the public, unauthenticated browse endpoints.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/shops", h.ListShops)
	r.Get("/shops/{id}", h.GetShop)
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/categories", h.ListCategories)
}

// --- Response types ---

type categoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// --- Handlers ---

// ListShops returns active shops, paginated with limit/offset query params.
func (h *CatalogHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePagination(w, r)
	if !ok {
		return
	}

	shops, err := h.store.ListShops(r.Context(), database.ListShopsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Printf("ERROR: list shops: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]shopResponse, len(shops))
	for i, s := range shops {
		resp[i] = toShopResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetShop returns a single shop by ID.
func (h *CatalogHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shop ID"})
		return
	}

	shop, err := h.store.GetShop(r.Context(), shopID)
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

// ListProducts returns active products, filterable by shop_id, category_id and
// a free-text search query.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePagination(w, r)
	if !ok {
		return
	}

	params := database.ListProductsParams{Limit: limit, Offset: offset}
	q := r.URL.Query()

	if s := q.Get("shop_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shop_id"})
			return
		}
		params.ShopID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := q.Get("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := q.Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}

	products, err := h.store.ListProducts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct returns a single product by ID. Inactive products are hidden from
// the public catalog.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
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
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// ListCategories returns every category, sorted by name.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parsePagination reads limit/offset query params with a default page size of
// 20 and a cap of 100. It writes the error response itself when a param is
// malformed.
func parsePagination(w http.ResponseWriter, r *http.Request) (limit, offset int32, ok bool) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return 0, 0, false
		}
		if n > 100 {
			n = 100
		}
		limit = int32(n)
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return 0, 0, false
		}
		offset = int32(n)
	}
	return limit, offset, true
}
