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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/middleware"
	"github.com/shopspring/decimal"
)

// ProductStore defines the database methods needed by merchant product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	GetShopByOwner(ctx context.Context, ownerID uuid.UUID) (database.Shop, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	ListProductsByShop(ctx context.Context, shopID uuid.UUID) ([]database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	SetProductActive(ctx context.Context, arg database.SetProductActiveParams) (database.Product, error)
	DeleteProduct(ctx context.Context, arg database.DeleteProductParams) (int64, error)
}

// ProductHandler handles the merchant's product management endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints on the given Chi router.
// Expected to be mounted inside the merchant-only subrouter.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.List)
	r.Post("/products", h.Create)
	r.Route("/products/{id}", func(r chi.Router) {
		r.Put("/", h.Update)
		r.Patch("/active", h.SetActive)
		r.Delete("/", h.Delete)
	})
}

// --- Request / Response types ---

type productPayload struct {
	CategoryID    string   `json:"category_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         string   `json:"price"`
	OriginalPrice string   `json:"original_price"`
	StockQuantity int32    `json:"stock_quantity"`
	ImageUrls     []string `json:"image_urls"`
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type productResponse struct {
	ID            uuid.UUID `json:"id"`
	ShopID        uuid.UUID `json:"shop_id"`
	CategoryID    *string   `json:"category_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	Price         string    `json:"price"`
	OriginalPrice *string   `json:"original_price"`
	StockQuantity int32     `json:"stock_quantity"`
	ImageUrls     []string  `json:"image_urls"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:            p.ID,
		ShopID:        p.ShopID,
		Name:          p.Name,
		Price:         numericToString(p.Price),
		StockQuantity: p.StockQuantity,
		ImageUrls:     p.ImageUrls,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.CategoryID.Valid {
		s := uuid.UUID(p.CategoryID.Bytes).String()
		resp.CategoryID = &s
	}
	if p.Description.Valid {
		resp.Description = &p.Description.String
	}
	if p.OriginalPrice.Valid {
		s := numericToString(p.OriginalPrice)
		resp.OriginalPrice = &s
	}
	return resp
}

// parseProductPayload validates the shared create/update body and converts it
// to database params.
func parseProductPayload(req productPayload) (categoryID pgtype.UUID, description pgtype.Text, price, originalPrice pgtype.Numeric, errMsg string) {
	if req.Name == "" {
		return categoryID, description, price, originalPrice, "name is required"
	}
	if req.StockQuantity < 0 {
		return categoryID, description, price, originalPrice, "stock_quantity must be >= 0"
	}

	p, err := decimal.NewFromString(req.Price)
	if err != nil || p.IsNegative() {
		return categoryID, description, price, originalPrice, "invalid price"
	}
	if err := price.Scan(p.StringFixed(2)); err != nil {
		return categoryID, description, price, originalPrice, "invalid price"
	}

	if req.OriginalPrice != "" {
		op, err := decimal.NewFromString(req.OriginalPrice)
		if err != nil || op.IsNegative() {
			return categoryID, description, price, originalPrice, "invalid original_price"
		}
		if err := originalPrice.Scan(op.StringFixed(2)); err != nil {
			return categoryID, description, price, originalPrice, "invalid original_price"
		}
	}

	if req.CategoryID != "" {
		cid, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return categoryID, description, price, originalPrice, "invalid category_id"
		}
		categoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	if req.Description != "" {
		description = pgtype.Text{String: req.Description, Valid: true}
	}
	return categoryID, description, price, originalPrice, ""
}

// --- Handlers ---

// List returns every product of the merchant's shop, inactive ones included.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	products, err := h.store.ListProductsByShop(r.Context(), shop.ID)
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

// Create adds a product to the merchant's shop.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	var req productPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, description, price, originalPrice, errMsg := parseProductPayload(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		ShopID:        shop.ID,
		CategoryID:    categoryID,
		Name:          req.Name,
		Description:   description,
		Price:         price,
		OriginalPrice: originalPrice,
		StockQuantity: req.StockQuantity,
		ImageUrls:     req.ImageUrls,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update modifies one of the merchant's products.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, description, price, originalPrice, errMsg := parseProductPayload(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:            productID,
		ShopID:        shop.ID,
		CategoryID:    categoryID,
		Name:          req.Name,
		Description:   description,
		Price:         price,
		OriginalPrice: originalPrice,
		StockQuantity: req.StockQuantity,
		ImageUrls:     req.ImageUrls,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// SetActive toggles a product's visibility in the public catalog.
func (h *ProductHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	product, err := h.store.SetProductActive(r.Context(), database.SetProductActiveParams{
		ID:       productID,
		ShopID:   shop.ID,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: set product active: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete removes one of the merchant's products.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	affected, err := h.store.DeleteProduct(r.Context(), database.DeleteProductParams{
		ID:     productID,
		ShopID: shop.ID,
	})
	if err != nil {
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveShop loads the authenticated merchant's shop, writing the error
// response itself when that fails.
func (h *ProductHandler) resolveShop(w http.ResponseWriter, r *http.Request) (database.Shop, bool) {
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
