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
)

// --- Mock store ---

type mockProductStore struct {
	shops    map[uuid.UUID]database.Shop // keyed by owner ID
	products map[uuid.UUID]database.Product
}

func newMockProductStore() *mockProductStore {
	return &mockProductStore{
		shops:    make(map[uuid.UUID]database.Shop),
		products: make(map[uuid.UUID]database.Product),
	}
}

func (m *mockProductStore) GetShopByOwner(_ context.Context, ownerID uuid.UUID) (database.Shop, error) {
	s, ok := m.shops[ownerID]
	if !ok {
		return database.Shop{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockProductStore) CreateProduct(_ context.Context, arg database.CreateProductParams) (database.Product, error) {
	p := database.Product{
		ID:            uuid.New(),
		ShopID:        arg.ShopID,
		CategoryID:    arg.CategoryID,
		Name:          arg.Name,
		Description:   arg.Description,
		Price:         arg.Price,
		OriginalPrice: arg.OriginalPrice,
		StockQuantity: arg.StockQuantity,
		ImageUrls:     arg.ImageUrls,
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) ListProductsByShop(_ context.Context, shopID uuid.UUID) ([]database.Product, error) {
	var out []database.Product
	for _, p := range m.products {
		if p.ShopID == shopID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductStore) UpdateProduct(_ context.Context, arg database.UpdateProductParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.ShopID != arg.ShopID {
		return database.Product{}, pgx.ErrNoRows
	}
	p.CategoryID = arg.CategoryID
	p.Name = arg.Name
	p.Description = arg.Description
	p.Price = arg.Price
	p.OriginalPrice = arg.OriginalPrice
	p.StockQuantity = arg.StockQuantity
	p.ImageUrls = arg.ImageUrls
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) SetProductActive(_ context.Context, arg database.SetProductActiveParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.ShopID != arg.ShopID {
		return database.Product{}, pgx.ErrNoRows
	}
	p.IsActive = arg.IsActive
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) DeleteProduct(_ context.Context, arg database.DeleteProductParams) (int64, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.ShopID != arg.ShopID {
		return 0, nil
	}
	delete(m.products, p.ID)
	return 1, nil
}

// --- Helpers ---

func setupProductRouter(store *mockProductStore) *chi.Mux {
	h := handler.NewProductHandler(store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(testJWTSecret))
		r.Route("/merchant", h.RegisterRoutes)
	})
	return r
}

func seedMerchantShop(store *mockProductStore, ownerID uuid.UUID) database.Shop {
	s := database.Shop{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     "Boutique Koffi",
		Address:  "Lomé",
		IsActive: true,
	}
	store.shops[ownerID] = s
	return s
}

func seedProduct(t *testing.T, store *mockProductStore, shopID uuid.UUID, name, price string) database.Product {
	t.Helper()
	p := database.Product{
		ID:            uuid.New(),
		ShopID:        shopID,
		Name:          name,
		Price:         makeNumeric(t, price),
		StockQuantity: 10,
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	store.products[p.ID] = p
	return p
}

// --- Tests ---

func TestProductCreate(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	seedMerchantShop(store, ownerID)

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodPost, "/merchant/products", map[string]interface{}{
		"name":           "Riz parfumé 5kg",
		"price":          "4500",
		"stock_quantity": 20,
		"image_urls":     []string{"https://cdn.example.com/riz.jpg"},
	}, token)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["price"] != "4500.00" {
		t.Errorf("price: got %v, want 4500.00", resp["price"])
	}
	if resp["original_price"] != nil {
		t.Errorf("original_price: got %v, want null", resp["original_price"])
	}
	if resp["is_active"] != true {
		t.Errorf("is_active: got %v, want true", resp["is_active"])
	}
}

func TestProductCreateInvalidPrice(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	seedMerchantShop(store, ownerID)

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	for _, price := range []string{"", "abc", "-100"} {
		rr := doAuthRequest(t, router, http.MethodPost, "/merchant/products", map[string]interface{}{
			"name":  "Riz parfumé 5kg",
			"price": price,
		}, token)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("price %q: expected status 400, got %d", price, rr.Code)
		}
	}
}

func TestProductCreateNegativeStock(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	seedMerchantShop(store, ownerID)

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodPost, "/merchant/products", map[string]interface{}{
		"name":           "Riz parfumé 5kg",
		"price":          "4500",
		"stock_quantity": -1,
	}, token)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestProductCreateNoShop(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	token := makeToken(t, uuid.New(), enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodPost, "/merchant/products", map[string]interface{}{
		"name":  "Riz parfumé 5kg",
		"price": "4500",
	}, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestProductListIncludesInactive(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	shop := seedMerchantShop(store, ownerID)
	seedProduct(t, store, shop.ID, "Riz parfumé 5kg", "4500.00")
	inactive := seedProduct(t, store, shop.ID, "Huile rouge 1L", "1200.00")
	inactive.IsActive = false
	store.products[inactive.ID] = inactive
	seedProduct(t, store, uuid.New(), "Autre boutique", "999.00")

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodGet, "/merchant/products", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if list := decodeList(t, rr); len(list) != 2 {
		t.Errorf("expected 2 products, got %d", len(list))
	}
}

func TestProductUpdate(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	shop := seedMerchantShop(store, ownerID)
	product := seedProduct(t, store, shop.ID, "Riz parfumé 5kg", "4500.00")

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodPut, "/merchant/products/"+product.ID.String(), map[string]interface{}{
		"name":           "Riz parfumé 10kg",
		"price":          "8500",
		"original_price": "9000",
		"stock_quantity": 5,
	}, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["name"] != "Riz parfumé 10kg" {
		t.Errorf("name: got %v", resp["name"])
	}
	if resp["original_price"] != "9000.00" {
		t.Errorf("original_price: got %v, want 9000.00", resp["original_price"])
	}
}

func TestProductUpdateOtherShops(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	seedMerchantShop(store, ownerID)
	other := seedProduct(t, store, uuid.New(), "Pas à moi", "1000.00")

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodPut, "/merchant/products/"+other.ID.String(), map[string]interface{}{
		"name":  "Hijacked",
		"price": "1",
	}, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestProductSetActive(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	shop := seedMerchantShop(store, ownerID)
	product := seedProduct(t, store, shop.ID, "Riz parfumé 5kg", "4500.00")

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodPatch, "/merchant/products/"+product.ID.String()+"/active",
		map[string]bool{"is_active": false}, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeMap(t, rr); resp["is_active"] != false {
		t.Errorf("is_active: got %v, want false", resp["is_active"])
	}
}

func TestProductDelete(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	shop := seedMerchantShop(store, ownerID)
	product := seedProduct(t, store, shop.ID, "Riz parfumé 5kg", "4500.00")

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodDelete, "/merchant/products/"+product.ID.String(), nil, token)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if _, ok := store.products[product.ID]; ok {
		t.Error("product should be deleted")
	}
}

func TestProductDeleteNotFound(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	ownerID := uuid.New()
	seedMerchantShop(store, ownerID)

	token := makeToken(t, ownerID, enum.UserTypeMerchant)
	rr := doAuthRequest(t, router, http.MethodDelete, "/merchant/products/"+uuid.New().String(), nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
