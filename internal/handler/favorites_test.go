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

type mockFavoriteStore struct {
	products  map[uuid.UUID]database.Product
	favorites map[uuid.UUID]database.Favorite // keyed by favorite ID
	shopNames map[uuid.UUID]string
}

func newMockFavoriteStore() *mockFavoriteStore {
	return &mockFavoriteStore{
		products:  make(map[uuid.UUID]database.Product),
		favorites: make(map[uuid.UUID]database.Favorite),
		shopNames: make(map[uuid.UUID]string),
	}
}

func (m *mockFavoriteStore) GetProduct(_ context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockFavoriteStore) UpsertFavorite(_ context.Context, arg database.UpsertFavoriteParams) (database.Favorite, error) {
	for _, f := range m.favorites {
		if f.UserID == arg.UserID && f.ProductID == arg.ProductID {
			return f, nil
		}
	}
	f := database.Favorite{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		ProductID: arg.ProductID,
		CreatedAt: time.Now(),
	}
	m.favorites[f.ID] = f
	return f, nil
}

func (m *mockFavoriteStore) ListFavoritesByUser(_ context.Context, userID uuid.UUID) ([]database.ListFavoritesByUserRow, error) {
	var out []database.ListFavoritesByUserRow
	for _, f := range m.favorites {
		if f.UserID != userID {
			continue
		}
		p := m.products[f.ProductID]
		out = append(out, database.ListFavoritesByUserRow{
			ID:            f.ID,
			ProductID:     f.ProductID,
			CreatedAt:     f.CreatedAt,
			ProductName:   p.Name,
			Price:         p.Price,
			ImageUrls:     p.ImageUrls,
			ProductActive: p.IsActive,
			ShopID:        p.ShopID,
			ShopName:      m.shopNames[p.ShopID],
		})
	}
	return out, nil
}

func (m *mockFavoriteStore) DeleteFavorite(_ context.Context, arg database.DeleteFavoriteParams) (int64, error) {
	for id, f := range m.favorites {
		if f.UserID == arg.UserID && f.ProductID == arg.ProductID {
			delete(m.favorites, id)
			return 1, nil
		}
	}
	return 0, nil
}

// --- Helpers ---

func setupFavoriteRouter(store *mockFavoriteStore) *chi.Mux {
	h := handler.NewFavoriteHandler(store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(testJWTSecret))
		r.Route("/client", h.RegisterRoutes)
	})
	return r
}

func seedFavoriteProduct(t *testing.T, store *mockFavoriteStore, name string) database.Product {
	t.Helper()
	shopID := uuid.New()
	store.shopNames[shopID] = "Boutique Koffi"
	p := database.Product{
		ID:            uuid.New(),
		ShopID:        shopID,
		Name:          name,
		Price:         makeNumeric(t, "4500.00"),
		StockQuantity: 10,
		IsActive:      true,
	}
	store.products[p.ID] = p
	return p
}

// --- Tests ---

func TestFavoriteAdd(t *testing.T) {
	store := newMockFavoriteStore()
	router := setupFavoriteRouter(store)

	product := seedFavoriteProduct(t, store, "Riz parfumé 5kg")

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPut, "/client/favorites/"+product.ID.String(), nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeMap(t, rr); resp["product_id"] != product.ID.String() {
		t.Errorf("product_id: got %v, want %s", resp["product_id"], product.ID)
	}
}

func TestFavoriteAddIdempotent(t *testing.T) {
	store := newMockFavoriteStore()
	router := setupFavoriteRouter(store)

	product := seedFavoriteProduct(t, store, "Riz parfumé 5kg")
	userID := uuid.New()
	token := makeToken(t, userID, enum.UserTypeClient)

	first := doAuthRequest(t, router, http.MethodPut, "/client/favorites/"+product.ID.String(), nil, token)
	second := doAuthRequest(t, router, http.MethodPut, "/client/favorites/"+product.ID.String(), nil, token)

	if second.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", second.Code)
	}
	firstID := decodeMap(t, first)["id"]
	secondID := decodeMap(t, second)["id"]
	if firstID != secondID {
		t.Errorf("expected same favorite row, got %v then %v", firstID, secondID)
	}
	if len(store.favorites) != 1 {
		t.Errorf("expected 1 favorite, got %d", len(store.favorites))
	}
}

func TestFavoriteAddUnknownProduct(t *testing.T) {
	store := newMockFavoriteStore()
	router := setupFavoriteRouter(store)

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodPut, "/client/favorites/"+uuid.New().String(), nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestFavoriteList(t *testing.T) {
	store := newMockFavoriteStore()
	router := setupFavoriteRouter(store)

	product := seedFavoriteProduct(t, store, "Riz parfumé 5kg")
	userID := uuid.New()
	store.UpsertFavorite(context.Background(), database.UpsertFavoriteParams{UserID: userID, ProductID: product.ID})

	otherProduct := seedFavoriteProduct(t, store, "Huile rouge 1L")
	store.UpsertFavorite(context.Background(), database.UpsertFavoriteParams{UserID: uuid.New(), ProductID: otherProduct.ID})

	token := makeToken(t, userID, enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodGet, "/client/favorites", nil, token)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	list := decodeList(t, rr)
	if len(list) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(list))
	}
	if list[0]["product_name"] != "Riz parfumé 5kg" {
		t.Errorf("product_name: got %v", list[0]["product_name"])
	}
	if list[0]["shop_name"] != "Boutique Koffi" {
		t.Errorf("shop_name: got %v", list[0]["shop_name"])
	}
}

func TestFavoriteRemove(t *testing.T) {
	store := newMockFavoriteStore()
	router := setupFavoriteRouter(store)

	product := seedFavoriteProduct(t, store, "Riz parfumé 5kg")
	userID := uuid.New()
	store.UpsertFavorite(context.Background(), database.UpsertFavoriteParams{UserID: userID, ProductID: product.ID})

	token := makeToken(t, userID, enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodDelete, "/client/favorites/"+product.ID.String(), nil, token)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if len(store.favorites) != 0 {
		t.Error("favorite should be deleted")
	}
}

func TestFavoriteRemoveNotFavorited(t *testing.T) {
	store := newMockFavoriteStore()
	router := setupFavoriteRouter(store)

	product := seedFavoriteProduct(t, store, "Riz parfumé 5kg")

	token := makeToken(t, uuid.New(), enum.UserTypeClient)
	rr := doAuthRequest(t, router, http.MethodDelete, "/client/favorites/"+product.ID.String(), nil, token)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
