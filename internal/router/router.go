package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkamarket/api/internal/config"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/enum"
	"github.com/linkamarket/api/internal/handler"
	mw "github.com/linkamarket/api/internal/middleware"
	"github.com/linkamarket/api/internal/service"
	"github.com/linkamarket/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Routes are grouped per marketplace role: public catalog, client cart and
// orders, merchant shop management, driver deliveries.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://app.linkamarket.com"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Public catalog
	catalogHandler := handler.NewCatalogHandler(queries)
	catalogHandler.RegisterRoutes(r)

	// WebSocket routes (handle auth internally via query param)
	r.Get("/ws/shops/{sid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeShopWS(hub, queries, cfg.JWTSecret, w, r)
	})
	r.Get("/ws/driver/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeDriverWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Profile, addresses, payment methods (all roles)
		profileService := service.NewProfileService(pool, func(db database.DBTX) service.ProfileStore {
			return database.New(db)
		})
		profileHandler := handler.NewProfileHandler(queries, profileService)
		profileHandler.RegisterRoutes(r)

		// Shared by client cancel, merchant transitions, and driver claim/advance.
		statusService := service.NewStatusService(pool, func(db database.DBTX) service.StatusStore {
			return database.New(db)
		})

		// Client routes
		r.Route("/client", func(r chi.Router) {
			r.Use(mw.RequireUserType(enum.UserTypeClient))

			checkoutService := service.NewCheckoutService(
				pool,
				func(db database.DBTX) service.CheckoutStore {
					return database.New(db)
				},
				service.FlatFee{Amount: service.DefaultDeliveryFee},
			)
			cartHandler := handler.NewCartHandler(queries, checkoutService, hub)
			cartHandler.RegisterRoutes(r)

			orderHandler := handler.NewOrderHandler(queries, statusService)
			orderHandler.RegisterRoutes(r)

			favoriteHandler := handler.NewFavoriteHandler(queries)
			favoriteHandler.RegisterRoutes(r)
		})

		// Merchant routes
		r.Route("/merchant", func(r chi.Router) {
			r.Use(mw.RequireUserType(enum.UserTypeMerchant))

			shopHandler := handler.NewShopHandler(queries)
			shopHandler.RegisterRoutes(r)

			productHandler := handler.NewProductHandler(queries)
			productHandler.RegisterRoutes(r)

			merchantOrderHandler := handler.NewMerchantOrderHandler(queries, statusService, hub)
			merchantOrderHandler.RegisterRoutes(r)
		})

		// Driver routes
		r.Route("/driver", func(r chi.Router) {
			r.Use(mw.RequireUserType(enum.UserTypeDriver))

			driverHandler := handler.NewDriverHandler(queries, statusService, hub)
			driverHandler.RegisterRoutes(r)
		})
	})

	return r
}
