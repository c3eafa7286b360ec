package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkotlyarov/shoplite-backend/api/controllers"
	"github.com/dkotlyarov/shoplite-backend/api/middleware"
	"github.com/dkotlyarov/shoplite-backend/internal/auth"
	"github.com/dkotlyarov/shoplite-backend/internal/basket"
	"github.com/dkotlyarov/shoplite-backend/internal/catalog"
	"github.com/dkotlyarov/shoplite-backend/internal/orders"
	"github.com/dkotlyarov/shoplite-backend/internal/policy"
	"github.com/dkotlyarov/shoplite-backend/internal/products"
	"github.com/dkotlyarov/shoplite-backend/internal/users"
	"github.com/dkotlyarov/shoplite-backend/pkg/auth/session"
	"github.com/dkotlyarov/shoplite-backend/pkg/config"
	"github.com/dkotlyarov/shoplite-backend/pkg/db"
	"github.com/dkotlyarov/shoplite-backend/pkg/logger"
	"github.com/dkotlyarov/shoplite-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles the domain services the router exposes.
type Services struct {
	Auth     auth.Service
	Users    users.Service
	Catalog  catalog.Service
	Products products.Service
	Basket   basket.Service
	Orders   orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	registry *prometheus.Registry,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Each path prefix is mounted exactly once: chi resolves a request to
	// a single subrouter and does not backtrack, so splitting a prefix
	// across public and authenticated mounts leaves one of them dead.
	r.Route("/api/v1", func(r chi.Router) {
		authn := middleware.Auth(cfg.JWT, sessions, logg)

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.Register(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(svc.Auth, logg))
			r.Post("/refresh", controllers.Refresh(svc.Auth, logg))
			r.With(authn).Post("/logout", controllers.Logout(svc.Auth, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			// Reads are open without authentication.
			r.Get("/categories", controllers.ListCategories(svc.Catalog, logg))
			r.Get("/categories/{categoryId}", controllers.GetCategory(svc.Catalog, logg))
			r.Get("/products", controllers.ListProducts(svc.Products, logg))
			r.Get("/products/{productId}", controllers.GetProduct(svc.Products, logg))

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAction(policy.ActionCatalogWrite, logg))
					r.Post("/categories", controllers.CreateCategory(svc.Catalog, logg))
					r.Patch("/categories/{categoryId}", controllers.UpdateCategory(svc.Catalog, logg))
					r.Delete("/categories/{categoryId}", controllers.DeleteCategory(svc.Catalog, logg))
					r.Patch("/products/{productId}", controllers.UpdateProduct(svc.Products, logg))
				})
				r.With(middleware.RequireAction(policy.ActionProductCreate, logg)).
					Post("/products", controllers.CreateProduct(svc.Products, logg))
				r.With(middleware.RequireAction(policy.ActionProductDelete, logg)).
					Delete("/products/{productId}", controllers.DeleteProduct(svc.Products, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/users/me", controllers.Me(svc.Users, logg))

			r.Route("/basket", func(r chi.Router) {
				r.Get("/", controllers.GetBasket(svc.Basket, logg))
				r.Post("/items", controllers.AddBasketItem(svc.Basket, logg))
				r.Patch("/items/{productId}", controllers.UpdateBasketItem(svc.Basket, logg))
				r.Delete("/items/{productId}", controllers.RemoveBasketItem(svc.Basket, logg))
				r.Delete("/", controllers.ClearBasket(svc.Basket, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.Checkout(svc.Orders, logg))
				r.Get("/", controllers.ListMyOrders(svc.Orders, logg))
				r.With(middleware.RequireAction(policy.ActionOrderListAll, logg)).
					Get("/all", controllers.ListAllOrders(svc.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(svc.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.CancelOrder(svc.Orders, logg))
				r.With(middleware.RequireAction(policy.ActionOrderSetStatus, logg)).
					Patch("/{orderId}/status", controllers.UpdateOrderStatus(svc.Orders, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.With(middleware.RequireAction(policy.ActionUserList, logg)).
					Get("/", controllers.ListUsers(svc.Users, logg))
				r.With(middleware.RequireAction(policy.ActionUserManage, logg)).
					Patch("/{userId}", controllers.UpdateUser(svc.Users, logg))
			})
		})
	})

	return r
}
