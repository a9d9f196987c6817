// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/handlers"
	"storefront/internal/adapters/in/http/handlers/common"
	"storefront/internal/adapters/in/http/middleware"
)

// RouterDeps collects the services and settings injected from the container.
type RouterDeps struct {
	Categories handlers.CategoryService
	Products   handlers.ProductService
	Discounts  handlers.DiscountService

	Logger         *zap.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// NewRouter sets up HTTP routing for all endpoints.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recover(deps.Logger))

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-Match", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(common.NotFound)
	r.MethodNotAllowed(common.MethodNotAllowed)

	// Health check (always on)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if deps.RequestTimeout > 0 {
			r.Use(chimw.Timeout(deps.RequestTimeout))
		}
		r.Use(middleware.MaxBody(deps.MaxBodyBytes))

		// 以降、Service が存在するものだけマウントする
		if deps.Categories != nil {
			r.Route("/categories", handlers.NewCategoryHandler(deps.Categories).Routes)
		}
		if deps.Products != nil {
			r.Route("/products", handlers.NewProductHandler(deps.Products).Routes)
		}
		if deps.Discounts != nil {
			r.Route("/discounts", handlers.NewDiscountHandler(deps.Discounts).Routes)
		}
	})

	return r
}
