package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"wardrobe/internal/http/handlers"
	"wardrobe/internal/middleware"
)

// NewRouter builds the API surface. Everything except health and auth sits
// behind the JWT middleware.
func NewRouter(app *handlers.App, limiter middleware.Counter) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSOrigins),
		middleware.I18N("en"),
		middleware.RateLimit(limiter, app.Config.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", app.AuthRegister)
		r.Post("/login", app.AuthLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))

		r.Get("/v1/me", app.Me)

		r.Route("/v1/media", func(r chi.Router) {
			r.Post("/upload", app.MediaUpload)
			r.Get("/{id}", app.MediaGet)
			r.Get("/{id}/download", app.MediaDownload)
		})

		r.Route("/v1/ai/jobs", func(r chi.Router) {
			r.Post("/", app.JobsCreate)
			r.Get("/{id}", app.JobsGet)
			r.Post("/{id}/retry", app.JobsRetry)
		})

		r.Route("/v1/products", func(r chi.Router) {
			r.Post("/", app.ProductsCreate)
			r.Get("/", app.ProductsList)
			r.Get("/{id}", app.ProductsGet)
			r.Put("/{id}", app.ProductsUpdate)
			r.Delete("/{id}", app.ProductsDelete)
			r.Post("/{id}/events/{event}", app.ProductsApplyEvent)
			r.Get("/{id}/history", app.ProductsHistory)
			r.Post("/{id}/media", app.ProductsAttachMedia)
			r.Get("/{id}/media/archive", app.ProductsMediaArchive)
		})

		r.Route("/v1/looks", func(r chi.Router) {
			r.Post("/", app.LooksCreate)
			r.Get("/", app.LooksList)
			r.Get("/{id}", app.LooksGet)
			r.Put("/{id}", app.LooksUpdate)
			r.Delete("/{id}", app.LooksDelete)
			r.Post("/{id}/items", app.LookItemsAdd)
			r.Delete("/{id}/items/{productID}", app.LookItemsRemove)
		})

		r.Route("/v1/wear-log", func(r chi.Router) {
			r.Post("/", app.WearLogCreate)
			r.Get("/", app.WearLogList)
		})

		r.Get("/v1/search", app.SearchProducts)
		r.Get("/v1/catalog/products", app.SearchProducts)
	})

	return r
}
