package service

import (
	"library_service/internal/app"
	"library_service/internal/config"
	"library_service/internal/pkg/auth"
	"library_service/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Service encapsulates the HTTP server configuration, including the application's business logic,
// HTTP handlers, the server's run address, and a logger for event and error logging.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	secret     string
	log        *logger.Logger
}

// NewService creates and initializes a new Service instance.
// It sets up the handlers using the provided application and logger,
// and configures the server's run address and token verification secret.
func NewService(app *app.App, runAddress string, secret string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, secret: secret, log: l}
}

// NewRouter sets up and returns a new chi.Router instance with the necessary middleware and routes.
// It applies CORS and logging middleware globally, and JWT cookie authentication middleware for
// the catalog write and loan routes. Catalog reads and the liveness probe stay public.
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))
	router.Use(service.log.WithLogging())

	router.Get("/", service.handlers.livenessHandler)
	router.Post("/jwt", service.handlers.loginHandler)
	router.Post("/logout", service.handlers.logoutHandler)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", service.handlers.categoriesHandler)
		r.Get("/books", service.handlers.listBooksHandler)
		r.Get("/books/{id}", service.handlers.getBookHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.CheckJWTMiddleware(service.secret))
			r.Post("/books", service.handlers.createBookHandler)
			r.Put("/books/{id}", service.handlers.replaceBookHandler)
			r.Patch("/books/{id}", service.handlers.patchBookHandler)
			r.Get("/borrowedbooks", service.handlers.listBorrowedHandler)
			r.Get("/borrowedbooks/check", service.handlers.checkBorrowedHandler)
			r.Post("/borrowedbooks", service.handlers.borrowHandler)
			r.Delete("/borrowedbooks/{id}", service.handlers.returnHandler)
		})
	})

	return router
}
