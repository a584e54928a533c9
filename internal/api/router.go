// Package api assembles the HTTP surface: middleware chain, route tree and
// the handler set behind it.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/centavoapp/centavo/internal/api/handlers"
	"github.com/centavoapp/centavo/internal/api/middleware"
	"github.com/centavoapp/centavo/internal/currency"
	"github.com/centavoapp/centavo/internal/dashboard"
	"github.com/centavoapp/centavo/internal/jobs"
	"github.com/centavoapp/centavo/internal/ledger"
	"github.com/centavoapp/centavo/internal/scheduler"
	"github.com/centavoapp/centavo/internal/store"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Store     store.Store
	Rates     *currency.Table
	Ledger    *ledger.Service
	Dashboard *dashboard.Service
	Scheduler *scheduler.Scheduler
	Publisher jobs.Publisher
	JobStore  jobs.JobStore
	Log       zerolog.Logger
}

// NewRouter builds the full route tree. Everything under /api requires an
// owner; /health does not.
func NewRouter(d Deps) http.Handler {
	accounts := handlers.NewAccountsHandler(d.Store, d.Rates, d.Log)
	categories := handlers.NewCategoriesHandler(d.Store, d.Log)
	transactions := handlers.NewTransactionsHandler(d.Ledger, d.Log)
	recurring := handlers.NewRecurringHandler(d.Ledger, d.Log)
	dash := handlers.NewDashboardHandler(d.Dashboard, d.Log)
	sched := handlers.NewSchedulerHandler(d.Scheduler, d.Log)
	imports := handlers.NewImportsHandler(d.Publisher, d.JobStore, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.CORS)

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Owner)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accounts.Create)
			r.Get("/", accounts.List)
			r.Get("/{id}", accounts.Get)
			r.Put("/{id}", accounts.Update)
			r.Delete("/{id}", accounts.Delete)
		})

		r.Route("/account-types", func(r chi.Router) {
			r.Post("/", accounts.CreateType)
			r.Get("/", accounts.ListTypes)
			r.Delete("/{id}", accounts.DeleteType)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", categories.Create)
			r.Get("/", categories.List)
			r.Get("/{id}", categories.Get)
			r.Put("/{id}", categories.Update)
			r.Delete("/{id}", categories.Delete)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", transactions.Create)
			r.Get("/", transactions.List)
			r.Get("/{id}", transactions.Get)
			r.Put("/{id}", transactions.Update)
			r.Delete("/{id}", transactions.Delete)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Post("/", recurring.Create)
			r.Get("/", recurring.List)
			r.Get("/{id}", recurring.Get)
			r.Put("/{id}", recurring.Update)
			r.Delete("/{id}", recurring.Delete)
			r.Post("/{id}/pause", recurring.Pause)
			r.Post("/{id}/resume", recurring.Resume)
		})

		r.Get("/dashboard", dash.Get)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/status", sched.Status)
			r.Post("/run", sched.RunNow)
		})

		r.Route("/imports", func(r chi.Router) {
			r.Post("/", imports.Create)
			r.Get("/", imports.List)
			r.Get("/{jobID}", imports.Get)
		})
	})

	return r
}
