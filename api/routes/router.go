package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wycenapp/wycena-sync/api/controllers"
	"github.com/wycenapp/wycena-sync/api/middleware"
	"github.com/wycenapp/wycena-sync/internal/clients"
	"github.com/wycenapp/wycena-sync/internal/quotes"
	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/internal/syncqueue"
	"github.com/wycenapp/wycena-sync/pkg/config"
	"github.com/wycenapp/wycena-sync/pkg/db"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

// NewRouter wires the localhost API the mobile shell talks to. Everything
// is scoped to the configured device owner; there is no auth layer because
// the daemon only listens on loopback.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	st *store.Store,
	engine *syncqueue.Engine,
	notifier controllers.ConnectivityNotifier,
	quoteService quotes.Service,
	clientService clients.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	ownerID := cfg.Sync.OwnerID

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", controllers.QuoteList(quoteService, ownerID, logg))
			r.Post("/", controllers.QuoteCreate(quoteService, ownerID, logg))
			r.Post("/preview", controllers.QuotePreview(quoteService, ownerID, logg))
			r.Post("/refresh", controllers.QuoteRefresh(quoteService, ownerID, logg))
			r.Get("/{quoteId}", controllers.QuoteGet(quoteService, logg))
			r.Put("/{quoteId}", controllers.QuoteUpdate(quoteService, ownerID, logg))
			r.Delete("/{quoteId}", controllers.QuoteDelete(quoteService, logg))
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.ClientList(clientService, ownerID, logg))
			r.Post("/", controllers.ClientCreate(clientService, ownerID, logg))
			r.Post("/refresh", controllers.ClientRefresh(clientService, ownerID, logg))
			r.Get("/{clientId}", controllers.ClientGet(clientService, logg))
			r.Put("/{clientId}", controllers.ClientUpdate(clientService, logg))
			r.Delete("/{clientId}", controllers.ClientDelete(clientService, logg))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", controllers.SyncStatus(engine))
			r.Post("/drain", controllers.SyncDrain(engine, ownerID, logg))
			r.Get("/queue", controllers.QueueList(st, logg))
			r.Post("/queue/{itemId}/retry", controllers.QueueRetry(engine, ownerID, logg))
			r.Post("/queue/{itemId}/dismiss", controllers.QueueDismiss(engine, logg))
			r.Get("/errors/{entityId}", controllers.EntitySyncError(engine, logg))
		})

		r.Post("/connectivity", controllers.ConnectivityUpdate(notifier, logg))
	})

	return r
}
