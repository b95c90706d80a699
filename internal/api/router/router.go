package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/convodesk/platform/internal/conversation"
	httpmiddleware "github.com/convodesk/platform/internal/http/middleware"
	"github.com/convodesk/platform/internal/knowledge"
	"github.com/convodesk/platform/internal/leads"
	"github.com/convodesk/platform/internal/rules"
	"github.com/convodesk/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	RulesHandler        *rules.Handler
	LeadsHandler        *leads.Handler
	KnowledgeHandler    *knowledge.Handler
	ConversationHandler *conversation.Handler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
	RateLimitPerSecond  float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant endpoints: channel integrations authenticate out of band and
	// assert their tenant via the X-Business-Id header.
	if cfg.ConversationHandler != nil {
		r.Group(func(tenant chi.Router) {
			tenant.Use(RequireBusinessHeader)
			tenant.Post("/messages/inbound", cfg.ConversationHandler.Inbound)
			tenant.Get("/conversations/{contactID}", cfg.ConversationHandler.Transcript)
		})
	}

	// Admin endpoints: dashboard users carry a JWT whose business_id claim
	// scopes every operation.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		if cfg.RulesHandler != nil {
			admin.Route("/rules", func(rt chi.Router) {
				rt.Get("/", cfg.RulesHandler.List)
				rt.Post("/", cfg.RulesHandler.Create)
				rt.Post("/test", cfg.RulesHandler.TestMatch)
				rt.Post("/bulk-delete", cfg.RulesHandler.BulkDelete)
				rt.Get("/{id}", cfg.RulesHandler.Get)
				rt.Put("/{id}", cfg.RulesHandler.Update)
				rt.Delete("/{id}", cfg.RulesHandler.Delete)
			})
		}

		if cfg.LeadsHandler != nil {
			admin.Route("/leads", func(rt chi.Router) {
				rt.Get("/", cfg.LeadsHandler.List)
				rt.Post("/", cfg.LeadsHandler.Create)
				rt.Post("/bulk-delete", cfg.LeadsHandler.BulkDelete)
				rt.Get("/{id}", cfg.LeadsHandler.Get)
				rt.Put("/{id}", cfg.LeadsHandler.Update)
				rt.Delete("/{id}", cfg.LeadsHandler.Delete)
				rt.Get("/{id}/score", cfg.LeadsHandler.Score)
			})
		}

		if cfg.KnowledgeHandler != nil {
			admin.Route("/knowledge", func(rt chi.Router) {
				rt.Get("/", cfg.KnowledgeHandler.List)
				rt.Post("/", cfg.KnowledgeHandler.Create)
				rt.Get("/{id}", cfg.KnowledgeHandler.Get)
				rt.Put("/{id}", cfg.KnowledgeHandler.Update)
				rt.Delete("/{id}", cfg.KnowledgeHandler.Delete)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
