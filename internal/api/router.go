// Package api serves the plan import and management HTTP API.
package api

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/nibzard/sheetplan/internal/decode"
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
	"github.com/nibzard/sheetplan/internal/store"
)

// PlanStore is the persistence the handlers need. *store.PlanStore
// implements it.
type PlanStore interface {
	Insert(ctx context.Context, p *plan.Plan) error
	Get(ctx context.Context, id string) (*plan.Plan, error)
	List(ctx context.Context) ([]store.Summary, error)
	Delete(ctx context.Context, id string) error
	UpdateTaskStatus(ctx context.Context, id string, index int, status string) (*plan.Plan, error)
	ToggleSubtask(ctx context.Context, id string, task, sub int) (*plan.Plan, error)
}

// Options configures the router.
type Options struct {
	Plans PlanStore
	// Ping checks storage health for GET /health. Nil skips the check.
	Ping func(ctx context.Context) error
	// Decode holds the defaults applied to every import; the request
	// overrides PlanName and StartDate.
	Decode decode.Options
	Limits grid.Limits
	// MaxBodyBytes caps request bodies. Zero means no cap.
	MaxBodyBytes int64
	// APIKey enables bearer auth when non-empty.
	APIKey string
	Logger *log.Logger
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := &HealthHandler{ping: opts.Ping}
	planH := &PlanHandler{
		plans:  opts.Plans,
		decode: opts.Decode,
		limits: opts.Limits,
		logger: logger,
	}

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(opts.APIKey))
		r.Use(MaxBody(opts.MaxBodyBytes))

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", planH.List)
			r.Post("/import", planH.Import)
			r.Get("/{id}", planH.Get)
			r.Delete("/{id}", planH.Delete)
			r.Patch("/{id}/tasks/{index}", planH.UpdateTask)
			r.Post("/{id}/tasks/{index}/subtasks/{sub}/toggle", planH.ToggleSubtask)
		})
	})

	return r
}
