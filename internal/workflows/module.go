// Package workflows provides the workflow bounded context module: running
// prospecting workflows against the provider and recording their outcome.
package workflows

import (
	"time"

	"prospecting_backend/internal/archive"
	"prospecting_backend/platform/events"
	apphttp "prospecting_backend/internal/http"
	"prospecting_backend/internal/leads/reconcile"
	"prospecting_backend/internal/workflows/handler"
	"prospecting_backend/internal/workflows/repository"
	"prospecting_backend/internal/workflows/service"
	"prospecting_backend/platform/config"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators the module does not own.
type Deps struct {
	Pool         *pgxpool.Pool
	Leads        service.LeadLister
	Orchestrator *reconcile.Orchestrator
	Provider     service.ProfileProvider
	Bus          events.Bus
	Config       config.ReconcileConfig
	Validator    *validator.Validator
	Log          *logger.Logger

	// Optional.
	Archiver archive.Archiver
	Locker   service.RunLocker
	LockTTL  time.Duration
	Enqueuer service.RunEnqueuer
}

// Module is the workflows bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule creates the workflows module.
func NewModule(deps Deps) *Module {
	repo := repository.New(deps.Pool)
	svc := service.New(repo, repo, deps.Leads, deps.Orchestrator, deps.Provider, deps.Bus, deps.Config, deps.Log)
	if deps.Archiver != nil {
		svc.SetArchiver(deps.Archiver)
	}
	if deps.Locker != nil {
		svc.SetRunLocker(deps.Locker, deps.LockTTL)
	}
	if deps.Enqueuer != nil {
		svc.SetEnqueuer(deps.Enqueuer)
	}

	return &Module{
		service: svc,
		handler: handler.New(svc, deps.Validator),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "workflows"
}

// Service returns the run service, used by the background worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts workflow routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var runLimit gin.HandlerFunc
	if ctx.RunRateLimiter != nil {
		runLimit = ctx.RunRateLimiter.RateLimit()
	}
	m.handler.RegisterRoutes(ctx.Protected.Group("/workflows"), runLimit)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
