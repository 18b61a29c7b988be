// Package leads provides the lead bounded context module: the canonical lead
// store, the reconciliation engine that feeds it and the read endpoints.
package leads

import (
	apphttp "prospecting_backend/internal/http"
	"prospecting_backend/internal/leads/handler"
	"prospecting_backend/internal/leads/reconcile"
	"prospecting_backend/internal/leads/repository"
	"prospecting_backend/platform/config"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/phone"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration the leads module reads.
type ModuleConfig interface {
	config.ReconcileConfig
	config.PhoneConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo         *repository.Repository
	orchestrator *reconcile.Orchestrator
	handler      *handler.Handler
}

// NewModule creates the leads module with its repository and orchestrator.
func NewModule(pool *pgxpool.Pool, cfg ModuleConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	phones := phone.NewNormalizer(cfg.GetPhoneDefaultRegion())

	return &Module{
		repo:         repo,
		orchestrator: reconcile.NewOrchestrator(repo, cfg, phones, log),
		handler:      handler.New(repo),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository returns the lead repository for other modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Orchestrator returns the shared upsert orchestrator.
func (m *Module) Orchestrator() *reconcile.Orchestrator {
	return m.orchestrator
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
