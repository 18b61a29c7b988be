// Package notification provides event handlers for sending notifications in
// response to domain events. Workflow code publishes run outcomes and never
// needs to know about mail servers or templates.
package notification

import (
	"context"
	"time"

	"prospecting_backend/internal/email"
	"prospecting_backend/internal/events"
	eventbus "prospecting_backend/platform/events"
	"prospecting_backend/platform/logger"
)

// AlertConfig names the recipient of operational alerts.
type AlertConfig interface {
	GetAlertEmailTo() string
}

// Module handles notification side effects of domain events.
type Module struct {
	sender email.Sender
	cfg    AlertConfig
	log    *logger.Logger
}

// New creates the notification module.
func New(sender email.Sender, cfg AlertConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{sender: sender, cfg: cfg, log: log}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus eventbus.Bus) {
	bus.Subscribe(events.WorkflowRunFailed{}.EventName(), m)
	bus.Subscribe(events.WorkflowRunCompleted{}.EventName(), m)
}

// Handle implements eventbus.Handler.
func (m *Module) Handle(ctx context.Context, event eventbus.Event) error {
	switch e := event.(type) {
	case events.WorkflowRunFailed:
		return m.handleWorkflowRunFailed(ctx, e)
	case events.WorkflowRunCompleted:
		m.log.WithContext(ctx).Info("workflow run completed",
			"workflowId", e.WorkflowID, "source", e.Source, "leads", e.LeadsTotal, "created", e.LeadsCreated)
		return nil
	default:
		return nil
	}
}

func (m *Module) handleWorkflowRunFailed(ctx context.Context, e events.WorkflowRunFailed) error {
	to := m.cfg.GetAlertEmailTo()
	if to == "" {
		return nil
	}

	err := m.sender.SendWorkflowRunFailedEmail(ctx, to, email.RunFailedEmail{
		WorkflowID:   e.WorkflowID.String(),
		WorkflowName: e.WorkflowName,
		CompanyID:    e.CompanyID.String(),
		Source:       e.Source,
		Cursor:       e.Cursor,
		Error:        e.Error,
		FailedAt:     e.OccurredAt().UTC().Format(time.RFC3339),
	})
	if err != nil {
		m.log.WithContext(ctx).Error("failed to send run failure alert", "error", err, "workflowId", e.WorkflowID)
		return err
	}
	return nil
}
