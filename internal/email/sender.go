package email

import (
	"context"

	"prospecting_backend/platform/config"
)

// Sender delivers operational emails.
type Sender interface {
	SendWorkflowRunFailedEmail(ctx context.Context, toEmail string, run RunFailedEmail) error
}

// RunFailedEmail describes a failed workflow run.
type RunFailedEmail struct {
	WorkflowID   string
	WorkflowName string
	CompanyID    string
	Source       string
	Cursor       string
	Error        string
	FailedAt     string
}

type NoopSender struct{}

func (NoopSender) SendWorkflowRunFailedEmail(ctx context.Context, toEmail string, run RunFailedEmail) error {
	return nil
}

// NewSender returns an SMTP sender when alerting is configured and a no-op
// sender otherwise.
func NewSender(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.IsAlertingEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetSMTPFrom(), "Prospecting"), nil
}
