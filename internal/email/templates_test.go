package email

import (
	"strings"
	"testing"
)

func TestRenderRunFailedTemplate(t *testing.T) {
	html, err := renderEmailTemplate("run_failed.html", runFailedEmailData{
		baseEmailData: baseEmailData{Title: "Workflow run failed", Heading: "Workflow run failed"},
		Run: RunFailedEmail{
			WorkflowID: "wf-1",
			CompanyID:  "co-1",
			Source:     "search",
			Error:      "search page 1: <provider unavailable>",
			FailedAt:   "2026-01-01T00:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "wf-1") || !strings.Contains(html, "search") {
		t.Fatalf("missing run fields in %s", html)
	}
	if strings.Contains(html, "<provider unavailable>") {
		t.Fatal("error text must be escaped")
	}
	if strings.Contains(html, "Cursor") {
		t.Fatal("empty cursor row must be omitted")
	}
}

func TestNewSenderIsNoopWithoutSMTP(t *testing.T) {
	sender, err := NewSender(smtpConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(NoopSender); !ok {
		t.Fatalf("expected NoopSender, got %T", sender)
	}
}

type smtpConfig struct{ host, to string }

func (c smtpConfig) GetSMTPHost() string     { return c.host }
func (c smtpConfig) GetSMTPPort() int        { return 587 }
func (c smtpConfig) GetSMTPUsername() string { return "" }
func (c smtpConfig) GetSMTPPassword() string { return "" }
func (c smtpConfig) GetSMTPFrom() string     { return "alerts@example.com" }
func (c smtpConfig) GetAlertEmailTo() string { return c.to }
func (c smtpConfig) IsAlertingEnabled() bool { return c.host != "" && c.to != "" }
