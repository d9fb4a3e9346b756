package Slack

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/slack-go/slack"

	"Tempus/Compliance"
	"Tempus/Models"
)

// CompliancePoster pushes critical compliance findings into a Slack ops
// channel. The weekly scan uses it; failures are logged and swallowed so
// Slack being down never fails a scan.
//
// Required Bot Token Scopes:
// - chat:write (send messages)
type CompliancePoster struct {
	api            *slack.Client
	DefaultChannel string
}

// NewCompliancePoster builds a poster from SLACK_BOT_TOKEN and
// SLACK_DEFAULT_CHANNEL. Returns nil when no token is configured, which
// disables posting.
func NewCompliancePoster() *CompliancePoster {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return nil
	}
	return &CompliancePoster{
		api:            slack.New(token),
		DefaultChannel: os.Getenv("SLACK_DEFAULT_CHANNEL"),
	}
}

// PostCriticalAlerts sends one message summarizing the tenant's critical
// alerts. The tenant's configured channel wins over the default.
func (p *CompliancePoster) PostCriticalAlerts(tenant *Models.Tenant, channel string, alerts []Compliance.Alert) error {
	if channel == "" {
		channel = p.DefaultChannel
	}
	if channel == "" {
		return fmt.Errorf("no Slack channel configured for tenant %d", tenant.ID)
	}

	var critical []Compliance.Alert
	for _, alert := range alerts {
		if alert.Severity == Compliance.SeverityCritical {
			critical = append(critical, alert)
		}
	}
	if len(critical) == 0 {
		return nil
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf(":rotating_light: *%d critical compliance alert(s) for %s*\n", len(critical), tenant.Name))
	for _, alert := range critical {
		text.WriteString(fmt.Sprintf("• [%s] %s\n", alert.Rule, alert.Message))
	}

	_, _, err := p.api.PostMessage(channel, slack.MsgOptionText(text.String(), false))
	if err != nil {
		log.Printf("Error posting compliance alerts to Slack: %v", err)
		return err
	}
	return nil
}
