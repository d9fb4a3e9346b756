package email

import (
	"Tempus/Models"
)

// SMTPMailer adapts the SMTP sender to the notifier's Mailer contract.
// Metadata entries ride along as X-Tempus-* headers for downstream
// auditing on the mail side.
type SMTPMailer struct {
	Config Models.EmailConfig
}

func NewSMTPMailer(config Models.EmailConfig) *SMTPMailer {
	return &SMTPMailer{Config: config}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string, metadata map[string]string) error {
	headers := make(map[string]string, len(metadata))
	for key, value := range metadata {
		headers["X-Tempus-"+key] = value
	}
	return SendEmail(m.Config, Models.EmailMessage{
		To:      []string{to},
		Subject: subject,
		Body:    htmlBody,
		IsHTML:  true,
		Headers: headers,
	})
}
