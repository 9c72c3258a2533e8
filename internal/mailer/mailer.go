package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vector-skill/academy/internal/config"
)

// Mailer delivers transactional email. The worker is the only producer
// of outbound mail; handlers enqueue tasks instead of sending inline.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTP creates a mailer for the given SMTP configuration.
func NewSMTP(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes mail to the log instead of sending it. Used in
// development when no SMTP host is configured.
type LogMailer struct {
	log zerolog.Logger
}

// NewLog creates a log-only mailer.
func NewLog(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(to, subject, body string) error {
	m.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("Email (log-only delivery)")
	return nil
}

// FromConfig picks the SMTP mailer when a host is configured, the
// log-only mailer otherwise.
func FromConfig(cfg config.MailConfig, log zerolog.Logger) Mailer {
	if cfg.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST not set - emails will be logged, not sent")
		return NewLog(log)
	}
	return NewSMTP(cfg)
}
