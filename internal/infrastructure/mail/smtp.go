package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const defaultTimeout = 20 * time.Second

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	FromName string
	Timeout  time.Duration
}

// sender abstracts gomail.Dialer so tests can observe messages.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer implements ports.Mailer with gomail.
type SMTPMailer struct {
	cfg    Config
	dialer sender
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	m := &SMTPMailer{cfg: cfg}
	if cfg.User != "" && cfg.Pass != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, email ports.Email) error {
	if m.dialer == nil {
		return fmt.Errorf("smtp credentials: %w", domain.ErrNotConfigured)
	}
	if email.To == "" {
		return fmt.Errorf("mail: empty recipient")
	}

	msg := m.message(email)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	// gomail has no context support; the dial keeps running after a
	// timeout but its result is dropped.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", email.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", email.To, ctx.Err())
	}
}

func (m *SMTPMailer) message(email ports.Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.User, m.cfg.FromName)
	if email.ToName != "" {
		msg.SetAddressHeader("To", email.To, email.ToName)
	} else {
		msg.SetHeader("To", email.To)
	}
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.HTML)
	return msg
}
