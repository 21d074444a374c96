package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/storefront-orders/internal/config"
)

// Mail is one rendered email.
type Mail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a rendered email.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	from   string
	client *mail.Client
}

// NewSMTPMailer builds a client from cfg. Authentication is only
// configured when a username is set.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{from: cfg.From, client: client}, nil
}

func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	if m.Text != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, m.Text)
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}

// LogMailer only logs what would have been sent. It is used when no
// SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Mail) error {
	slog.Info("email not sent, smtp disabled", "to", m.To, "subject", m.Subject)
	return nil
}

// NewMailer picks SMTP when cfg has a host and LogMailer otherwise.
func NewMailer(cfg config.MailConfig) (Mailer, error) {
	if !cfg.Enabled() {
		return LogMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}
