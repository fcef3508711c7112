package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
	"transcode-notifier/config"
)

type Mailer interface {
	MailAdmins(ctx context.Context, subject, body string) error
}

// New returns an SMTP mailer, or a mailer that only logs when no SMTP host
// or no administrators are configured.
func New(cfg config.Mail) Mailer {
	if cfg.Host == "" || len(cfg.Admins) == 0 {
		return logMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg config.Mail
}

func (m *smtpMailer) MailAdmins(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(m.cfg.Admins...); err != nil {
		return fmt.Errorf("invalid admin address: %w", err)
	}
	msg.Subject(m.cfg.SubjectPrefix + subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithPort(m.cfg.Port),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Strs("admins", m.cfg.Admins).Str("subject", subject).Msg("mailed admins")
	return nil
}

type logMailer struct{}

func (logMailer) MailAdmins(ctx context.Context, subject, body string) error {
	zerolog.Ctx(ctx).Info().Str("subject", subject).Str("body", body).Msg("admin mail not configured, logging instead")
	return nil
}
