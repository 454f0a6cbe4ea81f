package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/subhub-labs/subhub-backend/pkg/config"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

var (
	errHostRequired = errors.New("smtp host is required")
	errFromRequired = errors.New("smtp from address is required")
)

// Mailer delivers HTML mail over SMTP. Secure selects implicit TLS (465)
// instead of the STARTTLS path (587).
type Mailer struct {
	cfg    config.SMTPConfig
	logger *logger.Logger
}

// NewMailer validates the SMTP settings and returns a sender.
func NewMailer(cfg config.SMTPConfig, logg *logger.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errHostRequired
	}
	from := strings.TrimSpace(cfg.FromEmail)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	if from == "" {
		return nil, errFromRequired
	}
	cfg.FromEmail = from
	return &Mailer{cfg: cfg, logger: logg}, nil
}

// Send delivers one message to one recipient.
func (m *Mailer) Send(ctx context.Context, recipient, subject, body string) error {
	msg := m.buildMessage(recipient, subject, body)
	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var err error
	if m.cfg.Secure {
		err = m.sendImplicitTLS(addr, auth, recipient, msg)
	} else {
		err = smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{recipient}, msg)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send mail")
	}

	if m.logger != nil {
		m.logger.Info(m.logger.WithFields(ctx, map[string]any{
			"recipient": recipient,
			"subject":   subject,
		}), "mail.sent")
	}
	return nil
}

func (m *Mailer) buildMessage(recipient, subject, body string) []byte {
	from := m.cfg.FromEmail
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromEmail)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(wrapTemplate(body))
	return []byte(b.String())
}

// sendImplicitTLS drives the SMTP conversation manually because
// smtp.SendMail only speaks STARTTLS.
func (m *Mailer) sendImplicitTLS(addr string, auth smtp.Auth, recipient string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(m.cfg.FromEmail); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return w.Close()
}

func wrapTemplate(content string) string {
	return `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; line-height: 1.6;">
<div style="max-width: 600px; margin: auto;">
` + strings.TrimSpace(content) + `
<p style="color: #888; font-size: 12px;">SubHub subscriptions</p>
</div>
</body>
</html>`
}
