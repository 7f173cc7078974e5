package transport

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SenderConfig holds the SMTP endpoint and identity used for outbound mail.
type SenderConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPTransport delivers over plain SMTP with optional AUTH. One connection
// per message keeps failure isolation trivial at the throughput this system
// is throttled to anyway.
type SMTPTransport struct {
	cfg SenderConfig
}

func NewSMTP(cfg SenderConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) addr() string {
	return fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
}

func (t *SMTPTransport) SendOne(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if t.cfg.Username != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(t.addr(), auth, t.cfg.From, []string{msg.To}, []byte(b.String()))
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	}
}

func (t *SMTPTransport) SendMany(ctx context.Context, msgs []Message) []error {
	errs := make([]error, len(msgs))
	for i, m := range msgs {
		errs[i] = t.SendOne(ctx, m)
	}
	return errs
}
