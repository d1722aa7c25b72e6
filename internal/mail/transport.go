// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Transport delivers a single message.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// ProviderGoogle selects the Gmail submission endpoint.
const ProviderGoogle = "google"

// SMTPConfig configures an SMTPTransport.
type SMTPConfig struct {
	Provider string
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// ApplyProvider fills Host and Port from a known provider preset.
func (c SMTPConfig) ApplyProvider() (SMTPConfig, error) {
	switch c.Provider {
	case "":
		return c, nil
	case ProviderGoogle:
		c.Host = "smtp.gmail.com"
		c.Port = 587
		return c, nil
	default:
		return c, oops.Code("MAIL_UNKNOWN_PROVIDER").
			With("provider", c.Provider).
			Errorf("unknown smtp provider")
	}
}

// SMTPTransport sends mail through an SMTP submission server. It upgrades to
// TLS when the server offers STARTTLS and authenticates with PLAIN when a
// user name is configured.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates an SMTPTransport after applying provider presets.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	cfg, err := cfg.ApplyProvider()
	if err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("port", cfg.Port).Errorf("smtp port is out of range")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{cfg: cfg}, nil
}

// Addr returns the host:port the transport dials.
func (t *SMTPTransport) Addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

// Send delivers msg in a single SMTP session.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	addr := t.Addr()
	errb := oops.Code("MAIL_SEND_FAILED").With("addr", addr).With("message_id", msg.ID.String())

	dialer := &net.Dialer{Timeout: t.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errb.With("operation", "dial").Wrap(err)
	}
	deadline := time.Now().Add(t.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline) //nolint:errcheck // a failed deadline surfaces as an I/O error below

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return errb.With("operation", "greeting").Wrap(err)
	}
	defer client.Close() //nolint:errcheck // Quit below reports the meaningful error

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return errb.With("operation", "starttls").Wrap(err)
		}
	}
	if t.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)); err != nil {
			return errb.With("operation", "auth").Wrap(err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return errb.With("operation", "mail from").Wrap(err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return errb.With("operation", "rcpt to").Wrap(err)
	}
	w, err := client.Data()
	if err != nil {
		return errb.With("operation", "data").Wrap(err)
	}
	if _, err := w.Write(formatMessage(msg)); err != nil {
		return errb.With("operation", "write body").Wrap(err)
	}
	if err := w.Close(); err != nil {
		return errb.With("operation", "end data").Wrap(err)
	}
	if err := client.Quit(); err != nil {
		return errb.With("operation", "quit").Wrap(err)
	}
	return nil
}

func formatMessage(msg *Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Message-ID: <%s@adminkit>\r\n", msg.ID.String())
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: %s; charset=\"utf-8\"\r\n", msg.ContentType)
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}
