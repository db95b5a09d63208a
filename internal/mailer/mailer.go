// Package mailer delivers outbound email over SMTP. Delivery is best-effort
// from the caller's point of view: Send reports a Receipt or an error and the
// caller decides what to do with it.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wichananm65/medicare-backend/internal/config"
)

var ErrNotConfigured = errors.New("smtp credentials are not configured")

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Receipt describes a message the server accepted for delivery.
type Receipt struct {
	MessageID  string
	Recipients []string
	SentAt     time.Time
}

type Mailer struct {
	cfg    config.Mail
	logger zerolog.Logger
}

func New(cfg config.Mail, logger zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *Mailer) Configured() bool {
	return m.cfg.Configured()
}

// Verify opens a session, negotiates TLS and authenticates, then quits. It
// only logs failures; callers use the result as a hint.
func (m *Mailer) Verify(ctx context.Context) bool {
	client, err := m.connect(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Str("host", m.cfg.Host).Int("port", m.cfg.Port).Msg("smtp verify failed")
		return false
	}
	if err := client.Quit(); err != nil {
		m.logger.Debug().Err(err).Msg("smtp quit after verify")
	}
	m.logger.Info().Str("host", m.cfg.Host).Int("port", m.cfg.Port).Bool("secure", m.cfg.Secure).Msg("smtp transport verified")
	return true
}

// Send delivers msg and returns the receipt for the accepted message.
func (m *Mailer) Send(ctx context.Context, msg Message) (Receipt, error) {
	if !m.Configured() {
		return Receipt{}, ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return Receipt{}, errors.New("message has no recipients")
	}

	envelopeFrom, err := m.envelopeFrom()
	if err != nil {
		return Receipt{}, err
	}
	now := time.Now().UTC()
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(envelopeFrom))
	raw := m.compose(msg, messageID, now)

	client, err := m.connect(ctx)
	if err != nil {
		return Receipt{}, err
	}
	defer client.Close()

	if err := client.Mail(envelopeFrom); err != nil {
		return Receipt{}, fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return Receipt{}, fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return Receipt{}, fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return Receipt{}, fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return Receipt{}, fmt.Errorf("smtp end of data: %w", err)
	}
	if err := client.Quit(); err != nil {
		m.logger.Debug().Err(err).Msg("smtp quit after send")
	}

	return Receipt{MessageID: messageID, Recipients: msg.To, SentAt: now}, nil
}

// connect dials the server and returns an authenticated client. Port 465 (or
// a forced secure flag) uses implicit TLS; otherwise STARTTLS is used when
// offered and is mandatory on 587.
func (m *Mailer) connect(ctx context.Context) (*smtp.Client, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	tlsConfig := &tls.Config{ServerName: m.cfg.Host, InsecureSkipVerify: m.cfg.InsecureSkipVerify}

	var (
		conn net.Conn
		err  error
	)
	if m.cfg.Secure {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		dialer := &net.Dialer{}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	m.debug("connected", addr)

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp greeting: %w", err)
	}

	if !m.cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("smtp STARTTLS: %w", err)
			}
			m.debug("starttls negotiated", addr)
		} else if m.cfg.RequireTLS() {
			client.Close()
			return nil, errors.New("smtp server does not offer STARTTLS on port 587")
		}
	}

	if m.Configured() {
		if ok, _ := client.Extension("AUTH"); !ok {
			client.Close()
			return nil, errors.New("smtp server does not support AUTH")
		}
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
		m.debug("authenticated", addr)
	}
	return client, nil
}

func (m *Mailer) envelopeFrom() (string, error) {
	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", fmt.Errorf("parse sender %q: %w", from, err)
	}
	return addr.Address, nil
}

func (m *Mailer) compose(msg Message, messageID string, date time.Time) []byte {
	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Message-ID: " + messageID + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func (m *Mailer) debug(step, addr string) {
	if m.cfg.Debug {
		m.logger.Debug().Str("addr", addr).Msg("smtp " + step)
	}
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
