package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SMTPMailer struct {
	cfg     SMTPConfig
	from    Address
	timeout time.Duration
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig, from Address, timeout time.Duration) *SMTPMailer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPMailer{cfg: cfg, from: from, timeout: timeout, send: smtp.SendMail}
}

func (s *SMTPMailer) Name() string { return "smtp" }

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	if m.To.Email == "" {
		return ErrNoRecipient
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	body := buildMIME(s.from, m)

	// net/smtp 不接受 context，用 goroutine + select 控制超时
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.from.Email, []string{m.To.Email}, body) }()
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("smtp send: timeout after %s", s.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMIME(from Address, m Message) []byte {
	var b strings.Builder
	fromHdr := from.Email
	if from.Name != "" {
		fromHdr = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", from.Name), from.Email)
	}
	fmt.Fprintf(&b, "From: %s\r\n", fromHdr)
	fmt.Fprintf(&b, "To: %s\r\n", m.To.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(m.HTML)
	return []byte(b.String())
}
