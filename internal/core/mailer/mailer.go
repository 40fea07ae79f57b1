package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

type Message struct {
	To      Address
	Subject string
	HTML    string
	Text    string
}

// Mailer 发送失败由调用方记录，不重试
type Mailer interface {
	Send(ctx context.Context, m Message) error
	Name() string
}

type Config struct {
	Provider string // log | smtp | sendgrid
	From     Address
	SMTP     SMTPConfig
	SendGrid SendGridConfig
	Timeout  time.Duration
}

var ErrNoRecipient = errors.New("mailer: empty recipient")

func New(cfg Config, log *zap.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogMailer(log), nil
	case "smtp":
		return NewSMTPMailer(cfg.SMTP, cfg.From, cfg.Timeout), nil
	case "sendgrid":
		if cfg.SendGrid.APIKey == "" {
			return nil, errors.New("mailer: sendgrid api key is empty")
		}
		return NewSendGridMailer(cfg.SendGrid, cfg.From), nil
	}
	return nil, fmt.Errorf("mailer: unknown provider %q", cfg.Provider)
}

// LogMailer 开发环境：只打日志
type LogMailer struct{ log *zap.Logger }

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log.Named("mail")}
}

func (l *LogMailer) Name() string { return "log" }

func (l *LogMailer) Send(_ context.Context, m Message) error {
	if m.To.Email == "" {
		return ErrNoRecipient
	}
	l.log.Info("email (not sent)",
		zap.String("to", m.To.String()),
		zap.String("subject", m.Subject),
		zap.Int("html_bytes", len(m.HTML)))
	return nil
}
