package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridConfig struct {
	APIKey string
	// BaseURL 为空时使用官方地址
	BaseURL string
}

type SendGridMailer struct {
	cfg  SendGridConfig
	from Address
}

func NewSendGridMailer(cfg SendGridConfig, from Address) *SendGridMailer {
	return &SendGridMailer{cfg: cfg, from: from}
}

func (s *SendGridMailer) Name() string { return "sendgrid" }

func (s *SendGridMailer) Send(ctx context.Context, m Message) error {
	if m.To.Email == "" {
		return ErrNoRecipient
	}
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.from.Name, s.from.Email),
		m.Subject,
		sgmail.NewEmail(m.To.Name, m.To.Email),
		m.Text,
		m.HTML,
	)
	client := sendgrid.NewSendClient(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		client.BaseURL = s.cfg.BaseURL + "/v3/mail/send"
	}
	resp, err := client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
