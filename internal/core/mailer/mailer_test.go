package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTemplatesBidAccepted(t *testing.T) {
	tpl := MustTemplates("http://localhost:3000/")
	msg, err := tpl.BidAccepted(BidAcceptedData{
		Seller:       Address{Name: "Mike", Email: "mike@nexbid.com"},
		SellerName:   "Mike",
		BuyerName:    "John",
		ProjectTitle: "Landing <Page>",
		Amount:       2200,
		EtaDays:      14,
		ProjectURL:   tpl.ProjectURL("p1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "mike@nexbid.com", msg.To.Email)
	assert.Equal(t, `Your bid has been accepted for "Landing <Page>"`, msg.Subject)
	assert.Contains(t, msg.HTML, "$2200")
	assert.Contains(t, msg.HTML, "Landing &lt;Page&gt;", "html escaped")
	assert.Contains(t, msg.HTML, "http://localhost:3000/projects/p1")
}

func TestTemplatesProjectCompleted(t *testing.T) {
	tpl := MustTemplates("https://nexbid.example")
	msg, err := tpl.ProjectCompleted(ProjectCompletedData{
		Buyer:          Address{Email: "john@nexbid.com"},
		BuyerName:      "John",
		SellerName:     "Mike",
		ProjectTitle:   "DB tuning",
		DeliverableURL: tpl.UploadURL("1-p-report.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, "john@nexbid.com", msg.To.Email)
	assert.Contains(t, msg.HTML, "https://nexbid.example/uploads/1-p-report.pdf")
	assert.Contains(t, msg.Subject, "DB tuning")
}

func TestSMTPMailer(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: 587, Username: "u", Password: "p"},
		Address{Name: "NexBid", Email: "noreply@nexbid.com"}, time.Second)
	var gotAddr string
	var gotBody []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotBody = addr, msg
		assert.Equal(t, "noreply@nexbid.com", from)
		assert.Equal(t, []string{"x@y.z"}, to)
		return nil
	}
	err := m.Send(context.Background(), Message{To: Address{Email: "x@y.z"}, Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Contains(t, string(gotBody), "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(string(gotBody), "<p>hi</p>"))

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.Error(t, m.Send(context.Background(), Message{To: Address{Email: "x@y.z"}}))
	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestSMTPMailerTimeout(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "h", Port: 25}, Address{Email: "a@b.c"}, 20*time.Millisecond)
	block := make(chan struct{})
	defer close(block)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { <-block; return nil }
	err := m.Send(context.Background(), Message{To: Address{Email: "x@y.z"}})
	assert.ErrorContains(t, err, "timeout")
}

func TestSendGridMailer(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer(SendGridConfig{APIKey: "key", BaseURL: srv.URL}, Address{Name: "NexBid", Email: "noreply@nexbid.com"})
	err := m.Send(context.Background(), Message{To: Address{Email: "x@y.z"}, Subject: "S", HTML: "<b>h</b>", Text: "h"})
	require.NoError(t, err)
	assert.Equal(t, "S", payload["subject"])
}

func TestSendGridMailerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()
	m := NewSendGridMailer(SendGridConfig{APIKey: "bad", BaseURL: srv.URL}, Address{Email: "a@b.c"})
	err := m.Send(context.Background(), Message{To: Address{Email: "x@y.z"}, Subject: "S", HTML: "h", Text: "h"})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	m, err := New(Config{Provider: "log"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "log", m.Name())
	assert.NoError(t, m.Send(context.Background(), Message{To: Address{Email: "a@b.c"}}))

	_, err = New(Config{Provider: "sendgrid"}, nil)
	assert.Error(t, err)
	_, err = New(Config{Provider: "pigeon"}, nil)
	assert.Error(t, err)

	m, err = New(Config{Provider: "smtp", SMTP: SMTPConfig{Host: "h", Port: 25}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "smtp", m.Name())
}
