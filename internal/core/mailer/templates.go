package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const layout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; background:#f6f6f6; margin:0; padding:0;">
  <div style="max-width:600px; margin:32px auto; background:#fff; border-radius:8px; overflow:hidden;">
    <div style="background:#1e3a8a; padding:24px; text-align:center;">
      <h1 style="color:#fff; margin:0; font-size:22px;">NexBid</h1>
    </div>
    <div style="padding:32px 28px; color:#1f2937; line-height:1.6;">
      {{template "body" .}}
    </div>
    <div style="padding:16px; text-align:center; font-size:12px; color:#6b7280; border-top:1px solid #e5e7eb;">
      This email was sent by NexBid. Please do not reply.
    </div>
  </div>
</body>
</html>`

const bidAcceptedBody = `{{define "body"}}
<h2 style="margin-top:0;">Congratulations, {{.SellerName}}!</h2>
<p>Your bid on <strong>{{.ProjectTitle}}</strong> has been accepted by {{.BuyerName}}.</p>
<table style="background:#eef2ff; padding:12px; border-radius:4px; width:100%;">
  <tr><td>Bid amount</td><td><strong>${{.Amount}}</strong></td></tr>
  <tr><td>Estimated delivery</td><td><strong>{{.EtaDays}} days</strong></td></tr>
</table>
<p>The project is now in progress. Upload your deliverable when it is ready.</p>
<p><a href="{{.ProjectURL}}" style="display:inline-block; padding:10px 20px; background:#2563eb; color:#fff; text-decoration:none; border-radius:4px;">View project</a></p>
{{end}}`

const projectCompletedBody = `{{define "body"}}
<h2 style="margin-top:0;">Your project is complete</h2>
<p>Hi {{.BuyerName}}, <strong>{{.ProjectTitle}}</strong> has been marked as completed by {{.SellerName}}.</p>
{{if .DeliverableURL}}<p>Deliverable: <a href="{{.DeliverableURL}}">{{.DeliverableURL}}</a></p>{{end}}
<p>Please take a moment to review the seller's work.</p>
<p><a href="{{.ProjectURL}}" style="display:inline-block; padding:10px 20px; background:#2563eb; color:#fff; text-decoration:none; border-radius:4px;">Leave a review</a></p>
{{end}}`

type BidAcceptedData struct {
	Seller       Address
	SellerName   string
	BuyerName    string
	ProjectTitle string
	Amount       int
	EtaDays      int
	ProjectURL   string
}

type ProjectCompletedData struct {
	Buyer          Address
	BuyerName      string
	SellerName     string
	ProjectTitle   string
	ProjectURL     string
	DeliverableURL string
}

// Templates 启动时解析一次，渲染并发安全
type Templates struct {
	bidAccepted      *template.Template
	projectCompleted *template.Template
	frontendURL      string
}

func NewTemplates(frontendURL string) (*Templates, error) {
	ba, err := parse("bid_accepted", bidAcceptedBody)
	if err != nil {
		return nil, err
	}
	pc, err := parse("project_completed", projectCompletedBody)
	if err != nil {
		return nil, err
	}
	return &Templates{bidAccepted: ba, projectCompleted: pc, frontendURL: strings.TrimRight(frontendURL, "/")}, nil
}

func MustTemplates(frontendURL string) *Templates {
	t, err := NewTemplates(frontendURL)
	if err != nil {
		panic(err)
	}
	return t
}

func parse(name, body string) (*template.Template, error) {
	t, err := template.New(name).Parse(layout)
	if err != nil {
		return nil, err
	}
	return t.Parse(body)
}

func (t *Templates) ProjectURL(projectID string) string {
	return t.frontendURL + "/projects/" + projectID
}

func (t *Templates) UploadURL(filename string) string {
	return t.frontendURL + "/uploads/" + filename
}

func (t *Templates) BidAccepted(d BidAcceptedData) (Message, error) {
	if d.ProjectURL == "" {
		d.ProjectURL = t.frontendURL
	}
	html, err := render(t.bidAccepted, struct {
		Title string
		BidAcceptedData
	}{"Bid accepted", d})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.Seller,
		Subject: fmt.Sprintf("Your bid has been accepted for %q", d.ProjectTitle),
		HTML:    html,
		Text: fmt.Sprintf("Your bid of $%d (%d days) on %q was accepted by %s. %s",
			d.Amount, d.EtaDays, d.ProjectTitle, d.BuyerName, d.ProjectURL),
	}, nil
}

func (t *Templates) ProjectCompleted(d ProjectCompletedData) (Message, error) {
	if d.ProjectURL == "" {
		d.ProjectURL = t.frontendURL
	}
	html, err := render(t.projectCompleted, struct {
		Title string
		ProjectCompletedData
	}{"Project completed", d})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.Buyer,
		Subject: fmt.Sprintf("Project %q has been completed", d.ProjectTitle),
		HTML:    html,
		Text:    fmt.Sprintf("%q was completed by %s. %s", d.ProjectTitle, d.SellerName, d.DeliverableURL),
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
