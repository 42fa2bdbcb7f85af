package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/nkiryanov/bazario/internal/models"
)

var (
	verifyEmailTmpl = template.Must(template.New("verify").Parse(
		"Hello, {{.Name}}!\n\nClick the following link to verify your email address: {{.Link}}\n",
	))
	restorePasswordTmpl = template.Must(template.New("restore").Parse(
		"Hello, {{.Name}}!\n\nClick the following link to start password restoration: {{.Link}}\n",
	))
)

// Composes auth mails with links to frontend pages
type Mailer struct {
	frontendURL string
	sender      Sender
}

func New(frontendURL string, sender Sender) *Mailer {
	return &Mailer{
		frontendURL: strings.TrimRight(frontendURL, "/"),
		sender:      sender,
	}
}

func (m *Mailer) SendEmailVerification(ctx context.Context, user models.User, token string) error {
	return m.send(ctx, user, "Email verification", verifyEmailTmpl, "/verify-email", token)
}

func (m *Mailer) SendPasswordRestore(ctx context.Context, user models.User, token string) error {
	return m.send(ctx, user, "Password restore", restorePasswordTmpl, "/restore-password", token)
}

func (m *Mailer) send(ctx context.Context, user models.User, subject string, tmpl *template.Template, path string, token string) error {
	link := m.frontendURL + path + "?" + url.Values{"token": {token}}.Encode()

	var body bytes.Buffer
	err := tmpl.Execute(&body, struct {
		Name string
		Link string
	}{
		Name: user.FirstName,
		Link: link,
	})
	if err != nil {
		return fmt.Errorf("can't render %s mail. Err: %w", tmpl.Name(), err)
	}

	return m.sender.Send(ctx, Message{To: user.Email, Subject: subject, Body: body.String()})
}
