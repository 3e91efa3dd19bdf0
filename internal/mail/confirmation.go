package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// ConfirmationSubject is the subject line of the confirmation email.
const ConfirmationSubject = "Email confirmation"

//go:embed templates/*.html
var templates embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templates, "templates/email-confirmation.html"))

type confirmationData struct {
	Username         string
	ConfirmationLink string
}

// ConfirmationMailer renders the confirmation email and hands it to a Sender.
type ConfirmationMailer struct {
	sender      Sender
	frontendURL string
}

func NewConfirmationMailer(sender Sender, frontendURL string) *ConfirmationMailer {
	return &ConfirmationMailer{sender: sender, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// Link builds the frontend URL the user clicks to confirm.
func (m *ConfirmationMailer) Link(token string) string {
	return m.frontendURL + "/confirm-email?token=" + url.QueryEscape(token)
}

// Render returns the HTML body addressed to email.
func (m *ConfirmationMailer) Render(email, token string) (string, error) {
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, confirmationData{
		Username:         email,
		ConfirmationLink: m.Link(token),
	})
	if err != nil {
		return "", fmt.Errorf("render confirmation email: %w", err)
	}
	return buf.String(), nil
}

// SendConfirmation renders and sends the confirmation email.
func (m *ConfirmationMailer) SendConfirmation(ctx context.Context, email, token string) error {
	body, err := m.Render(email, token)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{To: email, Subject: ConfirmationSubject, HTML: body})
}
