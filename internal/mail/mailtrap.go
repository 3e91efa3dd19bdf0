// Package mail renders and delivers the confirmation email.
package mail

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/netx"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Address is a mailbox with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapRequest struct {
	From     Address   `json:"from"`
	To       []Address `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	Category string    `json:"category,omitempty"`
}

// MailtrapSender sends through the Mailtrap send API.
type MailtrapSender struct {
	client  *http.Client
	baseURL string
	token   string
	from    Address
}

// NewMailtrapSender builds a sender posting to baseURL + "/api/send".
func NewMailtrapSender(baseURL, token string, from Address) *MailtrapSender {
	return &MailtrapSender{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		from:    from,
	}
}

func (s *MailtrapSender) Send(ctx context.Context, msg Message) error {
	req := mailtrapRequest{
		From:     s.from,
		To:       []Address{{Email: msg.To}},
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		Category: "email-confirmation",
	}
	header := http.Header{"Authorization": {"Bearer " + s.token}}

	if _, err := netx.PostJSON(ctx, s.client, s.baseURL+"/api/send", header, req, nil); err != nil {
		return fmt.Errorf("mailtrap send: %w", err)
	}
	return nil
}
