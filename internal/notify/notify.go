// Package notify builds and delivers the operator notification email for
// accepted contact submissions.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/leadlab/engage/internal/contact"
)

// Email is one rendered outbound message.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a rendered email through a provider API.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Config identifies the sending site and the operator address.
type Config struct {
	From     string // e.g. "Studio <hello@example.com>"
	To       string // operator notification address
	SiteName string // e.g. "example.com", used in subject and footer
	SiteURL  string
}

// Notifier renders the notification for a sanitized submission and hands
// it to the sender. It satisfies contact.Notifier.
type Notifier struct {
	cfg      Config
	sender   Sender
	renderer *Renderer
	now      func() time.Time
}

// New builds a Notifier around a provider sender.
func New(cfg Config, sender Sender) (*Notifier, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Notifier{cfg: cfg, sender: sender, renderer: r, now: time.Now}, nil
}

// Notify renders and sends the operator email. sub must already be
// sanitized; the template inserts its values verbatim.
func (n *Notifier) Notify(ctx context.Context, sub contact.Submission) error {
	html, err := n.renderer.Render(n.cfg, sub, n.now())
	if err != nil {
		return fmt.Errorf("rendering notification: %w", err)
	}

	subject := "New Lead from " + n.cfg.SiteName + ": " + truncateSubject(sub.Name, 50)
	return n.sender.Send(ctx, Email{
		From:    n.cfg.From,
		To:      []string{n.cfg.To},
		Subject: subject,
		HTML:    html,
	})
}

func truncateSubject(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
