// Package contact implements the contact-form submission pipeline:
// validation, HTML-entity sanitization, and best-effort fan-out to a CRM
// and an operator notification email.
package contact

import (
	"regexp"
	"strings"

	"github.com/leadlab/engage/internal/attribution"
)

// Field length limits. The embedded form caps messages at
// MaxClientMessageLen; the server accepts up to MaxMessageLen and is the
// source of truth.
const (
	MaxNameLen          = 100
	MaxEmailLen         = 255
	MaxMessageLen       = 5000
	MaxClientMessageLen = 2000
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Submission is one contact-form payload with its attribution context.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	attribution.Params
}

// ValidationError is a client-correctable input problem. Its message is
// safe to surface verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// Validate applies the submission rules in order and fails fast on the
// first violation.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("Name is required")
	}
	if len(s.Name) > MaxNameLen {
		return invalid("Name must be less than 100 characters")
	}
	if s.Email == "" || !emailRegex.MatchString(s.Email) || len(s.Email) > MaxEmailLen {
		return invalid("Valid email is required")
	}
	if strings.TrimSpace(s.Message) == "" {
		return invalid("Message is required")
	}
	if len(s.Message) > MaxMessageLen {
		return invalid("Message must be less than 5000 characters")
	}
	return nil
}

// SanitizeText HTML-entity-escapes a free-text value destined for HTML
// rendering and trims surrounding whitespace. Ampersand first so earlier
// escapes are not double-escaped.
func SanitizeText(input string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
	)
	return strings.TrimSpace(r.Replace(input))
}

// attribution truncation limits, per field.
var attrLimits = map[string]int{
	"utm_source":   100,
	"utm_medium":   100,
	"utm_campaign": 200,
	"gclid":        200,
	"fbclid":       200,
	"msclkid":      200,
	"client_id":    100,
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Sanitized returns a copy safe for HTML-email rendering: all free-text
// fields entity-escaped and attribution fields length-truncated.
func (s Submission) Sanitized() Submission {
	out := Submission{
		Name:    SanitizeText(s.Name),
		Email:   SanitizeText(s.Email),
		Message: SanitizeText(s.Message),
	}
	out.UTMSource = truncate(SanitizeText(s.UTMSource), attrLimits["utm_source"])
	out.UTMMedium = truncate(SanitizeText(s.UTMMedium), attrLimits["utm_medium"])
	out.UTMCampaign = truncate(SanitizeText(s.UTMCampaign), attrLimits["utm_campaign"])
	out.GCLID = truncate(SanitizeText(s.GCLID), attrLimits["gclid"])
	out.FBCLID = truncate(SanitizeText(s.FBCLID), attrLimits["fbclid"])
	out.MSCLKID = truncate(SanitizeText(s.MSCLKID), attrLimits["msclkid"])
	out.ClientID = truncate(SanitizeText(s.ClientID), attrLimits["client_id"])
	return out
}

// FirstName returns the first space-separated token of the name.
func (s Submission) FirstName() string {
	parts := strings.Fields(s.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LastName returns everything after the first token, or "".
func (s Submission) LastName() string {
	parts := strings.Fields(s.Name)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

// EmailDomain returns the part after "@", lowercased, or "unknown".
func (s Submission) EmailDomain() string {
	if i := strings.Index(s.Email, "@"); i >= 0 && i+1 < len(s.Email) {
		return strings.ToLower(s.Email[i+1:])
	}
	return "unknown"
}
