package engagement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// FormData holds the contact-form field values used for abandonment and
// submission reporting. Raw values never leave the Tracker unhashed except
// for the email domain.
type FormData struct {
	Name    string
	Email   string
	Message string
}

// Tracker owns all page-lifetime engagement state: fired scroll
// milestones, per-section dwell accounting, and the current form session.
// One Tracker corresponds to one page view; create a fresh one (or call
// the Reset methods) on a route change.
//
// All methods are safe for concurrent use and none of them panic; a
// Tracker with a nil sink degrades to a no-op.
type Tracker struct {
	sink Sink
	page PageContext
	now  func() time.Time

	mu sync.Mutex

	scrollMilestones map[int]bool

	viewedSections map[string]bool
	sections       map[string]*sectionState

	formStarted   bool
	formStartTime time.Time
	touchedFields map[string]bool
}

type sectionState struct {
	startTime   time.Time
	accumulated time.Duration
	visible     bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a Tracker that pushes stamped entries to sink.
func New(sink Sink, page PageContext, opts ...Option) *Tracker {
	t := &Tracker{
		sink:             sink,
		page:             page,
		now:              time.Now,
		scrollMilestones: make(map[int]bool),
		viewedSections:   make(map[string]bool),
		sections:         make(map[string]*sectionState),
		touchedFields:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Push stamps and appends an event. The terminal sink operation: every
// track helper funnels through here.
func (t *Tracker) Push(e Event) {
	if t == nil || t.sink == nil {
		return
	}
	t.sink.Push(stamp(e, t.page, t.now()))
}

// TrackNavClick records a navigation click. navType is "desktop" or "mobile".
func (t *Tracker) TrackNavClick(navItem, navType string) {
	t.Push(Event{
		Event:    EventNavClick,
		Category: "Navigation",
		Action:   "Click",
		Label:    navItem,
		Attrs:    map[string]any{"nav_item": navItem, "nav_type": navType},
	})
}

// TrackButtonClick records a button click, optionally scoped to a section.
func (t *Tracker) TrackButtonClick(buttonID, buttonText, section string) {
	attrs := map[string]any{
		"element_id":   buttonID,
		"element_text": buttonText,
		"element_type": "button",
	}
	if section != "" {
		attrs["section"] = section
	}
	t.Push(Event{Event: EventButtonClick, Category: "Button", Action: "Click", Label: buttonText, Attrs: attrs})
}

// TrackLinkClick records an outbound or in-page link click.
func (t *Tracker) TrackLinkClick(linkURL, linkText, section string) {
	attrs := map[string]any{"link_url": linkURL, "link_text": linkText}
	if section != "" {
		attrs["section"] = section
	}
	t.Push(Event{Event: EventLinkClick, Category: "Link", Action: "Click", Label: linkText, Attrs: attrs})
}

// TrackCTAClick records a call-to-action click.
func (t *Tracker) TrackCTAClick(ctaID, ctaText, destination string) {
	attrs := map[string]any{"element_id": ctaID, "element_text": ctaText}
	if destination != "" {
		attrs["link_url"] = destination
	}
	t.Push(Event{Event: EventCTAClick, Category: "CTA", Action: "Click", Label: ctaText, Attrs: attrs})
}

// TrackCaseStudy records a case-study interaction (view, click, expand).
func (t *Tracker) TrackCaseStudy(action, title, category string) {
	t.Push(Event{
		Event:    EventCaseStudy,
		Category: "Case Study",
		Action:   action,
		Label:    title,
		Attrs:    map[string]any{"case_study_title": title, "case_study_category": category},
	})
}

// TrackPackage records a pricing-package interaction (view, click).
func (t *Tracker) TrackPackage(action, name, price string) {
	t.Push(Event{
		Event:    EventPackage,
		Category: "Package",
		Action:   action,
		Label:    name,
		Attrs:    map[string]any{"package_name": name, "package_price": price},
	})
}

// TrackService records a service-card interaction (view, click).
func (t *Tracker) TrackService(action, name string) {
	t.Push(Event{
		Event:    EventService,
		Category: "Service",
		Action:   action,
		Label:    name,
		Attrs:    map[string]any{"service_name": name},
	})
}

// TrackFAQ records an FAQ expand/collapse.
func (t *Tracker) TrackFAQ(action, question string) {
	t.Push(Event{
		Event:    EventFAQ,
		Category: "FAQ",
		Action:   action,
		Label:    question,
		Attrs:    map[string]any{"faq_question": question},
	})
}

// TrackFormInteraction records a generic form interaction (focus, submit,
// submit_success, submit_error).
func (t *Tracker) TrackFormInteraction(action, formName, fieldName string, extra map[string]any) {
	attrs := map[string]any{"form_name": formName}
	if fieldName != "" {
		attrs["field_name"] = fieldName
	}
	for k, v := range extra {
		attrs[k] = v
	}
	t.Push(Event{Event: EventFormInteraction, Category: "Form", Action: action, Label: formName, Attrs: attrs})
}

// TrackScrollDepth fires a milestone event the first time each 25% scroll
// threshold is crossed. Milestones are one-shot per page lifetime.
func (t *Tracker) TrackScrollDepth(percentage float64) {
	milestone := int(math.Floor(percentage/25)) * 25
	if milestone <= 0 || milestone > 100 {
		return
	}

	t.mu.Lock()
	if t.scrollMilestones[milestone] {
		t.mu.Unlock()
		return
	}
	t.scrollMilestones[milestone] = true
	t.mu.Unlock()

	t.Push(Event{
		Event:    EventScrollDepth,
		Category: "Scroll",
		Action:   "Milestone",
		Label:    fmt.Sprintf("%d%%", milestone),
		Attrs:    map[string]any{"scroll_percentage": milestone, "scroll_threshold": milestone},
	})
}

// ResetScrollTracking clears fired milestones (route change).
func (t *Tracker) ResetScrollTracking() {
	t.mu.Lock()
	t.scrollMilestones = make(map[int]bool)
	t.mu.Unlock()
}

// TrackFormStart opens a form session on the first touched field. The
// form_start event fires at most once per session; every call records the
// field as touched.
func (t *Tracker) TrackFormStart(formName, fieldName string) {
	t.mu.Lock()
	first := !t.formStarted
	if first {
		t.formStarted = true
		t.formStartTime = t.now()
	}
	t.touchedFields[fieldName] = true
	t.mu.Unlock()

	if first {
		t.Push(Event{
			Event:    EventFormStart,
			Category: "Form",
			Action:   "Start",
			Label:    formName,
			Attrs:    map[string]any{"form_name": formName, "first_field": fieldName},
		})
	}
}

// TrackFormAbandonment reports a started-but-unsubmitted form session.
// No-op unless a session is open. Wire this to the page-unload path.
func (t *Tracker) TrackFormAbandonment(formName string, data FormData) {
	t.mu.Lock()
	if !t.formStarted {
		t.mu.Unlock()
		return
	}
	timeSpent := int(math.Round(t.now().Sub(t.formStartTime).Seconds()))
	touched := make([]string, 0, len(t.touchedFields))
	for f := range t.touchedFields {
		touched = append(touched, f)
	}
	t.mu.Unlock()

	fields := map[string]string{"name": data.Name, "email": data.Email, "message": data.Message}
	var filled []string
	for _, f := range []string{"name", "email", "message"} {
		if strings.TrimSpace(fields[f]) != "" {
			filled = append(filled, f)
		}
	}

	t.Push(Event{
		Event:    EventFormAbandonment,
		Category: "Form",
		Action:   "Abandon",
		Label:    formName,
		Attrs: map[string]any{
			"form_name":            formName,
			"fields_touched":       touched,
			"fields_touched_count": len(touched),
			"fields_filled":        filled,
			"fields_filled_count":  len(filled),
			"time_spent_sec":       timeSpent,
			"name_filled":          strings.TrimSpace(data.Name) != "",
			"email_filled":         strings.TrimSpace(data.Email) != "",
			"message_filled":       strings.TrimSpace(data.Message) != "",
		},
	})
}

// TrackFormSubmission reports a successful submission. PII fields are
// SHA-256 hashed (lowercased, trimmed); only the email domain travels in
// clear text.
func (t *Tracker) TrackFormSubmission(formName string, data FormData, extra map[string]any) {
	attrs := map[string]any{
		"form_name":           formName,
		"user_name_hashed":    hashField(data.Name),
		"user_email_hashed":   hashField(data.Email),
		"user_email_domain":   emailDomain(data.Email),
		"user_message_hashed": hashField(data.Message),
		"message_length":      len(data.Message),
		"message_word_count":  len(strings.Fields(data.Message)),
	}
	for k, v := range extra {
		attrs[k] = v
	}
	t.Push(Event{
		Event:    EventFormSubmission,
		Category: "Form",
		Action:   "Submit Success",
		Label:    formName,
		Attrs:    attrs,
	})
}

// ResetFormTracking closes the form session so a subsequent fill-in
// starts fresh. Call after a successful submission.
func (t *Tracker) ResetFormTracking() {
	t.mu.Lock()
	t.formStarted = false
	t.formStartTime = time.Time{}
	t.touchedFields = make(map[string]bool)
	t.mu.Unlock()
}

func hashField(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return hex.EncodeToString(sum[:])
}

func emailDomain(email string) string {
	if i := strings.Index(email, "@"); i >= 0 && i+1 < len(email) {
		return strings.ToLower(email[i+1:])
	}
	return ""
}
