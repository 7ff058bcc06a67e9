// Package engagement derives discrete analytics events from raw page
// interaction signals (scroll position, section visibility, form activity)
// and appends them to an ordered sink compatible with tag-management
// data layers.
package engagement

import (
	"sync"
	"time"
)

// Kind identifies the event variant pushed to the data layer.
type Kind string

const (
	EventNavClick        Kind = "nav_click"
	EventButtonClick     Kind = "button_click"
	EventLinkClick       Kind = "link_click"
	EventFormInteraction Kind = "form_interaction"
	EventFormSubmission  Kind = "form_submission"
	EventFormStart       Kind = "form_start"
	EventFormAbandonment Kind = "form_abandonment"
	EventScrollDepth     Kind = "scroll_depth"
	EventSectionView     Kind = "section_view"
	EventSectionEngage   Kind = "section_engagement"
	EventCTAClick        Kind = "cta_click"
	EventCaseStudy       Kind = "case_study_interaction"
	EventPackage         Kind = "package_interaction"
	EventService         Kind = "service_interaction"
	EventFAQ             Kind = "faq_interaction"
)

// Event is one observed interaction before sink stamping.
type Event struct {
	Event    Kind           `json:"event"`
	Category string         `json:"event_category,omitempty"`
	Action   string         `json:"event_action,omitempty"`
	Label    string         `json:"event_label,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// Entry is an Event stamped with capture time and page context at push
// time. Entries are immutable once appended to a Sink.
type Entry struct {
	Event     Kind           `json:"event"`
	Category  string         `json:"event_category,omitempty"`
	Action    string         `json:"event_action,omitempty"`
	Label     string         `json:"event_label,omitempty"`
	Timestamp string         `json:"timestamp"`
	PagePath  string         `json:"page_path"`
	PageTitle string         `json:"page_title"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// PageContext carries the path and title stamped onto every entry.
type PageContext struct {
	Path  string
	Title string
}

// Sink is an append-only, FIFO-ordered event destination. Producers never
// need to know who drains it. Implementations must be safe for
// concurrent use.
type Sink interface {
	Push(Entry)
}

// DataLayer is the in-memory Sink equivalent of a window.dataLayer queue:
// entries are appended in push order and never mutated or removed.
type DataLayer struct {
	mu      sync.Mutex
	entries []Entry
}

// NewDataLayer returns an empty data layer.
func NewDataLayer() *DataLayer {
	return &DataLayer{}
}

// Push appends an entry.
func (d *DataLayer) Push(e Entry) {
	d.mu.Lock()
	d.entries = append(d.entries, e)
	d.mu.Unlock()
}

// Len reports the number of appended entries.
func (d *DataLayer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Snapshot returns a copy of the entries in append order.
func (d *DataLayer) Snapshot() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Entry)

func (f SinkFunc) Push(e Entry) { f(e) }

func stamp(e Event, page PageContext, at time.Time) Entry {
	return Entry{
		Event:     e.Event,
		Category:  e.Category,
		Action:    e.Action,
		Label:     e.Label,
		Timestamp: at.UTC().Format(time.RFC3339),
		PagePath:  page.Path,
		PageTitle: page.Title,
		Attrs:     e.Attrs,
	}
}
