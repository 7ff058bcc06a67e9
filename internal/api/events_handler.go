package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/leadlab/engage/internal/engagement"
)

// EventRecorder persists one stamped engagement entry for a visitor.
// eventstore.Store satisfies it; the handler keeps working without one.
type EventRecorder interface {
	Append(ctx context.Context, visitorID string, e engagement.Entry) error
}

// EventsHandler accepts engagement events posted by tracked pages.
type EventsHandler struct {
	sink     engagement.Sink
	store    EventRecorder
	allowed  []string
	dedupFor time.Duration
	now      func() time.Time

	mu         sync.Mutex
	recentSeen map[string]time.Time
}

// EventsOption customizes an EventsHandler.
type EventsOption func(*EventsHandler)

// WithRecorder persists accepted events in addition to the sink.
func WithRecorder(store EventRecorder) EventsOption {
	return func(h *EventsHandler) { h.store = store }
}

// WithAllowedReferers restricts ingest to requests whose Referer header
// contains one of the given domains. Empty list allows all referers.
func WithAllowedReferers(domains []string) EventsOption {
	return func(h *EventsHandler) { h.allowed = domains }
}

// WithDedupWindow overrides the duplicate-suppression window.
func WithDedupWindow(d time.Duration) EventsOption {
	return func(h *EventsHandler) { h.dedupFor = d }
}

// WithEventsClock overrides the time source, for tests.
func WithEventsClock(now func() time.Time) EventsOption {
	return func(h *EventsHandler) { h.now = now }
}

// NewEventsHandler wires the ingest endpoint to a sink.
func NewEventsHandler(sink engagement.Sink, opts ...EventsOption) *EventsHandler {
	h := &EventsHandler{
		sink:       sink,
		dedupFor:   30 * time.Second,
		now:        time.Now,
		recentSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type eventPayload struct {
	VisitorID string         `json:"visitor_id"`
	Event     string         `json:"event"`
	Category  string         `json:"event_category"`
	Action    string         `json:"event_action"`
	Label     string         `json:"event_label"`
	PagePath  string         `json:"page_path"`
	PageTitle string         `json:"page_title"`
	Attrs     map[string]any `json:"attrs"`
}

// HandleEvent handles POST /api/v1/events.
// Accepts both application/json and text/plain bodies, since sendBeacon
// cannot set a Content-Type header.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	referer := r.Header.Get("Referer")
	if referer != "" && !h.refererAllowed(referer) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if isBot(r.UserAgent()) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if payload.VisitorID == "" || payload.Event == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	if h.isDuplicate(payload) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	entry := engagement.Entry{
		Event:     engagement.Kind(payload.Event),
		Category:  payload.Category,
		Action:    payload.Action,
		Label:     payload.Label,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		PagePath:  payload.PagePath,
		PageTitle: payload.PageTitle,
		Attrs:     payload.Attrs,
	}

	if h.sink != nil {
		h.sink.Push(entry)
	}
	if h.store != nil {
		if err := h.store.Append(r.Context(), payload.VisitorID, entry); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleBeacon handles GET /api/v1/events/beacon (img pixel fallback for
// clients that block fetch on unload).
func (h *EventsHandler) HandleBeacon(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	visitorID := q.Get("visitor_id")
	event := q.Get("event")

	if visitorID != "" && event != "" && !isBot(r.UserAgent()) {
		entry := engagement.Entry{
			Event:     engagement.Kind(event),
			Timestamp: h.now().UTC().Format(time.RFC3339),
			PagePath:  q.Get("page_path"),
			PageTitle: q.Get("page_title"),
		}
		if h.sink != nil {
			h.sink.Push(entry)
		}
		if h.store != nil {
			// Beacon delivery is best-effort; the pixel always renders.
			h.store.Append(r.Context(), visitorID, entry)
		}
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(transparentGIF)
}

// isDuplicate suppresses repeats of the same visitor/event/page within
// the dedup window. The cache is swept once it grows past 10k entries.
func (h *EventsHandler) isDuplicate(p eventPayload) bool {
	key := fmt.Sprintf("%s:%s:%s", p.VisitorID, p.Event, p.PagePath)
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	if lastSeen, ok := h.recentSeen[key]; ok && now.Sub(lastSeen) < h.dedupFor {
		return true
	}
	h.recentSeen[key] = now

	if len(h.recentSeen) > 10000 {
		cutoff := now.Add(-h.dedupFor)
		for k, v := range h.recentSeen {
			if v.Before(cutoff) {
				delete(h.recentSeen, k)
			}
		}
	}
	return false
}

func (h *EventsHandler) refererAllowed(referer string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	lower := strings.ToLower(referer)
	for _, d := range h.allowed {
		if strings.Contains(lower, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}

var botKeywords = []string{"bot", "crawler", "spider", "headless", "phantom", "wget", "curl", "python-requests"}

func isBot(ua string) bool {
	lower := strings.ToLower(ua)
	for _, kw := range botKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
