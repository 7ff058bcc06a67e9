package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/leadlab/engage/internal/attribution"
	"github.com/leadlab/engage/internal/pkg/httputil"
	"github.com/leadlab/engage/internal/pkg/logger"
)

// CRM receives the accepted contact record. Implementations get the raw
// (unsanitized) submission; escaping is an HTML-rendering concern.
type CRM interface {
	CreateContact(ctx context.Context, sub Submission) error
}

// Notifier delivers the operator notification. It receives the sanitized
// submission, safe for HTML rendering.
type Notifier interface {
	Notify(ctx context.Context, sub Submission) error
}

// JarFn builds the attribution jar used when the body carries no
// attribution of its own. The default is the request's cookie jar.
type JarFn func(w http.ResponseWriter, r *http.Request) attribution.Jar

// Handler is the stateless submission endpoint: validate, sanitize, fan
// out, respond. Both downstream integrations are best-effort; their
// failures are logged and never surfaced to the caller.
type Handler struct {
	crm      CRM
	notifier Notifier
	jarFn    JarFn

	// fanOutTimeout bounds each downstream call.
	fanOutTimeout time.Duration
}

// Option customizes a Handler.
type Option func(*Handler)

// WithJarFn replaces the attribution-backfill jar, e.g. with a
// Redis-backed jar keyed by visitor ID.
func WithJarFn(fn JarFn) Option {
	return func(h *Handler) { h.jarFn = fn }
}

// NewHandler builds a Handler. crm and notifier may be nil (integration
// not configured); the corresponding side effect is skipped.
func NewHandler(crm CRM, notifier Notifier, opts ...Option) *Handler {
	h := &Handler{
		crm:      crm,
		notifier: notifier,
		jarFn: func(w http.ResponseWriter, r *http.Request) attribution.Jar {
			return attribution.NewCookieJar(w, r)
		},
		fanOutTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ServeHTTP handles POST with a JSON ContactSubmission body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic in contact handler", "panic", rec)
			httputil.Error(w, http.StatusInternalServerError, "An error occurred processing your request")
		}
	}()

	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		// Parse failures are unexpected errors, not validation errors:
		// generic 500, detail stays server-side.
		httputil.InternalError(w, err)
		return
	}

	// Backfill attribution from the request when the body carries none
	// (query params win over stored cookies, per the capture rules).
	if sub.Params.Empty() {
		sub.Params = attribution.Capture(r.URL.Query(), h.jarFn(w, r))
	}

	if err := sub.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			httputil.BadRequest(w, verr.Message)
			return
		}
		httputil.InternalError(w, err)
		return
	}

	logger.Info("processing contact form submission",
		"name_length", len(sub.Name),
		"email_domain", sub.EmailDomain(),
		"has_utm", sub.UTMSource != "" || sub.UTMMedium != "" || sub.UTMCampaign != "",
		"has_click_ids", sub.GCLID != "" || sub.FBCLID != "" || sub.MSCLKID != "",
	)

	h.fanOut(r.Context(), sub)

	httputil.OK(w, submitResponse{Success: true, Message: "Contact form submitted successfully"})
}

// fanOut dispatches the accepted submission to the CRM and the notifier.
// The two calls are independent; a failure in one never blocks the other
// and neither changes the caller-visible outcome.
func (h *Handler) fanOut(ctx context.Context, sub Submission) {
	ctx, cancel := context.WithTimeout(ctx, h.fanOutTimeout)
	defer cancel()

	if h.crm != nil {
		if err := h.crm.CreateContact(ctx, sub); err != nil {
			logger.Error("crm contact create failed", "error", err.Error())
		} else {
			logger.Info("crm contact created")
		}
	}

	if h.notifier != nil {
		if err := h.notifier.Notify(ctx, sub.Sanitized()); err != nil {
			logger.Error("notification email failed", "error", err.Error())
		} else {
			logger.Info("notification email sent")
		}
	}
}
