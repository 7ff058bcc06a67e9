package engagement

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func newTestTracker(t *testing.T) (*Tracker, *DataLayer, func(time.Duration)) {
	t.Helper()
	dl := NewDataLayer()
	clock, advance := testClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	tr := New(dl, PageContext{Path: "/", Title: "Landing"}, WithClock(clock))
	return tr, dl, advance
}

func eventKinds(entries []Entry) []Kind {
	kinds := make([]Kind, len(entries))
	for i, e := range entries {
		kinds[i] = e.Event
	}
	return kinds
}

func TestScrollDepthMilestonesAreOneShot(t *testing.T) {
	tr, dl, _ := newTestTracker(t)

	// Monotonically increasing with repeats and overshoot.
	for _, pct := range []float64{3, 10, 24.9, 25, 26, 30, 49, 50, 50, 74, 75, 76, 99, 100, 100, 120} {
		tr.TrackScrollDepth(pct)
	}

	entries := dl.Snapshot()
	require.Len(t, entries, 4)
	for i, want := range []int{25, 50, 75, 100} {
		assert.Equal(t, EventScrollDepth, entries[i].Event)
		assert.Equal(t, want, entries[i].Attrs["scroll_threshold"])
		assert.Equal(t, want, entries[i].Attrs["scroll_percentage"])
	}
	assert.Equal(t, "25%", entries[0].Label)
}

func TestScrollDepthIgnoresOutOfRange(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	tr.TrackScrollDepth(0)
	tr.TrackScrollDepth(-5)
	tr.TrackScrollDepth(10) // below first milestone
	assert.Equal(t, 0, dl.Len())
}

func TestResetScrollTrackingAllowsRefire(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	tr.TrackScrollDepth(50)
	tr.TrackScrollDepth(50)
	require.Equal(t, 1, dl.Len())

	tr.ResetScrollTracking()
	tr.TrackScrollDepth(50)
	assert.Equal(t, 2, dl.Len())
}

func TestScrollSamplerDropsIntermediateOffers(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	sampler, detach := tr.StartScrollTracking()
	defer detach()

	// Three offers in one frame: only the first is kept.
	sampler.Offer(500, 2000, 1000) // 50%
	sampler.Offer(990, 2000, 1000) // dropped
	sampler.Offer(260, 2000, 1000) // dropped
	sampler.Frame()

	entries := dl.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, 50, entries[0].Attrs["scroll_threshold"])

	// Next frame accepts a new offer.
	sampler.Offer(1000, 2000, 1000) // 100%
	sampler.Frame()
	assert.Equal(t, 2, dl.Len())
}

func TestScrollSamplerDetach(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	sampler, detach := tr.StartScrollTracking()
	detach()

	sampler.Offer(1000, 2000, 1000)
	sampler.Frame()
	assert.Equal(t, 0, dl.Len())
}

func TestScrollSamplerZeroSpan(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	sampler, detach := tr.StartScrollTracking()
	defer detach()

	// Page shorter than the viewport: no division, no event.
	sampler.Offer(0, 800, 1000)
	sampler.Frame()
	assert.Equal(t, 0, dl.Len())
}

func TestSectionViewFiresOncePerSection(t *testing.T) {
	tr, dl, advance := newTestTracker(t)
	_ = advance

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.SectionVisibility("services", "Services", 0.5, at)
	tr.SectionVisibility("services", "Services", 0.1, at.Add(5*time.Second))
	tr.SectionVisibility("services", "Services", 0.8, at.Add(10*time.Second))

	entries := dl.Snapshot()
	// view + engagement(5s) on exit; re-enter emits nothing new.
	require.Len(t, entries, 2)
	assert.Equal(t, EventSectionView, entries[0].Event)
	assert.Equal(t, "services", entries[0].Attrs["section_id"])
	assert.Equal(t, EventSectionEngage, entries[1].Event)
	assert.Equal(t, int64(5000), entries[1].Attrs["engagement_time_ms"])
	assert.Equal(t, 5, entries[1].Attrs["engagement_time_sec"])
}

func TestSectionEngagementAccumulatesAcrossVisits(t *testing.T) {
	tr, dl, _ := newTestTracker(t)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.SectionVisibility("faq", "FAQ", 0.4, at)
	tr.SectionVisibility("faq", "FAQ", 0.0, at.Add(2*time.Second))
	tr.SectionVisibility("faq", "FAQ", 0.4, at.Add(10*time.Second))
	tr.SectionVisibility("faq", "FAQ", 0.0, at.Add(13*time.Second))

	entries := dl.Snapshot()
	require.Len(t, entries, 3) // one view, two engagement flushes
	assert.Equal(t, int64(2000), entries[1].Attrs["engagement_time_ms"])
	assert.Equal(t, int64(5000), entries[2].Attrs["engagement_time_ms"])
}

func TestSectionEngagementBelowOneSecondSuppressed(t *testing.T) {
	tr, dl, _ := newTestTracker(t)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.SectionVisibility("hero", "Hero", 0.9, at)
	tr.SectionVisibility("hero", "Hero", 0.0, at.Add(200*time.Millisecond))

	entries := dl.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, EventSectionView, entries[0].Event)
}

func TestFlushVisibleReportsOpenSections(t *testing.T) {
	tr, dl, _ := newTestTracker(t)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.SectionVisibility("pricing", "", 0.5, at)
	tr.FlushVisible(at.Add(7 * time.Second))

	entries := dl.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, EventSectionEngage, entries[1].Event)
	assert.Equal(t, "Pricing", entries[1].Attrs["section_name"])
	assert.Equal(t, int64(7000), entries[1].Attrs["engagement_time_ms"])
}

func TestVisibilityBelowThresholdNeverEnters(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.SectionVisibility("footer", "Footer", 0.29, at)
	assert.Equal(t, 0, dl.Len())
}

func TestFormSessionLifecycle(t *testing.T) {
	tr, dl, _ := newTestTracker(t)

	tr.TrackFormStart("contact", "name")
	tr.TrackFormStart("contact", "email")
	tr.TrackFormStart("contact", "name")

	entries := dl.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, EventFormStart, entries[0].Event)
	assert.Equal(t, "name", entries[0].Attrs["first_field"])

	tr.ResetFormTracking()
	tr.TrackFormStart("contact", "message")
	assert.Equal(t, []Kind{EventFormStart, EventFormStart}, eventKinds(dl.Snapshot()))
}

func TestFormAbandonmentOnlyAfterStart(t *testing.T) {
	tr, dl, advance := newTestTracker(t)

	tr.TrackFormAbandonment("contact", FormData{Name: "Jane"})
	assert.Equal(t, 0, dl.Len())

	tr.TrackFormStart("contact", "name")
	tr.TrackFormStart("contact", "email")
	advance(42 * time.Second)
	tr.TrackFormAbandonment("contact", FormData{Name: "Jane", Email: "  "})

	entries := dl.Snapshot()
	require.Len(t, entries, 2)
	ab := entries[1]
	assert.Equal(t, EventFormAbandonment, ab.Event)
	assert.Equal(t, 2, ab.Attrs["fields_touched_count"])
	assert.Equal(t, []string{"name"}, ab.Attrs["fields_filled"])
	assert.Equal(t, 1, ab.Attrs["fields_filled_count"])
	assert.Equal(t, 42, ab.Attrs["time_spent_sec"])
	assert.Equal(t, true, ab.Attrs["name_filled"])
	assert.Equal(t, false, ab.Attrs["email_filled"])
	assert.Equal(t, false, ab.Attrs["message_filled"])
}

func TestFormSubmissionHashesPII(t *testing.T) {
	tr, dl, _ := newTestTracker(t)

	tr.TrackFormSubmission("contact", FormData{
		Name:    "  Jane Doe ",
		Email:   "Jane@Example.COM",
		Message: "Hello there world",
	}, map[string]any{"utm_source": "google"})

	entries := dl.Snapshot()
	require.Len(t, entries, 1)
	attrs := entries[0].Attrs

	wantName := sha256.Sum256([]byte("jane doe"))
	wantEmail := sha256.Sum256([]byte("jane@example.com"))
	assert.Equal(t, hex.EncodeToString(wantName[:]), attrs["user_name_hashed"])
	assert.Equal(t, hex.EncodeToString(wantEmail[:]), attrs["user_email_hashed"])
	assert.Equal(t, "example.com", attrs["user_email_domain"])
	assert.Equal(t, len("Hello there world"), attrs["message_length"])
	assert.Equal(t, 3, attrs["message_word_count"])
	assert.Equal(t, "google", attrs["utm_source"])

	// Raw PII never appears in the entry.
	for _, v := range attrs {
		assert.NotEqual(t, "Jane@Example.COM", v)
	}
}

func TestEntriesStampedWithPageContext(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	tr.TrackNavClick("Pricing", "desktop")

	entries := dl.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "/", entries[0].PagePath)
	assert.Equal(t, "Landing", entries[0].PageTitle)
	assert.Equal(t, "2026-03-01T12:00:00Z", entries[0].Timestamp)
}

func TestDataLayerFIFO(t *testing.T) {
	tr, dl, _ := newTestTracker(t)
	tr.TrackButtonClick("cta-hero", "Book a call", "hero")
	tr.TrackLinkClick("https://example.com", "Example", "")
	tr.TrackCTAClick("cta-bottom", "Get started", "/contact")

	assert.Equal(t, []Kind{EventButtonClick, EventLinkClick, EventCTAClick}, eventKinds(dl.Snapshot()))
}

func TestNilSinkIsNoOp(t *testing.T) {
	tr := New(nil, PageContext{})
	assert.NotPanics(t, func() {
		tr.TrackScrollDepth(50)
		tr.TrackFormStart("contact", "name")
		tr.TrackFormSubmission("contact", FormData{Name: "x"}, nil)
		tr.SectionVisibility("hero", "Hero", 0.5, time.Now())
		tr.FlushVisible(time.Now())
	})
}
