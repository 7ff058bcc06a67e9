package engagement

import "sync"

// ScrollSampler rate-limits scroll-depth computation to one sample per
// animation frame. Offer records the latest scroll geometry; if a sample
// is already pending for the current frame, intermediate offers are
// dropped (drop-latest-if-pending, not queuing). Frame processes the
// pending sample, if any.
//
// This mirrors the requestAnimationFrame guard-flag pattern: the caller's
// frame scheduler invokes Frame once per frame.
type ScrollSampler struct {
	mu      sync.Mutex
	tracker *Tracker
	pending bool
	stopped bool

	scrollY        float64
	scrollHeight   float64
	viewportHeight float64
}

// StartScrollTracking attaches a sampler to the tracker. The returned
// detach function must be called on teardown; after detach both Offer and
// Frame are no-ops.
func (t *Tracker) StartScrollTracking() (*ScrollSampler, func()) {
	s := &ScrollSampler{tracker: t}
	return s, s.stop
}

// Offer records a scroll observation. Only the first offer per frame is
// kept; later ones within the same frame are dropped.
func (s *ScrollSampler) Offer(scrollY, scrollHeight, viewportHeight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.pending {
		return
	}
	s.pending = true
	s.scrollY = scrollY
	s.scrollHeight = scrollHeight
	s.viewportHeight = viewportHeight
}

// Frame processes the pending sample: computes the scrolled percentage
// and feeds it to TrackScrollDepth.
func (s *ScrollSampler) Frame() {
	s.mu.Lock()
	if s.stopped || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	span := s.scrollHeight - s.viewportHeight
	y := s.scrollY
	s.mu.Unlock()

	if span <= 0 {
		return
	}
	s.tracker.TrackScrollDepth(y / span * 100)
}

func (s *ScrollSampler) stop() {
	s.mu.Lock()
	s.stopped = true
	s.pending = false
	s.mu.Unlock()
}
