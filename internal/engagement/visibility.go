package engagement

import (
	"math"
	"time"
)

// visibilityThreshold is the minimum visible ratio for a section to count
// as on-screen, matching a 30% intersection threshold.
const visibilityThreshold = 0.3

// minEngagementTime filters out sub-second dwell noise.
const minEngagementTime = time.Second

// SectionVisibility feeds one visibility observation for a section:
// ratio is the fraction of the section currently on-screen. The tracker
// derives enter/exit transitions from successive observations.
//
// On first entering visibility a section fires one section_view event
// (never re-fired for the section). Entering starts the dwell timer;
// exiting accumulates elapsed time and flushes a section_engagement event
// when at least one second has accumulated.
func (t *Tracker) SectionVisibility(sectionID, sectionName string, ratio float64, at time.Time) {
	if sectionName == "" {
		sectionName = humanizeSectionID(sectionID)
	}
	visible := ratio >= visibilityThreshold

	t.mu.Lock()
	st := t.sections[sectionID]
	if st == nil {
		st = &sectionState{}
		t.sections[sectionID] = st
	}

	var firstView bool
	var flushMs int64

	switch {
	case visible && !st.visible:
		if !t.viewedSections[sectionID] {
			t.viewedSections[sectionID] = true
			firstView = true
		}
		st.visible = true
		st.startTime = at
	case !visible && st.visible:
		st.accumulated += at.Sub(st.startTime)
		st.visible = false
		flushMs = st.accumulated.Milliseconds()
	}
	t.mu.Unlock()

	if firstView {
		t.trackSectionView(sectionID, sectionName)
	}
	if flushMs > 0 {
		t.trackSectionEngagement(sectionID, sectionName, flushMs)
	}
}

// FlushVisible accumulates and reports dwell time for sections still
// visible at page unload. Sections remain marked visible so a later
// unload (or route re-entry) keeps accounting consistent.
func (t *Tracker) FlushVisible(at time.Time) {
	type flush struct {
		id string
		ms int64
	}
	var flushes []flush

	t.mu.Lock()
	for id, st := range t.sections {
		if st.visible {
			st.accumulated += at.Sub(st.startTime)
			st.startTime = at
			flushes = append(flushes, flush{id: id, ms: st.accumulated.Milliseconds()})
		}
	}
	t.mu.Unlock()

	for _, f := range flushes {
		t.trackSectionEngagement(f.id, humanizeSectionID(f.id), f.ms)
	}
}

// ResetSectionTracking clears viewed-section gates and dwell accounting.
func (t *Tracker) ResetSectionTracking() {
	t.mu.Lock()
	t.viewedSections = make(map[string]bool)
	t.sections = make(map[string]*sectionState)
	t.mu.Unlock()
}

func (t *Tracker) trackSectionView(sectionID, sectionName string) {
	t.Push(Event{
		Event:    EventSectionView,
		Category: "Section",
		Action:   "View",
		Label:    sectionName,
		Attrs: map[string]any{
			"section":      sectionID,
			"section_id":   sectionID,
			"section_name": sectionName,
		},
	})
}

func (t *Tracker) trackSectionEngagement(sectionID, sectionName string, engagementMs int64) {
	if engagementMs < minEngagementTime.Milliseconds() {
		return
	}
	engagementSec := int(math.Round(float64(engagementMs) / 1000))
	t.Push(Event{
		Event:    EventSectionEngage,
		Category: "Engagement",
		Action:   "Time Spent",
		Label:    sectionName,
		Attrs: map[string]any{
			"section":             sectionID,
			"section_id":          sectionID,
			"section_name":        sectionName,
			"engagement_time_ms":  engagementMs,
			"engagement_time_sec": engagementSec,
		},
	})
}

// humanizeSectionID turns "case-studies" into "Case Studies".
func humanizeSectionID(id string) string {
	out := []rune{}
	upper := true
	for _, r := range id {
		if r == '-' || r == '_' {
			out = append(out, ' ')
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		out = append(out, r)
	}
	return string(out)
}
