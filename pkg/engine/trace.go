package engine

import (
	"fmt"
	"sort"
	"strings"

	"gutpulse-engine/pkg/events"
)

// EventTrace is the structured per-event diagnostic record exposed to
// debug collaborators. It depends on no UI type.
type EventTrace struct {
	EventID    int                      `json:"event_id"`
	StartMs    float64                  `json:"start_ms"`
	EndMs      float64                  `json:"end_ms"`
	DurationMs float64                  `json:"duration_ms"`
	PeakEnergy float64                  `json:"peak_energy"`
	Spectral   *events.SpectralFeatures `json:"spectral_features,omitempty"`
	Harmonic   *events.HarmonicFeatures `json:"harmonic_features,omitempty"`
	Breath     *events.BreathFeatures   `json:"breath_features,omitempty"`
	Accepted   bool                     `json:"accepted"`
	Rejections []events.Rejection       `json:"rejection_reasons"`
}

// Trace converts the analysis result's events into ordered diagnostic
// records.
func (r *AnalysisResult) Trace() []EventTrace {
	traces := make([]EventTrace, len(r.Events))
	for i, ev := range r.Events {
		spectral := ev.Spectral
		harmonic := ev.Harmonic
		breath := ev.Breath
		traces[i] = EventTrace{
			EventID:    i,
			StartMs:    ev.StartMs,
			EndMs:      ev.EndMs,
			DurationMs: ev.DurationMs,
			PeakEnergy: ev.PeakEnergy,
			Spectral:   &spectral,
			Harmonic:   &harmonic,
			Breath:     &breath,
			Accepted:   ev.Accepted,
			Rejections: ev.Rejections,
		}
	}
	return traces
}

// TraceSummary renders a human-readable digest of the detection pass:
// accept/reject counts and rejections grouped by classifier, suitable
// for a textual log view.
func (r *AnalysisResult) TraceSummary() string {
	accepted := 0
	rejected := 0
	byFilter := make(map[string]int)
	for _, ev := range r.Events {
		if ev.Accepted {
			accepted++
		} else {
			rejected++
		}
		for _, rej := range ev.Rejections {
			byFilter[string(rej.Filter)]++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "session %s: %d events detected, %d accepted, %d rejected\n",
		r.SessionID, len(r.Events), accepted, rejected)

	filters := make([]string, 0, len(byFilter))
	for f := range byFilter {
		filters = append(filters, f)
	}
	sort.Strings(filters)
	for _, f := range filters {
		fmt.Fprintf(&b, "  %s: %d rejections\n", f, byFilter[f])
	}

	fmt.Fprintf(&b, "contact: on_body=%t (spectral %d/3, temporal %d/3)\n",
		r.Contact.IsOnBody, r.Contact.SpectralCriteriaMet, r.Contact.Temporal.TemporalCriteriaMet)
	fmt.Fprintf(&b, "heart: %.1f bpm from %d beats (confidence %.2f)",
		r.Heart.BPM, r.Heart.BeatCount, r.Heart.Confidence)

	return b.String()
}
