package events

import "gutpulse-engine/pkg/dsp"

// FilterKind identifies the classifier stage that produced a rejection.
type FilterKind string

const (
	FilterSpectral FilterKind = "spectral"
	FilterHarmonic FilterKind = "harmonic"
	FilterBreath   FilterKind = "breath"
)

// Rejection is one classifier's reason for rejecting an event. Each
// classifier stage builds its own records independently; they are
// concatenated without short-circuiting so the diagnostic trace for an
// event is always complete.
type Rejection struct {
	Filter FilterKind `json:"filter"`
	Reason string     `json:"reason"`
}

// SpectralFeatures describe the frequency-domain shape of an event.
type SpectralFeatures struct {
	// Flatness is the spectral flatness measure in [0,1]; noise-like
	// spectra approach 1.
	Flatness float64 `json:"flatness"`

	// BowelBandRatio is the fraction of spectral energy inside the
	// expected bowel-sound band.
	BowelBandRatio float64 `json:"bowel_band_ratio"`

	// ZeroCrossingRate is sign changes per second over the event.
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`
}

// HarmonicFeatures describe the tonal structure of an event.
type HarmonicFeatures struct {
	// FundamentalHz is the estimated fundamental frequency, or zero
	// when no periodicity was found.
	FundamentalHz float64 `json:"fundamental_hz"`

	// HarmonicCount is the number of detected overtones of the
	// fundamental.
	HarmonicCount int `json:"harmonic_count"`

	// HNR is the harmonic-to-noise ratio in dB.
	HNR float64 `json:"hnr"`
}

// BreathFeatures describe how respiration-like an event is.
type BreathFeatures struct {
	// OnsetRatio is time-to-peak divided by event duration. Bowel
	// clicks attack fast (small values); breaths swell slowly.
	OnsetRatio float64 `json:"onset_ratio"`

	// LowFreqEmphasis is the fraction of spectral energy below the
	// breath emphasis cutoff.
	LowFreqEmphasis float64 `json:"low_freq_emphasis"`

	// Confidence is the derived breath likelihood in [0,1].
	Confidence float64 `json:"confidence"`
}

// DetectedEvent is one candidate acoustic burst with its full feature
// set and classifier verdicts. Both accepted and rejected events are
// retained so rejection provenance survives for debugging and audit.
type DetectedEvent struct {
	StartMs    float64 `json:"start_ms"`
	EndMs      float64 `json:"end_ms"`
	DurationMs float64 `json:"duration_ms"`
	PeakEnergy float64 `json:"peak_energy"`

	Spectral SpectralFeatures `json:"spectral"`
	Harmonic HarmonicFeatures `json:"harmonic"`
	Breath   BreathFeatures   `json:"breath"`

	Accepted   bool        `json:"accepted"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

// Segmentation is the envelope-level activity view produced alongside
// event detection. The scorer reuses it for active/quiet accounting so
// both stages always agree on what counted as activity.
type Segmentation struct {
	Envelope  dsp.Envelope
	Active    []bool  // per envelope frame
	Threshold float64 // adaptive threshold the frames were judged against
}

// ActiveSeconds returns the total duration of active frames.
func (s Segmentation) ActiveSeconds() float64 {
	n := 0
	for _, a := range s.Active {
		if a {
			n++
		}
	}
	return float64(n) * s.Envelope.FrameMs / 1000
}

// QuietSeconds returns the total duration of inactive frames.
func (s Segmentation) QuietSeconds() float64 {
	n := 0
	for _, a := range s.Active {
		if !a {
			n++
		}
	}
	return float64(n) * s.Envelope.FrameMs / 1000
}
