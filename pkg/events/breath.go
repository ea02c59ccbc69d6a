package events

import (
	"fmt"

	"gutpulse-engine/pkg/dsp"
)

// computeBreathFeatures derives how respiration-like a candidate is.
// Breath noise that leaks through the gut band swells slowly toward its
// peak and keeps its energy at the bottom of the band; bowel clicks
// attack almost instantly.
func (d *Detector) computeBreathFeatures(power []float64, sampleRate float64, seg Segmentation, c candidate) BreathFeatures {
	frames := seg.Envelope.Values[c.startFrame:c.endFrame]

	peakIdx := 0
	peak := 0.0
	for i, v := range frames {
		if v > peak {
			peak = v
			peakIdx = i
		}
	}

	onsetRatio := 0.0
	if len(frames) > 1 {
		onsetRatio = float64(peakIdx) / float64(len(frames)-1)
	}

	lowFreq := dsp.BandEnergyRatio(power, sampleRate, 0, d.config.BreathLowFreqCutoffHz)

	lfNorm := lowFreq / d.config.BreathLowFreqReference
	if lfNorm > 1 {
		lfNorm = 1
	}
	confidence := d.config.BreathOnsetWeight*onsetRatio + d.config.BreathLowFreqWeight*lfNorm
	if confidence > 1 {
		confidence = 1
	}

	return BreathFeatures{
		OnsetRatio:      onsetRatio,
		LowFreqEmphasis: lowFreq,
		Confidence:      confidence,
	}
}

// classifyBreath rejects events whose breath confidence crosses the
// configured ceiling, filtering respiration-contaminated candidates.
func (d *Detector) classifyBreath(f BreathFeatures) []Rejection {
	var rejections []Rejection

	if f.Confidence >= d.config.MaxBreathConfidence {
		rejections = append(rejections, Rejection{
			Filter: FilterBreath,
			Reason: fmt.Sprintf("breath confidence %.2f at or above %.2f (onset %.2f, low-freq %.2f)",
				f.Confidence, d.config.MaxBreathConfidence, f.OnsetRatio, f.LowFreqEmphasis),
		})
	}

	return rejections
}
