package events

import (
	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/dsp"
)

// DetectorConfig holds detection and classification thresholds.
type DetectorConfig struct {
	// Envelope segmentation
	FrameMs            float64 // short-time energy frame length
	ThresholdStdFactor float64 // adaptive threshold = mean + k*stddev
	NoiseFloor         float64 // absolute envelope floor
	MinEventMs         float64 // events shorter than this are discarded
	MaxEventMs         float64 // events longer than this are discarded
	MergeGapMs         float64 // gaps below this merge adjacent events

	// Spectral classifier
	MaxFlatness        float64 // reject noise-like events above this SFM
	MinBowelBandRatio  float64 // reject events with too little in-band energy
	MinZeroCrossRateHz float64
	MaxZeroCrossRateHz float64

	// Harmonic classifier
	MaxHarmonicCount int     // reject voice-like events at or above this
	MaxHNRdB         float64 // combined with harmonic count

	// Breath classifier
	BreathLowFreqCutoffHz  float64
	MaxBreathConfidence    float64
	BreathOnsetWeight      float64
	BreathLowFreqWeight    float64
	BreathLowFreqReference float64 // emphasis value treated as fully breath-like
}

// DefaultDetectorConfig returns thresholds tuned for the 100-450 Hz
// gut band at typical mobile recording rates.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		FrameMs:            10,
		ThresholdStdFactor: 1.5,
		NoiseFloor:         0.002,
		MinEventMs:         20,
		MaxEventMs:         2000,
		MergeGapMs:         30,

		MaxFlatness:        0.65,
		MinBowelBandRatio:  0.35,
		MinZeroCrossRateHz: 120,
		MaxZeroCrossRateHz: 1400,

		MaxHarmonicCount: 3,
		MaxHNRdB:         10,

		BreathLowFreqCutoffHz:  150,
		MaxBreathConfidence:    0.6,
		BreathOnsetWeight:      0.55,
		BreathLowFreqWeight:    0.45,
		BreathLowFreqReference: 0.6,
	}
}

// Detector segments a gut-band filtered signal into candidate events
// and classifies each one. A Detector is stateless across calls and
// safe for concurrent use.
type Detector struct {
	config DetectorConfig
	logger *logrus.Logger
}

// NewDetector creates a detector with the given configuration.
func NewDetector(config DetectorConfig, logger *logrus.Logger) *Detector {
	return &Detector{config: config, logger: logger}
}

// Detect runs the full detection pass over a zero-phase gut-band
// filtered signal: envelope segmentation, feature extraction, and all
// three classifiers per event. Every classifier runs to completion
// regardless of earlier failures so each event carries its complete
// rejection trace. Returns the ordered event list (accepted and
// rejected) and the activity segmentation the events were cut from.
func (d *Detector) Detect(filtered []float64, sampleRate float64) ([]DetectedEvent, Segmentation) {
	seg := d.segment(filtered, sampleRate)
	candidates := d.extractCandidates(seg)

	detected := make([]DetectedEvent, 0, len(candidates))
	for _, c := range candidates {
		ev := d.classify(filtered, sampleRate, c, seg)
		detected = append(detected, ev)
	}

	if d.logger != nil {
		accepted := 0
		for _, ev := range detected {
			if ev.Accepted {
				accepted++
			}
		}
		d.logger.WithFields(logrus.Fields{
			"candidates": len(detected),
			"accepted":   accepted,
		}).Debug("Event detection pass complete")
	}

	return detected, seg
}

// segment computes the short-time envelope and marks frames above the
// adaptive threshold as active.
func (d *Detector) segment(filtered []float64, sampleRate float64) Segmentation {
	env := dsp.ComputeEnvelope(filtered, sampleRate, d.config.FrameMs)

	m := env.Mean()
	sd := dsp.StdDev(env.Values)
	threshold := m + d.config.ThresholdStdFactor*sd
	if threshold < d.config.NoiseFloor {
		threshold = d.config.NoiseFloor
	}

	active := make([]bool, len(env.Values))
	for i, v := range env.Values {
		active[i] = v > threshold
	}

	return Segmentation{Envelope: env, Active: active, Threshold: threshold}
}

type candidate struct {
	startFrame int
	endFrame   int // exclusive
}

// extractCandidates converts active-frame runs into candidate event
// boundaries, merging runs separated by short gaps and dropping runs
// outside the allowed duration range.
func (d *Detector) extractCandidates(seg Segmentation) []candidate {
	var runs []candidate
	start := -1
	for i, a := range seg.Active {
		switch {
		case a && start < 0:
			start = i
		case !a && start >= 0:
			runs = append(runs, candidate{startFrame: start, endFrame: i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, candidate{startFrame: start, endFrame: len(seg.Active)})
	}

	maxGapFrames := int(d.config.MergeGapMs / seg.Envelope.FrameMs)
	var merged []candidate
	for _, r := range runs {
		if n := len(merged); n > 0 && r.startFrame-merged[n-1].endFrame <= maxGapFrames {
			merged[n-1].endFrame = r.endFrame
			continue
		}
		merged = append(merged, r)
	}

	var out []candidate
	for _, r := range merged {
		durMs := float64(r.endFrame-r.startFrame) * seg.Envelope.FrameMs
		if durMs < d.config.MinEventMs || durMs > d.config.MaxEventMs {
			continue
		}
		out = append(out, r)
	}
	return out
}

// classify extracts all three feature families for a candidate and
// applies each classifier independently.
func (d *Detector) classify(filtered []float64, sampleRate float64, c candidate, seg Segmentation) DetectedEvent {
	frameLen := int(seg.Envelope.FrameMs / 1000 * sampleRate)
	startIdx := c.startFrame * frameLen
	endIdx := c.endFrame * frameLen
	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}
	segment := filtered[startIdx:endIdx]

	peak := 0.0
	for _, v := range seg.Envelope.Values[c.startFrame:c.endFrame] {
		if v > peak {
			peak = v
		}
	}

	ev := DetectedEvent{
		StartMs:    seg.Envelope.FrameToMs(c.startFrame),
		EndMs:      seg.Envelope.FrameToMs(c.endFrame),
		PeakEnergy: peak,
	}
	ev.DurationMs = ev.EndMs - ev.StartMs

	fftSize := dsp.NextPowerOfTwo(len(segment))
	power := dsp.PowerSpectrum(segment, fftSize)

	ev.Spectral = computeSpectralFeatures(segment, power, sampleRate)
	ev.Harmonic = computeHarmonicFeatures(segment, power, sampleRate)
	ev.Breath = d.computeBreathFeatures(power, sampleRate, seg, c)

	// Every classifier appends its own verdict; none short-circuits.
	ev.Rejections = append(ev.Rejections, d.classifySpectral(ev.Spectral)...)
	ev.Rejections = append(ev.Rejections, d.classifyHarmonic(ev.Harmonic)...)
	ev.Rejections = append(ev.Rejections, d.classifyBreath(ev.Breath)...)
	ev.Accepted = len(ev.Rejections) == 0

	return ev
}
