// Package engine wires the acoustic analysis pipelines into a single
// batch pass over one recording.
package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/contact"
	"gutpulse-engine/pkg/dsp"
	"gutpulse-engine/pkg/errors"
	"gutpulse-engine/pkg/events"
	"gutpulse-engine/pkg/heart"
	"gutpulse-engine/pkg/metrics"
	"gutpulse-engine/pkg/scoring"
)

// AnalysisResult bundles everything one pass produces. The host
// persists Analytics; the rest is diagnostic context.
type AnalysisResult struct {
	SessionID string                   `json:"session_id"`
	Analytics scoring.SessionAnalytics `json:"analytics"`
	Contact   contact.Result           `json:"contact"`
	Heart     heart.Result             `json:"heart"`
	Events    []events.DetectedEvent   `json:"events"`
	Duration  float64                  `json:"duration_seconds"`
}

// Engine runs the complete analysis over a bounded sample buffer. It
// is synchronous and single-threaded internally; the only shared
// mutable state is the filter cache, whose entries are immutable once
// built, so independent sessions may be analyzed concurrently.
type Engine struct {
	cache    *dsp.FilterCache
	detector *events.Detector
	assessor *contact.Assessor
	heart    *heart.Analyzer
	scorer   *scoring.Scorer
	logger   *logrus.Logger
}

// New creates an engine with its own isolated filter cache.
func New(detectorConfig events.DetectorConfig, logger *logrus.Logger) *Engine {
	cache := dsp.NewFilterCache()
	return &Engine{
		cache:    cache,
		detector: events.NewDetector(detectorConfig, logger),
		assessor: contact.NewAssessor(logger),
		heart:    heart.NewAnalyzer(cache, logger),
		scorer:   scoring.NewScorer(logger),
		logger:   logger,
	}
}

// FilterCache exposes the engine's cache, mainly for tests asserting
// cache-hit identity.
func (e *Engine) FilterCache() *dsp.FilterCache {
	return e.cache
}

// AnalyzeSession runs the full batch pass: gut-band filtering, event
// detection and classification, contact-quality assessment, heart-rate
// extraction, and scoring. The input is a normalized sample sequence
// in [-1,1]; the engine trusts the caller's sample rate and duration.
// Empty input is an expected condition and yields a defined
// zero-activity result.
func (e *Engine) AnalyzeSession(samples []float64, sampleRate float64, durationSeconds float64) (*AnalysisResult, error) {
	if sampleRate <= 0 {
		return nil, errors.Wrap(errors.ErrInvalidSampleRate,
			"sample rate must be positive",
			map[string]interface{}{"sample_rate": sampleRate})
	}

	started := time.Now()
	result := &AnalysisResult{
		SessionID: uuid.New().String(),
		Duration:  durationSeconds,
	}

	gutFilter, err := e.cache.Get(dsp.GutBand, sampleRate)
	if err != nil {
		return nil, err
	}
	gutView := dsp.ApplyZeroPhase(samples, gutFilter)

	detected, seg := e.detector.Detect(gutView, sampleRate)
	result.Events = detected
	result.Contact = e.assessor.Assess(gutView, sampleRate)

	// Independent pipeline over the cardiac view of the same input.
	result.Heart, err = e.heart.Analyze(samples, durationSeconds, sampleRate)
	if err != nil {
		return nil, err
	}

	result.Analytics = e.scorer.Score(detected, seg, durationSeconds)

	metrics.ObserveAnalysis(result.Analytics.AcceptedEvents, result.Analytics.RejectedEvents,
		result.Contact.IsOnBody, time.Since(started))
	for _, ev := range detected {
		for _, rej := range ev.Rejections {
			metrics.EventRejected(string(rej.Filter))
		}
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"session_id":     result.SessionID,
			"events":         len(detected),
			"accepted":       result.Analytics.AcceptedEvents,
			"on_body":        result.Contact.IsOnBody,
			"bpm":            result.Heart.BPM,
			"motility_index": result.Analytics.MotilityIndex,
			"elapsed":        time.Since(started),
		}).Info("Session analysis complete")
	}

	return result, nil
}
