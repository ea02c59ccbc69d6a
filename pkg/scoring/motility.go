// Package scoring turns detection output into the session-level
// composite scores: Motility Index, Rhythmicity Index, and the Vagal
// Readiness Score.
package scoring

import (
	"math"

	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/events"
)

// TimelineSegments is the fixed number of activity-timeline segments
// per session. The scorer and the vagal readiness aggregator share it;
// the intervention split in the aggregator indexes into this timeline.
const TimelineSegments = 20

// Blend weights and normalization for the motility index. Exposed as
// named constants so they can be recalibrated against the documented
// 33/67 category boundaries.
const (
	// MotilityRateWeight scales the events-per-minute contribution.
	MotilityRateWeight = 0.6

	// MotilityActiveWeight scales the active-time-fraction contribution.
	MotilityActiveWeight = 0.4

	// MotilityRateCeiling is the events-per-minute rate that saturates
	// the rate contribution at 100.
	MotilityRateCeiling = 20.0
)

// Motility category boundaries.
const (
	MotilityQuietBelow    = 33.0
	MotilityActiveAtLeast = 67.0
)

// SessionAnalytics is the persisted per-session summary. The engine
// computes it once; the host application persists it.
type SessionAnalytics struct {
	EventsPerMinute  float64   `json:"events_per_minute"`
	TotalActiveSecs  float64   `json:"total_active_seconds"`
	TotalQuietSecs   float64   `json:"total_quiet_seconds"`
	MotilityIndex    float64   `json:"motility_index"`
	RhythmicityIndex float64   `json:"rhythmicity_index"`
	ActivityTimeline []float64 `json:"activity_timeline"`
	AcceptedEvents   int       `json:"accepted_events"`
	RejectedEvents   int       `json:"rejected_events"`
}

// MotilityCategory labels a motility index value.
func MotilityCategory(index float64) string {
	switch {
	case index < MotilityQuietBelow:
		return "quiet"
	case index < MotilityActiveAtLeast:
		return "normal"
	default:
		return "active"
	}
}

// Scorer aggregates accepted events and the activity segmentation into
// SessionAnalytics.
type Scorer struct {
	logger *logrus.Logger
}

// NewScorer creates a scorer.
func NewScorer(logger *logrus.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// Score computes the full per-session analytics from the detection
// output. durationSeconds is the nominal recording length supplied by
// the caller.
func (s *Scorer) Score(detected []events.DetectedEvent, seg events.Segmentation, durationSeconds float64) SessionAnalytics {
	analytics := SessionAnalytics{
		TotalActiveSecs:  seg.ActiveSeconds(),
		TotalQuietSecs:   seg.QuietSeconds(),
		ActivityTimeline: buildTimeline(seg),
	}

	for _, ev := range detected {
		if ev.Accepted {
			analytics.AcceptedEvents++
		} else {
			analytics.RejectedEvents++
		}
	}

	if durationSeconds > 0 {
		analytics.EventsPerMinute = float64(analytics.AcceptedEvents) / (durationSeconds / 60)
	}

	activeFraction := 0.0
	if total := analytics.TotalActiveSecs + analytics.TotalQuietSecs; total > 0 {
		activeFraction = analytics.TotalActiveSecs / total
	}

	rateScore := analytics.EventsPerMinute / MotilityRateCeiling * 100
	if rateScore > 100 {
		rateScore = 100
	}
	analytics.MotilityIndex = clamp(MotilityRateWeight*rateScore+MotilityActiveWeight*activeFraction*100, 0, 100)
	analytics.RhythmicityIndex = rhythmicityIndex(analytics.ActivityTimeline, analytics.EventsPerMinute, activeFraction*100)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"events_per_minute": analytics.EventsPerMinute,
			"motility_index":    analytics.MotilityIndex,
			"rhythmicity_index": analytics.RhythmicityIndex,
			"category":          MotilityCategory(analytics.MotilityIndex),
		}).Info("Session scored")
	}

	return analytics
}

// buildTimeline collapses the segmentation into TimelineSegments
// per-segment activity percentages spanning the recording.
func buildTimeline(seg events.Segmentation) []float64 {
	timeline := make([]float64, TimelineSegments)
	frames := len(seg.Active)
	if frames == 0 {
		return timeline
	}

	for i := 0; i < TimelineSegments; i++ {
		start := i * frames / TimelineSegments
		end := (i + 1) * frames / TimelineSegments
		if end <= start {
			end = start + 1
			if end > frames {
				continue
			}
		}

		active := 0
		for _, a := range seg.Active[start:end] {
			if a {
				active++
			}
		}
		timeline[i] = float64(active) / float64(end-start) * 100
	}
	return timeline
}

// rhythmicityIndex scores pattern consistency: low timeline variability
// plus ideal-band placement of event rate and active-time percentage.
func rhythmicityIndex(timeline []float64, eventsPerMinute, activePct float64) float64 {
	cvScore := 100 - timelineCVPercent(timeline)
	if cvScore < 0 {
		cvScore = 0
	}

	return clamp(0.50*cvScore+0.25*rateBandScore(eventsPerMinute)+0.25*activeBandScore(activePct), 0, 100)
}

// timelineCVPercent is the coefficient of variation of the timeline in
// percent. A perfectly flat timeline yields zero, scoring 100 on the
// variability sub-score.
func timelineCVPercent(timeline []float64) float64 {
	if len(timeline) == 0 {
		return 100
	}
	sum := 0.0
	for _, v := range timeline {
		sum += v
	}
	m := sum / float64(len(timeline))
	if m == 0 {
		return 100
	}

	varSum := 0.0
	for _, v := range timeline {
		d := v - m
		varSum += d * d
	}
	return math.Sqrt(varSum/float64(len(timeline))) / m * 100
}

// rateBandScore grades events-per-minute against the ideal 5-15 band,
// stepping down through progressively wider bands.
func rateBandScore(epm float64) float64 {
	switch {
	case epm >= 5 && epm <= 15:
		return 100
	case epm >= 3 && epm <= 20:
		return 75
	case epm >= 1 && epm <= 30:
		return 50
	default:
		return 25
	}
}

// activeBandScore grades the active-time percentage against the ideal
// 30-60% band with the same stepped degradation.
func activeBandScore(activePct float64) float64 {
	switch {
	case activePct >= 30 && activePct <= 60:
		return 100
	case activePct >= 20 && activePct <= 70:
		return 75
	case activePct >= 10 && activePct <= 80:
		return 50
	default:
		return 25
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
