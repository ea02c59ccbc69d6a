package scoring

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/errors"
)

// Fixed component weights of the vagal readiness composite. They sum
// to 1.0.
const (
	BaselineWeight     = 0.40
	RhythmicityWeight  = 0.30
	InterventionWeight = 0.30
)

// Component neutral value used when context is missing (no history, no
// intervention, degenerate split).
const neutralComponent = 50.0

// baselineWindow is the trailing history window for the baseline
// motility average.
const baselineWindow = 7 * 24 * time.Hour

// defaultInterventionFraction splits the activity timeline when an
// intervention happened but its start time was not recorded.
const defaultInterventionFraction = 0.30

// minTimelineSegmentsForSplit is the minimum timeline length for a
// meaningful before/after comparison.
const minTimelineSegmentsForSplit = 4

// InterventionKind distinguishes the three intervention-timing cases;
// each drives a different branch of the intervention component.
type InterventionKind int

const (
	// NoIntervention means no breathing intervention was performed.
	NoIntervention InterventionKind = iota

	// InterventionNoTiming means an intervention happened but its
	// start time was not recorded; the default split fraction applies.
	InterventionNoTiming

	// InterventionWithStart carries the recorded start time.
	InterventionWithStart
)

// Intervention is the explicit timing variant for a session's
// breathing intervention.
type Intervention struct {
	Kind         InterventionKind
	StartSeconds float64 // meaningful only for InterventionWithStart
}

// SessionRecord is one historical session as returned by the store.
type SessionRecord struct {
	CreatedAt time.Time
	Analytics *SessionAnalytics
}

// SessionStore is the external session-history collaborator. Read
// failures must propagate to the caller; they are never interpreted as
// an empty history.
type SessionStore interface {
	SessionsWithAnalytics(patientID string) ([]SessionRecord, error)
}

// VagalReadinessScore is the composite wellness score.
type VagalReadinessScore struct {
	Score    int    `json:"score"`
	Category string `json:"category"`

	Components struct {
		Baseline     float64 `json:"baseline"`
		Rhythmicity  float64 `json:"rhythmicity"`
		Intervention float64 `json:"intervention"`
	} `json:"components"`

	BaselineMotility     float64 `json:"baseline_motility"`
	CurrentMotility      float64 `json:"current_motility"`
	ChangeFromBaseline   float64 `json:"change_from_baseline"`
	BaselineSessionCount int     `json:"baseline_session_count"`
}

// Aggregator computes vagal readiness from the current session plus
// queried history.
type Aggregator struct {
	store  SessionStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewAggregator creates an aggregator backed by the given session
// store.
func NewAggregator(store SessionStore, logger *logrus.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger, now: time.Now}
}

// Compute builds the composite score for the current session. It
// requires the session's analytics; a session without analytics cannot
// be scored. A store read failure propagates as an error rather than
// being absorbed into a neutral score, since that would disguise a
// data-access fault as "patient has no history".
func (a *Aggregator) Compute(patientID string, current *SessionAnalytics, intervention Intervention) (*VagalReadinessScore, error) {
	if current == nil {
		return nil, errors.ErrNoAnalytics
	}

	history, err := a.store.SessionsWithAnalytics(patientID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching session history",
			map[string]interface{}{"patient_id": patientID})
	}

	score := &VagalReadinessScore{CurrentMotility: current.MotilityIndex}

	baseline, count := a.baselineMotility(history)
	score.BaselineSessionCount = count
	if count == 0 {
		score.Components.Baseline = neutralComponent
		score.BaselineMotility = neutralComponent
	} else {
		score.BaselineMotility = baseline
		score.ChangeFromBaseline = percentChange(current.MotilityIndex, baseline)
		score.Components.Baseline = changeToScore(score.ChangeFromBaseline)
	}

	score.Components.Rhythmicity = clamp(current.RhythmicityIndex, 0, 100)
	durationSeconds := current.TotalActiveSecs + current.TotalQuietSecs
	score.Components.Intervention = interventionComponent(current.ActivityTimeline, intervention, durationSeconds)

	composite := BaselineWeight*score.Components.Baseline +
		RhythmicityWeight*score.Components.Rhythmicity +
		InterventionWeight*score.Components.Intervention
	score.Score = int(math.Round(clamp(composite, 0, 100)))
	score.Category = readinessCategory(score.Score)

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"patient_id":        patientID,
			"score":             score.Score,
			"category":          score.Category,
			"baseline_sessions": count,
		}).Info("Vagal readiness computed")
	}

	return score, nil
}

// baselineMotility averages the motility index over sessions inside
// the trailing window. Sessions without analytics do not count.
func (a *Aggregator) baselineMotility(history []SessionRecord) (float64, int) {
	cutoff := a.now().Add(-baselineWindow)

	sum := 0.0
	count := 0
	for _, rec := range history {
		if rec.Analytics == nil || rec.CreatedAt.Before(cutoff) {
			continue
		}
		sum += rec.Analytics.MotilityIndex
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}

// interventionComponent splits the timeline at the intervention start
// fraction and maps the before/after activity change. Missing context
// (no intervention, unusable timing, degenerate split, short timeline)
// resolves to the neutral component.
func interventionComponent(timeline []float64, intervention Intervention, durationSeconds float64) float64 {
	if intervention.Kind == NoIntervention {
		return neutralComponent
	}
	if len(timeline) < minTimelineSegmentsForSplit {
		return neutralComponent
	}

	fraction := defaultInterventionFraction
	if intervention.Kind == InterventionWithStart {
		if durationSeconds <= 0 {
			return neutralComponent
		}
		fraction = intervention.StartSeconds / durationSeconds
		if fraction <= 0 || fraction >= 1 {
			return neutralComponent
		}
	}

	split := int(fraction * float64(len(timeline)))
	if split < 1 || split >= len(timeline) {
		return neutralComponent
	}

	before := meanOf(timeline[:split])
	after := meanOf(timeline[split:])
	return changeToScore(percentChange(after, before))
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentChange returns the relative change of current vs. reference
// in percent. A zero reference with activity afterwards counts as the
// maximum positive change.
func percentChange(current, reference float64) float64 {
	if reference == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - reference) / reference * 100
}

// changeToScore maps a percent change onto [0,100]: +20% or better is
// 100, -20% or worse is 0, with linear interpolation through 50 at 0%.
func changeToScore(changePct float64) float64 {
	switch {
	case changePct >= 20:
		return 100
	case changePct <= -20:
		return 0
	default:
		return 50 + changePct*2.5
	}
}

// readinessCategory labels the composite score.
func readinessCategory(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "moderate"
	default:
		return "developing"
	}
}
