package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gutpulse-engine/pkg/dsp"
	"gutpulse-engine/pkg/events"
)

// fakeSegmentation builds a segmentation with the given per-frame
// activity pattern at 100 ms frames.
func fakeSegmentation(active []bool) events.Segmentation {
	values := make([]float64, len(active))
	for i, a := range active {
		if a {
			values[i] = 0.5
		} else {
			values[i] = 0.01
		}
	}
	return events.Segmentation{
		Envelope: dsp.Envelope{Values: values, FrameMs: 100, SampleRate: 8000},
		Active:   active,
	}
}

func acceptedEvent() events.DetectedEvent {
	return events.DetectedEvent{Accepted: true}
}

func rejectedEvent() events.DetectedEvent {
	return events.DetectedEvent{
		Accepted:   false,
		Rejections: []events.Rejection{{Filter: events.FilterBreath, Reason: "test"}},
	}
}

func TestScoreEventsPerMinute(t *testing.T) {
	scorer := NewScorer(nil)

	detected := []events.DetectedEvent{
		acceptedEvent(), acceptedEvent(), acceptedEvent(),
		acceptedEvent(), acceptedEvent(),
		rejectedEvent(),
	}
	seg := fakeSegmentation(make([]bool, 600)) // 60 seconds, all quiet

	analytics := scorer.Score(detected, seg, 60)
	assert.Equal(t, 5, analytics.AcceptedEvents)
	assert.Equal(t, 1, analytics.RejectedEvents)
	assert.InDelta(t, 5.0, analytics.EventsPerMinute, 1e-9, "rejected events never count toward the rate")
}

func TestScoreActiveQuietSplit(t *testing.T) {
	scorer := NewScorer(nil)

	active := make([]bool, 600)
	for i := 0; i < 240; i++ {
		active[i] = true // 24 s active, 36 s quiet
	}

	analytics := scorer.Score(nil, fakeSegmentation(active), 60)
	assert.InDelta(t, 24.0, analytics.TotalActiveSecs, 1e-9)
	assert.InDelta(t, 36.0, analytics.TotalQuietSecs, 1e-9)
}

func TestMotilityIndexBounds(t *testing.T) {
	scorer := NewScorer(nil)

	// Hyperactive: far more events than the rate ceiling, fully active.
	var burst []events.DetectedEvent
	for i := 0; i < 100; i++ {
		burst = append(burst, acceptedEvent())
	}
	allActive := make([]bool, 600)
	for i := range allActive {
		allActive[i] = true
	}
	high := scorer.Score(burst, fakeSegmentation(allActive), 60)
	assert.LessOrEqual(t, high.MotilityIndex, 100.0)
	assert.GreaterOrEqual(t, high.MotilityIndex, MotilityActiveAtLeast, "a hyperactive session lands in the active category")

	// Dead quiet.
	low := scorer.Score(nil, fakeSegmentation(make([]bool, 600)), 60)
	assert.Equal(t, 0.0, low.MotilityIndex)
	assert.Less(t, low.MotilityIndex, MotilityQuietBelow)
}

func TestMotilityCategoryBoundaries(t *testing.T) {
	assert.Equal(t, "quiet", MotilityCategory(0))
	assert.Equal(t, "quiet", MotilityCategory(32.9))
	assert.Equal(t, "normal", MotilityCategory(33))
	assert.Equal(t, "normal", MotilityCategory(66.9))
	assert.Equal(t, "active", MotilityCategory(67))
	assert.Equal(t, "active", MotilityCategory(100))
}

func TestActivityTimelineShape(t *testing.T) {
	scorer := NewScorer(nil)

	active := make([]bool, 600)
	for i := 300; i < 600; i++ {
		active[i] = true // second half fully active
	}

	analytics := scorer.Score(nil, fakeSegmentation(active), 60)
	assert.Len(t, analytics.ActivityTimeline, TimelineSegments)

	for i := 0; i < TimelineSegments/2; i++ {
		assert.Equal(t, 0.0, analytics.ActivityTimeline[i])
	}
	for i := TimelineSegments / 2; i < TimelineSegments; i++ {
		assert.Equal(t, 100.0, analytics.ActivityTimeline[i])
	}
}

func TestRhythmicityFlatTimelineScoresFullVariabilityCredit(t *testing.T) {
	flat := make([]float64, TimelineSegments)
	for i := range flat {
		flat[i] = 40
	}

	// Ideal rate and active percentage: every sub-score at its maximum.
	assert.Equal(t, 100.0, rhythmicityIndex(flat, 10, 45))

	// The CV sub-score contributes exactly its full 50 points.
	outsideIdeal := rhythmicityIndex(flat, 0, 0)
	assert.InDelta(t, 0.50*100+0.25*25+0.25*25, outsideIdeal, 1e-9)
}

func TestRateBandScoreSteps(t *testing.T) {
	assert.Equal(t, 100.0, rateBandScore(5))
	assert.Equal(t, 100.0, rateBandScore(15))
	assert.Equal(t, 75.0, rateBandScore(3))
	assert.Equal(t, 75.0, rateBandScore(18))
	assert.Equal(t, 50.0, rateBandScore(1))
	assert.Equal(t, 50.0, rateBandScore(25))
	assert.Equal(t, 25.0, rateBandScore(0.5))
	assert.Equal(t, 25.0, rateBandScore(40))
}

func TestActiveBandScoreSteps(t *testing.T) {
	assert.Equal(t, 100.0, activeBandScore(30))
	assert.Equal(t, 100.0, activeBandScore(60))
	assert.Equal(t, 75.0, activeBandScore(25))
	assert.Equal(t, 50.0, activeBandScore(15))
	assert.Equal(t, 25.0, activeBandScore(5))
	assert.Equal(t, 25.0, activeBandScore(95))
}
