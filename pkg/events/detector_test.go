package events

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 8000.0

// burstSignal places count short 250 Hz tone bursts with sharp onsets
// over an otherwise silent buffer.
func burstSignal(durationSec float64, count int, burstMs float64) []float64 {
	n := int(durationSec * testSampleRate)
	out := make([]float64, n)

	burstLen := int(burstMs / 1000 * testSampleRate)
	spacing := n / (count + 1)
	for b := 1; b <= count; b++ {
		start := b * spacing
		for i := 0; i < burstLen && start+i < n; i++ {
			out[start+i] = 0.6 * math.Sin(2*math.Pi*250*float64(i)/testSampleRate)
		}
	}
	return out
}

func TestDetectFindsBursts(t *testing.T) {
	detector := NewDetector(DefaultDetectorConfig(), nil)

	signal := burstSignal(10, 5, 120)
	detected, seg := detector.Detect(signal, testSampleRate)

	require.Len(t, detected, 5, "each burst should become one candidate event")
	assert.NotEmpty(t, seg.Active)

	for _, ev := range detected {
		assert.True(t, ev.Accepted, "clean in-band bursts should pass all classifiers: %+v", ev.Rejections)
		assert.Greater(t, ev.DurationMs, 50.0)
		assert.Less(t, ev.DurationMs, 500.0)
		assert.Greater(t, ev.PeakEnergy, 0.0)
		assert.Less(t, ev.StartMs, ev.EndMs)
	}

	// Events arrive in chronological order.
	for i := 1; i < len(detected); i++ {
		assert.Greater(t, detected[i].StartMs, detected[i-1].EndMs)
	}
}

func TestDetectEmptyAndSilentInput(t *testing.T) {
	detector := NewDetector(DefaultDetectorConfig(), nil)

	detected, _ := detector.Detect(nil, testSampleRate)
	assert.Empty(t, detected)

	detected, _ = detector.Detect(make([]float64, 80000), testSampleRate)
	assert.Empty(t, detected, "silence has no candidate events")
}

func TestBreathLikeEventIsRejectedWithProvenance(t *testing.T) {
	detector := NewDetector(DefaultDetectorConfig(), nil)

	// A slowly swelling 120 Hz burst: gradual onset and low-frequency
	// emphasis, the signature of respiration leaking into the gut band.
	n := int(10 * testSampleRate)
	signal := make([]float64, n)
	start := n / 2
	burstLen := int(0.8 * testSampleRate)
	for i := 0; i < burstLen; i++ {
		ramp := float64(i) / float64(burstLen)
		signal[start+i] = 0.7 * ramp * math.Sin(2*math.Pi*120*float64(i)/testSampleRate)
	}

	detected, _ := detector.Detect(signal, testSampleRate)
	require.NotEmpty(t, detected)

	ev := detected[0]
	assert.False(t, ev.Accepted)
	assert.GreaterOrEqual(t, ev.Breath.Confidence, detector.config.MaxBreathConfidence)

	found := false
	for _, rej := range ev.Rejections {
		if rej.Filter == FilterBreath {
			found = true
			assert.NotEmpty(t, rej.Reason)
		}
	}
	assert.True(t, found, "rejection trace must name the breath filter")
}

func TestClassifiersRunWithoutShortCircuit(t *testing.T) {
	detector := NewDetector(DefaultDetectorConfig(), nil)

	// Features that fail the spectral classifier on all three criteria.
	spectralRejections := detector.classifySpectral(SpectralFeatures{
		Flatness:         0.9,
		BowelBandRatio:   0.1,
		ZeroCrossingRate: 3000,
	})
	assert.Len(t, spectralRejections, 3, "each failed criterion keeps its own record")
	for _, rej := range spectralRejections {
		assert.Equal(t, FilterSpectral, rej.Filter)
	}

	harmonicRejections := detector.classifyHarmonic(HarmonicFeatures{
		FundamentalHz: 180,
		HarmonicCount: 5,
		HNR:           18,
	})
	assert.Len(t, harmonicRejections, 1)
	assert.Equal(t, FilterHarmonic, harmonicRejections[0].Filter)

	breathRejections := detector.classifyBreath(BreathFeatures{
		OnsetRatio:      0.9,
		LowFreqEmphasis: 0.8,
		Confidence:      0.95,
	})
	assert.Len(t, breathRejections, 1)
	assert.Equal(t, FilterBreath, breathRejections[0].Filter)
}

func TestSegmentationAccounting(t *testing.T) {
	detector := NewDetector(DefaultDetectorConfig(), nil)

	signal := burstSignal(10, 4, 200)
	_, seg := detector.Detect(signal, testSampleRate)

	active := seg.ActiveSeconds()
	quiet := seg.QuietSeconds()
	assert.Greater(t, active, 0.5, "four 200 ms bursts should register as active time")
	assert.Less(t, active, 2.0)
	assert.InDelta(t, 10.0, active+quiet, 0.2, "active and quiet frames cover the recording")
}

func TestEstimateFundamental(t *testing.T) {
	segment := make([]float64, 4000)
	for i := range segment {
		segment[i] = math.Sin(2 * math.Pi * 200 * float64(i) / testSampleRate)
	}

	f0, corr := estimateFundamental(segment, testSampleRate)
	assert.InDelta(t, 200, f0, 10)
	assert.Greater(t, corr, 0.9, "a pure tone is near-perfectly periodic")

	f0, _ = estimateFundamental(make([]float64, 4000), testSampleRate)
	assert.Equal(t, 0.0, f0, "silence has no fundamental")
}
