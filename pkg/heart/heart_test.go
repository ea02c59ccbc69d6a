package heart

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gutpulse-engine/pkg/dsp"
)

const testSampleRate = 4000.0

// heartbeatSignal synthesizes a pulse train: one 60 ms burst of a
// 40 Hz tone per beat at the given rate.
func heartbeatSignal(bpm float64, durationSec float64) []float64 {
	n := int(durationSec * testSampleRate)
	out := make([]float64, n)

	beatInterval := 60.0 / bpm * testSampleRate
	burstLen := int(0.06 * testSampleRate)
	for beat := 0; ; beat++ {
		start := int(float64(beat) * beatInterval)
		if start >= n {
			break
		}
		for i := 0; i < burstLen && start+i < n; i++ {
			out[start+i] = 0.5 * math.Sin(2*math.Pi*40*float64(i)/testSampleRate)
		}
	}
	return out
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(dsp.NewFilterCache(), nil)
}

func TestAnalyzeRecoversKnownRates(t *testing.T) {
	analyzer := newTestAnalyzer()

	for _, bpm := range []float64{60, 75, 100} {
		const duration = 30.0
		signal := heartbeatSignal(bpm, duration)

		res, err := analyzer.Analyze(signal, duration, testSampleRate)
		require.NoError(t, err)

		assert.InDelta(t, bpm, res.BPM, bpm*0.10, "recovered BPM should be within 10%% of %.0f", bpm)

		expectedBeats := duration / 60 * bpm
		assert.InDelta(t, expectedBeats, float64(res.BeatCount), expectedBeats*0.10)
		assert.Greater(t, res.Confidence, 0.3, "a perfectly regular pulse train is high confidence")
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	analyzer := newTestAnalyzer()

	res, err := analyzer.Analyze([]float64{}, 0, testSampleRate)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res, "empty input yields the defined zero result")
}

func TestAnalyzeSilence(t *testing.T) {
	analyzer := newTestAnalyzer()

	res, err := analyzer.Analyze(make([]float64, 4000*10), 10, testSampleRate)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.BPM)
	assert.Equal(t, 0, res.BeatCount)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestHRVRequiresEnoughBeats(t *testing.T) {
	analyzer := newTestAnalyzer()

	// 30 s at 75 BPM is ~37 beats, comfortably past the threshold.
	res, err := analyzer.Analyze(heartbeatSignal(75, 30), 30, testSampleRate)
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.BeatCount, minBeatsForValidHRV)
	assert.True(t, res.HRVValid)
	assert.Less(t, res.RMSSD, 30.0, "a metronomic pulse train has low successive-difference variability")

	// 10 s at 60 BPM is ~10 beats, below the threshold.
	short, err := analyzer.Analyze(heartbeatSignal(60, 10), 10, testSampleRate)
	require.NoError(t, err)
	assert.False(t, short.HRVValid)
	assert.Equal(t, 0.0, short.RMSSD)
	assert.Equal(t, 0.0, short.VagalToneScore)
}

func TestVagalToneMappingIsMonotone(t *testing.T) {
	prev := -1.0
	for _, r := range []float64{0, 5, 10, 20, 40, 60, 85, 120} {
		score := vagalTone(r)
		assert.GreaterOrEqual(t, score, prev, "vagal tone must not decrease as RMSSD grows")
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
		prev = score
	}
	assert.Equal(t, 0.0, vagalTone(0))
	assert.Equal(t, 100.0, vagalTone(200))
}

func TestCheckSignalPresence(t *testing.T) {
	analyzer := newTestAnalyzer()

	silence := analyzer.CheckSignalPresence(make([]float64, 8192), testSampleRate)
	assert.False(t, silence.HasSignal)
	assert.Equal(t, 0.0, silence.SignalStrength)

	// A pure 500 Hz tone sits far outside the 20-80 Hz cardiac band.
	tone := make([]float64, 8192)
	for i := range tone {
		tone[i] = math.Sin(2 * math.Pi * 500 * float64(i) / testSampleRate)
	}
	far := analyzer.CheckSignalPresence(tone, testSampleRate)
	assert.Less(t, far.SignalStrength, 0.1)

	inBand := make([]float64, 8192)
	for i := range inBand {
		inBand[i] = math.Sin(2 * math.Pi * 50 * float64(i) / testSampleRate)
	}
	near := analyzer.CheckSignalPresence(inBand, testSampleRate)
	assert.True(t, near.HasSignal)
	assert.Greater(t, near.SignalStrength, 0.5)

	empty := analyzer.CheckSignalPresence(nil, testSampleRate)
	assert.False(t, empty.HasSignal)
}

func TestRMSSD(t *testing.T) {
	// Successive differences of 40 ms between alternating intervals.
	intervals := []float64{800, 840, 800, 840, 800}
	assert.InDelta(t, 40, rmssd(intervals), 1)

	assert.Equal(t, 0.0, rmssd([]float64{800}))
}
