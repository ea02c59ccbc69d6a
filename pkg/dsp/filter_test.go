package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gutpulse-engine/pkg/errors"
)

func TestDesignBandpassSectionCount(t *testing.T) {
	cases := []struct {
		low, high  float64
		order      int
		sampleRate float64
	}{
		{100, 450, 3, 44100},
		{20, 80, 3, 44100},
		{100, 450, 1, 8000},
		{50, 300, 5, 16000},
	}

	for _, c := range cases {
		f, err := DesignBandpass(c.low, c.high, c.order, c.sampleRate)
		require.NoError(t, err)
		assert.Len(t, f.Sections, 2*c.order, "bandpass of order %d should have %d sections", c.order, 2*c.order)
		assert.Equal(t, c.low, f.LowHz)
		assert.Equal(t, c.high, f.HighHz)
	}
}

func TestDesignBandpassInvalidBand(t *testing.T) {
	cases := []struct {
		name      string
		low, high float64
	}{
		{"zero low cutoff", 0, 450},
		{"negative low cutoff", -10, 450},
		{"high at Nyquist", 100, 22050},
		{"high above Nyquist", 100, 30000},
		{"low above high", 500, 450},
		{"low equals high", 450, 450},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DesignBandpass(c.low, c.high, 3, 44100)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidFilterBand),
				"invalid band must surface as a configuration error")
		})
	}
}

func TestMeasureAttenuation(t *testing.T) {
	f, err := DesignBandpass(100, 450, 3, 44100)
	require.NoError(t, err)

	center := math.Sqrt(100 * 450) // geometric center of the passband
	assert.InDelta(t, 0, MeasureAttenuationDB(f, center), 6, "passband center should sit within +-6 dB")

	assert.LessOrEqual(t, MeasureAttenuationDB(f, 900), -25.0,
		"2x the upper cutoff should be rejected by at least 25 dB")
	assert.LessOrEqual(t, MeasureAttenuationDB(f, 30), -40.0,
		"0.3x the lower cutoff should be rejected by at least 40 dB")
}

func TestApplyCausalEmptyInput(t *testing.T) {
	f, err := DesignBandpass(100, 450, 3, 44100)
	require.NoError(t, err)

	out := ApplyCausal([]float64{}, f)
	assert.Empty(t, out)
}

func TestApplyZeroPhasePreservesLength(t *testing.T) {
	f, err := DesignBandpass(100, 450, 3, 8000)
	require.NoError(t, err)

	for _, n := range []int{1, 7, 160, 8000} {
		in := make([]float64, n)
		for i := range in {
			in[i] = math.Sin(2 * math.Pi * 200 * float64(i) / 8000)
		}
		out := ApplyZeroPhase(in, f)
		assert.Len(t, out, n)
	}
}

func TestZeroPhasePassesInBandTone(t *testing.T) {
	const sampleRate = 8000.0
	f, err := DesignBandpass(100, 450, 3, sampleRate)
	require.NoError(t, err)

	in := make([]float64, 8000)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 212 * float64(i) / sampleRate)
	}
	out := ApplyZeroPhase(in, f)

	// Compare RMS over the middle of the buffer, away from edge effects.
	inRMS := rms(in[2000:6000])
	outRMS := rms(out[2000:6000])
	assert.InDelta(t, 1.0, outRMS/inRMS, 0.3, "an in-band tone should pass mostly unattenuated")
}

func TestFilterCacheReturnsIdenticalInstance(t *testing.T) {
	cache := NewFilterCache()

	first, err := cache.Get(GutBand, 44100)
	require.NoError(t, err)
	second, err := cache.Get(GutBand, 44100)
	require.NoError(t, err)
	assert.Same(t, first, second, "cache hit must return the identical instance")

	other, err := cache.Get(GutBand, 48000)
	require.NoError(t, err)
	assert.NotSame(t, first, other, "different sample rates are distinct cache entries")

	heart, err := cache.Get(HeartBand, 44100)
	require.NoError(t, err)
	assert.NotSame(t, first, heart, "different bands are distinct cache entries")
}

func rms(samples []float64) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
