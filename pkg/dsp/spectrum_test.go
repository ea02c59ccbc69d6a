package dsp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func TestBandEnergyRatioPureTone(t *testing.T) {
	const sampleRate = 8000.0
	power := PowerSpectrum(sine(250, sampleRate, 4096), 4096)

	inBand := BandEnergyRatio(power, sampleRate, 200, 300)
	assert.Greater(t, inBand, 0.9, "a 250 Hz tone should concentrate its energy around 250 Hz")

	outOfBand := BandEnergyRatio(power, sampleRate, 1000, 2000)
	assert.Less(t, outOfBand, 0.05)
}

func TestBandEnergyRatioSilence(t *testing.T) {
	power := PowerSpectrum(make([]float64, 1024), 1024)
	assert.Equal(t, 0.0, BandEnergyRatio(power, 8000, 100, 450))
}

func TestSpectralFlatnessSeparatesToneFromNoise(t *testing.T) {
	const sampleRate = 8000.0

	tonePower := PowerSpectrum(sine(250, sampleRate, 2048), 2048)
	toneFlatness := SpectralFlatness(tonePower)

	rng := rand.New(rand.NewSource(42))
	noise := make([]float64, 2048)
	for i := range noise {
		noise[i] = rng.Float64()*2 - 1
	}
	noisePower := PowerSpectrum(noise, 2048)
	noiseFlatness := SpectralFlatness(noisePower)

	assert.Less(t, toneFlatness, 0.1, "a pure tone is maximally peaky")
	assert.Greater(t, noiseFlatness, 0.3, "white noise spreads energy across bins")
	assert.Greater(t, noiseFlatness, toneFlatness)
}

func TestSpectralRolloff(t *testing.T) {
	const sampleRate = 8000.0
	power := PowerSpectrum(sine(150, sampleRate, 4096), 4096)

	rolloff := SpectralRolloff(power, sampleRate, 0.85)
	assert.InDelta(t, 150, rolloff, 30, "rolloff of a pure tone sits at the tone")
}

func TestZeroCrossingRate(t *testing.T) {
	const sampleRate = 8000.0
	// A sine at f crosses zero 2f times per second.
	zcr := ZeroCrossingRate(sine(200, sampleRate, 8000), sampleRate)
	assert.InDelta(t, 400, zcr, 10)

	assert.Equal(t, 0.0, ZeroCrossingRate(nil, sampleRate))
}

func TestComputeEnvelope(t *testing.T) {
	const sampleRate = 1000.0
	samples := make([]float64, 1000) // one second
	for i := 500; i < 600; i++ {
		samples[i] = 0.5 // a 100 ms plateau
	}

	env := ComputeEnvelope(samples, sampleRate, 50)
	assert.Len(t, env.Values, 20)
	assert.Equal(t, 0.0, env.Values[0])
	assert.InDelta(t, 0.5, env.Values[10], 1e-9)
	assert.Equal(t, 500.0, env.FrameToMs(10))
}

func TestEnvelopeCoefficientOfVariation(t *testing.T) {
	flat := Envelope{Values: []float64{0.3, 0.3, 0.3, 0.3}, FrameMs: 50}
	assert.Equal(t, 0.0, flat.CoefficientOfVariation())

	bursty := Envelope{Values: []float64{0.01, 0.9, 0.01, 0.8}, FrameMs: 50}
	assert.Greater(t, bursty.CoefficientOfVariation(), 0.5)
}
