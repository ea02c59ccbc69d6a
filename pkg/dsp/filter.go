package dsp

import (
	"fmt"
	"math"

	"gutpulse-engine/pkg/errors"
)

// Biquad is a single normalized second-order IIR section.
// Coefficients follow the convention
// y[n] = B0*x[n] + B1*x[n-1] + B2*x[n-2] - A1*y[n-1] - A2*y[n-2].
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// ButterworthFilter is an immutable cascaded bandpass design: Order
// highpass sections at LowHz followed by Order lowpass sections at
// HighHz. It is never mutated after construction, so a single instance
// may be shared across goroutines.
type ButterworthFilter struct {
	Sections   []Biquad
	LowHz      float64
	HighHz     float64
	Order      int
	SampleRate float64
}

// DesignBandpass builds a bandpass filter by cascading an order-stage
// Butterworth highpass at lowHz with an order-stage Butterworth lowpass
// at highHz. Each stage is a second-order section from the bilinear
// transform of the analog prototype, so the result always has exactly
// 2*order sections.
//
// An invalid band is a configuration error and fails immediately; the
// band is never clamped to something "safe".
func DesignBandpass(lowHz, highHz float64, order int, sampleRate float64) (*ButterworthFilter, error) {
	nyquist := sampleRate / 2
	switch {
	case order < 1:
		return nil, errors.Wrap(errors.ErrInvalidFilterBand,
			fmt.Sprintf("filter order must be >= 1, got %d", order))
	case lowHz <= 0:
		return nil, errors.Wrap(errors.ErrInvalidFilterBand,
			fmt.Sprintf("low cutoff must be positive, got %.2f Hz", lowHz))
	case highHz >= nyquist:
		return nil, errors.Wrap(errors.ErrInvalidFilterBand,
			fmt.Sprintf("high cutoff %.2f Hz must be below Nyquist %.2f Hz", highHz, nyquist))
	case lowHz >= highHz:
		return nil, errors.Wrap(errors.ErrInvalidFilterBand,
			fmt.Sprintf("low cutoff %.2f Hz must be below high cutoff %.2f Hz", lowHz, highHz))
	}

	sections := make([]Biquad, 0, 2*order)
	for _, q := range butterworthQs(order) {
		sections = append(sections, highpassBiquad(lowHz, q, sampleRate))
	}
	for _, q := range butterworthQs(order) {
		sections = append(sections, lowpassBiquad(highHz, q, sampleRate))
	}

	return &ButterworthFilter{
		Sections:   sections,
		LowHz:      lowHz,
		HighHz:     highHz,
		Order:      order,
		SampleRate: sampleRate,
	}, nil
}

// butterworthQs returns the section Q values that make a cascade of n
// biquads realize a Butterworth response of order 2n. The pole pairs of
// the analog prototype sit at angles (2k-1)*pi/(4n) from the imaginary
// axis, giving Q_k = 1 / (2*sin(theta_k)).
func butterworthQs(n int) []float64 {
	qs := make([]float64, n)
	for k := 1; k <= n; k++ {
		theta := float64(2*k-1) * math.Pi / float64(4*n)
		qs[k-1] = 1.0 / (2.0 * math.Sin(theta))
	}
	return qs
}

// lowpassBiquad computes normalized second-order lowpass coefficients
// at cutoff freqHz with the given Q (bilinear transform).
func lowpassBiquad(freqHz, q, sampleRate float64) Biquad {
	w0 := 2 * math.Pi * freqHz / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	return Biquad{
		B0: (1 - cosW0) / 2 / a0,
		B1: (1 - cosW0) / a0,
		B2: (1 - cosW0) / 2 / a0,
		A1: -2 * cosW0 / a0,
		A2: (1 - alpha) / a0,
	}
}

// highpassBiquad computes normalized second-order highpass coefficients
// at cutoff freqHz with the given Q.
func highpassBiquad(freqHz, q, sampleRate float64) Biquad {
	w0 := 2 * math.Pi * freqHz / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	return Biquad{
		B0: (1 + cosW0) / 2 / a0,
		B1: -(1 + cosW0) / a0,
		B2: (1 + cosW0) / 2 / a0,
		A1: -2 * cosW0 / a0,
		A2: (1 - alpha) / a0,
	}
}

// MeasureAttenuationDB evaluates the cascade's frequency response
// analytically at a single frequency and returns the magnitude in dB.
// This never filters a signal; it is intended for validating passband
// ripple and stopband rejection of a design.
func MeasureAttenuationDB(filter *ButterworthFilter, freqHz float64) float64 {
	w := 2 * math.Pi * freqHz / filter.SampleRate
	z1 := complex(math.Cos(-w), math.Sin(-w)) // z^-1
	z2 := z1 * z1

	h := complex(1, 0)
	for _, s := range filter.Sections {
		num := complex(s.B0, 0) + complex(s.B1, 0)*z1 + complex(s.B2, 0)*z2
		den := complex(1, 0) + complex(s.A1, 0)*z1 + complex(s.A2, 0)*z2
		h *= num / den
	}

	mag := cmplxAbs(h)
	if mag <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(mag)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
