package dsp

import (
	"math"
	"math/cmplx"
)

// PowerSpectrum computes a one-sided power spectrum of the samples. The
// input is Hann-windowed and zero-padded (or truncated) to fftSize,
// which must be a power of two. The result has fftSize/2+1 bins; bin k
// corresponds to k*sampleRate/fftSize Hz.
func PowerSpectrum(samples []float64, fftSize int) []float64 {
	buf := make([]complex128, fftSize)
	n := len(samples)
	if n > fftSize {
		n = fftSize
	}
	for i := 0; i < n; i++ {
		// Hann window over the analyzed span
		w := 1.0
		if n > 1 {
			w = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		}
		buf[i] = complex(samples[i]*w, 0)
	}

	fft(buf)

	half := fftSize/2 + 1
	power := make([]float64, half)
	for k := 0; k < half; k++ {
		m := cmplx.Abs(buf[k])
		power[k] = m * m
	}
	return power
}

// fft performs an in-place iterative radix-2 Cooley-Tukey transform.
// len(buf) must be a power of two.
func fft(buf []complex128) {
	n := len(buf)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wl := cmplx.Rect(1, angle)
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				even := buf[start+k]
				odd := buf[start+k+length/2] * w
				buf[start+k] = even + odd
				buf[start+k+length/2] = even - odd
				w *= wl
			}
		}
	}
}

// BandEnergyRatio returns the fraction of total spectral energy that
// falls between lowHz and highHz. Zero total energy yields zero.
func BandEnergyRatio(power []float64, sampleRate float64, lowHz, highHz float64) float64 {
	fftSize := (len(power) - 1) * 2
	binHz := sampleRate / float64(fftSize)

	total := 0.0
	band := 0.0
	for k, p := range power {
		f := float64(k) * binHz
		total += p
		if f >= lowHz && f <= highHz {
			band += p
		}
	}
	if total == 0 {
		return 0
	}
	return band / total
}

// SpectralFlatness returns the ratio of geometric to arithmetic mean of
// the power spectrum, in [0,1]. Values near 1 indicate noise-like
// spectra; values near 0 indicate tonal content. The DC bin is skipped.
func SpectralFlatness(power []float64) float64 {
	if len(power) < 2 {
		return 0
	}

	const floor = 1e-12
	logSum := 0.0
	sum := 0.0
	n := 0
	for _, p := range power[1:] {
		if p < floor {
			p = floor
		}
		logSum += math.Log(p)
		sum += p
		n++
	}
	if n == 0 || sum == 0 {
		return 0
	}

	geoMean := math.Exp(logSum / float64(n))
	ariMean := sum / float64(n)
	return geoMean / ariMean
}

// SpectralRolloff returns the frequency below which the given fraction
// (typically 0.85) of the total spectral energy is contained.
func SpectralRolloff(power []float64, sampleRate float64, fraction float64) float64 {
	fftSize := (len(power) - 1) * 2
	binHz := sampleRate / float64(fftSize)

	total := 0.0
	for _, p := range power {
		total += p
	}
	if total == 0 {
		return 0
	}

	target := total * fraction
	cum := 0.0
	for k, p := range power {
		cum += p
		if cum >= target {
			return float64(k) * binHz
		}
	}
	return float64(len(power)-1) * binHz
}

// ZeroCrossingRate returns sign changes per second for the segment.
func ZeroCrossingRate(samples []float64, sampleRate float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) * sampleRate / float64(len(samples))
}

// NextPowerOfTwo returns the smallest power of two >= n (minimum 2).
func NextPowerOfTwo(n int) int {
	p := 2
	for p < n {
		p <<= 1
	}
	return p
}
