package events

import (
	"fmt"
	"math"
)

// Search range for the fundamental. Speech and hum fundamentals live
// here; genuine bowel clicks show little stable periodicity at all.
const (
	minFundamentalHz = 70
	maxFundamentalHz = 400
)

// computeHarmonicFeatures estimates the fundamental via normalized
// autocorrelation and counts spectral peaks at harmonic multiples.
func computeHarmonicFeatures(segment []float64, power []float64, sampleRate float64) HarmonicFeatures {
	f0, peakCorr := estimateFundamental(segment, sampleRate)

	var hnr float64
	if peakCorr > 0 && peakCorr < 1 {
		hnr = 10 * math.Log10(peakCorr/(1-peakCorr))
	} else if peakCorr >= 1 {
		hnr = 60 // fully periodic within numeric precision
	} else {
		hnr = -60
	}

	return HarmonicFeatures{
		FundamentalHz: f0,
		HarmonicCount: countHarmonics(power, sampleRate, f0),
		HNR:           hnr,
	}
}

// estimateFundamental returns the best fundamental frequency and the
// normalized autocorrelation value at its lag. Zero frequency means no
// usable periodicity.
func estimateFundamental(segment []float64, sampleRate float64) (float64, float64) {
	minLag := int(sampleRate / maxFundamentalHz)
	maxLag := int(sampleRate / minFundamentalHz)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(segment) {
		maxLag = len(segment) - 1
	}
	if maxLag <= minLag {
		return 0, 0
	}

	energy := 0.0
	for _, v := range segment {
		energy += v * v
	}
	if energy == 0 {
		return 0, 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < len(segment); i++ {
			sum += segment[i] * segment[i+lag]
		}
		corr := sum / energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr <= 0 {
		return 0, 0
	}
	return sampleRate / float64(bestLag), bestCorr
}

// countHarmonics counts multiples of f0 that form genuine spectral
// peaks. A harmonic must stand well above its local neighborhood, not
// just above a global floor, so the smooth leakage skirt of a single
// tone never counts as an overtone series.
func countHarmonics(power []float64, sampleRate float64, f0 float64) int {
	if f0 <= 0 || len(power) < 16 {
		return 0
	}

	fftSize := (len(power) - 1) * 2
	binHz := sampleRate / float64(fftSize)

	count := 0
	for h := 2; ; h++ {
		bin := int(float64(h)*f0/binHz + 0.5)
		if bin+6 >= len(power) {
			break
		}
		if isSpectralPeak(power, bin) {
			count++
		}
	}
	return count
}

// isSpectralPeak reports whether the strongest bin within +-1 of center
// exceeds three times the surrounding background (center +-6 bins,
// excluding the peak's own mainlobe).
func isSpectralPeak(power []float64, center int) bool {
	if center < 7 {
		return false
	}

	peak := power[center]
	for _, b := range []int{center - 1, center + 1} {
		if power[b] > peak {
			peak = power[b]
		}
	}

	background := 0.0
	n := 0
	for b := center - 6; b <= center+6; b++ {
		if b >= center-1 && b <= center+1 {
			continue
		}
		background += power[b]
		n++
	}
	background /= float64(n)

	return background > 0 && peak > 3*background
}

// classifyHarmonic rejects events with the strong harmonic stack of
// voiced speech or steady tonal interference. Bowel sounds are short
// aperiodic bursts, so a rich overtone series with high HNR means the
// event came from somewhere else.
func (d *Detector) classifyHarmonic(f HarmonicFeatures) []Rejection {
	var rejections []Rejection

	if f.HarmonicCount >= d.config.MaxHarmonicCount && f.HNR > d.config.MaxHNRdB {
		rejections = append(rejections, Rejection{
			Filter: FilterHarmonic,
			Reason: fmt.Sprintf("%d harmonics of %.0f Hz at HNR %.1f dB (voice-like)",
				f.HarmonicCount, f.FundamentalHz, f.HNR),
		})
	}

	return rejections
}
