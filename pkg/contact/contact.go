// Package contact decides whether a recording was captured against the
// abdomen or against a table/ambient surface, from spectral and
// temporal statistics of the gut-band signal.
package contact

import (
	"sort"

	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/dsp"
)

// Thresholds for the three spectral and three temporal criteria.
const (
	lowFreqCutoffHz   = 200.0
	highFreqCutoffHz  = 400.0
	minLowFreqRatio   = 0.45
	maxHighFreqRatio  = 0.15
	maxRolloffHz      = 350.0
	rolloffFraction   = 0.85
	minEnergyCV       = 0.12
	burstPeakFactor   = 2.0
	minBurstPeaks     = 2
	minVarianceRatio  = 3.0
	minSpectralPassed = 2

	envelopeFrameMs = 50.0
	analysisFFTSize = 4096
)

// TemporalStats are the burst-dynamics statistics of the envelope.
type TemporalStats struct {
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	BurstPeakCount         int     `json:"burst_peak_count"`
	EnergyVarianceRatio    float64 `json:"energy_variance_ratio"`
	TemporalCriteriaMet    int     `json:"temporal_criteria_met"`
}

// Result is the on-body judgment with the statistics behind it.
type Result struct {
	IsOnBody            bool          `json:"is_on_body"`
	LowFreqRatio        float64       `json:"low_freq_ratio"`
	HighFreqRatio       float64       `json:"high_freq_ratio"`
	SpectralRolloff     float64       `json:"spectral_rolloff"`
	SpectralCriteriaMet int           `json:"spectral_criteria_met"`
	Temporal            TemporalStats `json:"temporal"`
}

// Assessor computes contact quality once per analysis pass.
type Assessor struct {
	logger *logrus.Logger
}

// NewAssessor creates a contact-quality assessor.
func NewAssessor(logger *logrus.Logger) *Assessor {
	return &Assessor{logger: logger}
}

// Assess judges on-body contact from the filtered gut-band signal.
//
// The temporal gate is mandatory: a flat, invariant envelope is
// diagnostic of table or ambient contact even when the spectral shape
// happens to resemble gut sound, because genuine abdominal contact
// always shows burst-like energy dynamics. A perfect spectral match
// therefore cannot override temporalCriteriaMet == 0.
func (a *Assessor) Assess(filtered []float64, sampleRate float64) Result {
	power := dsp.PowerSpectrum(filtered, analysisFFTSize)

	res := Result{
		LowFreqRatio:    dsp.BandEnergyRatio(power, sampleRate, 0, lowFreqCutoffHz),
		HighFreqRatio:   dsp.BandEnergyRatio(power, sampleRate, highFreqCutoffHz, sampleRate/2),
		SpectralRolloff: dsp.SpectralRolloff(power, sampleRate, rolloffFraction),
	}

	if res.LowFreqRatio >= minLowFreqRatio {
		res.SpectralCriteriaMet++
	}
	if res.HighFreqRatio <= maxHighFreqRatio {
		res.SpectralCriteriaMet++
	}
	if res.SpectralRolloff <= maxRolloffHz {
		res.SpectralCriteriaMet++
	}

	res.Temporal = assessTemporal(filtered, sampleRate)

	res.IsOnBody = res.SpectralCriteriaMet >= minSpectralPassed &&
		res.Temporal.TemporalCriteriaMet >= 1

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"on_body":      res.IsOnBody,
			"spectral_met": res.SpectralCriteriaMet,
			"temporal_met": res.Temporal.TemporalCriteriaMet,
			"low_freq":     res.LowFreqRatio,
			"high_freq":    res.HighFreqRatio,
			"rolloff_hz":   res.SpectralRolloff,
			"energy_cv":    res.Temporal.CoefficientOfVariation,
			"burst_peaks":  res.Temporal.BurstPeakCount,
			"var_ratio":    res.Temporal.EnergyVarianceRatio,
		}).Debug("Contact quality assessed")
	}

	return res
}

func assessTemporal(filtered []float64, sampleRate float64) TemporalStats {
	env := dsp.ComputeEnvelope(filtered, sampleRate, envelopeFrameMs)

	stats := TemporalStats{
		CoefficientOfVariation: env.CoefficientOfVariation(),
		BurstPeakCount:         countBurstPeaks(env.Values),
		EnergyVarianceRatio:    energyVarianceRatio(env.Values),
	}

	if stats.CoefficientOfVariation >= minEnergyCV {
		stats.TemporalCriteriaMet++
	}
	if stats.BurstPeakCount >= minBurstPeaks {
		stats.TemporalCriteriaMet++
	}
	if stats.EnergyVarianceRatio >= minVarianceRatio {
		stats.TemporalCriteriaMet++
	}

	return stats
}

// countBurstPeaks counts local envelope maxima above burstPeakFactor
// times the mean level.
func countBurstPeaks(values []float64) int {
	if len(values) < 3 {
		return 0
	}
	threshold := burstPeakFactor * dsp.Mean(values)

	count := 0
	for i := 1; i < len(values)-1; i++ {
		if values[i] > threshold && values[i] >= values[i-1] && values[i] > values[i+1] {
			count++
		}
	}
	return count
}

// energyVarianceRatio splits the envelope frames into their upper and
// lower halves by energy and compares the variance of the two groups.
// Burst-like recordings have energetic windows that vary far more than
// the quiet background between bursts.
func energyVarianceRatio(values []float64) float64 {
	if len(values) < 4 {
		return 0
	}

	// An essentially constant envelope has no burst structure; don't
	// let numerical noise in the two halves manufacture a ratio.
	if dsp.StdDev(values) < 1e-6*dsp.Mean(values)+1e-12 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	low := sorted[:mid]
	high := sorted[mid:]

	lowVar := variance(low)
	highVar := variance(high)
	if lowVar == 0 {
		if highVar == 0 {
			return 0
		}
		return minVarianceRatio * 10 // all variability sits in the bursts
	}
	return highVar / lowVar
}

func variance(values []float64) float64 {
	sd := dsp.StdDev(values)
	return sd * sd
}
