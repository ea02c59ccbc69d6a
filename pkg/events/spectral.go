package events

import (
	"fmt"

	"gutpulse-engine/pkg/dsp"
)

// Bowel-sound band used for the in-band energy ratio. Matches the gut
// analysis band so the ratio reflects how much of the event survived
// inside the expected range after filtering.
const (
	bowelBandLowHz  = 100
	bowelBandHighHz = 450
)

func computeSpectralFeatures(segment []float64, power []float64, sampleRate float64) SpectralFeatures {
	return SpectralFeatures{
		Flatness:         dsp.SpectralFlatness(power),
		BowelBandRatio:   dsp.BandEnergyRatio(power, sampleRate, bowelBandLowHz, bowelBandHighHz),
		ZeroCrossingRate: dsp.ZeroCrossingRate(segment, sampleRate),
	}
}

// classifySpectral rejects events whose spectrum looks like broadband
// noise rather than a discrete bowel sound.
func (d *Detector) classifySpectral(f SpectralFeatures) []Rejection {
	var rejections []Rejection

	if f.Flatness > d.config.MaxFlatness {
		rejections = append(rejections, Rejection{
			Filter: FilterSpectral,
			Reason: fmt.Sprintf("spectral flatness %.2f exceeds %.2f (noise-like)", f.Flatness, d.config.MaxFlatness),
		})
	}
	if f.BowelBandRatio < d.config.MinBowelBandRatio {
		rejections = append(rejections, Rejection{
			Filter: FilterSpectral,
			Reason: fmt.Sprintf("bowel-band energy ratio %.2f below %.2f", f.BowelBandRatio, d.config.MinBowelBandRatio),
		})
	}
	if f.ZeroCrossingRate < d.config.MinZeroCrossRateHz || f.ZeroCrossingRate > d.config.MaxZeroCrossRateHz {
		rejections = append(rejections, Rejection{
			Filter: FilterSpectral,
			Reason: fmt.Sprintf("zero-crossing rate %.0f/s outside %.0f-%.0f",
				f.ZeroCrossingRate, d.config.MinZeroCrossRateHz, d.config.MaxZeroCrossRateHz),
		})
	}

	return rejections
}
