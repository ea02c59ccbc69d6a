package dsp

// ApplyCausal runs a single forward pass of the filter cascade over the
// samples using direct form II transposed per section. The output has
// the same length as the input and carries the cascade's group-delay
// phase shift. An empty input returns an empty output.
func ApplyCausal(samples []float64, filter *ButterworthFilter) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	if len(samples) == 0 {
		return out
	}

	for _, s := range filter.Sections {
		var z1, z2 float64
		for i, x := range out {
			y := s.B0*x + z1
			z1 = s.B1*x - s.A1*y + z2
			z2 = s.B2*x - s.A2*y
			out[i] = y
		}
	}
	return out
}

// ApplyZeroPhase filters forward, reverses, filters again, and reverses
// back (filtfilt). The two passes cancel each other's phase distortion,
// which keeps event boundaries and beat peaks aligned with the raw
// signal. Output length always equals input length; the effective
// magnitude response is the square of the causal one.
func ApplyZeroPhase(samples []float64, filter *ButterworthFilter) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}

	forward := ApplyCausal(samples, filter)
	reverseInPlace(forward)
	backward := ApplyCausal(forward, filter)
	reverseInPlace(backward)
	return backward
}

func reverseInPlace(samples []float64) {
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
}
