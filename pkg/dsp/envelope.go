package dsp

import "math"

// Envelope is a short-time RMS energy contour of a signal.
type Envelope struct {
	// Values holds one RMS value per analysis frame.
	Values []float64

	// FrameMs is the hop between frames in milliseconds.
	FrameMs float64

	SampleRate float64
}

// ComputeEnvelope builds a short-time RMS envelope with the given frame
// length in milliseconds (non-overlapping frames). A trailing partial
// frame is included when it holds at least half a frame of samples.
func ComputeEnvelope(samples []float64, sampleRate float64, frameMs float64) Envelope {
	frameLen := int(frameMs / 1000 * sampleRate)
	if frameLen < 1 {
		frameLen = 1
	}

	env := Envelope{FrameMs: frameMs, SampleRate: sampleRate}
	for start := 0; start < len(samples); start += frameLen {
		end := start + frameLen
		if end > len(samples) {
			if len(samples)-start < frameLen/2 {
				break
			}
			end = len(samples)
		}

		sum := 0.0
		for _, s := range samples[start:end] {
			sum += s * s
		}
		env.Values = append(env.Values, math.Sqrt(sum/float64(end-start)))
	}
	return env
}

// FrameToMs converts a frame index to its start time in milliseconds.
func (e Envelope) FrameToMs(frame int) float64 {
	return float64(frame) * e.FrameMs
}

// Mean returns the arithmetic mean of the envelope values.
func (e Envelope) Mean() float64 {
	return mean(e.Values)
}

// CoefficientOfVariation returns stddev/mean of the envelope values, or
// zero when the envelope is empty or silent.
func (e Envelope) CoefficientOfVariation() float64 {
	m := mean(e.Values)
	if m == 0 {
		return 0
	}
	return stdDev(e.Values, m) / m
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Mean is the package-level mean over a float slice.
func Mean(values []float64) float64 { return mean(values) }

// StdDev is the population standard deviation over a float slice.
func StdDev(values []float64) float64 { return stdDev(values, mean(values)) }
