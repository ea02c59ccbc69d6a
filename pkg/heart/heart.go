// Package heart extracts heart rate and heart-rate variability from
// the cardiac band of an abdominal recording.
package heart

import (
	"math"

	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/dsp"
)

const (
	// Refractory window bounds for beat picking. Together they fix the
	// detectable range at 40-150 BPM by construction.
	minPeakDistanceMs = 400.0
	maxPeakDistanceMs = 1500.0

	// minBeatsForValidHRV is the beat count required before RMSSD is
	// considered meaningful.
	minBeatsForValidHRV = 20

	envelopeFrameMs = 25.0

	// Recordings shorter than this get their confidence scaled down
	// proportionally.
	fullConfidenceSeconds = 30.0

	// RMSSD endpoints of the linear vagal-tone mapping.
	rmssdFloorMs   = 5.0
	rmssdCeilingMs = 85.0
)

// Result is the cardiac extraction outcome for one session.
type Result struct {
	BPM            float64 `json:"bpm"`
	BeatCount      int     `json:"beat_count"`
	Confidence     float64 `json:"confidence"`
	HRVValid       bool    `json:"hrv_valid"`
	RMSSD          float64 `json:"rmssd"`
	VagalToneScore float64 `json:"vagal_tone_score"`
}

// Presence reports whether any cardiac-band signal exists at all.
type Presence struct {
	HasSignal      bool    `json:"has_signal"`
	SignalStrength float64 `json:"signal_strength"` // in-band / total energy, [0,1]
}

// Analyzer narrow-bands the raw signal to the cardiac range and picks
// beats from the envelope. Stateless across calls.
type Analyzer struct {
	cache  *dsp.FilterCache
	logger *logrus.Logger
}

// NewAnalyzer creates a heart-rate analyzer sharing the given filter
// cache.
func NewAnalyzer(cache *dsp.FilterCache, logger *logrus.Logger) *Analyzer {
	return &Analyzer{cache: cache, logger: logger}
}

// Analyze extracts BPM, beat count, confidence and (when enough beats
// are present) RMSSD with its vagal tone mapping. Empty or very short
// input is an expected runtime condition and yields the defined zero
// result, never an error.
func (a *Analyzer) Analyze(samples []float64, durationSeconds float64, sampleRate float64) (Result, error) {
	if len(samples) == 0 || durationSeconds <= 0 {
		return Result{}, nil
	}

	filter, err := a.cache.Get(dsp.HeartBand, sampleRate)
	if err != nil {
		return Result{}, err
	}

	filtered := dsp.ApplyZeroPhase(samples, filter)
	env := dsp.ComputeEnvelope(filtered, sampleRate, envelopeFrameMs)

	beatsMs := pickBeats(env)
	res := resultFromBeats(beatsMs, durationSeconds)

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"bpm":        res.BPM,
			"beats":      res.BeatCount,
			"confidence": res.Confidence,
			"hrv_valid":  res.HRVValid,
		}).Debug("Heart rate analysis complete")
	}

	return res, nil
}

// CheckSignalPresence is a cheap pre-check: the ratio of cardiac-band
// energy to total energy. Silence returns zero; signals dominated by
// frequencies far outside the band return near zero.
func (a *Analyzer) CheckSignalPresence(samples []float64, sampleRate float64) Presence {
	if len(samples) == 0 {
		return Presence{}
	}

	fftSize := dsp.NextPowerOfTwo(len(samples))
	if fftSize > 8192 {
		fftSize = 8192
	}
	power := dsp.PowerSpectrum(samples[:min(len(samples), fftSize)], fftSize)

	strength := dsp.BandEnergyRatio(power, sampleRate, dsp.HeartBand.LowHz, dsp.HeartBand.HighHz)
	return Presence{
		HasSignal:      strength > 0.05,
		SignalStrength: strength,
	}
}

// pickBeats returns beat times in milliseconds. A frame is a beat when
// it is a local envelope maximum above the adaptive threshold and at
// least minPeakDistanceMs after the previous beat.
func pickBeats(env dsp.Envelope) []float64 {
	if len(env.Values) < 3 {
		return nil
	}

	threshold := env.Mean() + 0.5*dsp.StdDev(env.Values)

	var beats []float64
	lastBeatMs := -minPeakDistanceMs
	for i := 1; i < len(env.Values)-1; i++ {
		v := env.Values[i]
		if v <= threshold || v < env.Values[i-1] || v < env.Values[i+1] {
			continue
		}
		t := env.FrameToMs(i)
		if t-lastBeatMs < minPeakDistanceMs {
			continue
		}
		beats = append(beats, t)
		lastBeatMs = t
	}
	return beats
}

// resultFromBeats derives BPM, confidence and HRV from beat times.
// Intervals outside the refractory bounds are treated as dropped beats
// and excluded from the statistics.
func resultFromBeats(beatsMs []float64, durationSeconds float64) Result {
	var intervals []float64
	for i := 1; i < len(beatsMs); i++ {
		ibi := beatsMs[i] - beatsMs[i-1]
		if ibi >= minPeakDistanceMs && ibi <= maxPeakDistanceMs {
			intervals = append(intervals, ibi)
		}
	}

	res := Result{BeatCount: len(beatsMs)}
	if len(intervals) == 0 {
		return Result{}
	}

	meanIBI := dsp.Mean(intervals)
	res.BPM = 60000 / meanIBI

	// Regularity: tight inter-beat spread raises confidence.
	cv := dsp.StdDev(intervals) / meanIBI
	regularity := 1 - cv*2
	if regularity < 0 {
		regularity = 0
	}

	countFactor := float64(len(intervals)) / 20.0
	if countFactor > 1 {
		countFactor = 1
	}

	durationFactor := durationSeconds / fullConfidenceSeconds
	if durationFactor > 1 {
		durationFactor = 1
	}

	res.Confidence = clamp01(regularity * countFactor * durationFactor)

	if res.BeatCount >= minBeatsForValidHRV {
		res.HRVValid = true
		res.RMSSD = rmssd(intervals)
		res.VagalToneScore = vagalTone(res.RMSSD)
	}

	return res
}

// rmssd is the root-mean-square of successive inter-beat-interval
// differences, in milliseconds.
func rmssd(intervalsMs []float64) float64 {
	if len(intervalsMs) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(intervalsMs); i++ {
		d := intervalsMs[i] - intervalsMs[i-1]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(intervalsMs)-1))
}

// vagalTone maps RMSSD monotonically onto [0,100].
func vagalTone(rmssdMs float64) float64 {
	score := (rmssdMs - rmssdFloorMs) / (rmssdCeilingMs - rmssdFloorMs) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
