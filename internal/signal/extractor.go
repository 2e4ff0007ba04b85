package signal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// Extract derives the fixed feature vector from a conditioned magnitude
// signal and the reading's optional tilt.
func Extract(mag []float64, samplingRate float64, tilt *domain.Tilt) (domain.FeatureVector, error) {
	if len(mag) == 0 {
		return domain.FeatureVector{}, &domain.InvalidInputError{Reason: "empty signal"}
	}
	if samplingRate <= 0 || math.IsNaN(samplingRate) || math.IsInf(samplingRate, 0) {
		return domain.FeatureVector{}, &domain.InvalidInputError{Reason: fmt.Sprintf("sampling rate must be > 0, got %g", samplingRate)}
	}
	if !finite(mag) {
		return domain.FeatureVector{}, &domain.InvalidInputError{Reason: "signal has non-finite samples"}
	}

	mean, variance := stat.PopMeanVariance(mag, nil)
	fv := domain.FeatureVector{
		VibMean: mean,
		VibStd:  math.Sqrt(variance),
		VibVar:  variance,
		VibMax:  floats.Max(mag),
		VibMin:  floats.Min(mag),
	}

	sp := ComputeSpectrum(mag, samplingRate)
	peaks := sp.Peaks()
	if len(peaks) > 0 {
		fv.PeakFreq = peaks[0].Freq
		fv.PeakAmp = peaks[0].Amp
	}
	fv.SpectralEnergy = sp.Energy()
	fv.HarmonicCount = HarmonicCount(peaks)
	fv.TiltDev, fv.TiltRate = tiltFeatures(tilt, samplingRate)

	if !finite(fv.Values()) {
		return domain.FeatureVector{}, &domain.InvalidInputError{Reason: "features are not finite"}
	}
	return fv, nil
}

// ExtractReading conditions a raw reading and extracts its features.
func ExtractReading(r domain.RawReading) (domain.FeatureVector, error) {
	mag, err := Condition(r)
	if err != nil {
		return domain.FeatureVector{}, err
	}
	return Extract(mag, r.SamplingRate, r.Tilt)
}

func tiltFeatures(t *domain.Tilt, samplingRate float64) (dev, rate float64) {
	if t == nil {
		return 0, 0
	}
	if !t.IsSeries {
		return 0, t.Value
	}
	n := len(t.Series)
	if n < 2 {
		return 0, 0
	}
	_, variance := stat.PopMeanVariance(t.Series, nil)
	elapsed := float64(n) / samplingRate
	return math.Sqrt(variance), (t.Series[n-1] - t.Series[0]) / elapsed
}
