package domain

import "fmt"

// Feature names, in canonical order.
const (
	FeatureVibMean        = "vib_mean"
	FeatureVibStd         = "vib_std"
	FeatureVibVar         = "vib_var"
	FeatureVibMax         = "vib_max"
	FeatureVibMin         = "vib_min"
	FeaturePeakFreq       = "peak_freq"
	FeaturePeakAmp        = "peak_amp"
	FeatureSpectralEnergy = "spectral_energy"
	FeatureHarmonicCount  = "harmonic_count"
	FeatureTiltDev        = "tilt_dev"
	FeatureTiltRate       = "tilt_rate"
)

// FeatureNames is the full feature ordering produced by the extractor.
var FeatureNames = []string{
	FeatureVibMean,
	FeatureVibStd,
	FeatureVibVar,
	FeatureVibMax,
	FeatureVibMin,
	FeaturePeakFreq,
	FeaturePeakAmp,
	FeatureSpectralEnergy,
	FeatureHarmonicCount,
	FeatureTiltDev,
	FeatureTiltRate,
}

// FeatureVector summarises one signal window.
type FeatureVector struct {
	VibMean        float64 `json:"vib_mean"`
	VibStd         float64 `json:"vib_std"`
	VibVar         float64 `json:"vib_var"`
	VibMax         float64 `json:"vib_max"`
	VibMin         float64 `json:"vib_min"`
	PeakFreq       float64 `json:"peak_freq"`
	PeakAmp        float64 `json:"peak_amp"`
	SpectralEnergy float64 `json:"spectral_energy"`
	HarmonicCount  int     `json:"harmonic_count"`
	TiltDev        float64 `json:"tilt_dev"`
	TiltRate       float64 `json:"tilt_rate"`
}

// Get returns a feature by name.
func (f FeatureVector) Get(name string) (float64, bool) {
	switch name {
	case FeatureVibMean:
		return f.VibMean, true
	case FeatureVibStd:
		return f.VibStd, true
	case FeatureVibVar:
		return f.VibVar, true
	case FeatureVibMax:
		return f.VibMax, true
	case FeatureVibMin:
		return f.VibMin, true
	case FeaturePeakFreq:
		return f.PeakFreq, true
	case FeaturePeakAmp:
		return f.PeakAmp, true
	case FeatureSpectralEnergy:
		return f.SpectralEnergy, true
	case FeatureHarmonicCount:
		return float64(f.HarmonicCount), true
	case FeatureTiltDev:
		return f.TiltDev, true
	case FeatureTiltRate:
		return f.TiltRate, true
	}
	return 0, false
}

// Select projects the vector onto the given ordering.
func (f FeatureVector) Select(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := f.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		out[i] = v
	}
	return out, nil
}

// Values returns every feature in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	out, _ := f.Select(FeatureNames)
	return out
}

// ValidFeatureName reports whether name is produced by the extractor.
func ValidFeatureName(name string) bool {
	_, ok := FeatureVector{}.Get(name)
	return ok
}
