// Package baseline learns what "normal" vibration looks like and scores new
// feature vectors against it.
package baseline

import (
	"fmt"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// Model is a fitted outlier model over feature vectors. Implementations are
// immutable once built and safe for concurrent use.
//
// Score expects values ordered exactly as Features(); a different ordering
// yields meaningless classifications, so callers project with Evaluate.
type Model interface {
	Features() []string
	// Score returns a decision score (higher is more normal) and whether the
	// vector falls outside the fitted boundary.
	Score(x []float64) (float64, bool)
}

// DefaultFeatures is the ordering the reference model is trained on.
var DefaultFeatures = []string{
	domain.FeaturePeakFreq,
	domain.FeaturePeakAmp,
	domain.FeatureSpectralEnergy,
	domain.FeatureHarmonicCount,
	domain.FeatureVibVar,
	domain.FeatureTiltRate,
}

// Evaluate projects fv onto the model's own feature ordering and scores it.
func Evaluate(m Model, fv domain.FeatureVector) (float64, bool, error) {
	x, err := fv.Select(m.Features())
	if err != nil {
		return 0, false, fmt.Errorf("project features: %w", err)
	}
	score, anomaly := m.Score(x)
	return score, anomaly, nil
}

func validateFeatures(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("no features configured")
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !domain.ValidFeatureName(name) {
			return fmt.Errorf("unknown feature %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
	}
	return nil
}
