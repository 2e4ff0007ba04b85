package baseline

import (
	"fmt"
	"math"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// CriticalHealth is the health score below which a reading is critical.
const CriticalHealth = 40

// Calibration is the reference interval raw decision scores are mapped from
// onto the 0-100 health scale. It is an installation setting, not something
// learned from the corpus.
type Calibration struct {
	LowBound  float64
	HighBound float64
}

// DefaultCalibration is the reference interval [-0.2, 0.2].
func DefaultCalibration() Calibration {
	return Calibration{LowBound: -0.2, HighBound: 0.2}
}

func (c Calibration) Validate() error {
	for _, b := range []float64{c.LowBound, c.HighBound} {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("calibration: bounds must be finite, got [%g, %g]", c.LowBound, c.HighBound)
		}
	}
	if !(c.HighBound > c.LowBound) {
		return fmt.Errorf("calibration: high bound %g must exceed low bound %g", c.HighBound, c.LowBound)
	}
	return nil
}

// Health maps a raw decision score linearly onto [0,100].
func (c Calibration) Health(raw float64) int {
	h := (raw - c.LowBound) / (c.HighBound - c.LowBound) * 100
	if math.IsNaN(h) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, h))))
}

// Status derives the status tag for a scored reading.
func Status(health int, anomaly bool) string {
	switch {
	case health < CriticalHealth:
		return domain.StatusCritical
	case anomaly:
		return domain.StatusWarning
	}
	return domain.StatusOK
}

// Details is the short categorical label for a scored reading.
func Details(anomaly bool) string {
	if anomaly {
		return domain.DetailsAnomaly
	}
	return domain.DetailsNormal
}

// Result assembles the AnomalyResult for a scored feature vector.
func (c Calibration) Result(raw float64, anomaly bool, fv domain.FeatureVector) domain.AnomalyResult {
	health := c.Health(raw)
	return domain.AnomalyResult{
		Score:       raw,
		IsAnomaly:   anomaly,
		HealthScore: health,
		Status:      Status(health, anomaly),
		Details:     Details(anomaly),
		Features:    fv,
	}
}
