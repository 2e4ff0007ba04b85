package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawReading is one acquisition window from the structure's sensors.
type RawReading struct {
	AX           []float64 `json:"ax"`
	AY           []float64 `json:"ay,omitempty"`
	AZ           []float64 `json:"az,omitempty"`
	Tilt         *Tilt     `json:"tilt,omitempty"`
	SamplingRate float64   `json:"fs,omitempty"`
}

// Axes returns the supplied acceleration axes in x, y, z order.
func (r RawReading) Axes() [][]float64 {
	axes := [][]float64{r.AX}
	if r.AY != nil {
		axes = append(axes, r.AY)
	}
	if r.AZ != nil {
		axes = append(axes, r.AZ)
	}
	return axes
}

// Validate checks the ingress invariants of a reading.
func (r RawReading) Validate() error {
	if len(r.AX) == 0 {
		return &InvalidInputError{Reason: "ax is required"}
	}
	if (r.AY == nil) != (r.AZ == nil) {
		return &InvalidInputError{Reason: "ay and az must be supplied together"}
	}
	if r.AY != nil && (len(r.AY) != len(r.AX) || len(r.AZ) != len(r.AX)) {
		return &InvalidInputError{Reason: fmt.Sprintf("axis length mismatch: ax=%d ay=%d az=%d", len(r.AX), len(r.AY), len(r.AZ))}
	}
	if r.SamplingRate <= 0 {
		return &InvalidInputError{Reason: fmt.Sprintf("sampling rate must be > 0, got %g", r.SamplingRate)}
	}
	return nil
}

// Tilt is either a single inclination value or a time series of them.
type Tilt struct {
	Series   []float64
	Value    float64
	IsSeries bool
}

func TiltValue(v float64) *Tilt         { return &Tilt{Value: v} }
func TiltSeries(series []float64) *Tilt { return &Tilt{Series: series, IsSeries: true} }

func (t Tilt) MarshalJSON() ([]byte, error) {
	if t.IsSeries {
		return json.Marshal(t.Series)
	}
	return json.Marshal(t.Value)
}

func (t *Tilt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var series []float64
		if err := json.Unmarshal(data, &series); err != nil {
			return fmt.Errorf("tilt series: %w", err)
		}
		*t = Tilt{Series: series, IsSeries: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("tilt value: %w", err)
	}
	*t = Tilt{Value: v}
	return nil
}

// Status tags attached to every scored reading.
const (
	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Details labels.
const (
	DetailsNormal           = "normal"
	DetailsAnomaly          = "anomaly_detected"
	DetailsModelUnavailable = "model_unavailable"
	DetailsInvalidInput     = "invalid_input"
)

// AnomalyResult is the outcome of scoring one RawReading.
type AnomalyResult struct {
	Score       float64       `json:"score"`
	IsAnomaly   bool          `json:"is_anomaly"`
	HealthScore int           `json:"health_score"`
	Status      string        `json:"status"`
	Details     string        `json:"details"`
	Features    FeatureVector `json:"features"`
	Error       string        `json:"error,omitempty"`
}

// Degraded reports whether the result carries no health information.
func (r AnomalyResult) Degraded() bool { return r.Error != "" }

// AnomalyMetric maps the health score onto [0,1], 0 meaning fully normal.
func (r AnomalyResult) AnomalyMetric() float64 {
	if r.Degraded() {
		return 0
	}
	m := float64(100-r.HealthScore) / 100
	if m < 0 {
		return 0
	}
	if m > 1 {
		return 1
	}
	return m
}

// NeutralResult is what a cycle reports when it could not produce a real
// score. Absence of a model is treated optimistically: full health, status ok.
func NeutralResult(details string, err error) AnomalyResult {
	res := AnomalyResult{
		HealthScore: 100,
		Status:      StatusOK,
		Details:     details,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
