// Package signal turns raw accelerometer axes into a vibration magnitude and
// derives the spectral and statistical features the baseline model scores.
package signal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// MaxAxes is the number of accelerometer axes a reading can carry.
const MaxAxes = 3

// Magnitude combines 1-3 equal-length axes into one vibration signal. A single
// axis yields its absolute values; several axes yield the per-sample
// Euclidean norm.
func Magnitude(axes ...[]float64) ([]float64, error) {
	if len(axes) == 0 || len(axes) > MaxAxes {
		return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("expected 1-%d axes, got %d", MaxAxes, len(axes))}
	}
	n := len(axes[0])
	for i, axis := range axes {
		if len(axis) == 0 {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("axis %d is empty", i)}
		}
		if len(axis) != n {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("axis %d has %d samples, want %d", i, len(axis), n)}
		}
		if !finite(axis) {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("axis %d has non-finite samples", i)}
		}
	}

	mag := make([]float64, n)
	if len(axes) == 1 {
		for i, v := range axes[0] {
			mag[i] = math.Abs(v)
		}
		return mag, nil
	}
	// squares of very large samples overflow
	for i := range mag {
		var sum float64
		for _, axis := range axes {
			sum += axis[i] * axis[i]
		}
		mag[i] = math.Sqrt(sum)
	}
	if !finite(mag) {
		return nil, &domain.InvalidInputError{Reason: "vibration magnitude overflows"}
	}
	return mag, nil
}

func finite(xs []float64) bool {
	if floats.HasNaN(xs) {
		return false
	}
	for _, v := range xs {
		if math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Condition validates a reading and returns its vibration magnitude.
func Condition(r domain.RawReading) ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return Magnitude(r.Axes()...)
}
