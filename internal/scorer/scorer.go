// Package scorer turns a raw reading into an AnomalyResult by chaining the
// signal conditioner, the feature extractor and the baseline model.
package scorer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/signal"
)

// Scorer scores readings against the model supplied by its Provider.
type Scorer struct {
	provider    Provider
	calibration baseline.Calibration
}

func New(provider Provider, calibration baseline.Calibration) *Scorer {
	return &Scorer{provider: provider, calibration: calibration}
}

// ScoreReading never returns a zero result: when scoring fails the result is
// a neutral one (full health, status ok) and the error says why. Errors wrap
// domain.ErrModelUnavailable or a *domain.InvalidInputError.
func (s *Scorer) ScoreReading(ctx context.Context, raw domain.RawReading) (domain.AnomalyResult, error) {
	fv, err := signal.ExtractReading(raw)
	if err != nil {
		if !domain.IsInvalidInput(err) {
			err = &domain.InvalidInputError{Reason: err.Error()}
		}
		return domain.NeutralResult(domain.DetailsInvalidInput, err), err
	}

	if s.provider == nil {
		return domain.NeutralResult(domain.DetailsModelUnavailable, domain.ErrModelUnavailable), domain.ErrModelUnavailable
	}
	model, err := s.provider.Model(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrModelUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}
		res := domain.NeutralResult(domain.DetailsModelUnavailable, err)
		res.Features = fv
		return res, err
	}

	score, anomaly, err := baseline.Evaluate(model, fv)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		res := domain.NeutralResult(domain.DetailsModelUnavailable, err)
		res.Features = fv
		return res, err
	}
	return s.calibration.Result(score, anomaly, fv), nil
}
