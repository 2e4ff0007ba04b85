// Package staging holds the "current reading" slot the scoring loop pulls
// from. Producers replace the slot wholesale; readers always get a private
// copy of the latest complete reading.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// ErrNoReading means nothing has been staged yet.
var ErrNoReading = errors.New("no reading staged")

// Slot returns the most recent complete reading.
type Slot interface {
	Latest(ctx context.Context) (domain.RawReading, error)
}

// DecodeReading parses an ingress payload. A missing "fs" falls back to
// defaultRate. Malformed or inconsistent payloads are invalid input.
func DecodeReading(data []byte, defaultRate float64) (domain.RawReading, error) {
	var r domain.RawReading
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.RawReading{}, &domain.InvalidInputError{Reason: fmt.Sprintf("malformed reading: %v", err)}
	}
	if r.SamplingRate == 0 {
		r.SamplingRate = defaultRate
	}
	if err := r.Validate(); err != nil {
		return domain.RawReading{}, err
	}
	return r, nil
}

// EncodeReading is the wire form producers write into a slot.
func EncodeReading(r domain.RawReading) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return data, nil
}
