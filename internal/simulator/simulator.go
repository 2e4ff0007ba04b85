// Package simulator generates raw accelerometer readings for running the twin
// without hardware. A normal reading carries the structure's vibration modes
// on the x axis and sensor noise on all three axes; an anomalous one replaces
// the x axis with a large low-frequency swing. The same generator, with
// anomalies off, produces the baseline training corpus.
package simulator

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// Mode is a structural vibration mode. Each reading draws its frequency from
// N(Freq, FreqJitter) and its amplitude from U(Amp, Amp+AmpSpread).
type Mode struct {
	Freq       float64
	FreqJitter float64
	Amp        float64
	AmpSpread  float64
}

// DefaultModes are the two modes near 5 Hz and 12 Hz.
func DefaultModes() []Mode {
	return []Mode{
		{Freq: 5, FreqJitter: 0.2, Amp: 0.08, AmpSpread: 0.04},
		{Freq: 12, FreqJitter: 0.5, Amp: 0.04, AmpSpread: 0.03},
	}
}

type Config struct {
	Samples      int
	SamplingRate float64
	Modes        []Mode
	Noise        float64
	AnomalyRate  float64
	// AnomalyAmplitude scales sin over [0, AnomalySpan] radians.
	AnomalyAmplitude float64
	AnomalySpan      float64
	Seed             int64
}

func DefaultConfig() Config {
	return Config{
		Samples:          500,
		SamplingRate:     200,
		Modes:            DefaultModes(),
		Noise:            0.02,
		AnomalyRate:      0.15,
		AnomalyAmplitude: 1.2,
		AnomalySpan:      20,
		Seed:             1,
	}
}

func (c Config) Validate() error {
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be > 0, got %d", c.Samples)
	}
	if c.SamplingRate <= 0 {
		return fmt.Errorf("sampling rate must be > 0, got %g", c.SamplingRate)
	}
	if c.AnomalyRate < 0 || c.AnomalyRate > 1 {
		return fmt.Errorf("anomaly rate must be in [0,1], got %g", c.AnomalyRate)
	}
	if c.Noise < 0 {
		return fmt.Errorf("noise must be >= 0, got %g", c.Noise)
	}
	for i, m := range c.Modes {
		if m.Freq <= 0 || m.Amp < 0 || m.FreqJitter < 0 || m.AmpSpread < 0 {
			return fmt.Errorf("mode %d: frequency must be > 0 and jitter, amplitude and spread >= 0", i)
		}
	}
	return nil
}

// SynthSignal sums sinusoids of the given frequencies and amplitudes and adds
// Gaussian noise with standard deviation noise.
func SynthSignal(rng *rand.Rand, fs float64, n int, freqs, amps []float64, noise float64) []float64 {
	s := make([]float64, n)
	tone := make([]float64, n)
	for k, f := range freqs {
		for i := range tone {
			tone[i] = math.Sin(2 * math.Pi * f * float64(i) / fs)
		}
		floats.AddScaled(s, amps[k], tone)
	}
	for i := range s {
		s[i] += rng.NormFloat64() * noise
	}
	return s
}

// Generator is not safe for concurrent use.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	swing []float64
}

func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	swing := make([]float64, cfg.Samples)
	if cfg.Samples > 1 {
		floats.Span(swing, 0, cfg.AnomalySpan)
	}
	for i, v := range swing {
		swing[i] = math.Sin(v) * cfg.AnomalyAmplitude
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed)), swing: swing}, nil
}

// Next returns a fresh reading and whether an anomaly was injected into it.
func (g *Generator) Next() (domain.RawReading, bool) {
	freqs := make([]float64, len(g.cfg.Modes))
	amps := make([]float64, len(g.cfg.Modes))
	for i, m := range g.cfg.Modes {
		freqs[i] = m.Freq + g.rng.NormFloat64()*m.FreqJitter
		amps[i] = m.Amp + g.rng.Float64()*m.AmpSpread
	}
	r := domain.RawReading{
		AX:           SynthSignal(g.rng, g.cfg.SamplingRate, g.cfg.Samples, freqs, amps, g.cfg.Noise),
		AY:           g.noise(),
		AZ:           g.noise(),
		SamplingRate: g.cfg.SamplingRate,
	}
	anomalous := g.rng.Float64() < g.cfg.AnomalyRate
	if anomalous {
		r.AX = append([]float64(nil), g.swing...)
	}
	return r, anomalous
}

func (g *Generator) noise() []float64 {
	out := make([]float64, g.cfg.Samples)
	for i := range out {
		out[i] = g.rng.NormFloat64() * g.cfg.Noise
	}
	return out
}
