// Package training synthesizes a corpus of normal structural vibration and
// fits the baseline model on it.
package training

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/signal"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/simulator"
)

// CorpusConfig describes the normal corpus: Samples readings of Length
// samples each, drawn from the simulator with anomalies switched off.
type CorpusConfig struct {
	Samples      int
	SamplingRate float64
	Length       int
	Seed         int64
}

func DefaultCorpusConfig() CorpusConfig {
	return CorpusConfig{Samples: 800, SamplingRate: 200, Length: 500, Seed: 42}
}

// Normal is the simulator configuration the corpus is drawn from.
func (cfg CorpusConfig) Normal() simulator.Config {
	sim := simulator.DefaultConfig()
	sim.Samples = cfg.Length
	sim.SamplingRate = cfg.SamplingRate
	sim.AnomalyRate = 0
	sim.Seed = cfg.Seed
	return sim
}

// MakeCorpus returns one feature vector per simulated normal reading.
// Readings go through the same conditioning and extraction as live ones.
func MakeCorpus(cfg CorpusConfig) ([]domain.FeatureVector, error) {
	if cfg.Samples <= 0 || cfg.Length <= 0 || cfg.SamplingRate <= 0 {
		return nil, fmt.Errorf("corpus config: samples, length and sampling rate must be > 0")
	}
	gen, err := simulator.NewGenerator(cfg.Normal())
	if err != nil {
		return nil, fmt.Errorf("corpus config: %w", err)
	}
	corpus := make([]domain.FeatureVector, 0, cfg.Samples)

	for i := 0; i < cfg.Samples; i++ {
		r, _ := gen.Next()
		fv, err := signal.ExtractReading(r)
		if err != nil {
			return nil, fmt.Errorf("corpus row %d: %w", i, err)
		}
		corpus = append(corpus, fv)
	}
	return corpus, nil
}

// Train builds the corpus and fits the baseline on it.
func Train(corpusCfg CorpusConfig, modelCfg baseline.Config) (*baseline.IsolationForest, error) {
	corpus, err := MakeCorpus(corpusCfg)
	if err != nil {
		return nil, err
	}
	model, err := baseline.Fit(corpus, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("fit baseline: %w", err)
	}
	log.Info().
		Str("component", "training").
		Int("rows", len(corpus)).
		Int("trees", len(model.Trees)).
		Float64("offset", model.Offset).
		Msg("baseline trained")
	return model, nil
}
