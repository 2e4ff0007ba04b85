package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/cloud"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/config"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/training"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(config.LogLevel())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	corpus := training.DefaultCorpusConfig()
	corpus.Samples = config.TrainSamples()
	corpus.SamplingRate = config.SamplingRate()
	corpus.Seed = config.TrainSeed()

	start := time.Now()
	model, err := training.Train(corpus, config.Training())
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}

	stores := []baseline.ArtifactStore{baseline.NewFileStore(afero.NewOsFs(), config.ModelPath())}
	if config.UseCloudServices() {
		s3Client, err := cloud.NewS3Client(ctx, config.AWSRegion(), config.S3Bucket())
		if err != nil {
			log.Fatal().Err(err).Msg("s3 client init failed")
		}
		stores = append(stores, cloud.NewS3ArtifactStore(s3Client, config.ModelS3Key()))
	}
	for _, store := range stores {
		if err := store.Save(ctx, model); err != nil {
			log.Fatal().Err(err).Msg("saving model failed")
		}
	}

	log.Info().
		Str("path", config.ModelPath()).
		Str("version", model.Version).
		Strs("features", model.Features()).
		Dur("took", time.Since(start)).
		Msg("model saved")
}
