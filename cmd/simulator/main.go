package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/config"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/simulator"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/staging"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(config.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := simulator.DefaultConfig()
	cfg.Samples = config.SimSamples()
	cfg.SamplingRate = config.SamplingRate()
	cfg.AnomalyRate = config.SimAnomalyRate()
	cfg.Seed = time.Now().UnixNano()
	gen, err := simulator.NewGenerator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("simulator config")
	}

	var client mqtt.Client
	if config.ReadingSource() == "mqtt" {
		opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker()).SetClientID(config.MQTTClientID() + "-sim")
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Fatal().Err(token.Error()).Msg("mqtt connect")
		}
		defer client.Disconnect(250)
	}
	slot := staging.NewFileSlot(afero.NewOsFs(), config.ReadingPath(), config.SamplingRate())

	ticker := time.NewTicker(config.SimInterval())
	defer ticker.Stop()
	log.Info().Str("source", config.ReadingSource()).Dur("interval", config.SimInterval()).Msg("simulator running; Ctrl+C to stop")

	for {
		r, anomalous := gen.Next()
		if client != nil {
			payload, err := staging.EncodeReading(r)
			if err != nil {
				log.Error().Err(err).Msg("encode reading")
			} else {
				token := client.Publish(config.ReadingTopic(), 1, false, payload)
				token.Wait()
				if err := token.Error(); err != nil {
					log.Error().Err(err).Msg("publish reading")
				}
			}
		} else if err := slot.Write(ctx, r); err != nil {
			log.Error().Err(err).Msg("stage reading")
		}
		log.Info().Bool("anomaly", anomalous).Int("samples", len(r.AX)).Msg("reading staged")

		select {
		case <-ctx.Done():
			log.Info().Msg("simulation done")
			return
		case <-ticker.C:
		}
	}
}
