package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/broker"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/cloud"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/config"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/structural-health-twin/internal/http"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/pipeline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/repository"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/scorer"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/staging"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/transport"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(config.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calibration, err := config.Calibration()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid calibration")
	}
	policy, err := config.Policy()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid pillar policy")
	}
	tw, err := twin.New(policy)
	if err != nil {
		log.Fatal().Err(err).Msg("twin init failed")
	}

	if config.EmbeddedBroker() {
		b, err := broker.Start(config.EmbeddedBrokerAddr())
		if err != nil {
			log.Fatal().Err(err).Msg("embedded broker failed")
		}
		defer b.Close()
	}

	fanout := transport.NewFanout()

	client, err := connectMQTT()
	if err != nil {
		if config.ReadingSource() == "mqtt" {
			log.Fatal().Err(err).Msg("mqtt connect")
		}
		log.Warn().Err(err).Msg("mqtt unavailable, state will not be published over mqtt")
	} else {
		defer client.Disconnect(250)
		fanout.Add("mqtt", transport.NewMQTTPublisher(client, config.StateTopic()))
	}

	var slot staging.Slot
	switch config.ReadingSource() {
	case "mqtt":
		ms := staging.NewMQTTSlot(config.ReadingTopic(), config.SamplingRate())
		if err := ms.Subscribe(client); err != nil {
			log.Fatal().Err(err).Msg("subscribe failed")
		}
		slot = ms
	case "file":
		slot = staging.NewFileSlot(afero.NewOsFs(), config.ReadingPath(), config.SamplingRate())
	default:
		log.Fatal().Str("source", config.ReadingSource()).Msg("READING_SOURCE must be file or mqtt")
	}

	hub := transport.NewHub()
	go hub.Run(ctx)
	fanout.Add("websocket", hub)

	var history httpHandlers.HistorySource
	if config.HistoryEnabled() {
		db, err := database.Connect(ctx, config.DBDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer db.Close()
		repos := repository.New(db)
		if err := repos.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema setup failed")
		}
		fanout.Add("history", repository.NewHistoryRecorder(repos))
		history = repos
	}

	var store baseline.ArtifactStore = baseline.NewFileStore(afero.NewOsFs(), config.ModelPath())
	if config.UseCloudServices() {
		s3Client, err := cloud.NewS3Client(ctx, config.AWSRegion(), config.S3Bucket())
		if err != nil {
			log.Fatal().Err(err).Msg("s3 client init failed")
		}
		store = cloud.NewS3ArtifactStore(s3Client, config.ModelS3Key())

		if arn := config.SNSTopicArn(); arn != "" {
			snsClient, err := cloud.NewSNSClient(ctx, config.AWSRegion(), arn)
			if err != nil {
				log.Fatal().Err(err).Msg("sns client init failed")
			}
			fanout.Add("alerts", cloud.NewAlertNotifier(snsClient))
		}
	}

	sc := scorer.New(scorer.NewLazyProvider(scorer.FromStore(store)), calibration)
	loop := pipeline.New(slot, sc, tw, fanout, config.CycleInterval())

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", hub)
	wsServer := &http.Server{Addr: config.WSAddr(), Handler: wsMux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Str("addr", config.WSAddr()).Msg("websocket listening")
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("websocket server exit")
			stop()
		}
	}()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(app, &httpHandlers.Services{
		Twin:         tw,
		Scorer:       sc,
		History:      history,
		Publisher:    fanout,
		Stats:        loop.Stats,
		SamplingRate: config.SamplingRate(),
	})
	go func() {
		log.Info().Str("addr", config.APIAddr()).Msg("api listening")
		if err := app.Listen(config.APIAddr()); err != nil {
			log.Error().Err(err).Msg("api server exit")
			stop()
		}
	}()

	log.Info().
		Str("source", config.ReadingSource()).
		Strs("pillars", tw.Components()).
		Int("sinks", fanout.Len()).
		Msg("twin running; Ctrl+C to stop")
	_ = loop.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api shutdown")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("websocket shutdown")
	}
}

func connectMQTT() (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID()).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, errors.New("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return client, nil
}
