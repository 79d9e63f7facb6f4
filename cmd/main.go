package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"media_gallery/internal/events"
	"media_gallery/internal/gallery"
	"media_gallery/internal/logger"
	"media_gallery/internal/models"
	"media_gallery/internal/server"
	"media_gallery/internal/stats"
	"media_gallery/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := models.LoadConfig(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		videoStore, imageStore gallery.Store
		ready                  func(context.Context) error
	)
	switch cfg.StorageDriver {
	case models.StorageDriverMemory:
		videos := storage.NewMemoryStore(models.KindVideo)
		videoStore, imageStore, ready = videos, storage.NewMemoryStore(models.KindImage), videos.Ping
		log.Warn().Msg("using in-memory storage, records are lost on exit")
	default:
		db, err := storage.NewStorage(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init storage")
		}
		defer db.Close()
		videoStore, imageStore, ready = db.Media(models.KindVideo), db.Media(models.KindImage), db.Ping
	}

	var opts []gallery.Option
	var producer *events.Producer
	if cfg.KafkaEnabled {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		defer producer.Close()
		opts = append(opts, gallery.WithNotifier(producer))
	}

	videos := gallery.NewManager(videoStore, log, opts...)
	images := gallery.NewManager(imageStore, log, opts...)
	aggregator := stats.New(log, images, videos)

	// Generation ingest runs in the background until shutdown.
	var wg sync.WaitGroup
	if cfg.KafkaEnabled {
		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaIngestTopic, cfg.KafkaIngestGroup,
			map[models.MediaKind]events.Recorder{
				models.KindVideo: videos,
				models.KindImage: images,
			}, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			consumer.Run(ctx)
		}()
	}

	srv := server.NewServer(cfg, log, server.Deps{
		Videos: videos,
		Images: images,
		Stats:  aggregator,
		Ready:  ready,
	})
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}

	stop()
	wg.Wait()
	log.Info().Msg("media gallery exited")
}
