package main

import (
	"context"
	"flag"
	"strings"

	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/pipeline"
	"podcastSummarize/server"
	"podcastSummarize/services"
	"podcastSummarize/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("configuration invalid")
	}
	setupLogging(cfg.Logging)

	ctx := context.Background()
	deps := buildDeps(ctx, cfg)
	pipe := pipeline.New(deps)

	srv := server.New(cfg, pipe)
	if err := srv.ListenAndServe(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// buildDeps wires real collaborators when an API endpoint is configured
// and mocks otherwise, so the pipeline stays exercisable end to end in
// either case.
func buildDeps(ctx context.Context, cfg *config.Config) pipeline.Deps {
	log := logrus.WithField("component", "init")

	var (
		embedder    services.Embedder
		transcriber services.Transcriber
		completer   services.Completer
		acquirer    services.Acquirer
	)
	if cfg.HasValidAPI() {
		embedder = services.NewOpenAIEmbedder(cfg)
		transcriber = services.NewWhisperTranscriber(cfg)
		completer = services.NewOpenAICompleter(cfg)
		acquirer = services.YtDlpAcquirer{OutputDir: cfg.DataDir}
		log.Info("using OpenAI-backed services")
	} else {
		embedder = services.NewMockEmbedder(64)
		transcriber = services.MockTranscriber{}
		completer = services.MockCompleter{}
		acquirer = services.MockAcquirer{}
		log.Warn("no API key configured, using mock services")
	}

	var salience storage.SalienceStore
	if cfg.Storage.PostgresURL != "" {
		if pg, err := storage.NewPostgresSalienceStore(ctx, cfg.Storage.PostgresURL); err == nil {
			salience = pg
			log.Info("salience tables persisted to postgres")
		} else {
			log.WithError(err).Warn("postgres unavailable, salience tables kept in memory")
		}
	}
	if salience == nil {
		salience = storage.NewMemorySalienceStore()
	}

	return pipeline.Deps{
		Config:      cfg,
		Acquirer:    acquirer,
		Transcriber: transcriber,
		Embedder:    embedder,
		Completer:   completer,
		Vectors:     storage.NewVectorStore(ctx, cfg, embedder),
		Salience:    salience,
	}
}
