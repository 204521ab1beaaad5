// Command quakealert watches Japanese earthquake and tsunami feeds and
// announces each new state change by sound cue, speech, and optional relays.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/couchcryptid/quake-alert/internal/adapter/audio"
	"github.com/couchcryptid/quake-alert/internal/adapter/bouyomi"
	"github.com/couchcryptid/quake-alert/internal/adapter/httpadapter"
	"github.com/couchcryptid/quake-alert/internal/adapter/jma"
	kafkaadapter "github.com/couchcryptid/quake-alert/internal/adapter/kafka"
	natsadapter "github.com/couchcryptid/quake-alert/internal/adapter/nats"
	"github.com/couchcryptid/quake-alert/internal/adapter/poll"
	"github.com/couchcryptid/quake-alert/internal/adapter/stream"
	"github.com/couchcryptid/quake-alert/internal/config"
	"github.com/couchcryptid/quake-alert/internal/dedup"
	"github.com/couchcryptid/quake-alert/internal/dispatch"
	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/couchcryptid/quake-alert/internal/observability"
	"github.com/couchcryptid/quake-alert/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// relayTimeout bounds each relay publish.
const relayTimeout = 5 * time.Second

type closer interface{ Close() error }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "quake-alert")
	metrics := observability.NewMetrics()

	book, err := domain.PhrasebookFor(cfg.Locale)
	if err != nil {
		logger.Error("failed to load phrasebook", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, closers, err := buildSinks(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to set up sinks", "error", err)
		os.Exit(1)
	}

	store := dedup.NewStore()
	dispatcher := dispatch.New(dispatch.Config{
		QueueSize:     cfg.DispatchQueueSize,
		SpeechTimeout: cfg.TTSTimeout,
		RelayTimeout:  relayTimeout,
	}, sinks, logger, metrics)

	processor := pipeline.NewProcessor(store, domain.NewComposer(book), logger, metrics)
	extractors, extractorClosers := buildExtractors(cfg, logger, metrics)
	closers = append(closers, extractorClosers...)
	if len(extractors) == 0 {
		logger.Error("no feeds enabled")
		os.Exit(1)
	}

	p := pipeline.New(extractors, processor, dispatcher, logger, metrics, cfg.StreamReconnectBackoff)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := dispatcher.Run(ctx); err != nil {
			logger.Error("dispatcher error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if n := dispatcher.Drain(shutdownCtx); n > 0 {
		logger.Info("delivered queued alerts", "count", n)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (dispatch.Sinks, []closer, error) {
	var sinks dispatch.Sinks
	var closers []closer

	if cfg.AudioEnabled {
		table := audio.NewCueTable()
		if cfg.SoundTablePath != "" {
			files, err := audio.LoadCueTable(cfg.SoundTablePath)
			if err != nil {
				return sinks, nil, err
			}
			table.Replace(files)
			if err := audio.WatchCueTable(ctx, cfg.SoundTablePath, table, logger, metrics); err != nil {
				return sinks, nil, err
			}
		}
		sinks.Player = audio.NewPlayer(cfg.SoundsDir, table, logger)
		logger.Info("sound cues enabled", "dir", cfg.SoundsDir, "cues", table.Len())
	}

	if cfg.TTSEnabled {
		voice := bouyomi.Voice{Voice: cfg.TTSVoice, Volume: cfg.TTSVolume, Speed: cfg.TTSSpeed, Tone: cfg.TTSTone}
		sinks.Speaker = bouyomi.NewClient(cfg.TTSURL, cfg.TTSTimeout, voice, logger)
		metrics.SpeechEnabled.Set(1)
		logger.Info("speech enabled", "url", cfg.TTSURL)
	}

	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		sinks.Relays = append(sinks.Relays, w)
		closers = append(closers, w)
		logger.Info("kafka relay enabled", "topic", cfg.KafkaAlertTopic)
	}

	if cfg.NATSURL != "" {
		pub, err := natsadapter.Connect(natsadapter.Config{
			URL:            cfg.NATSURL,
			Subject:        cfg.NATSSubject,
			MaxReconnects:  cfg.NATSMaxReconnects,
			ReconnectWait:  cfg.NATSReconnectWait,
			ConnectTimeout: relayTimeout,
		}, logger)
		if err != nil {
			return sinks, nil, err
		}
		sinks.Relays = append(sinks.Relays, pub)
		closers = append(closers, pub)
		logger.Info("nats relay enabled", "subject", cfg.NATSSubject)
	}

	return sinks, closers, nil
}

func buildExtractors(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) ([]pipeline.Extractor, []closer) {
	var extractors []pipeline.Extractor
	var closers []closer

	if cfg.EEWStreamURL != "" {
		s := stream.NewExtractor("wolfx-eew", cfg.EEWStreamURL, domain.KindEEW, logger)
		extractors = append(extractors, s)
		closers = append(closers, s)
	}
	if cfg.QuakeStreamURL != "" {
		s := stream.NewExtractor("p2pquake", cfg.QuakeStreamURL, domain.KindQuakeStream, logger)
		extractors = append(extractors, s)
		closers = append(closers, s)
	}
	if cfg.PollEnabled {
		extractors = append(extractors,
			poll.NewExtractor("p2p-bulletins", cfg.BulletinPollURL, domain.KindBulletinList, cfg.PollInterval, cfg.PollInterval, logger),
			poll.NewExtractor("p2p-tsunami", cfg.TsunamiPollURL, domain.KindTsunamiList, cfg.PollInterval, cfg.PollInterval, logger),
		)
	}
	if cfg.JMAFeedURL != "" {
		extractors = append(extractors, jma.NewExtractor("jma", jma.Config{
			FeedURL:   cfg.JMAFeedURL,
			Interval:  cfg.JMAPollInterval,
			Timeout:   10 * time.Second,
			CacheSize: cfg.JMACacheSize,
		}, logger, metrics))
	}

	for _, e := range extractors {
		logger.Info("feed enabled", "source", e.Name())
	}
	return extractors, closers
}
