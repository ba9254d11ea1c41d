// Command musicaid runs the music generation orchestrator as a
// long-lived daemon.
//
// Usage:
//
//	musicaid -config config.yaml
//
// Credentials are taken from the environment:
//
//	KAGGLE_JSON_1..N       kaggle.json contents, one per account
//	GDRIVE_ACCESS_TOKEN    OAuth bearer token for the Drive archive
//	TELEGRAM_BOT_TOKEN     optional, enables operator notifications
//	TELEGRAM_CHAT_ID       required alongside TELEGRAM_BOT_TOKEN
//	SPOTIPY_CLIENT_ID      optional, enables trend-biased prompts
//	SPOTIPY_CLIENT_SECRET  required alongside SPOTIPY_CLIENT_ID
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/engine"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/journal"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/observability"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform/gdrive"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform/kaggle"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform/spotify"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	journalPath := flag.String("journal", "", "append lifecycle events to this file as JSON lines")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *journalPath, logger); err != nil {
		logger.Error("musicaid exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath, journalPath string, logger *slog.Logger) error {
	cfg, err := musicai.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Warn("config file not found, using defaults", slog.String("path", configPath))
		cfg = musicai.DefaultConfig()
	}

	credentials := make([]string, 0, cfg.Accounts)
	for i := 1; i <= cfg.Accounts; i++ {
		raw := os.Getenv(fmt.Sprintf("KAGGLE_JSON_%d", i))
		if raw == "" {
			return fmt.Errorf("KAGGLE_JSON_%d not set; need credentials for all %d accounts", i, cfg.Accounts)
		}
		credentials = append(credentials, raw)
	}

	driveToken := os.Getenv("GDRIVE_ACCESS_TOKEN")
	if driveToken == "" {
		return fmt.Errorf("GDRIVE_ACCESS_TOKEN not set")
	}

	compute, err := kaggle.New(cfg.NotebookSlug, credentials, cfg.WorkDir,
		kaggle.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("kaggle client: %w", err)
	}

	objects := gdrive.New(gdrive.StaticToken(driveToken),
		gdrive.WithLogger(logger))

	opts := []engine.Option{
		engine.WithCompute(compute),
		engine.WithObjectStore(objects),
		engine.WithExtension(observability.NewMetricsExtension()),
		engine.WithLogger(logger),
	}

	if journalPath != "" {
		rec, err := journal.NewFileRecorder(journalPath)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, engine.WithExtension(journal.New(rec, journal.WithLogger(logger))))
	}

	var notifier platform.Notifier
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID := os.Getenv("TELEGRAM_CHAT_ID")
		if chatID == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN set but TELEGRAM_CHAT_ID missing")
		}
		notifier = telegram.New(token, chatID, telegram.WithLogger(logger))
		opts = append(opts, engine.WithNotifier(notifier))
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, operator notifications disabled")
	}

	if id := os.Getenv("SPOTIPY_CLIENT_ID"); id != "" {
		secret := os.Getenv("SPOTIPY_CLIENT_SECRET")
		if secret == "" {
			return fmt.Errorf("SPOTIPY_CLIENT_ID set but SPOTIPY_CLIENT_SECRET missing")
		}
		opts = append(opts, engine.WithTrendSource(spotify.New(id, secret, spotify.WithLogger(logger))))
	} else {
		logger.Info("SPOTIPY_CLIENT_ID not set, prompts will not be trend-biased")
	}

	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.StartRun(ctx); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	logger.Info("musicaid started",
		slog.Int("accounts", cfg.Accounts),
		slog.String("notebook", cfg.NotebookSlug),
		slog.Duration("cycle_interval", cfg.CycleInterval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received, finishing current cycle")
		if notifier != nil {
			_ = notifier.Send(context.WithoutCancel(ctx), platform.SeverityInfo,
				"orchestrator shutting down")
		}
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("musicaid stopped")
	return nil
}
