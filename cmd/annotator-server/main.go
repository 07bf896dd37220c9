package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	server "github.com/pelagiclabs/annotator/internal"
	"github.com/pelagiclabs/annotator/internal/config"
	"github.com/pelagiclabs/annotator/internal/draft/repositoryimpl"
	"github.com/pelagiclabs/annotator/internal/eventbus"
	"github.com/pelagiclabs/annotator/internal/spectrogram"
	"github.com/pelagiclabs/annotator/internal/taskapi"
	"github.com/pelagiclabs/annotator/internal/workbench"
	"github.com/pelagiclabs/annotator/pkg/clog"
	"github.com/pelagiclabs/annotator/pkg/storage"
)

var (
	app          = kingpin.New("annotator-server", "Bioacoustic annotation workbench server.")
	serveCmd     = app.Command("serve", "Run the workbench server.").Default()
	sentinelCmd  = app.Command("sentinel", "Supervise the server binary and restart it on deploys.")
	tilesFromVar = serveCmd.Flag("tiles-from", "Tile byte source: http or storage.").Default("http").Enum("http", "storage")
)

func main() {
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case sentinelCmd.FullCommand():
		runSentinel()
	case serveCmd.FullCommand():
		runServe(*tilesFromVar)
	}
}

func runServe(tilesFrom string) {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup campaign client and repositories
	campaignClient := taskapi.NewClient(config.CampaignEnvFromEnv(env))
	draftRepo := repositoryimpl.NewYAMLRepository(store)

	// Setup the tile fetcher. Campaigns hosting tiles next to the drafts
	// bucket can read them straight from storage instead of over HTTP.
	var fetcher spectrogram.Fetcher
	switch tilesFrom {
	case "storage":
		fetcher = spectrogram.NewStorageFetcher(store)
	default:
		fetcher = spectrogram.NewHTTPFetcher(nil)
	}

	// Setup sessions
	registry := workbench.NewRegistry(bus, campaignClient, draftRepo, fetcher)
	workbenchServer := workbench.NewServer(registry)

	srv := server.NewServer(env, workbenchServer)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	registry.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
