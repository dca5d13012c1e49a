package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"zapview/internal/analytics"
	"zapview/internal/config"
	"zapview/internal/db"
	"zapview/internal/ingest"
	"zapview/internal/logger"
	"zapview/internal/ratelimit"
	"zapview/internal/server"
	"zapview/internal/timeutil"
	"zapview/internal/update"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	periodicSyncInterval = 15 * time.Minute
	watcherDebounce      = 500 * time.Millisecond
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "ingest":
			runIngest(os.Args[2:])
			return
		case "update":
			runUpdate(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("zapview %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`zapview %s - analytics dashboard for WhatsApp bot chat logs

Ingests JSONL chat exports into SQLite and serves conversation,
volume and area-code analytics over a local REST API.

Usage:
  zapview [flags]          Start the server (default command)
  zapview serve [flags]    Start the server (explicit)
  zapview ingest [flags]   Run a one-shot ingest and exit
  zapview update [flags]   Check for a newer release
  zapview version          Show version information
  zapview help             Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8080)
  -ingest-dir string  Directory of JSONL chat exports
  -timezone string    Dashboard timezone (default "America/Sao_Paulo")

Update flags:
  -force              Ignore the cached check result

Environment variables:
  ZAPVIEW_DATA_DIR    Data directory (database, config)
  ZAPVIEW_INGEST_DIR  Directory of JSONL chat exports
  ZAPVIEW_PORT        Port to listen on

Data is stored in ~/.zapview/ by default.
`, version)
}

func runServe(args []string) {
	cfg := mustLoadConfig("serve", args)
	log := logger.New("zapview")

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer database.Close()

	clock, err := timeutil.NewClock(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("zone", cfg.Timezone).
			Msg("loading timezone")
	}

	engine := ingest.NewEngine(database, cfg.IngestDir, log)
	runInitialSync(engine, log)

	stopWatcher := startWatcher(cfg, engine, log)
	defer stopWatcher()

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()
	go periodicSync(ctx, engine, log)

	limiter := ratelimit.New(cfg.RateQuota, cfg.RateWindow)
	svc := analytics.NewService(database, clock, limiter, log)

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		log.Info().Int("requested", cfg.Port).Int("using", port).
			Msg("port in use, picked another")
	}
	cfg.Port = port

	srv := server.New(cfg, svc, database, engine, log,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server error")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), 10*time.Second,
	)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func runIngest(args []string) {
	cfg := mustLoadConfig("ingest", args)
	log := logger.New("zapview")

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer database.Close()

	engine := ingest.NewEngine(database, cfg.IngestDir, log)
	stats, err := engine.Sync(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("ingest failed")
	}
	fmt.Printf(
		"Ingest complete: %d files scanned, %d ingested, %d turns, %d lines skipped\n",
		stats.FilesScanned, stats.FilesIngested,
		stats.TurnsIngested, stats.LinesSkipped,
	)
}

func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	force := fs.Bool("force", false, "Ignore the cached check result")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "parsing flags: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadMinimal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	info, err := update.Check(version, cfg.DataDir, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "update check failed: %v\n", err)
		os.Exit(1)
	}
	if info == nil {
		fmt.Printf("zapview %s is up to date\n", version)
		return
	}
	fmt.Printf("A newer version is available: %s (current: %s)\n",
		info.LatestVersion, info.CurrentVersion)
	if info.ReleaseURL != "" {
		fmt.Printf("Release notes: %s\n", info.ReleaseURL)
	}
}

func mustLoadConfig(command string, args []string) config.Config {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: zapview %s [flags]\n\nFlags:\n", command)
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "parsing flags: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "creating data dir: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runInitialSync(engine *ingest.Engine, log zerolog.Logger) {
	stats, err := engine.Sync(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("initial ingest failed")
		return
	}
	log.Info().
		Int("files", stats.FilesIngested).
		Int("turns", stats.TurnsIngested).
		Msg("initial ingest complete")
}

func startWatcher(
	cfg config.Config, engine *ingest.Engine, log zerolog.Logger,
) func() {
	if _, err := os.Stat(cfg.IngestDir); err != nil {
		log.Warn().Str("dir", cfg.IngestDir).
			Msg("ingest dir missing, watcher disabled")
		return func() {}
	}

	onChange := func() {
		if _, err := engine.Sync(context.Background()); err != nil {
			log.Warn().Err(err).Msg("watcher-triggered ingest failed")
		}
	}
	w, err := ingest.NewWatcher(cfg.IngestDir, watcherDebounce, onChange, log)
	if err != nil {
		log.Warn().Err(err).Msg("file watcher unavailable")
		return func() {}
	}
	w.Start()
	return w.Stop
}

func periodicSync(
	ctx context.Context, engine *ingest.Engine, log zerolog.Logger,
) {
	ticker := time.NewTicker(periodicSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.Sync(ctx); err != nil {
				log.Warn().Err(err).Msg("scheduled ingest failed")
			}
		}
	}
}
