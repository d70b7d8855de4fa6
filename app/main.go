package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/b3u/sitekit/app/api"
	"github.com/b3u/sitekit/app/cfg"
	"github.com/b3u/sitekit/app/database"
	"github.com/b3u/sitekit/app/feed"
	"github.com/b3u/sitekit/app/forms"
	"github.com/b3u/sitekit/app/ingest"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	switch appCfg.Command {
	case "serve":
		if err := runServe(appCfg); err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case "fetch":
		if err := runFetch(appCfg); err != nil {
			slog.Error("Ingestion failed", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Commands: serve, fetch\n", appCfg.Command)
		os.Exit(1)
	}
}

// runFetch is the one-shot build-time ingestion: every selected source is
// fetched, normalized and written as an artifact. Any failed source makes
// the whole run exit non-zero so the build pipeline notices, but the
// remaining sources are still attempted.
func runFetch(appCfg *cfg.Cfg) error {
	feed.SetDateLocale(appCfg.Locale)

	sources, err := feed.LoadSources(appCfg.SourcesDir)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	if len(sources) == 0 {
		sources = feed.DefaultSources(appCfg.PodcastFeedURL, appCfg.YouTubeChannel)
		slog.Debug("No source configurations found, using built-in sources", "dir", appCfg.SourcesDir)
	}

	sources = selectSources(sources, appCfg.CommandArgs)
	if len(sources) == 0 {
		return fmt.Errorf("no sources matched %v", appCfg.CommandArgs)
	}

	ingestor := ingest.NewIngestor(&http.Client{}, appCfg.DataDir, appCfg.UserAgent)
	ctx := context.Background()

	var errs []error
	for _, source := range sources {
		slog.Info("Ingesting feed", "source", source.Name, "url", source.URL)
		if _, err := ingestor.Run(ctx, source); err != nil {
			slog.Error("Failed to ingest feed", "source", source.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", source.Name, err))
		}
	}

	return errors.Join(errs...)
}

// selectSources filters by the fetch command's positional arguments;
// no arguments (or "all") selects everything.
func selectSources(sources []feed.Source, args []string) []feed.Source {
	if len(args) == 0 || slices.Contains(args, "all") {
		return sources
	}

	selected := make([]feed.Source, 0, len(sources))
	for _, source := range sources {
		if slices.Contains(args, source.Name) {
			selected = append(selected, source)
		}
	}
	return selected
}

func runServe(appCfg *cfg.Cfg) error {
	slog.Info("Starting SiteKit server...", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	subscriberRepo := database.NewSubscriberRepository(db)
	analyticsRepo := database.NewAnalyticsRepository(db)

	var store forms.Store = forms.NewMemoryStore()
	if appCfg.SessionFile != "" {
		store = forms.NewFileStore(appCfg.SessionFile)
	}

	resolver := forms.NewResolver(store, appCfg.FormsAPI, "")
	resolver.Subscribe(func(value string) {
		slog.Info("Forms endpoint changed", "forms_api", value)
	})
	slog.Info("Forms endpoint resolved", "forms_api", resolver.Resolve())

	// Server-to-server responses are always readable, so the relay requires
	// a verified status on both attempts.
	formsClient := forms.NewClient(&http.Client{Timeout: 30 * time.Second}, forms.WithStrictVerification())

	handler := api.NewHandler(subscriberRepo, analyticsRepo, resolver, formsClient)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		return err
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return nil
}
