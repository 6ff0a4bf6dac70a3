package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Station-Manager/webserial"
	"github.com/Station-Manager/webserial/web"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to config JSON file (optional)")
		listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
		lang       = flag.String("lang", "", "Notification language, e.g. en or ru (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	cfg := webserial.DefaultAppConfig()
	if *configFile != "" {
		loaded, err := webserial.LoadAppConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *lang != "" {
		cfg.Language = *lang
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, logCloser, err := webserial.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	session := webserial.NewSession(
		webserial.WithLogger(logger.With().Str("component", "session").Logger()),
		webserial.WithLanguage(webserial.MatchLanguage(cfg.Language)),
		webserial.WithObserver(webserial.NewLogObserver(logger.With().Str("component", "events").Logger())),
	)

	srv := web.New(session,
		web.WithLogger(logger.With().Str("component", "web").Logger()),
		web.WithDefaults(cfg.Port),
	)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("serving")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	logger.Info().Msg("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := session.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing session: %v\n", err)
	}
}
