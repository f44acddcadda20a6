package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"door43-helps-engine/internal/articles"
	"door43-helps-engine/internal/config"
	"door43-helps-engine/internal/parser"
	"door43-helps-engine/pkg/logger"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("HELPS_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.New("error", "text").Errorf("load config: %v", err)
		os.Exit(1)
	}
	l := logger.New(cfg.Log.Level, cfg.Log.Format)

	s := &server{
		cfg:      cfg,
		log:      l,
		resolver: articles.New(cfg.Language, cfg.Resources, articles.WithLogger(l.Slog())),
		parser:   parser.New(),
		metrics:  newMetrics(),
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      logRequest(l, s.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Infof("server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Infof("bye")
}
