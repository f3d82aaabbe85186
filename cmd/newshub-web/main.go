package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ainewshub/ainewshub"
)

func main() {
	dbPath := flag.String("db", "./newshub.db", "path to SQLite database")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "newshub-web: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	engine, err := ainewshub.NewEngine(ainewshub.EngineConfig{
		DBPath: *dbPath,
	}, logger)
	if err != nil {
		logger.Fatal("engine startup failed", zap.Error(err))
	}
	defer engine.Close()

	mux := newRouter(engine)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      logging(logger, recovery(logger, mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-done
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("shutdown failed", zap.Error(err))
	}
	logger.Info("stopped")
}
