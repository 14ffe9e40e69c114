package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"realtime-chat/repositories"
	"realtime-chat/runtime/workers"
	"realtime-chat/storage"
	"realtime-chat/transport"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run serves the shared message store until a signal arrives.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// 2. Storage backend
	backend, err := repositories.Open(repositories.BackendConfig{
		Name:           config.StorageBackend,
		BadgerFilepath: config.BadgerFilepath,
		SQLitePath:     config.SQLitePath,
		LimitMessages:  config.LimitMessages,
	}, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)

	// 4. Store and supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	defer func() {
		cancel()
		sup.Wait()
	}()
	store, err := storage.NewMessageStore(ctx, log, backend.Messages, sup)
	if err != nil {
		return fmt.Errorf("message store failed to start: %w", err)
	}
	go sup.Run(ctx)

	// 5. HTTP & websocket server
	server := transport.NewServer(log, store, config.PingInterval)
	httpServer := &http.Server{Addr: config.Addr, Handler: server.Routes()}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Store server listening", "addr", config.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 6. Wait for shutdown
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}
	server.Close()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown incomplete", "error", err)
	}
	log.Info("Server stopped cleanly")
	return nil
}
