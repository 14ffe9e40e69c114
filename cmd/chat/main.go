package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"realtime-chat/auth"
	"realtime-chat/contract"
	"realtime-chat/repositories"
	"realtime-chat/runtime/workers"
	"realtime-chat/services"
	"realtime-chat/storage"
	"realtime-chat/transport"
	"syscall"

	"github.com/Netflix/go-env"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the client and blocks until the UI quits or a signal arrives.
// Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

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

	// 4. Store, identity provider and supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	defer func() {
		cancel()
		sup.Wait()
	}()

	store, err := openStore(ctx, config, log, backend, sup)
	if err != nil {
		return err
	}
	provider := services.NewAuthService(log, backend.Users,
		auth.NewTokenIssuer([]byte(config.TokenSecret), config.TokenDuration))

	sup.Add(workers.NewSessionExpiryWorker(log, provider, config.ExpiryCheckInterval))
	go sup.Run(ctx)

	// 5. Client
	service := services.NewChatService(log, provider, store)
	defer service.Close()

	// 6. Terminal UI
	if !config.Colours {
		lipgloss.SetColorProfile(0)
	}
	program := tea.NewProgram(newModel(ctx, service), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		program.Quit()
	}()
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

// openStore connects to the shared store at STORE_URL, or runs one in process.
func openStore(ctx context.Context, config Config, log *slog.Logger,
	backend repositories.Backend, sup *workers.Supervisor) (contract.DocumentStore, error) {
	if config.StoreURL != "" {
		store, err := transport.NewRemoteStore(log, config.StoreURL, config.DialTimeout)
		if err != nil {
			return nil, fmt.Errorf("remote store: %w", err)
		}
		log.Info("Using remote store", "url", config.StoreURL)
		return store, nil
	}
	store, err := storage.NewMessageStore(ctx, log, backend.Messages, sup)
	if err != nil {
		return nil, fmt.Errorf("message store failed to start: %w", err)
	}
	return store, nil
}
