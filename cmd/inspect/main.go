package main

import (
	"fmt"
	"log/slog"
	"os"
	"realtime-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"badger"`
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"data/badger"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"data/chat.db"`
	LimitMessages  *int   `envconfig:"LIMIT_MESSAGES"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"ERROR"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run dumps the stored feed, oldest first.
func run() error {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	repository, closeDB, err := openRepository(config, log)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer closeDB()

	messages, err := repository.ListMessages()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Created At", "Author", "Message", "ID"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		table.Append([]string{
			m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			m.UserEmail,
			m.Text,
			m.ID.String()[:8],
		})
	}
	table.Render()
	fmt.Printf("%d message(s)\n", len(messages))
	return nil
}

// openRepository opens the configured backend. Badger is opened read-only without taking its lock.
func openRepository(config Config, log *slog.Logger) (repositories.IMessageRepository, func(), error) {
	switch config.StorageBackend {
	case "badger":
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithReadOnly(true).
			WithBypassLockGuard(true).
			WithLogger(nil))
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewMessageRepository(db, log, config.LimitMessages), func() { _ = db.Close() }, nil
	case "sqlite":
		db, err := repositories.OpenSQLite(config.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewSQLMessageRepository(db, log, config.LimitMessages), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", config.StorageBackend)
	}
}
