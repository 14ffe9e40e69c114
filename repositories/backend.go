package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

type BackendConfig struct {
	Name           string
	BadgerFilepath string
	SQLitePath     string
	LimitMessages  *int
}

// Backend groups the repositories of one opened database.
type Backend struct {
	Messages IMessageRepository
	Users    IUserRepository
	Close    func()
}

// Open opens the configured database. Close releases it.
func Open(config BackendConfig, log *slog.Logger) (Backend, error) {
	switch config.Name {
	case BackendBadger:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return Backend{}, fmt.Errorf("database opening failed: %w", err)
		}
		return Backend{
			Messages: NewMessageRepository(db, log, config.LimitMessages),
			Users:    NewUserRepository(db),
			Close: func() {
				log.Info("Closing BadgerDB...")
				_ = db.Close()
			},
		}, nil
	case BackendSQLite:
		db, err := OpenSQLite(config.SQLitePath)
		if err != nil {
			return Backend{}, fmt.Errorf("database opening failed: %w", err)
		}
		return Backend{
			Messages: NewSQLMessageRepository(db, log, config.LimitMessages),
			Users:    NewSQLUserRepository(db),
			Close: func() {
				log.Info("Closing SQLite...")
				_ = db.Close()
			},
		}, nil
	default:
		return Backend{}, fmt.Errorf("unknown storage backend %q", config.Name)
	}
}
