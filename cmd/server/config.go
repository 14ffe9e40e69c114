package main

import "time"

type Config struct {
	Addr            string        `env:"ADDR,default=:8080"`
	StorageBackend  string        `env:"STORAGE_BACKEND,default=badger"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=data/badger"`
	SQLitePath      string        `env:"SQLITE_PATH,default=data/chat.db"`
	LogLevel        string        `env:"LOG_LEVEL,required=true"`
	LimitMessages   *int          `env:"LIMIT_MESSAGES"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	PingInterval    time.Duration `env:"PING_INTERVAL,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}
