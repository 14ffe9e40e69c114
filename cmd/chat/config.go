package main

import "time"

type Config struct {
	StorageBackend      string        `env:"STORAGE_BACKEND,default=badger"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,default=data/badger"`
	SQLitePath          string        `env:"SQLITE_PATH,default=data/chat.db"`
	LogLevel            string        `env:"LOG_LEVEL,required=true"`
	LimitMessages       *int          `env:"LIMIT_MESSAGES"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=1s"`
	TokenSecret         string        `env:"TOKEN_SECRET,required=true"`
	TokenDuration       time.Duration `env:"TOKEN_DURATION,default=24h"`
	ExpiryCheckInterval time.Duration `env:"EXPIRY_CHECK_INTERVAL,default=30s"`
	Colours             bool          `env:"COLOURS,default=true"`
	StoreURL            string        `env:"STORE_URL"`
	DialTimeout         time.Duration `env:"DIAL_TIMEOUT,default=5s"`
}
