package repositories

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"realtime-chat/errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	user_id TEXT NOT NULL,
	user_email TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_created_at ON messages (created_at);
`

// OpenSQLite opens the database at dataSourceName and creates the tables.
func OpenSQLite(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and writes serialised
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return db, nil
}

var _ IMessageRepository = SQLMessageRepository{}

type SQLMessageRepository struct {
	db            *sql.DB
	log           *slog.Logger
	limitMessages *int
}

func NewSQLMessageRepository(db *sql.DB, log *slog.Logger, limitMessages *int) SQLMessageRepository {
	return SQLMessageRepository{db: db, log: log, limitMessages: limitMessages}
}

func (m SQLMessageRepository) StoreMessage(message DiskMessage) error {
	_, err := m.db.Exec(
		"INSERT INTO messages (id, text, user_id, user_email, created_at) VALUES (?, ?, ?, ?, ?)",
		message.ID.String(), message.Text, message.UserID, message.UserEmail, message.CreatedAt.UnixNano(),
	)
	return err
}

// ListMessages returns the stored messages ordered by creation time ascending,
// keeping only the most recent ones when a limit is configured.
func (m SQLMessageRepository) ListMessages() ([]DiskMessage, error) {
	limit := -1
	if m.limitMessages != nil {
		limit = *m.limitMessages
	}
	rows, err := m.db.Query(
		"SELECT id, text, user_id, user_email, created_at FROM messages ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diskMessages []DiskMessage
	for rows.Next() {
		var (
			id        string
			message   DiskMessage
			createdAt int64
		)
		if err := rows.Scan(&id, &message.Text, &message.UserID, &message.UserEmail, &createdAt); err != nil {
			return nil, err
		}
		if message.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		message.CreatedAt = time.Unix(0, createdAt).UTC()
		diskMessages = append(diskMessages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(diskMessages)
	return diskMessages, nil
}

type SQLUserRepository struct {
	db *sql.DB
}

func NewSQLUserRepository(db *sql.DB) IUserRepository {
	return &SQLUserRepository{db: db}
}

// CreateUser returns ErrIdentifierAlreadyRegistered when the email is taken.
func (u SQLUserRepository) CreateUser(email, hashedPassword string) (string, error) {
	newID := uuid.NewString()
	_, err := u.db.Exec(
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		newID, email, hashedPassword, time.Now().UnixNano(),
	)
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return "", errors.ErrIdentifierAlreadyRegistered
	}
	if err != nil {
		return "", err
	}
	return newID, nil
}

func (u SQLUserRepository) GetUserByEmail(email string) (User, error) {
	var (
		user      User
		createdAt int64
	)
	err := u.db.QueryRow(
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return user, nil
}
