//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	ListMessages() ([]DiskMessage, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository builds a repository over db.
// A nil limitMessages keeps the whole history in each listing.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type DiskMessage struct {
	ID        uuid.UUID
	Text      string
	UserID    string
	UserEmail string
	CreatedAt time.Time
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep two messages written at the same nanosecond apart.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	record, err := fromDiskMessage(message)
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(record)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
}

// ListMessages returns the stored messages ordered by creation time ascending.
// When a limit is configured only the most recent ones are kept.
func (m MessageRepository) ListMessages() ([]DiskMessage, error) {
	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Newest first, seeking past the highest possible timestamp
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(diskMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			var record structpb.Struct
			if err := it.Item().Value(func(value []byte) error {
				return proto.Unmarshal(value, &record)
			}); err != nil {
				return err
			}
			message, err := toDiskMessage(&record)
			if err != nil {
				return err
			}
			diskMessages = append(diskMessages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(diskMessages)
	return diskMessages, nil
}

func messageKey(message DiskMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, message.CreatedAt.UnixNano(), message.ID))
}

func fromDiskMessage(message DiskMessage) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":         message.ID.String(),
		"text":       message.Text,
		"user_id":    message.UserID,
		"user_email": message.UserEmail,
		"created_at": message.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func toDiskMessage(record *structpb.Struct) (DiskMessage, error) {
	fields := record.GetFields()
	parsedID, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return DiskMessage{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"].GetStringValue())
	if err != nil {
		return DiskMessage{}, err
	}
	return DiskMessage{
		ID:        parsedID,
		Text:      fields["text"].GetStringValue(),
		UserID:    fields["user_id"].GetStringValue(),
		UserEmail: fields["user_email"].GetStringValue(),
		CreatedAt: createdAt.UTC(),
	}, nil
}
