//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"realtime-chat/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const userPrefix = "user:"

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository representation of an account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser persists a new account keyed by email and returns its generated ID.
// An email already in use yields ErrIdentifierAlreadyRegistered.
func (u UserRepository) CreateUser(email, hashedPassword string) (string, error) {
	newID := uuid.NewString()
	record, err := structpb.NewStruct(map[string]any{
		"id":            newID,
		"email":         email,
		"password_hash": hashedPassword,
		"created_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}
	data, err := proto.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte(userPrefix + email)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrIdentifierAlreadyRegistered
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

// GetUserByEmail returns ErrUserNotFound when no account uses the email.
func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var record structpb.Struct
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userPrefix + email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return proto.Unmarshal(val, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return toUser(&record)
}

func toUser(record *structpb.Struct) (User, error) {
	fields := record.GetFields()
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"].GetStringValue())
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           fields["id"].GetStringValue(),
		Email:        fields["email"].GetStringValue(),
		PasswordHash: fields["password_hash"].GetStringValue(),
		CreatedAt:    createdAt.UTC(),
	}, nil
}
