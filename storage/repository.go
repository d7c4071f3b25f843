// Package storage provides the storage abstractions for accounts, Telegram
// destinations, keyword actions and short-lived key-value records.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when inserting a record whose primary key is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Repository defines the relational record store consumed by the API.
// Destination and action lookups are always scoped to the owning user.
type Repository interface {
	InsertUser(ctx context.Context, user *UserAccount) error
	LoadUser(ctx context.Context, id string) (*UserAccount, error)
	UpdateUserToken(ctx context.Context, id, userToken string) error

	InsertOmiAccount(ctx context.Context, acct *OmiAccount) error
	LoadOmiAccount(ctx context.Context, id string) (*OmiAccount, error)
	OmiAccountExists(ctx context.Context, id string) (bool, error)

	InsertTelegramAccount(ctx context.Context, acct *TelegramAccount) error
	LoadTelegramAccount(ctx context.Context, id int64) (*TelegramAccount, error)
	LoadTelegramAccountByUser(ctx context.Context, userID string) (*TelegramAccount, error)
	TelegramAccountExists(ctx context.Context, id int64) (bool, error)
	UpdateTelegramName(ctx context.Context, id int64, firstName string, username *string) error

	InsertDestination(ctx context.Context, dest *Destination) error
	LoadDestination(ctx context.Context, userID, id string) (*Destination, error)
	ListDestinations(ctx context.Context, userID string) ([]Destination, error)
	DestinationExists(ctx context.Context, userID string, chatID int64) (bool, error)

	InsertAction(ctx context.Context, action *Action) error
	DeleteAction(ctx context.Context, userID, id string) error
	ListActions(ctx context.Context, userID string) ([]ActionWithDestination, error)
}
