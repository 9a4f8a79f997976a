package repository

import (
	"context"
)

// Storage bundles all repositories running on the same connection source
type Storage interface {
	User() UserRepo
	Channel() ChannelRepo
	History() HistoryRepo

	// Run fn inside a db transaction, rolled back if fn fails
	InTx(ctx context.Context, fn func(Storage) error) error
}
