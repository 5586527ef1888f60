package users

import (
	"context"

	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
)

// Repository persists users and their salts.
type Repository interface {
	// Create inserts the user unless it already exists. An existing salt is
	// never overwritten.
	Create(ctx context.Context, user *models.User) error

	// GetSalt returns the user's salt or common.ErrorNotFound.
	GetSalt(ctx context.Context, userID int64) ([]byte, error)

	// Lock blocks other writers of the user's row until the surrounding
	// transaction ends. Only meaningful on a transactional handle.
	Lock(ctx context.Context, userID int64) error
}
