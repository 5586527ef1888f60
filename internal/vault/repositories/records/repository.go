package records

import (
	"context"

	"github.com/dmitrijs2005/vaultcore/internal/pagex"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
)

// Repository persists encrypted records grouped by service. Every method is
// scoped to one user.
type Repository interface {
	// Create appends a record. Duplicates are allowed. An empty ID is
	// replaced with a fresh UUID.
	Create(ctx context.Context, rec *models.Record) error

	// ListServices returns distinct service names in lexicographic order.
	ListServices(ctx context.Context, userID int64, w pagex.Window) (pagex.Page[string], error)

	// ListByService returns one page of the records under service.
	ListByService(ctx context.Context, userID int64, service string, w pagex.Window) (pagex.Page[*models.Record], error)

	// ListAll returns every record of the user.
	ListAll(ctx context.Context, userID int64) ([]*models.Record, error)

	// GetAny returns an arbitrary record or common.ErrorNotFound for an
	// empty vault.
	GetAny(ctx context.Context, userID int64) (*models.Record, error)

	// RenameService relabels all records under oldName.
	RenameService(ctx context.Context, userID int64, oldName, newName string) (int64, error)

	// Delete removes the record identified by its ciphertext within service,
	// or returns common.ErrorNotFound.
	Delete(ctx context.Context, userID int64, service string, ciphertext []byte) error

	// DeleteService removes every record under service.
	DeleteService(ctx context.Context, userID int64, service string) (int64, error)

	// DeleteAll removes the whole vault. The user and salt stay.
	DeleteAll(ctx context.Context, userID int64) (int64, error)

	// SearchServices returns up to limit service names containing substring,
	// case-insensitively.
	SearchServices(ctx context.Context, userID int64, substring string, limit int) ([]string, error)
}
