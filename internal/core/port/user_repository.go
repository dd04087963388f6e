package port

import (
	"context"

	"github.com/foroescolar/escuela-api/internal/core/domain"
)

// UserRepository resolves subjects to platform accounts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
