package port

import (
	"context"

	"github.com/foroescolar/escuela-api/internal/core/domain"
)

// RevocationPublisher fans revocation events out to peer nodes.
type RevocationPublisher interface {
	PublishTokenRevoked(ctx context.Context, event domain.TokenRevokedEvent) error
}
