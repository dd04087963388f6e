package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/repository"
)

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByEmail loads the account for a subject email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	query := r.builder.
		Select("id", "email", "nombre", "rol", "password_hash", "activo").
		From("usuarios").
		Where(squirrel.Eq{"email": email})

	return r.scanUser(ctx, query)
}

// GetByID loads the account for a numeric user id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := r.builder.
		Select("id", "email", "nombre", "rol", "password_hash", "activo").
		From("usuarios").
		Where(squirrel.Eq{"id": id})

	return r.scanUser(ctx, query)
}

func (r *UserRepository) scanUser(ctx context.Context, query squirrel.SelectBuilder) (*domain.User, error) {
	sqlStmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		user domain.User
		role string
	)
	err = r.exec.QueryRow(ctx, sqlStmt, args...).
		Scan(&user.ID, &user.Email, &user.Name, &role, &user.PasswordHash, &user.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("stored role for user %d: %w", user.ID, err)
	}
	user.Role = parsed

	return &user, nil
}
