package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/repository"
)

func TestUserRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "email", "nombre", "rol", "password_hash", "activo"}).
		AddRow(int64(7), "ana@example.com", "Ana", "ESTUDIANTE", "argon2id$...", true)

	mock.ExpectQuery(`SELECT id, email, nombre, rol, password_hash, activo FROM usuarios WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "  ANA@example.com ")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if user.ID != 7 || user.Name != "Ana" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Role != domain.RoleEstudiante {
		t.Fatalf("expected role ESTUDIANTE, got %s", user.Role)
	}
	if !user.Active {
		t.Fatalf("expected an active account")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT id, email, nombre, rol, password_hash, activo FROM usuarios WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "nombre", "rol", "password_hash", "activo"}))

	if _, err := repo.GetByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByEmailEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	if _, err := repo.GetByEmail(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty email")
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "email", "nombre", "rol", "password_hash", "activo"}).
		AddRow(int64(1), "admin@example.com", "Root", "ADMINISTRADOR", "argon2id$...", true)

	mock.ExpectQuery(`SELECT id, email, nombre, rol, password_hash, activo FROM usuarios WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user.Role != domain.RoleAdministrador {
		t.Fatalf("expected role ADMINISTRADOR, got %s", user.Role)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UnknownStoredRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "email", "nombre", "rol", "password_hash", "activo"}).
		AddRow(int64(9), "weird@example.com", "Weird", "SUPERUSER", "argon2id$...", true)

	mock.ExpectQuery(`SELECT id, email, nombre, rol, password_hash, activo FROM usuarios WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(rows)

	if _, err := repo.GetByID(context.Background(), 9); err == nil {
		t.Fatalf("expected error for an unknown stored role")
	}
}
