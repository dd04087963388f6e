package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/foroescolar/escuela-api/internal/repository"
)

func newRelationshipMock(t *testing.T) (pgxmock.PgxPoolIface, *RelationshipRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewRelationshipRepository(mock)
}

func existsRow() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"1"}).AddRow(1)
}

func noRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"1"})
}

func TestRelationshipRepository_StudentBelongsToTutor(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT 1 FROM estudiantes WHERE id = \$1 AND tutor_id = \$2 LIMIT 1`).
		WithArgs(int64(7), int64(20)).
		WillReturnRows(existsRow())

	ok, err := repo.StudentBelongsToTutor(context.Background(), 7, 20)
	if err != nil {
		t.Fatalf("StudentBelongsToTutor returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the relationship to exist")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRelationshipRepository_StudentBelongsToTutorAbsent(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT 1 FROM estudiantes WHERE id = \$1 AND tutor_id = \$2 LIMIT 1`).
		WithArgs(int64(7), int64(99)).
		WillReturnRows(noRows())

	ok, err := repo.StudentBelongsToTutor(context.Background(), 7, 99)
	if err != nil {
		t.Fatalf("expected no error for an absent relationship, got %v", err)
	}
	if ok {
		t.Fatalf("expected the relationship to be absent")
	}
}

func TestRelationshipRepository_StudentTaughtBy(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT 1 FROM estudiantes e JOIN grados g ON g\.id = e\.grado_id WHERE e\.id = \$1 AND g\.profesor_id = \$2 LIMIT 1`).
		WithArgs(int64(7), int64(30)).
		WillReturnRows(existsRow())

	ok, err := repo.StudentTaughtBy(context.Background(), 7, 30)
	if err != nil {
		t.Fatalf("StudentTaughtBy returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the relationship to exist")
	}
}

func TestRelationshipRepository_GradeTaughtBy(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT 1 FROM grados WHERE id = \$1 AND profesor_id = \$2 LIMIT 1`).
		WithArgs(int64(3), int64(30)).
		WillReturnRows(existsRow())

	ok, err := repo.GradeTaughtBy(context.Background(), 3, 30)
	if err != nil {
		t.Fatalf("GradeTaughtBy returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the relationship to exist")
	}
}

func TestRelationshipRepository_AttendanceGrade(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT grado_id FROM asistencias WHERE id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"grado_id"}).AddRow(int64(3)))

	gradeID, err := repo.AttendanceGrade(context.Background(), 100)
	if err != nil {
		t.Fatalf("AttendanceGrade returned error: %v", err)
	}
	if gradeID != 3 {
		t.Fatalf("expected grade 3, got %d", gradeID)
	}
}

func TestRelationshipRepository_AttendanceGradeNotFound(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT grado_id FROM asistencias WHERE id = \$1`).
		WithArgs(int64(999)).
		WillReturnRows(pgxmock.NewRows([]string{"grado_id"}))

	if _, err := repo.AttendanceGrade(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRelationshipRepository_AttendanceBelongsToTutor(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT 1 FROM asistencias a JOIN estudiantes e ON e\.id = a\.estudiante_id WHERE a\.id = \$1 AND e\.tutor_id = \$2 LIMIT 1`).
		WithArgs(int64(100), int64(20)).
		WillReturnRows(existsRow())

	ok, err := repo.AttendanceBelongsToTutor(context.Background(), 100, 20)
	if err != nil {
		t.Fatalf("AttendanceBelongsToTutor returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the relationship to exist")
	}
}

func TestRelationshipRepository_TutorHasStudentOfTeacher(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT 1 FROM estudiantes e JOIN grados g ON g\.id = e\.grado_id WHERE e\.tutor_id = \$1 AND g\.profesor_id = \$2 LIMIT 1`).
		WithArgs(int64(20), int64(30)).
		WillReturnRows(existsRow())

	ok, err := repo.TutorHasStudentOfTeacher(context.Background(), 20, 30)
	if err != nil {
		t.Fatalf("TutorHasStudentOfTeacher returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the relationship to exist")
	}
}

func TestRelationshipRepository_ExistsPropagatesQueryError(t *testing.T) {
	mock, repo := newRelationshipMock(t)

	mock.ExpectQuery(`SELECT 1 FROM grados WHERE id = \$1 AND profesor_id = \$2 LIMIT 1`).
		WithArgs(int64(3), int64(30)).
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.GradeTaughtBy(context.Background(), 3, 30); err == nil {
		t.Fatalf("expected the query error to propagate")
	}
}
