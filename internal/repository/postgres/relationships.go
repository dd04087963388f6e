package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/foroescolar/escuela-api/internal/repository"
)

// RelationshipRepository answers ownership questions against the school data
// model: students belong to tutors and grades, grades belong to teachers,
// attendance records belong to students within a grade.
type RelationshipRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRelationshipRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewRelationshipRepository(exec pgExecutor) *RelationshipRepository {
	return &RelationshipRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// StudentBelongsToTutor reports whether the student is assigned to the tutor.
func (r *RelationshipRepository) StudentBelongsToTutor(ctx context.Context, studentID, tutorID int64) (bool, error) {
	query := r.builder.
		Select("1").
		From("estudiantes").
		Where(squirrel.Eq{"id": studentID, "tutor_id": tutorID})

	return r.exists(ctx, query)
}

// StudentTaughtBy reports whether the student is enrolled in a grade taught by the teacher.
func (r *RelationshipRepository) StudentTaughtBy(ctx context.Context, studentID, teacherID int64) (bool, error) {
	query := r.builder.
		Select("1").
		From("estudiantes e").
		Join("grados g ON g.id = e.grado_id").
		Where(squirrel.Eq{"e.id": studentID, "g.profesor_id": teacherID})

	return r.exists(ctx, query)
}

// GradeTaughtBy reports whether the teacher is responsible for the grade.
func (r *RelationshipRepository) GradeTaughtBy(ctx context.Context, gradeID, teacherID int64) (bool, error) {
	query := r.builder.
		Select("1").
		From("grados").
		Where(squirrel.Eq{"id": gradeID, "profesor_id": teacherID})

	return r.exists(ctx, query)
}

// GradeHasStudent reports whether the student is enrolled in the grade.
func (r *RelationshipRepository) GradeHasStudent(ctx context.Context, gradeID, studentID int64) (bool, error) {
	query := r.builder.
		Select("1").
		From("estudiantes").
		Where(squirrel.Eq{"grado_id": gradeID, "id": studentID})

	return r.exists(ctx, query)
}

// GradeHasStudentOfTutor reports whether any of the tutor's students is enrolled in the grade.
func (r *RelationshipRepository) GradeHasStudentOfTutor(ctx context.Context, gradeID, tutorID int64) (bool, error) {
	query := r.builder.
		Select("1").
		From("estudiantes").
		Where(squirrel.Eq{"grado_id": gradeID, "tutor_id": tutorID})

	return r.exists(ctx, query)
}

// AttendanceBelongsToTutor reports whether the attendance record belongs to
// one of the tutor's students.
func (r *RelationshipRepository) AttendanceBelongsToTutor(ctx context.Context, attendanceID, tutorID int64) (bool, error) {
	query := r.builder.
		Select("1").
		From("asistencias a").
		Join("estudiantes e ON e.id = a.estudiante_id").
		Where(squirrel.Eq{"a.id": attendanceID, "e.tutor_id": tutorID})

	return r.exists(ctx, query)
}

// AttendanceGrade returns the grade an attendance record was taken in.
func (r *RelationshipRepository) AttendanceGrade(ctx context.Context, attendanceID int64) (int64, error) {
	sqlStmt, args, err := r.builder.
		Select("grado_id").
		From("asistencias").
		Where(squirrel.Eq{"id": attendanceID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build attendance grade sql: %w", err)
	}

	var gradeID int64
	if err := r.exec.QueryRow(ctx, sqlStmt, args...).Scan(&gradeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("query attendance grade: %w", err)
	}

	return gradeID, nil
}

// TutorHasStudentOfTeacher reports whether the tutor has a student taught by the teacher.
func (r *RelationshipRepository) TutorHasStudentOfTeacher(ctx context.Context, tutorID, teacherID int64) (bool, error) {
	query := r.builder.
		Select("1").
		From("estudiantes e").
		Join("grados g ON g.id = e.grado_id").
		Where(squirrel.Eq{"e.tutor_id": tutorID, "g.profesor_id": teacherID})

	return r.exists(ctx, query)
}

func (r *RelationshipRepository) exists(ctx context.Context, query squirrel.SelectBuilder) (bool, error) {
	sqlStmt, args, err := query.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, sqlStmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query exists: %w", err)
	}

	return true, nil
}
