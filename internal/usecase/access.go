package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/core/port"
	"github.com/foroescolar/escuela-api/internal/repository"
)

// AccessService answers resource-level ownership questions for the
// authorization rules. Administrators pass every check; other roles are
// gated by their relationship to the resource.
type AccessService struct {
	users         port.UserRepository
	relationships port.RelationshipRepository
	logger        *zap.Logger
}

// NewAccessService constructs the ownership predicate service.
func NewAccessService(users port.UserRepository, relationships port.RelationshipRepository, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{users: users, relationships: relationships, logger: logger}
}

// CanViewStudent reports whether the principal may read a student's data:
// administrators always, students themselves, their tutor, or a teacher of
// their grade.
func (s *AccessService) CanViewStudent(ctx context.Context, principal *domain.Principal, studentID int64) (bool, error) {
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleEstudiante:
		return principal.ID == studentID, nil
	case domain.RoleTutor:
		return s.relationships.StudentBelongsToTutor(ctx, studentID, principal.ID)
	case domain.RoleProfesor:
		return s.relationships.StudentTaughtBy(ctx, studentID, principal.ID)
	default:
		return false, nil
	}
}

// CanViewUser reports whether the principal may read another account's data.
func (s *AccessService) CanViewUser(ctx context.Context, principal *domain.Principal, userID int64) (bool, error) {
	if principal.ID == userID {
		return true, nil
	}
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleTutor:
		return s.relationships.StudentBelongsToTutor(ctx, userID, principal.ID)
	case domain.RoleProfesor:
		return s.relationships.StudentTaughtBy(ctx, userID, principal.ID)
	default:
		return false, nil
	}
}

// CanViewAttendance reports whether the principal may read an attendance
// record: administrators always, the teacher of the grade it was taken in,
// or the tutor of the student it belongs to.
func (s *AccessService) CanViewAttendance(ctx context.Context, principal *domain.Principal, attendanceID int64) (bool, error) {
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleProfesor:
		gradeID, err := s.relationships.AttendanceGrade(ctx, attendanceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("resolve attendance grade: %w", err)
		}
		return s.relationships.GradeTaughtBy(ctx, gradeID, principal.ID)
	case domain.RoleTutor:
		return s.relationships.AttendanceBelongsToTutor(ctx, attendanceID, principal.ID)
	default:
		return false, nil
	}
}

// CanUpdateAttendance reports whether the principal may modify an attendance
// record. Only administrators and the teacher of the record's grade may.
func (s *AccessService) CanUpdateAttendance(ctx context.Context, principal *domain.Principal, attendanceID int64) (bool, error) {
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleProfesor:
		gradeID, err := s.relationships.AttendanceGrade(ctx, attendanceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("resolve attendance grade: %w", err)
		}
		return s.relationships.GradeTaughtBy(ctx, gradeID, principal.ID)
	default:
		return false, nil
	}
}

// CanManageGradeAttendance reports whether the principal may take attendance
// for a grade.
func (s *AccessService) CanManageGradeAttendance(ctx context.Context, principal *domain.Principal, gradeID int64) (bool, error) {
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleProfesor:
		return s.relationships.GradeTaughtBy(ctx, gradeID, principal.ID)
	default:
		return false, nil
	}
}

// CanViewGrade reports whether the principal may read a grade: its teacher,
// a tutor with a student enrolled, an enrolled student, or an administrator.
func (s *AccessService) CanViewGrade(ctx context.Context, principal *domain.Principal, gradeID int64) (bool, error) {
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleProfesor:
		return s.relationships.GradeTaughtBy(ctx, gradeID, principal.ID)
	case domain.RoleTutor:
		return s.relationships.GradeHasStudentOfTutor(ctx, gradeID, principal.ID)
	case domain.RoleEstudiante:
		return s.relationships.GradeHasStudent(ctx, gradeID, principal.ID)
	default:
		return false, nil
	}
}

// CanAccessTutor reports whether the principal may read a tutor's data: the
// tutor themself, an administrator, or a teacher with one of the tutor's
// students in their grade.
func (s *AccessService) CanAccessTutor(ctx context.Context, principal *domain.Principal, tutorID int64) (bool, error) {
	if principal.ID == tutorID {
		return true, nil
	}
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleProfesor:
		return s.relationships.TutorHasStudentOfTeacher(ctx, tutorID, principal.ID)
	default:
		return false, nil
	}
}

// CanUpdateTutor reports whether the principal may modify a tutor's data.
func (s *AccessService) CanUpdateTutor(_ context.Context, principal *domain.Principal, tutorID int64) (bool, error) {
	switch principal.Role {
	case domain.RoleAdministrador:
		return true, nil
	case domain.RoleTutor:
		return principal.ID == tutorID, nil
	default:
		return false, nil
	}
}

// IsAdmin returns true when the user is NOT an administrator. Callers gate
// admin-forbidden paths on a true result.
func (s *AccessService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user.Role != domain.RoleAdministrador, nil
}

// IsCurrentUserAdmin returns true when the principal is NOT an
// administrator. Callers gate admin-forbidden paths on a true result.
func (s *AccessService) IsCurrentUserAdmin(principal *domain.Principal) bool {
	return principal.Role != domain.RoleAdministrador
}
