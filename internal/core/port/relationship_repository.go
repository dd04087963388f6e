package port

import "context"

// RelationshipRepository answers ownership questions over the
// tutor -> student -> grade -> teacher chain kept by the business data layer.
type RelationshipRepository interface {
	// StudentBelongsToTutor reports whether the student is assigned to the tutor.
	StudentBelongsToTutor(ctx context.Context, studentID, tutorID int64) (bool, error)
	// StudentTaughtBy reports whether the student is enrolled in a grade taught by the teacher.
	StudentTaughtBy(ctx context.Context, studentID, teacherID int64) (bool, error)
	// GradeTaughtBy reports whether the teacher is responsible for the grade.
	GradeTaughtBy(ctx context.Context, gradeID, teacherID int64) (bool, error)
	// GradeHasStudent reports whether the student is enrolled in the grade.
	GradeHasStudent(ctx context.Context, gradeID, studentID int64) (bool, error)
	// GradeHasStudentOfTutor reports whether any of the tutor's students is enrolled in the grade.
	GradeHasStudentOfTutor(ctx context.Context, gradeID, tutorID int64) (bool, error)
	// AttendanceBelongsToTutor reports whether the attendance record belongs to one of the tutor's students.
	AttendanceBelongsToTutor(ctx context.Context, attendanceID, tutorID int64) (bool, error)
	// AttendanceGrade returns the grade an attendance record was taken in.
	AttendanceGrade(ctx context.Context, attendanceID int64) (int64, error)
	// TutorHasStudentOfTeacher reports whether the tutor has a student taught by the teacher.
	TutorHasStudentOfTeacher(ctx context.Context, tutorID, teacherID int64) (bool, error)
}
