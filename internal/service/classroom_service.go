package service

import (
	"context"
	"fmt"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/internal/repository"
	"github.com/rs/zerolog"
)

// ClassroomService is the read side: it serves what reconciliation has
// already written and never mutates anything.
type ClassroomService interface {
	GetClassroomsByTeacher(ctx context.Context, email string) (*models.ClassroomsResponse, error)
	GetClassroom(ctx context.Context, id string) (*models.Classroom, error)
	GetAssignments(ctx context.Context, classroomID string) ([]models.Assignment, error)
	GetStudents(ctx context.Context, classroomID string) ([]models.Enrollment, error)
	GetSubmissions(ctx context.Context, classroomID string) ([]models.Submission, error)
	GetSubmissionVersions(ctx context.Context, submissionID string) ([]models.Submission, error)
}

type classroomService struct {
	teachers    repository.TeacherRepository
	classrooms  repository.ClassroomRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	enrollments repository.EnrollmentRepository
	logger      zerolog.Logger
}

func NewClassroomService(
	teachers repository.TeacherRepository,
	classrooms repository.ClassroomRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	enrollments repository.EnrollmentRepository,
	logger zerolog.Logger,
) ClassroomService {
	return &classroomService{
		teachers:    teachers,
		classrooms:  classrooms,
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		logger:      logger,
	}
}

func (s *classroomService) GetClassroomsByTeacher(ctx context.Context, email string) (*models.ClassroomsResponse, error) {
	teacher, err := s.teachers.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up teacher: %w", err)
	}
	if teacher == nil {
		return nil, ErrTeacherNotFound
	}

	classrooms, err := s.classrooms.GetByOwnerID(ctx, teacher.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	if classrooms == nil {
		classrooms = []models.Classroom{}
	}

	return &models.ClassroomsResponse{Classrooms: classrooms, Total: len(classrooms)}, nil
}

func (s *classroomService) GetClassroom(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.classrooms.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	if classroom == nil {
		return nil, ErrClassroomNotFound
	}
	return classroom, nil
}

func (s *classroomService) GetAssignments(ctx context.Context, classroomID string) ([]models.Assignment, error) {
	if _, err := s.GetClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.GetByClassroomIDs(ctx, []string{classroomID})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (s *classroomService) GetStudents(ctx context.Context, classroomID string) ([]models.Enrollment, error) {
	if _, err := s.GetClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.GetByClassroomIDs(ctx, []string{classroomID})
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	// Removed enrollments stay in storage for id stability but are not part
	// of the roster.
	active := make([]models.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Status == models.EnrollmentStatusActive {
			active = append(active, e)
		}
	}
	return active, nil
}

func (s *classroomService) GetSubmissions(ctx context.Context, classroomID string) ([]models.Submission, error) {
	if _, err := s.GetClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	submissions, err := s.submissions.GetLatestByClassroomIDs(ctx, []string{classroomID})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

func (s *classroomService) GetSubmissionVersions(ctx context.Context, submissionID string) ([]models.Submission, error) {
	versions, err := s.submissions.GetVersions(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, ErrSubmissionNotFound
	}
	return versions, nil
}
