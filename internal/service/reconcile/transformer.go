package reconcile

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/pkg/hash"
	"github.com/gradekeeper/sync-service/pkg/stableid"
	"github.com/rs/zerolog"
)

// TeacherProfile is the teacher identity extracted from a snapshot. The
// processor never creates teacher profiles from it, only updates existing
// ones.
type TeacherProfile struct {
	ID           string
	Email        string
	Name         string
	SchoolEmail  *string
	ClassroomIDs []string
}

type TransformResult struct {
	Teacher     TeacherProfile
	Classrooms  []models.Classroom
	Assignments []models.Assignment
	Submissions []models.Submission
	Enrollments []models.Enrollment
	SkippedRows int
}

// Transformer converts an external snapshot into normalized entities with
// stable ids. It knows nothing about what already exists in storage; all
// output is tagged version 1 and reconciled later by the merge engine.
type Transformer struct {
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewTransformer(logger zerolog.Logger) *Transformer {
	return &Transformer{
		validate: validator.New(),
		logger:   logger,
	}
}

// Transform fails atomically only when the top-level shape is unparseable.
// Malformed nested rows are logged and skipped so one bad row cannot
// corrupt its siblings.
func (t *Transformer) Transform(snap *models.Snapshot) (*TransformResult, error) {
	if snap == nil {
		return nil, &TransformShapeError{Reason: "snapshot is nil"}
	}
	if err := t.validate.Struct(snap); err != nil {
		return nil, &TransformShapeError{Reason: "top-level validation failed", Err: err}
	}

	loginEmail := stableid.NormalizeEmail(snap.Teacher.Email)
	teacherID, err := stableid.New(stableid.Teacher, loginEmail)
	if err != nil {
		return nil, &TransformShapeError{Reason: "teacher email is blank", Err: err}
	}

	result := &TransformResult{
		Teacher: TeacherProfile{
			ID:    teacherID,
			Email: loginEmail,
			Name:  strings.TrimSpace(snap.Teacher.Name),
		},
	}

	now := time.Now().UTC()
	loginDomain := emailDomain(loginEmail)
	seq := 0

	for _, sc := range snap.Classrooms {
		if strings.TrimSpace(sc.ID) == "" {
			t.logger.Warn().Str("classroom_name", sc.Name).Msg("Skipping classroom without external id")
			result.SkippedRows++
			continue
		}

		classroomID, err := stableid.New(stableid.Classroom, sc.ID)
		if err != nil {
			t.logger.Warn().Err(err).Str("external_id", sc.ID).Msg("Skipping classroom with invalid id")
			result.SkippedRows++
			continue
		}

		// Dual identity: a classroom group email under a different domain
		// means the source system addresses this teacher by a board/district
		// email. The primary id always stays derived from the login email.
		if result.Teacher.SchoolEmail == nil && sc.GroupEmail != "" {
			group := stableid.NormalizeEmail(sc.GroupEmail)
			if d := emailDomain(group); d != "" && d != loginDomain && group != loginEmail {
				result.Teacher.SchoolEmail = &group
			}
		}

		externalID := sc.ID
		result.Classrooms = append(result.Classrooms, models.Classroom{
			ID:         classroomID,
			ExternalID: &externalID,
			Name:       strings.TrimSpace(sc.Name),
			Section:    strings.TrimSpace(sc.Section),
			OwnerID:    teacherID,
			Version:    1,
			IsLatest:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		result.Teacher.ClassroomIDs = append(result.Teacher.ClassroomIDs, classroomID)

		result.SkippedRows += t.transformAssignments(sc, classroomID, now, result)
		result.SkippedRows += t.transformEnrollments(sc, classroomID, now, result)
		result.SkippedRows += t.transformSubmissions(sc, classroomID, now, &seq, result)
	}

	return result, nil
}

func (t *Transformer) transformAssignments(sc models.SnapshotClassroom, classroomID string, now time.Time, result *TransformResult) int {
	skipped := 0
	for _, sa := range sc.Assignments {
		// Assignments are keyed by (classroom, external id), so the same
		// source id in two classrooms stays two entities.
		assignmentID, err := stableid.New(stableid.Assignment, classroomID, sa.ID)
		if err != nil {
			t.logger.Warn().Err(err).Str("classroom_id", classroomID).Str("title", sa.Title).Msg("Skipping assignment without external id")
			skipped++
			continue
		}

		externalID := sa.ID
		result.Assignments = append(result.Assignments, models.Assignment{
			ID:          assignmentID,
			ExternalID:  &externalID,
			ClassroomID: classroomID,
			Title:       strings.TrimSpace(sa.Title),
			Description: sa.Description,
			MaxScore:    sa.MaxScore,
			DueDate:     sa.DueDate,
			Materials:   sa.Materials,
			IsQuiz:      sa.IsQuiz,
			QuizID:      sa.QuizID,
			Version:     1,
			IsLatest:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return skipped
}

func (t *Transformer) transformEnrollments(sc models.SnapshotClassroom, classroomID string, now time.Time, result *TransformResult) int {
	skipped := 0
	for _, ss := range sc.Students {
		email := stableid.NormalizeEmail(ss.Email)
		studentID, err := stableid.New(stableid.Student, email)
		if err != nil {
			t.logger.Warn().Err(err).Str("classroom_id", classroomID).Str("student_name", ss.Name).Msg("Skipping student without email")
			skipped++
			continue
		}

		enrollmentID, err := stableid.New(stableid.Enrollment, classroomID, studentID)
		if err != nil {
			skipped++
			continue
		}

		enrollment := models.Enrollment{
			ID:           enrollmentID,
			ClassroomID:  classroomID,
			StudentID:    studentID,
			StudentEmail: email,
			StudentName:  strings.TrimSpace(ss.Name),
			Status:       models.EnrollmentStatusActive,
			Version:      1,
			IsLatest:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if ss.ID != "" {
			externalID := ss.ID
			enrollment.ExternalID = &externalID
		}
		result.Enrollments = append(result.Enrollments, enrollment)
	}
	return skipped
}

func (t *Transformer) transformSubmissions(sc models.SnapshotClassroom, classroomID string, now time.Time, seq *int, result *TransformResult) int {
	skipped := 0
	for _, sub := range sc.Submissions {
		studentEmail := stableid.NormalizeEmail(sub.StudentEmail)
		studentID, err := stableid.New(stableid.Student, studentEmail)
		if err != nil {
			t.logger.Warn().Str("classroom_id", classroomID).Str("submission_external_id", sub.ID).Msg("Skipping submission without student email")
			skipped++
			continue
		}

		assignmentID, err := stableid.New(stableid.Assignment, classroomID, sub.AssignmentID)
		if err != nil {
			t.logger.Warn().Str("classroom_id", classroomID).Str("submission_external_id", sub.ID).Msg("Skipping submission without assignment id")
			skipped++
			continue
		}

		submissionID, err := stableid.New(stableid.Submission, classroomID, assignmentID, studentID)
		if err != nil {
			skipped++
			continue
		}

		*seq++
		submission := models.Submission{
			ID:           submissionID,
			ClassroomID:  classroomID,
			AssignmentID: assignmentID,
			StudentID:    studentID,
			Content:      sub.Content,
			ContentHash:  hash.ContentString(sub.Content),
			Status:       deriveStatus(sub.State, sub.Score),
			Score:        sub.Score,
			MaxScore:     sub.MaxScore,
			SubmittedAt:  sub.SubmittedAt,
			Version:      1,
			IsLatest:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
			Seq:          *seq,
		}
		if sub.ID != "" {
			externalID := sub.ID
			submission.ExternalID = &externalID
		}
		result.Submissions = append(result.Submissions, submission)
	}
	return skipped
}

// deriveStatus: an assigned score always means graded, whatever the source
// state says; a turned-in submission without a score is submitted.
func deriveStatus(state string, score *float64) string {
	if score != nil {
		return models.SubmissionStatusGraded.String()
	}
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "turned_in", "turnedin", "submitted", "returned":
		return models.SubmissionStatusSubmitted.String()
	default:
		return models.SubmissionStatusPending.String()
	}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
