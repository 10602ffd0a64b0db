package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/internal/repository"
	"github.com/gradekeeper/sync-service/internal/service/reconcile"
	"github.com/rs/zerolog"
)

// GradeDecision is the outcome of recording one grade: either a new
// version was created, or the input collapsed into a conflict (unchanged
// or keep_existing) and storage was left alone.
type GradeDecision struct {
	Created  bool
	Grade    *models.Grade
	Conflict *models.GradeConflict
}

type GradeService interface {
	RecordGrade(ctx context.Context, input reconcile.GradeInput) (*GradeDecision, error)
	RecordGradeBatch(ctx context.Context, inputs []reconcile.GradeInput) (*models.GradeBatchResult, []models.ProcessError)
	ListBySubmission(ctx context.Context, submissionID string) ([]models.Grade, error)
}

type gradeService struct {
	grades repository.GradeRepository
	logger zerolog.Logger
}

func NewGradeService(grades repository.GradeRepository, logger zerolog.Logger) GradeService {
	return &gradeService{
		grades: grades,
		logger: logger,
	}
}

// RecordGrade appends to the submission's grade version chain. Existing
// versions are never mutated; at most their is_latest flag is cleared.
// Re-running the same input is a no-op reported as an unchanged conflict.
func (s *gradeService) RecordGrade(ctx context.Context, input reconcile.GradeInput) (*GradeDecision, error) {
	if !models.IsValidGradedBy(input.GradedBy) {
		return nil, fmt.Errorf("invalid graded_by %q for submission %s", input.GradedBy, input.SubmissionID)
	}

	existing, err := s.grades.GetLatestBySubmission(ctx, input.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest grade: %w", err)
	}

	now := time.Now().UTC()

	if existing == nil {
		grade := s.newVersion(input, 1, now)
		if err := s.grades.Create(ctx, grade); err != nil {
			return nil, fmt.Errorf("failed to create grade: %w", err)
		}
		return &GradeDecision{Created: true, Grade: grade}, nil
	}

	if existing.Score == input.Score && existing.Feedback == input.Feedback {
		return &GradeDecision{
			Grade: existing,
			Conflict: &models.GradeConflict{
				SubmissionID: input.SubmissionID,
				GradeID:      existing.ID,
				Resolution:   "unchanged",
				Reason:       "incoming grade identical to latest version",
			},
		}, nil
	}

	// A teacher-entered grade outranks anything machine-produced. The
	// incoming value is dropped, not versioned, so the chain stays clean.
	if existing.GradedBy == models.GradedByTeacher && input.GradedBy != models.GradedByTeacher {
		s.logger.Info().
			Str("submission_id", input.SubmissionID).
			Str("grade_id", existing.ID).
			Str("incoming_graded_by", input.GradedBy).
			Msg("Keeping teacher-entered grade over machine grade")
		return &GradeDecision{
			Grade: existing,
			Conflict: &models.GradeConflict{
				SubmissionID: input.SubmissionID,
				GradeID:      existing.ID,
				Resolution:   "keep_existing",
				Reason:       fmt.Sprintf("teacher-entered grade not replaced by %s grade", input.GradedBy),
			},
		}, nil
	}

	if err := s.grades.Supersede(ctx, existing.ID); err != nil {
		return nil, fmt.Errorf("failed to supersede grade %s: %w", existing.ID, err)
	}

	grade := s.newVersion(input, existing.Version+1, now)
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, fmt.Errorf("failed to create grade version %d: %w", grade.Version, err)
	}

	return &GradeDecision{Created: true, Grade: grade}, nil
}

// RecordGradeBatch records each grade independently; one failed row never
// blocks the rest. Row errors come back alongside the partial result.
func (s *gradeService) RecordGradeBatch(ctx context.Context, inputs []reconcile.GradeInput) (*models.GradeBatchResult, []models.ProcessError) {
	result := &models.GradeBatchResult{}
	var procErrs []models.ProcessError

	for _, input := range inputs {
		decision, err := s.RecordGrade(ctx, input)
		if err != nil {
			s.logger.Error().Err(err).Str("submission_id", input.SubmissionID).Msg("Failed to record grade")
			procErrs = append(procErrs, models.ProcessError{
				Entity: "grade",
				ID:     input.SubmissionID,
				Error:  err.Error(),
			})
			continue
		}
		if decision.Created {
			result.Created = append(result.Created, *decision.Grade)
		}
		if decision.Conflict != nil {
			result.Conflicts = append(result.Conflicts, *decision.Conflict)
		}
	}

	return result, procErrs
}

func (s *gradeService) ListBySubmission(ctx context.Context, submissionID string) ([]models.Grade, error) {
	grades, err := s.grades.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	return grades, nil
}

func (s *gradeService) newVersion(input reconcile.GradeInput, version int, now time.Time) *models.Grade {
	return &models.Grade{
		ID:           uuid.New().String(),
		SubmissionID: input.SubmissionID,
		Score:        input.Score,
		MaxScore:     input.MaxScore,
		Feedback:     input.Feedback,
		GradedBy:     input.GradedBy,
		Version:      version,
		IsLatest:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
