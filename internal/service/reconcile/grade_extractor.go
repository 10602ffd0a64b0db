package reconcile

import (
	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/pkg/stableid"
	"github.com/rs/zerolog"
)

// GradeInput is a standalone grade-creation request extracted from an
// embedded snapshot grade, keyed to the submission's stable id.
type GradeInput struct {
	SubmissionID string
	Score        float64
	MaxScore     float64
	Feedback     string
	GradedBy     string
}

// GradeExtractor pulls embedded grades out of submission snapshots. Pure
// and stateless; extraction is advisory to the main transform, so a grade
// whose submission went missing is dropped with a warning, never an error.
type GradeExtractor struct {
	logger zerolog.Logger
}

func NewGradeExtractor(logger zerolog.Logger) *GradeExtractor {
	return &GradeExtractor{logger: logger}
}

func (g *GradeExtractor) Extract(snap *models.Snapshot, transformed []models.Submission) []GradeInput {
	known := make(map[string]bool, len(transformed))
	for _, sub := range transformed {
		known[sub.ID] = true
	}

	byID := make(map[string]GradeInput)
	order := make([]string, 0)

	for _, sc := range snap.Classrooms {
		classroomID, err := stableid.New(stableid.Classroom, sc.ID)
		if err != nil {
			continue
		}

		maxScores := make(map[string]float64, len(sc.Assignments))
		for _, sa := range sc.Assignments {
			maxScores[sa.ID] = sa.MaxScore
		}

		for _, sub := range sc.Submissions {
			if sub.Score == nil {
				continue
			}

			submissionID, ok := g.submissionID(classroomID, sub)
			if !ok {
				continue
			}
			if !known[submissionID] {
				g.logger.Warn().
					Str("submission_id", submissionID).
					Str("external_id", sub.ID).
					Msg("Dropping grade for submission missing after transform")
				continue
			}

			maxScore := maxScores[sub.AssignmentID]
			if sub.MaxScore != nil {
				maxScore = *sub.MaxScore
			}

			gradedBy := sub.GradedBy
			if !models.IsValidGradedBy(gradedBy) {
				gradedBy = models.GradedByAuto
			}

			if _, seen := byID[submissionID]; !seen {
				order = append(order, submissionID)
			}
			// Last row wins for duplicate submissions, same as the merge.
			byID[submissionID] = GradeInput{
				SubmissionID: submissionID,
				Score:        *sub.Score,
				MaxScore:     maxScore,
				Feedback:     sub.Feedback,
				GradedBy:     gradedBy,
			}
		}
	}

	inputs := make([]GradeInput, 0, len(order))
	for _, id := range order {
		inputs = append(inputs, byID[id])
	}
	return inputs
}

func (g *GradeExtractor) submissionID(classroomID string, sub models.SnapshotSubmission) (string, bool) {
	studentID, err := stableid.New(stableid.Student, stableid.NormalizeEmail(sub.StudentEmail))
	if err != nil {
		return "", false
	}
	assignmentID, err := stableid.New(stableid.Assignment, classroomID, sub.AssignmentID)
	if err != nil {
		return "", false
	}
	submissionID, err := stableid.New(stableid.Submission, classroomID, assignmentID, studentID)
	if err != nil {
		return "", false
	}
	return submissionID, true
}
