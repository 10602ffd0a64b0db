package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type GradeRepository interface {
	GetLatestBySubmission(ctx context.Context, submissionID string) (*models.Grade, error)
	GetLatestBySubmissionIDs(ctx context.Context, submissionIDs []string) ([]models.Grade, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Supersede(ctx context.Context, gradeID string) error
}

type gradeRepository struct {
	*PostgresRepository
}

func NewGradeRepository(db *sql.DB, logger zerolog.Logger) GradeRepository {
	return &gradeRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const gradeColumns = `id, external_id, submission_id, score, max_score, feedback, graded_by, version, is_latest, created_at, updated_at`

func (r *gradeRepository) GetLatestBySubmission(ctx context.Context, submissionID string) (*models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE submission_id = $1 AND is_latest = TRUE`

	g := &models.Grade{}
	err := r.db.QueryRowContext(ctx, query, submissionID).Scan(
		&g.ID, &g.ExternalID, &g.SubmissionID, &g.Score, &g.MaxScore,
		&g.Feedback, &g.GradedBy, &g.Version, &g.IsLatest, &g.CreatedAt, &g.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return g, nil
}

func (r *gradeRepository) GetLatestBySubmissionIDs(ctx context.Context, submissionIDs []string) ([]models.Grade, error) {
	if len(submissionIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + gradeColumns + ` FROM grades WHERE submission_id = ANY($1) AND is_latest = TRUE`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(submissionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectGrades(rows)
}

func (r *gradeRepository) ListBySubmission(ctx context.Context, submissionID string) ([]models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE submission_id = $1 ORDER BY version DESC`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectGrades(rows)
}

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	query := `
		INSERT INTO grades (` + gradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		grade.ID, grade.ExternalID, grade.SubmissionID, grade.Score, grade.MaxScore,
		grade.Feedback, grade.GradedBy, grade.Version, grade.IsLatest,
		grade.CreatedAt, grade.UpdatedAt,
	)

	return err
}

// Supersede clears is_latest on a grade version. Grade fields themselves
// are immutable once recorded; this flag is the only thing ever updated.
func (r *gradeRepository) Supersede(ctx context.Context, gradeID string) error {
	query := `UPDATE grades SET is_latest = FALSE, updated_at = $1 WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), gradeID)
	return err
}

func collectGrades(rows *sql.Rows) ([]models.Grade, error) {
	var grades []models.Grade
	for rows.Next() {
		var g models.Grade
		err := rows.Scan(
			&g.ID, &g.ExternalID, &g.SubmissionID, &g.Score, &g.MaxScore,
			&g.Feedback, &g.GradedBy, &g.Version, &g.IsLatest, &g.CreatedAt, &g.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}
