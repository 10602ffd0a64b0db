package repository

import (
	"context"
	"database/sql"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type SubmissionRepository interface {
	GetLatest(ctx context.Context, id string) (*models.Submission, error)
	GetLatestByClassroomIDs(ctx context.Context, classroomIDs []string) ([]models.Submission, error)
	GetVersions(ctx context.Context, id string) ([]models.Submission, error)
	BatchCreate(ctx context.Context, submissions []models.Submission) error
	BatchUpdate(ctx context.Context, submissions []models.Submission) error
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const submissionColumns = `id, external_id, classroom_id, assignment_id, student_id, content, content_hash, status, score, max_score, submitted_at, version, is_latest, created_at, updated_at`

func (r *submissionRepository) GetLatest(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 AND is_latest = TRUE`

	s := &models.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.ExternalID, &s.ClassroomID, &s.AssignmentID, &s.StudentID,
		&s.Content, &s.ContentHash, &s.Status, &s.Score, &s.MaxScore, &s.SubmittedAt,
		&s.Version, &s.IsLatest, &s.CreatedAt, &s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (r *submissionRepository) GetLatestByClassroomIDs(ctx context.Context, classroomIDs []string) ([]models.Submission, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE classroom_id = ANY($1) AND is_latest = TRUE`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(classroomIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// GetVersions returns the full history chain of one logical submission,
// newest first.
func (r *submissionRepository) GetVersions(ctx context.Context, id string) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 ORDER BY version DESC`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

func (r *submissionRepository) BatchCreate(ctx context.Context, submissions []models.Submission) error {
	if len(submissions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range submissions {
		_, err := stmt.ExecContext(ctx,
			s.ID, s.ExternalID, s.ClassroomID, s.AssignmentID, s.StudentID,
			s.Content, s.ContentHash, s.Status, s.Score, s.MaxScore, s.SubmittedAt,
			s.Version, s.IsLatest, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// BatchUpdate addresses rows by (id, version): historical versions of a
// chain share the logical id.
func (r *submissionRepository) BatchUpdate(ctx context.Context, submissions []models.Submission) error {
	if len(submissions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE submissions
		SET content = $1, content_hash = $2, status = $3, score = $4, max_score = $5, submitted_at = $6, is_latest = $7, updated_at = $8
		WHERE id = $9 AND version = $10
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range submissions {
		_, err := stmt.ExecContext(ctx,
			s.Content, s.ContentHash, s.Status, s.Score, s.MaxScore, s.SubmittedAt,
			s.IsLatest, s.UpdatedAt, s.ID, s.Version,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func collectSubmissions(rows *sql.Rows) ([]models.Submission, error) {
	var submissions []models.Submission
	for rows.Next() {
		var s models.Submission
		err := rows.Scan(
			&s.ID, &s.ExternalID, &s.ClassroomID, &s.AssignmentID, &s.StudentID,
			&s.Content, &s.ContentHash, &s.Status, &s.Score, &s.MaxScore, &s.SubmittedAt,
			&s.Version, &s.IsLatest, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}
