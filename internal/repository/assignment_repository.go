package repository

import (
	"context"
	"database/sql"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	GetByClassroomIDs(ctx context.Context, classroomIDs []string) ([]models.Assignment, error)
	BatchCreate(ctx context.Context, assignments []models.Assignment) error
	BatchUpdate(ctx context.Context, assignments []models.Assignment) error
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const assignmentColumns = `id, external_id, classroom_id, title, description, max_score, due_date, materials, is_quiz, quiz_id, version, is_latest, created_at, updated_at`

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	a := &models.Assignment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.ExternalID, &a.ClassroomID, &a.Title, &a.Description,
		&a.MaxScore, &a.DueDate, pq.Array(&a.Materials), &a.IsQuiz, &a.QuizID,
		&a.Version, &a.IsLatest, &a.CreatedAt, &a.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (r *assignmentRepository) GetByClassroomIDs(ctx context.Context, classroomIDs []string) ([]models.Assignment, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE classroom_id = ANY($1) ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(classroomIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		var a models.Assignment
		err := rows.Scan(
			&a.ID, &a.ExternalID, &a.ClassroomID, &a.Title, &a.Description,
			&a.MaxScore, &a.DueDate, pq.Array(&a.Materials), &a.IsQuiz, &a.QuizID,
			&a.Version, &a.IsLatest, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func (r *assignmentRepository) BatchCreate(ctx context.Context, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assignments {
		_, err := stmt.ExecContext(ctx,
			a.ID, a.ExternalID, a.ClassroomID, a.Title, a.Description,
			a.MaxScore, a.DueDate, pq.Array(a.Materials), a.IsQuiz, a.QuizID,
			a.Version, a.IsLatest, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *assignmentRepository) BatchUpdate(ctx context.Context, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE assignments
		SET external_id = $1, title = $2, description = $3, max_score = $4, due_date = $5, materials = $6, is_quiz = $7, quiz_id = $8, version = $9, updated_at = $10
		WHERE id = $11
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assignments {
		_, err := stmt.ExecContext(ctx,
			a.ExternalID, a.Title, a.Description, a.MaxScore, a.DueDate,
			pq.Array(a.Materials), a.IsQuiz, a.QuizID, a.Version, a.UpdatedAt, a.ID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
