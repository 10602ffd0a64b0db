package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/rs/zerolog"
)

type ImportRunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	ListByTeacherEmail(ctx context.Context, email string, limit int) ([]models.ImportRun, error)
}

type importRunRepository struct {
	*PostgresRepository
}

func NewImportRunRepository(db *sql.DB, logger zerolog.Logger) ImportRunRepository {
	return &importRunRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *importRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal import stats: %w", err)
	}

	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal import errors: %w", err)
	}

	query := `
		INSERT INTO import_runs (id, teacher_email, success, stats, errors, processing_time_ms, archive_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.TeacherEmail, run.Success, stats, errs,
		run.ProcessingTimeMs, run.ArchiveKey, run.CreatedAt,
	)

	return err
}

func (r *importRunRepository) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	query := `
		SELECT id, teacher_email, success, stats, errors, processing_time_ms, archive_key, created_at
		FROM import_runs
		WHERE id = $1
	`

	run := &models.ImportRun{}
	var stats, errs []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.TeacherEmail, &run.Success, &stats, &errs,
		&run.ProcessingTimeMs, &run.ArchiveKey, &run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stats, &run.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import stats: %w", err)
	}
	if err := json.Unmarshal(errs, &run.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import errors: %w", err)
	}

	return run, nil
}

func (r *importRunRepository) ListByTeacherEmail(ctx context.Context, email string, limit int) ([]models.ImportRun, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, teacher_email, success, stats, errors, processing_time_ms, archive_key, created_at
		FROM import_runs
		WHERE teacher_email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ImportRun
	for rows.Next() {
		var run models.ImportRun
		var stats, errs []byte
		err := rows.Scan(
			&run.ID, &run.TeacherEmail, &run.Success, &stats, &errs,
			&run.ProcessingTimeMs, &run.ArchiveKey, &run.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stats, &run.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal import stats: %w", err)
		}
		if err := json.Unmarshal(errs, &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal import errors: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
