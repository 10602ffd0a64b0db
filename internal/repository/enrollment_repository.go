package repository

import (
	"context"
	"database/sql"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type EnrollmentRepository interface {
	GetByClassroomIDs(ctx context.Context, classroomIDs []string) ([]models.Enrollment, error)
	BatchCreate(ctx context.Context, enrollments []models.Enrollment) error
	BatchUpdate(ctx context.Context, enrollments []models.Enrollment) error
}

type enrollmentRepository struct {
	*PostgresRepository
}

func NewEnrollmentRepository(db *sql.DB, logger zerolog.Logger) EnrollmentRepository {
	return &enrollmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const enrollmentColumns = `id, external_id, classroom_id, student_id, student_email, student_name, status, version, is_latest, created_at, updated_at`

// GetByClassroomIDs returns enrollments in every status: removed rows must
// stay visible so a returning student is re-activated under the same id.
func (r *enrollmentRepository) GetByClassroomIDs(ctx context.Context, classroomIDs []string) ([]models.Enrollment, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE classroom_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(classroomIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		err := rows.Scan(
			&e.ID, &e.ExternalID, &e.ClassroomID, &e.StudentID, &e.StudentEmail,
			&e.StudentName, &e.Status, &e.Version, &e.IsLatest, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

func (r *enrollmentRepository) BatchCreate(ctx context.Context, enrollments []models.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range enrollments {
		_, err := stmt.ExecContext(ctx,
			e.ID, e.ExternalID, e.ClassroomID, e.StudentID, e.StudentEmail,
			e.StudentName, e.Status, e.Version, e.IsLatest, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *enrollmentRepository) BatchUpdate(ctx context.Context, enrollments []models.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE enrollments
		SET external_id = $1, student_name = $2, status = $3, version = $4, updated_at = $5
		WHERE id = $6
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range enrollments {
		_, err := stmt.ExecContext(ctx,
			e.ExternalID, e.StudentName, e.Status, e.Version, e.UpdatedAt, e.ID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
