package repository

import (
	"context"
	"database/sql"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type ClassroomCounts struct {
	Students    int
	Assignments int
	Submissions int
}

type ClassroomRepository interface {
	GetByID(ctx context.Context, id string) (*models.Classroom, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Classroom, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.Classroom, error)
	BatchCreate(ctx context.Context, classrooms []models.Classroom) error
	BatchUpdate(ctx context.Context, classrooms []models.Classroom) error
	CountsFor(ctx context.Context, id string) (*ClassroomCounts, error)
	UpdateCounts(ctx context.Context, id string, counts ClassroomCounts) error
}

type classroomRepository struct {
	*PostgresRepository
}

func NewClassroomRepository(db *sql.DB, logger zerolog.Logger) ClassroomRepository {
	return &classroomRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const classroomColumns = `id, external_id, name, section, owner_id, student_count, assignment_count, submission_count, version, is_latest, created_at, updated_at`

func (r *classroomRepository) GetByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE id = $1`

	classroom := &models.Classroom{}
	err := scanClassroom(r.db.QueryRowContext(ctx, query, id), classroom)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return classroom, nil
}

func (r *classroomRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Classroom, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectClassrooms(rows)
}

func (r *classroomRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE owner_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectClassrooms(rows)
}

func (r *classroomRepository) BatchCreate(ctx context.Context, classrooms []models.Classroom) error {
	if len(classrooms) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO classrooms (` + classroomColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range classrooms {
		_, err := stmt.ExecContext(ctx,
			c.ID, c.ExternalID, c.Name, c.Section, c.OwnerID,
			c.StudentCount, c.AssignmentCount, c.SubmissionCount,
			c.Version, c.IsLatest, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *classroomRepository) BatchUpdate(ctx context.Context, classrooms []models.Classroom) error {
	if len(classrooms) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE classrooms
		SET external_id = $1, name = $2, section = $3, owner_id = $4, version = $5, updated_at = $6
		WHERE id = $7
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range classrooms {
		_, err := stmt.ExecContext(ctx,
			c.ExternalID, c.Name, c.Section, c.OwnerID, c.Version, c.UpdatedAt, c.ID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CountsFor recomputes the denormalized counters from the normalized
// tables; the snapshot's own counts are never trusted.
func (r *classroomRepository) CountsFor(ctx context.Context, id string) (*ClassroomCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM enrollments WHERE classroom_id = $1 AND status = 'active'),
			(SELECT COUNT(*) FROM assignments WHERE classroom_id = $1),
			(SELECT COUNT(*) FROM submissions WHERE classroom_id = $1 AND is_latest = TRUE)
	`

	counts := &ClassroomCounts{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&counts.Students, &counts.Assignments, &counts.Submissions)
	if err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *classroomRepository) UpdateCounts(ctx context.Context, id string, counts ClassroomCounts) error {
	query := `
		UPDATE classrooms
		SET student_count = $1, assignment_count = $2, submission_count = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, counts.Students, counts.Assignments, counts.Submissions, id)
	return err
}

func scanClassroom(row *sql.Row, c *models.Classroom) error {
	return row.Scan(
		&c.ID, &c.ExternalID, &c.Name, &c.Section, &c.OwnerID,
		&c.StudentCount, &c.AssignmentCount, &c.SubmissionCount,
		&c.Version, &c.IsLatest, &c.CreatedAt, &c.UpdatedAt,
	)
}

func collectClassrooms(rows *sql.Rows) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	for rows.Next() {
		var c models.Classroom
		err := rows.Scan(
			&c.ID, &c.ExternalID, &c.Name, &c.Section, &c.OwnerID,
			&c.StudentCount, &c.AssignmentCount, &c.SubmissionCount,
			&c.Version, &c.IsLatest, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		classrooms = append(classrooms, c)
	}
	return classrooms, rows.Err()
}
