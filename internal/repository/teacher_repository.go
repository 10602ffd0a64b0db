package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type TeacherRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Teacher, error)
	GetByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
}

type teacherRepository struct {
	*PostgresRepository
}

func NewTeacherRepository(db *sql.DB, logger zerolog.Logger) TeacherRepository {
	return &teacherRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

// GetByEmail resolves a teacher by either identity: the primary login email
// or the extracted school email.
func (r *teacherRepository) GetByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	query := `
		SELECT id, email, school_email, name, classroom_ids, total_classrooms, total_students, version, created_at, updated_at
		FROM teachers
		WHERE email = $1 OR school_email = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *teacherRepository) GetByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := `
		SELECT id, email, school_email, name, classroom_ids, total_classrooms, total_students, version, created_at, updated_at
		FROM teachers
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *teacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	query := `
		INSERT INTO teachers (id, email, school_email, name, classroom_ids, total_classrooms, total_students, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		teacher.ID,
		teacher.Email,
		teacher.SchoolEmail,
		teacher.Name,
		pq.Array(teacher.ClassroomIDs),
		teacher.TotalClassrooms,
		teacher.TotalStudents,
		teacher.Version,
		teacher.CreatedAt,
		teacher.UpdatedAt,
	)

	return err
}

func (r *teacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	query := `
		UPDATE teachers
		SET school_email = $1, name = $2, classroom_ids = $3, total_classrooms = $4, total_students = $5, version = $6, updated_at = $7
		WHERE id = $8
	`

	_, err := r.db.ExecContext(ctx, query,
		teacher.SchoolEmail,
		teacher.Name,
		pq.Array(teacher.ClassroomIDs),
		teacher.TotalClassrooms,
		teacher.TotalStudents,
		teacher.Version,
		time.Now().UTC(),
		teacher.ID,
	)

	return err
}

func (r *teacherRepository) scanOne(row *sql.Row) (*models.Teacher, error) {
	teacher := &models.Teacher{}
	err := row.Scan(
		&teacher.ID,
		&teacher.Email,
		&teacher.SchoolEmail,
		&teacher.Name,
		pq.Array(&teacher.ClassroomIDs),
		&teacher.TotalClassrooms,
		&teacher.TotalStudents,
		&teacher.Version,
		&teacher.CreatedAt,
		&teacher.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return teacher, nil
}
