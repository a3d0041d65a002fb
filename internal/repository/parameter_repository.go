package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// ParameterRepository handles parametros and parameter_grades.
type ParameterRepository struct {
	db *sqlx.DB
}

// NewParameterRepository creates a new parameter repository.
func NewParameterRepository(db *sqlx.DB) *ParameterRepository {
	return &ParameterRepository{db: db}
}

// ListByCourse returns the grading parameters of a course.
func (r *ParameterRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Parameter, error) {
	const query = `SELECT id, course_id, name, porcentaje FROM parametros WHERE course_id = $1 ORDER BY id`
	var params []models.Parameter
	if err := r.db.SelectContext(ctx, &params, query, courseID); err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	return params, nil
}

// UpsertGrades writes parameter grades in a transaction.
func (r *ParameterRepository) UpsertGrades(ctx context.Context, grades []models.ParameterGrade) error {
	if len(grades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO parameter_grades (parameter_id, user_id, grade, updated_at)
        VALUES (:parameter_id, :user_id, :grade, :updated_at)
        ON CONFLICT (parameter_id, user_id)
        DO UPDATE SET grade = EXCLUDED.grade, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range grades {
		grades[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, grades[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert parameter grade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit parameter grades: %w", err)
	}
	return nil
}
