package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// MateriaRepository handles materias and materia_grades.
type MateriaRepository struct {
	db *sqlx.DB
}

// NewMateriaRepository creates a new materia repository.
func NewMateriaRepository(db *sqlx.DB) *MateriaRepository {
	return &MateriaRepository{db: db}
}

// ListByCourse returns the materias backed by the course.
func (r *MateriaRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Materia, error) {
	const query = `SELECT id, courseid, title FROM materias WHERE courseid = $1 ORDER BY id`
	var materias []models.Materia
	if err := r.db.SelectContext(ctx, &materias, query, courseID); err != nil {
		return nil, fmt.Errorf("list materias: %w", err)
	}
	return materias, nil
}

// UpsertGrades writes materia grades in a transaction.
func (r *MateriaRepository) UpsertGrades(ctx context.Context, grades []models.MateriaGrade) error {
	if len(grades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO materia_grades (materia_id, user_id, grade, updated_at)
        VALUES (:materia_id, :user_id, :grade, :updated_at)
        ON CONFLICT (materia_id, user_id)
        DO UPDATE SET grade = EXCLUDED.grade, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range grades {
		grades[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, grades[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert materia grade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit materia grades: %w", err)
	}
	return nil
}

// ListGrades returns the propagated grades of a user for the materias of a course.
func (r *MateriaRepository) ListGrades(ctx context.Context, courseID int64, userID string) ([]models.MateriaGrade, error) {
	const query = `SELECT mg.materia_id, mg.user_id, mg.grade, mg.updated_at
        FROM materia_grades mg
        JOIN materias m ON m.id = mg.materia_id
        WHERE m.courseid = $1 AND mg.user_id = $2
        ORDER BY mg.materia_id`
	var grades []models.MateriaGrade
	if err := r.db.SelectContext(ctx, &grades, query, courseID, userID); err != nil {
		return nil, fmt.Errorf("list materia grades: %w", err)
	}
	return grades, nil
}
