package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// ActivityRepository reads activity metadata.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByID returns the activity with its owning course. sql.ErrNoRows is returned untouched.
func (r *ActivityRepository) FindByID(ctx context.Context, id int64) (*models.Activity, error) {
	const query = `SELECT a.id, a.lessons_id, l.course_id, a.name, a.parametro_id, a.revisada, a.type_id
        FROM activities a
        JOIN lessons l ON l.id = a.lessons_id
        WHERE a.id = $1`
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListByCourse returns every activity of the course ordered by id.
func (r *ActivityRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Activity, error) {
	const query = `SELECT a.id, a.lessons_id, l.course_id, a.name, a.parametro_id, a.revisada, a.type_id
        FROM activities a
        JOIN lessons l ON l.id = a.lessons_id
        WHERE l.course_id = $1
        ORDER BY a.id`
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, courseID); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}
