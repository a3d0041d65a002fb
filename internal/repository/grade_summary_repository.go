package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// GradeSummaryRepository computes the grade summary in a single aggregate query.
type GradeSummaryRepository struct {
	db *sqlx.DB
}

// NewGradeSummaryRepository creates a new summary repository.
func NewGradeSummaryRepository(db *sqlx.DB) *GradeSummaryRepository {
	return &GradeSummaryRepository{db: db}
}

// Summary returns one row per graded activity. Every row carries its parameter mean and
// the course final grade, which is NULL when no graded parameter has weight.
func (r *GradeSummaryRepository) Summary(ctx context.Context, courseID int64, userID string) ([]models.SummaryRow, error) {
	const query = `WITH graded AS (
            SELECT pr.id AS parameter_id, pr.name AS parameter_name, pr.porcentaje AS weight,
                a.id AS activity_id, a.name AS activity_name, p.final_grade AS activity_grade
            FROM parametros pr
            JOIN activities a ON a.parametro_id = pr.id
            JOIN user_activities_progress p ON p.activity_id = a.id AND p.user_id = $2
            WHERE pr.course_id = $1 AND p.is_completed = true AND p.final_grade IS NOT NULL
        ), per_parameter AS (
            SELECT parameter_id, MAX(parameter_name) AS parameter_name, MAX(weight) AS weight,
                AVG(activity_grade) AS parameter_grade
            FROM graded
            GROUP BY parameter_id
        ), weighted AS (
            SELECT parameter_id, parameter_name, weight, parameter_grade,
                SUM(parameter_grade * weight) OVER () / NULLIF(SUM(weight) OVER (), 0) AS final_grade
            FROM per_parameter
        )
        SELECT w.parameter_id, w.parameter_name, w.weight, w.parameter_grade, w.final_grade,
            g.activity_id, g.activity_name, g.activity_grade
        FROM graded g
        JOIN weighted w ON w.parameter_id = g.parameter_id
        ORDER BY w.parameter_id, g.activity_id`
	var rows []models.SummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID, userID); err != nil {
		return nil, fmt.Errorf("grade summary: %w", err)
	}
	return rows, nil
}
