package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// ProgressRepository persists user_activities_progress rows.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Find returns the progress of a user on an activity. sql.ErrNoRows means not started.
func (r *ProgressRepository) Find(ctx context.Context, userID string, activityID int64) (*models.ActivityProgress, error) {
	const query = `SELECT user_id, activity_id, progress, is_completed, attempt_count, final_grade, last_attempt_at, revisada
        FROM user_activities_progress
        WHERE user_id = $1 AND activity_id = $2`
	var progress models.ActivityProgress
	if err := r.db.GetContext(ctx, &progress, query, userID, activityID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// RecordAttempt stores a scored attempt and increments attempt_count in one statement.
// The update only applies while the activity is not revisada or fewer than maxAttempts
// attempts are recorded; otherwise no row is returned and sql.ErrNoRows is reported.
func (r *ProgressRepository) RecordAttempt(ctx context.Context, p models.ActivityProgress, maxAttempts int) (*models.AttemptOutcome, error) {
	if p.LastAttemptAt == nil {
		now := time.Now().UTC()
		p.LastAttemptAt = &now
	}
	const query = `INSERT INTO user_activities_progress (user_id, activity_id, progress, is_completed, attempt_count, final_grade, last_attempt_at, revisada)
        VALUES ($1, $2, $3, $4, 1, $5, $6, $7)
        ON CONFLICT (user_id, activity_id)
        DO UPDATE SET progress = EXCLUDED.progress, is_completed = EXCLUDED.is_completed,
            attempt_count = user_activities_progress.attempt_count + 1,
            final_grade = EXCLUDED.final_grade, last_attempt_at = EXCLUDED.last_attempt_at, revisada = EXCLUDED.revisada
        WHERE NOT EXCLUDED.revisada OR user_activities_progress.attempt_count < $8
        RETURNING attempt_count, final_grade`
	var outcome models.AttemptOutcome
	row := r.db.QueryRowxContext(ctx, query, p.UserID, p.ActivityID, p.Progress, p.IsCompleted, p.FinalGrade, p.LastAttemptAt, p.Revisada, maxAttempts)
	if err := row.StructScan(&outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// RecordSubmission stores a deliverable submission and returns the new attempt count. A
// positive maxAttempts caps the existing row the way RecordAttempt does; sql.ErrNoRows means
// the cap was reached. A nil grade keeps the stored one.
func (r *ProgressRepository) RecordSubmission(ctx context.Context, p models.ActivityProgress, maxAttempts int) (int, error) {
	if p.LastAttemptAt == nil {
		now := time.Now().UTC()
		p.LastAttemptAt = &now
	}
	const query = `INSERT INTO user_activities_progress (user_id, activity_id, progress, is_completed, attempt_count, final_grade, last_attempt_at, revisada)
        VALUES ($1, $2, $3, $4, 1, $5, $6, $7)
        ON CONFLICT (user_id, activity_id)
        DO UPDATE SET progress = EXCLUDED.progress, is_completed = EXCLUDED.is_completed,
            attempt_count = user_activities_progress.attempt_count + 1,
            final_grade = COALESCE(EXCLUDED.final_grade, user_activities_progress.final_grade),
            last_attempt_at = EXCLUDED.last_attempt_at, revisada = EXCLUDED.revisada
        WHERE $8::int <= 0 OR user_activities_progress.attempt_count < $8::int
        RETURNING attempt_count`
	var attempts int
	if err := r.db.QueryRowxContext(ctx, query, p.UserID, p.ActivityID, p.Progress, p.IsCompleted, p.FinalGrade, p.LastAttemptAt, p.Revisada, maxAttempts).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("record submission: %w", err)
	}
	return attempts, nil
}

// SetGrade marks the activity completed with a caller supplied grade. Attempts are untouched.
func (r *ProgressRepository) SetGrade(ctx context.Context, userID string, activityID int64, grade float64) error {
	const query = `INSERT INTO user_activities_progress (user_id, activity_id, progress, is_completed, attempt_count, final_grade, last_attempt_at, revisada)
        VALUES ($1, $2, 100, true, 0, $3, $4, false)
        ON CONFLICT (user_id, activity_id)
        DO UPDATE SET progress = 100, is_completed = true, final_grade = EXCLUDED.final_grade, last_attempt_at = EXCLUDED.last_attempt_at`
	if _, err := r.db.ExecContext(ctx, query, userID, activityID, grade, time.Now().UTC()); err != nil {
		return fmt.Errorf("set activity grade: %w", err)
	}
	return nil
}

// CompletedGrades lists the completed, graded activities of a user under the course parameters.
func (r *ProgressRepository) CompletedGrades(ctx context.Context, courseID int64, userID string) ([]models.CompletedActivityGrade, error) {
	const query = `SELECT a.parametro_id, a.id AS activity_id, a.name AS activity_name, p.final_grade
        FROM user_activities_progress p
        JOIN activities a ON a.id = p.activity_id
        JOIN parametros pr ON pr.id = a.parametro_id
        WHERE pr.course_id = $1 AND p.user_id = $2 AND p.is_completed = true AND p.final_grade IS NOT NULL
        ORDER BY a.parametro_id, a.id`
	var grades []models.CompletedActivityGrade
	if err := r.db.SelectContext(ctx, &grades, query, courseID, userID); err != nil {
		return nil, fmt.Errorf("list completed grades: %w", err)
	}
	return grades, nil
}

// UsersWithProgress lists users holding any progress on activities of the course.
func (r *ProgressRepository) UsersWithProgress(ctx context.Context, courseID int64) ([]string, error) {
	const query = `SELECT DISTINCT p.user_id
        FROM user_activities_progress p
        JOIN activities a ON a.id = p.activity_id
        JOIN lessons l ON l.id = a.lessons_id
        WHERE l.course_id = $1
        ORDER BY p.user_id`
	var users []string
	if err := r.db.SelectContext(ctx, &users, query, courseID); err != nil {
		return nil, fmt.Errorf("list course users: %w", err)
	}
	return users, nil
}
