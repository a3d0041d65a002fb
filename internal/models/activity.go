package models

import "time"

// Activity is a gradable unit of work attached to a lesson.
type Activity struct {
	ID          int64  `db:"id" json:"id"`
	LessonID    int64  `db:"lessons_id" json:"lessonId"`
	CourseID    int64  `db:"course_id" json:"courseId"`
	Name        string `db:"name" json:"name"`
	ParameterID *int64 `db:"parametro_id" json:"parametroId"`
	Revisada    bool   `db:"revisada" json:"revisada"`
	TypeID      int64  `db:"type_id" json:"typeId"`
}

// ActivityProgress is the per user state of an activity.
type ActivityProgress struct {
	UserID        string     `db:"user_id" json:"userId"`
	ActivityID    int64      `db:"activity_id" json:"activityId"`
	Progress      float64    `db:"progress" json:"progress"`
	IsCompleted   bool       `db:"is_completed" json:"isCompleted"`
	AttemptCount  int        `db:"attempt_count" json:"attemptCount"`
	FinalGrade    *float64   `db:"final_grade" json:"finalGrade"`
	LastAttemptAt *time.Time `db:"last_attempt_at" json:"lastAttemptAt,omitempty"`
	Revisada      bool       `db:"revisada" json:"revisada"`
}

// AttemptOutcome is what the conditional attempt upsert returned.
type AttemptOutcome struct {
	AttemptCount int      `db:"attempt_count"`
	FinalGrade   *float64 `db:"final_grade"`
}

// Answer is one graded question of a submission.
type Answer struct {
	IsCorrect    bool     `json:"isCorrect"`
	PesoPregunta *float64 `json:"pesoPregunta,omitempty" validate:"omitempty,gte=0"`
}

// ActivityResults is the last computed answer snapshot kept in the cache.
type ActivityResults struct {
	Answers      map[string]Answer `json:"answers"`
	Score        float64           `json:"score"`
	FinalGrade   float64           `json:"finalGrade"`
	Passed       bool              `json:"passed"`
	AttemptCount int               `json:"attemptCount"`
	SubmittedAt  time.Time         `json:"submittedAt"`
}

// SubmissionResult is returned after an answer submission.
type SubmissionResult struct {
	Success           bool     `json:"success"`
	CanClose          bool     `json:"canClose"`
	Score             *float64 `json:"score,omitempty"`
	AttemptCount      int      `json:"attemptCount"`
	AttemptsRemaining *int     `json:"attemptsRemaining"`
	AttemptsExhausted bool     `json:"attemptsExhausted,omitempty"`
	FinalGrade        *float64 `json:"finalGrade,omitempty"`
	Message           string   `json:"message"`
}

// AttemptStatus describes how many attempts a user has left on an activity.
type AttemptStatus struct {
	ActivityID        int64    `json:"activityId"`
	UserID            string   `json:"userId"`
	Attempts          int      `json:"attempts"`
	AttemptsRemaining *int     `json:"attemptsRemaining"`
	AttemptsExhausted bool     `json:"attemptsExhausted"`
	IsCompleted       bool     `json:"isCompleted"`
	FinalGrade        *float64 `json:"finalGrade"`
	Revisada          bool     `json:"revisada"`
}

// Submission statuses.
const (
	SubmissionPending  = "pending"
	SubmissionReviewed = "reviewed"
)

// FileSubmission is the blob cached for uploaded deliverables.
type FileSubmission struct {
	FileName    string    `json:"fileName"`
	FileURL     string    `json:"fileUrl"`
	DocumentKey string    `json:"documentKey"`
	UploadDate  time.Time `json:"uploadDate"`
	Status      string    `json:"status"`
	Grade       *float64  `json:"grade,omitempty"`
}

// URLSubmission is the blob cached for link deliverables.
type URLSubmission struct {
	URL        string    `json:"url"`
	Type       string    `json:"type"`
	UploadDate time.Time `json:"uploadDate"`
	Status     string    `json:"status"`
	Grade      float64   `json:"grade"`
}

// SubmissionReceipt is returned once a deliverable is stored.
type SubmissionReceipt struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DocumentKey  string `json:"documentKey,omitempty"`
	AttemptCount int    `json:"attemptCount"`
}
