package models

import (
	"encoding/json"
	"time"
)

// Parameter is a percentage weighted grading bucket of a course.
type Parameter struct {
	ID         int64   `db:"id" json:"id"`
	CourseID   int64   `db:"course_id" json:"courseId"`
	Name       string  `db:"name" json:"name"`
	Porcentaje float64 `db:"porcentaje" json:"porcentaje"`
}

// ParameterGrade is the persisted mean of a parameter for a user.
type ParameterGrade struct {
	ParameterID int64     `db:"parameter_id" json:"parameterId"`
	UserID      string    `db:"user_id" json:"userId"`
	Grade       float64   `db:"grade" json:"grade"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Materia is a credit bearing subject that a course can satisfy.
type Materia struct {
	ID       int64  `db:"id" json:"id"`
	CourseID *int64 `db:"courseid" json:"courseId"`
	Title    string `db:"title" json:"title"`
}

// MateriaGrade is the propagated course grade of a user for a materia.
type MateriaGrade struct {
	MateriaID int64     `db:"materia_id" json:"materiaId"`
	UserID    string    `db:"user_id" json:"userId"`
	Grade     float64   `db:"grade" json:"grade"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CompletedActivityGrade is one completed activity grade tied to a parameter.
type CompletedActivityGrade struct {
	ParameterID  int64   `db:"parametro_id"`
	ActivityID   int64   `db:"activity_id"`
	ActivityName string  `db:"activity_name"`
	FinalGrade   float64 `db:"final_grade"`
}

// ParameterAggregate is the Stage 2 result for one parameter.
type ParameterAggregate struct {
	ParameterID int64   `json:"-"`
	Name        string  `json:"-"`
	Sum         float64 `json:"sum"`
	Count       int     `json:"count"`
	Weight      float64 `json:"weight"`
	Mean        float64 `json:"-"`
}

// CourseGrade is either not gradable yet or carries a value in [0,5].
type CourseGrade struct {
	Gradable bool
	Value    float64
}

// Gradable builds a gradable course grade.
func Gradable(v float64) CourseGrade {
	return CourseGrade{Gradable: true, Value: v}
}

// NotGradable is the course grade when no parameter carries weight yet.
var NotGradable = CourseGrade{}

// Ptr returns nil when not gradable.
func (g CourseGrade) Ptr() *float64 {
	if !g.Gradable {
		return nil
	}
	v := g.Value
	return &v
}

// MarshalJSON renders null for a not gradable grade.
func (g CourseGrade) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Ptr())
}

// UnmarshalJSON accepts a number or null.
func (g *CourseGrade) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*g = NotGradable
		return nil
	}
	*g = Gradable(*v)
	return nil
}

// SummaryRow is one row of the window function summary query.
type SummaryRow struct {
	ParameterID    int64    `db:"parameter_id"`
	ParameterName  string   `db:"parameter_name"`
	Weight         float64  `db:"weight"`
	ParameterGrade float64  `db:"parameter_grade"`
	FinalGrade     *float64 `db:"final_grade"`
	ActivityID     int64    `db:"activity_id"`
	ActivityName   string   `db:"activity_name"`
	ActivityGrade  float64  `db:"activity_grade"`
}

// ActivityGradeSummary is an activity line of the grade summary.
type ActivityGradeSummary struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Grade float64 `json:"grade"`
}

// ParameterSummary groups graded activities under a parameter.
type ParameterSummary struct {
	ID         int64                  `json:"id"`
	Name       string                 `json:"name"`
	Grade      float64                `json:"grade"`
	Weight     float64                `json:"weight"`
	Activities []ActivityGradeSummary `json:"activities"`
}

// GradeSummary is the read model of a user's grades in a course.
type GradeSummary struct {
	CourseID    int64              `json:"courseId"`
	UserID      string             `json:"userId"`
	FinalGrade  CourseGrade        `json:"finalGrade"`
	Parameters  []ParameterSummary `json:"parameters"`
	IsCompleted bool               `json:"isCompleted"`
}

// RecomputeResult reports the outcome of Stages 2 to 4.
type RecomputeResult struct {
	CourseID        int64                        `json:"courseId"`
	UserID          string                       `json:"userId"`
	FinalGrade      CourseGrade                  `json:"finalGrade"`
	ParameterGrades map[int64]ParameterAggregate `json:"parameterGrades"`
	MateriasUpdated int                          `json:"materiasUpdated"`
}

// GradeUpdateResult is returned by the grade update endpoint.
type GradeUpdateResult struct {
	Success         bool                         `json:"success"`
	FinalGrade      CourseGrade                  `json:"finalGrade"`
	ParameterGrades map[int64]ParameterAggregate `json:"parameterGrades"`
	MateriasUpdated int                          `json:"materiasUpdated"`
}
