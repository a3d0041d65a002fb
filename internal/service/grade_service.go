package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/cache"
	"github.com/noah-isme/lms-grading-api/pkg/database"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
	"github.com/noah-isme/lms-grading-api/pkg/export"
	"github.com/noah-isme/lms-grading-api/pkg/tracing"
)

// agreementTolerance bounds the difference between the two final grade computations.
const agreementTolerance = 0.01

type parameterStore interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.Parameter, error)
	UpsertGrades(ctx context.Context, grades []models.ParameterGrade) error
}

type materiaStore interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.Materia, error)
	UpsertGrades(ctx context.Context, grades []models.MateriaGrade) error
	ListGrades(ctx context.Context, courseID int64, userID string) ([]models.MateriaGrade, error)
}

type gradeProgressStore interface {
	CompletedGrades(ctx context.Context, courseID int64, userID string) ([]models.CompletedActivityGrade, error)
	SetGrade(ctx context.Context, userID string, activityID int64, grade float64) error
	UsersWithProgress(ctx context.Context, courseID int64) ([]string, error)
}

type summaryReader interface {
	Summary(ctx context.Context, courseID int64, userID string) ([]models.SummaryRow, error)
}

type cacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// UpdateGradeRequest overrides the grade of one activity.
type UpdateGradeRequest struct {
	CourseID   int64   `json:"courseId" validate:"required,gt=0"`
	UserID     string  `json:"userId" validate:"required"`
	ActivityID int64   `json:"activityId" validate:"required,gt=0"`
	FinalGrade float64 `json:"finalGrade" validate:"gte=0,lte=5"`
}

// AuditResult compares the aggregate query with the application computation.
type AuditResult struct {
	CourseID    int64              `json:"courseId"`
	UserID      string             `json:"userId"`
	Application models.CourseGrade `json:"application"`
	Aggregate   models.CourseGrade `json:"aggregate"`
	Agree       bool               `json:"agree"`
}

// ExportFile is a rendered grade summary.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// GradeService runs parameter aggregation, course grading and materia propagation.
type GradeService struct {
	params     parameterStore
	materias   materiaStore
	progress   gradeProgressStore
	activities activityReader
	summaries  summaryReader
	cache      cacheInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(params parameterStore, materias materiaStore, progress gradeProgressStore, activities activityReader, summaries summaryReader, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		params:     params,
		materias:   materias,
		progress:   progress,
		activities: activities,
		summaries:  summaries,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Recompute aggregates completed activities into parameter grades and derives the course
// grade. Materia grades are not touched.
func (s *GradeService) Recompute(ctx context.Context, courseID int64, userID string) (res *models.RecomputeResult, err error) {
	if err := validatePair(courseID, userID); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "grading.recompute", attribute.Int64("course_id", courseID), attribute.String("user_id", userID))
	defer func() { tracing.End(span, err) }()

	aggregates, grade, err := s.compute(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	if len(aggregates) > 0 {
		rows := make([]models.ParameterGrade, 0, len(aggregates))
		for _, agg := range aggregates {
			rows = append(rows, models.ParameterGrade{ParameterID: agg.ParameterID, UserID: userID, Grade: Round2(agg.Mean)})
		}
		if err := s.params.UpsertGrades(ctx, rows); err != nil {
			s.logger.Error("failed to upsert parameter grades", zap.Int64("course_id", courseID), zap.String("user_id", userID), zap.Error(err))
			return nil, appErrors.Internal(err, "failed to save parameter grades")
		}
	}
	if grade.Gradable {
		s.metrics.ObserveCourseGrade(grade.Value)
	}

	return &models.RecomputeResult{
		CourseID:        courseID,
		UserID:          userID,
		FinalGrade:      grade,
		ParameterGrades: byParameterID(aggregates),
	}, nil
}

// Propagate recomputes the course grade and writes it to every materia backed by the course.
// It is idempotent; a not gradable course writes nothing.
func (s *GradeService) Propagate(ctx context.Context, courseID int64, userID string) (res *models.RecomputeResult, err error) {
	ctx, span := tracing.Start(ctx, "grading.propagate", attribute.Int64("course_id", courseID), attribute.String("user_id", userID))
	defer func() { tracing.End(span, err) }()

	result, err := s.Recompute(ctx, courseID, userID)
	if err != nil {
		s.metrics.RecordPropagation(PropagationError)
		return nil, err
	}

	if !result.FinalGrade.Gradable {
		s.metrics.RecordPropagation(PropagationNotGradable)
		return result, nil
	}

	materias, err := s.materias.ListByCourse(ctx, courseID)
	if err != nil {
		s.metrics.RecordPropagation(PropagationError)
		return nil, appErrors.Internal(err, "failed to load materias")
	}
	if len(materias) == 0 {
		s.metrics.RecordPropagation(PropagationOK)
		return result, nil
	}
	rows := make([]models.MateriaGrade, 0, len(materias))
	for _, m := range materias {
		rows = append(rows, models.MateriaGrade{MateriaID: m.ID, UserID: userID, Grade: result.FinalGrade.Value})
	}
	if err := s.materias.UpsertGrades(ctx, rows); err != nil {
		s.metrics.RecordPropagation(PropagationError)
		s.logger.Error("failed to upsert materia grades", zap.Int64("course_id", courseID), zap.String("user_id", userID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to save materia grades")
	}
	result.MateriasUpdated = len(rows)
	s.metrics.RecordPropagation(PropagationOK)
	return result, nil
}

// Summary reads the grade summary with the single aggregate query. It never writes.
func (s *GradeService) Summary(ctx context.Context, courseID int64, userID string) (res *models.GradeSummary, err error) {
	if err := validatePair(courseID, userID); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "grading.summary", attribute.Int64("course_id", courseID), attribute.String("user_id", userID))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	rows, err := s.summaries.Summary(ctx, courseID, userID)
	s.metrics.ObserveDBQuery("grade_summary", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grade summary")
	}
	summary := buildSummary(courseID, userID, rows)
	return &summary, nil
}

// UpdateGrade stores a caller supplied activity grade and runs Stages 2 to 4.
func (s *GradeService) UpdateGrade(ctx context.Context, req UpdateGradeRequest) (*models.GradeUpdateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	activity, err := s.activities.FindByID(ctx, req.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Internal(err, "failed to load activity")
	}
	if activity.CourseID != req.CourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity does not belong to course")
	}
	if err := s.progress.SetGrade(ctx, req.UserID, req.ActivityID, Round2(req.FinalGrade)); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown activity or user")
		}
		return nil, appErrors.Internal(err, "failed to save activity grade")
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.ResultsKey(req.ActivityID, req.UserID))
	}

	result, err := s.Propagate(ctx, req.CourseID, req.UserID)
	if err != nil {
		return nil, err
	}
	return &models.GradeUpdateResult{
		Success:         true,
		FinalGrade:      result.FinalGrade,
		ParameterGrades: result.ParameterGrades,
		MateriasUpdated: result.MateriasUpdated,
	}, nil
}

// Audit computes the final grade through both paths without writing anything.
func (s *GradeService) Audit(ctx context.Context, courseID int64, userID string) (*AuditResult, error) {
	if err := validatePair(courseID, userID); err != nil {
		return nil, err
	}
	_, app, err := s.compute(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.Summary(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	return &AuditResult{
		CourseID:    courseID,
		UserID:      userID,
		Application: app,
		Aggregate:   summary.FinalGrade,
		Agree:       gradesAgree(app, summary.FinalGrade),
	}, nil
}

// MateriaGrades lists the propagated grades of a user for the materias backed by a course.
func (s *GradeService) MateriaGrades(ctx context.Context, courseID int64, userID string) ([]models.MateriaGrade, error) {
	if err := validatePair(courseID, userID); err != nil {
		return nil, err
	}
	grades, err := s.materias.ListGrades(ctx, courseID, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load materia grades")
	}
	return grades, nil
}

// CourseUsers lists the users with progress in a course.
func (s *GradeService) CourseUsers(ctx context.Context, courseID int64) ([]string, error) {
	if courseID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	users, err := s.progress.UsersWithProgress(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list course users")
	}
	return users, nil
}

// Export renders the grade summary as csv or pdf.
func (s *GradeService) Export(ctx context.Context, courseID int64, userID, format string) (*ExportFile, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	summary, err := s.Summary(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(summarySheet(summary))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render grade summary")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("grades_course_%d_%s.%s", courseID, userID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *GradeService) compute(ctx context.Context, courseID int64, userID string) ([]models.ParameterAggregate, models.CourseGrade, error) {
	params, err := s.params.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, models.NotGradable, appErrors.Internal(err, "failed to load parameters")
	}
	if total := totalWeight(params); len(params) > 0 && math.Abs(total-100) > agreementTolerance {
		s.logger.Warn("course parameter weights do not sum to 100", zap.Int64("course_id", courseID), zap.Float64("total_weight", total))
	}
	completed, err := s.progress.CompletedGrades(ctx, courseID, userID)
	if err != nil {
		return nil, models.NotGradable, appErrors.Internal(err, "failed to load completed activities")
	}
	aggregates := AggregateParameters(params, completed)
	return aggregates, CalculateCourseGrade(aggregates), nil
}

func validatePair(courseID int64, userID string) error {
	if courseID <= 0 || userID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "courseId and userId are required")
	}
	return nil
}

func byParameterID(aggregates []models.ParameterAggregate) map[int64]models.ParameterAggregate {
	out := make(map[int64]models.ParameterAggregate, len(aggregates))
	for _, agg := range aggregates {
		out[agg.ParameterID] = agg
	}
	return out
}

func gradesAgree(a, b models.CourseGrade) bool {
	if a.Gradable != b.Gradable {
		return false
	}
	return !a.Gradable || math.Abs(a.Value-b.Value) <= agreementTolerance+1e-9
}

func buildSummary(courseID int64, userID string, rows []models.SummaryRow) models.GradeSummary {
	summary := models.GradeSummary{
		CourseID:   courseID,
		UserID:     userID,
		FinalGrade: models.NotGradable,
		Parameters: []models.ParameterSummary{},
	}
	index := make(map[int64]int)
	for _, row := range rows {
		if row.FinalGrade != nil && !summary.FinalGrade.Gradable {
			summary.FinalGrade = models.Gradable(Round2(*row.FinalGrade))
		}
		i, ok := index[row.ParameterID]
		if !ok {
			summary.Parameters = append(summary.Parameters, models.ParameterSummary{
				ID:         row.ParameterID,
				Name:       row.ParameterName,
				Grade:      Round2(row.ParameterGrade),
				Weight:     row.Weight,
				Activities: []models.ActivityGradeSummary{},
			})
			i = len(summary.Parameters) - 1
			index[row.ParameterID] = i
		}
		summary.Parameters[i].Activities = append(summary.Parameters[i].Activities, models.ActivityGradeSummary{
			ID:    row.ActivityID,
			Name:  row.ActivityName,
			Grade: Round2(row.ActivityGrade),
		})
	}
	summary.IsCompleted = summary.FinalGrade.Gradable
	return summary
}

func summarySheet(summary *models.GradeSummary) export.Sheet {
	sheet := export.Sheet{
		Title:   "Grade summary",
		Caption: []string{fmt.Sprintf("Course %d", summary.CourseID), "Student " + summary.UserID},
		Columns: []export.Column{
			{Key: "parameter", Label: "Parameter", Align: "L"},
			{Key: "weight", Label: "Weight %", Align: "R"},
			{Key: "activity", Label: "Activity", Align: "L"},
			{Key: "grade", Label: "Grade", Align: "R"},
		},
	}
	for _, p := range summary.Parameters {
		weight := strconv.FormatFloat(p.Weight, 'f', -1, 64)
		for _, a := range p.Activities {
			sheet.Rows = append(sheet.Rows, map[string]string{
				"parameter": p.Name,
				"weight":    weight,
				"activity":  a.Name,
				"grade":     formatGrade(a.Grade),
			})
		}
		sheet.Rows = append(sheet.Rows, map[string]string{
			"parameter": p.Name,
			"weight":    weight,
			"activity":  "Average",
			"grade":     formatGrade(p.Grade),
		})
	}
	final := "not gradable"
	if summary.FinalGrade.Gradable {
		final = formatGrade(summary.FinalGrade.Value)
	}
	sheet.Summary = [][2]string{{"Final grade", final}}
	return sheet
}

func formatGrade(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
