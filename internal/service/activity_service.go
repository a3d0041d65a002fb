package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/cache"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
	"github.com/noah-isme/lms-grading-api/pkg/tracing"
)

type activityReader interface {
	FindByID(ctx context.Context, id int64) (*models.Activity, error)
}

type progressStore interface {
	Find(ctx context.Context, userID string, activityID int64) (*models.ActivityProgress, error)
	RecordAttempt(ctx context.Context, p models.ActivityProgress, maxAttempts int) (*models.AttemptOutcome, error)
	RecordSubmission(ctx context.Context, p models.ActivityProgress, maxAttempts int) (int, error)
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type propagationScheduler interface {
	Schedule(courseID int64, userID string)
}

// SubmitAnswersRequest carries the answers of one attempt.
type SubmitAnswersRequest struct {
	ActivityID int64                    `json:"activityId" validate:"required,gt=0"`
	UserID     string                   `json:"userId" validate:"required"`
	Answers    map[string]models.Answer `json:"answers" validate:"required,min=1,dive"`
}

// FileSubmissionRequest registers an uploaded deliverable.
type FileSubmissionRequest struct {
	ActivityID int64    `json:"activityId" validate:"required,gt=0"`
	UserID     string   `json:"userId" validate:"required"`
	FileInfo   FileInfo `json:"fileInfo"`
	// Reviewer is set by the transport layer for staff callers; only they may grade.
	Reviewer   bool     `json:"-"`
}

// FileInfo describes the stored object of a file submission.
type FileInfo struct {
	FileName    string    `json:"fileName" validate:"required"`
	FileURL     string    `json:"fileUrl" validate:"required,url"`
	DocumentKey string    `json:"documentKey" validate:"required"`
	UploadDate  time.Time `json:"uploadDate"`
	Status      string    `json:"status" validate:"required,oneof=pending reviewed"`
	Grade       *float64  `json:"grade,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// URLSubmissionRequest registers a link deliverable.
type URLSubmissionRequest struct {
	ActivityID     int64          `json:"activityId" validate:"required,gt=0"`
	UserID         string         `json:"userId" validate:"required"`
	SubmissionData SubmissionData `json:"submissionData"`
}

// SubmissionData describes a link deliverable.
type SubmissionData struct {
	URL        string    `json:"url" validate:"required,url"`
	Type       string    `json:"type"`
	UploadDate time.Time `json:"uploadDate"`
}

// ActivityConfig carries the Stage 1 policy.
type ActivityConfig struct {
	MaxAttempts      int
	PassingScore     float64
	ActivityCacheTTL time.Duration
	ResultsTTL       time.Duration
	SubmissionTTL    time.Duration
}

// ActivityService scores answer submissions and records deliverables.
type ActivityService struct {
	activities activityReader
	progress   progressStore
	cache      snapshotCache
	scheduler  propagationScheduler
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ActivityConfig
	now        func() time.Time
}

// NewActivityService constructs ActivityService.
func NewActivityService(activities activityReader, progress progressStore, cache snapshotCache, scheduler propagationScheduler, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ActivityConfig) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PassingScore <= 0 {
		cfg.PassingScore = 3
	}
	if cfg.ResultsTTL <= 0 {
		cfg.ResultsTTL = KeepForever
	}
	if cfg.SubmissionTTL <= 0 {
		cfg.SubmissionTTL = 30 * 24 * time.Hour
	}
	return &ActivityService{
		activities: activities,
		progress:   progress,
		cache:      cache,
		scheduler:  scheduler,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmitAnswers scores an attempt and records it. An exhausted attempt budget is a policy
// outcome, reported through SubmissionResult.AttemptsExhausted with a nil error.
func (s *ActivityService) SubmitAnswers(ctx context.Context, req SubmitAnswersRequest) (res *models.SubmissionResult, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answers payload")
	}
	ctx, span := tracing.Start(ctx, "grading.submit_answers",
		attribute.Int64("activity_id", req.ActivityID), attribute.String("user_id", req.UserID))
	defer func() { tracing.End(span, err) }()

	score, err := NormalizeScore(req.Answers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answers payload")
	}

	activity, err := s.loadActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}

	current, err := s.findProgress(ctx, req.UserID, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if activity.Revisada && current != nil && current.AttemptCount >= s.cfg.MaxAttempts {
		s.metrics.RecordSubmission(OutcomeExhausted, 0)
		return s.exhausted(current), nil
	}

	passed := score >= s.cfg.PassingScore
	now := s.now()
	outcome, err := s.progress.RecordAttempt(ctx, models.ActivityProgress{
		UserID:        req.UserID,
		ActivityID:    req.ActivityID,
		Progress:      100,
		IsCompleted:   passed,
		FinalGrade:    &score,
		LastAttemptAt: &now,
		Revisada:      activity.Revisada,
	}, s.cfg.MaxAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// a concurrent attempt consumed the last slot
			s.metrics.RecordSubmission(OutcomeExhausted, 0)
			latest, findErr := s.findProgress(ctx, req.UserID, req.ActivityID)
			if findErr != nil || latest == nil {
				latest = &models.ActivityProgress{AttemptCount: s.cfg.MaxAttempts}
			}
			return s.exhausted(latest), nil
		}
		s.logger.Error("failed to record attempt", zap.Int64("activity_id", req.ActivityID), zap.String("user_id", req.UserID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to save activity progress")
	}

	snapshot := models.ActivityResults{
		Answers:      req.Answers,
		Score:        score,
		FinalGrade:   score,
		Passed:       passed,
		AttemptCount: outcome.AttemptCount,
		SubmittedAt:  now,
	}
	_ = s.cache.Set(ctx, cache.ResultsKey(req.ActivityID, req.UserID), snapshot, s.cfg.ResultsTTL)

	if passed {
		s.metrics.RecordSubmission(OutcomePassed, score)
	} else {
		s.metrics.RecordSubmission(OutcomeFailed, score)
	}
	if activity.ParameterID != nil {
		s.scheduler.Schedule(activity.CourseID, req.UserID)
	}

	success := passed || !activity.Revisada
	result := &models.SubmissionResult{
		Success:      success,
		CanClose:     success,
		Score:        &score,
		AttemptCount: outcome.AttemptCount,
	}
	if activity.Revisada {
		remaining := s.cfg.MaxAttempts - outcome.AttemptCount
		if remaining < 0 {
			remaining = 0
		}
		result.AttemptsRemaining = &remaining
		if remaining == 0 {
			result.CanClose = true
		}
	}
	result.Message = submissionMessage(passed, activity.Revisada, result.AttemptsRemaining)
	return result, nil
}

// Attempts reports the attempt budget of a user on an activity.
func (s *ActivityService) Attempts(ctx context.Context, activityID int64, userID string) (*models.AttemptStatus, error) {
	if activityID <= 0 || userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activityId and userId are required")
	}
	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	current, err := s.findProgress(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	status := &models.AttemptStatus{ActivityID: activityID, UserID: userID, Revisada: activity.Revisada}
	if current != nil {
		status.Attempts = current.AttemptCount
		status.IsCompleted = current.IsCompleted
		status.FinalGrade = current.FinalGrade
	}
	if activity.Revisada {
		remaining := s.cfg.MaxAttempts - status.Attempts
		if remaining < 0 {
			remaining = 0
		}
		status.AttemptsRemaining = &remaining
		status.AttemptsExhausted = remaining == 0
	}
	return status, nil
}

// SubmitFile records an uploaded deliverable and its optional review grade.
func (s *ActivityService) SubmitFile(ctx context.Context, req FileSubmissionRequest) (*models.SubmissionReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file submission")
	}
	if !req.Reviewer && (req.FileInfo.Grade != nil || req.FileInfo.Status == models.SubmissionReviewed) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can review a submission")
	}
	activity, err := s.loadActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubmissionBudget(ctx, activity, req.UserID); err != nil {
		return nil, err
	}
	uploaded := req.FileInfo.UploadDate
	if uploaded.IsZero() {
		uploaded = s.now()
	}
	blob := models.FileSubmission{
		FileName:    req.FileInfo.FileName,
		FileURL:     req.FileInfo.FileURL,
		DocumentKey: req.FileInfo.DocumentKey,
		UploadDate:  uploaded,
		Status:      req.FileInfo.Status,
		Grade:       req.FileInfo.Grade,
	}
	if err := s.cache.Set(ctx, cache.SubmissionKey(req.ActivityID, req.UserID), blob, s.cfg.SubmissionTTL); err != nil {
		return nil, appErrors.Internal(err, "failed to store submission")
	}

	var grade *float64
	if req.FileInfo.Grade != nil {
		g := Round2(*req.FileInfo.Grade)
		grade = &g
	}
	attempts, err := s.recordSubmission(ctx, activity, req.UserID, grade, req.FileInfo.Status == models.SubmissionReviewed)
	if err != nil {
		return nil, err
	}
	if grade != nil && activity.ParameterID != nil {
		s.scheduler.Schedule(activity.CourseID, req.UserID)
	}
	return &models.SubmissionReceipt{
		Success:      true,
		Message:      "file submission saved",
		DocumentKey:  req.FileInfo.DocumentKey,
		AttemptCount: attempts,
	}, nil
}

// SubmitURL records a link deliverable. Links always await review.
func (s *ActivityService) SubmitURL(ctx context.Context, req URLSubmissionRequest) (*models.SubmissionReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid url submission")
	}
	activity, err := s.loadActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubmissionBudget(ctx, activity, req.UserID); err != nil {
		return nil, err
	}
	uploaded := req.SubmissionData.UploadDate
	if uploaded.IsZero() {
		uploaded = s.now()
	}
	kind := req.SubmissionData.Type
	if kind == "" {
		kind = "drive"
	}
	blob := models.URLSubmission{
		URL:        req.SubmissionData.URL,
		Type:       kind,
		UploadDate: uploaded,
		Status:     models.SubmissionPending,
	}
	if err := s.cache.Set(ctx, cache.URLSubmissionKey(req.ActivityID, req.UserID), blob, s.cfg.SubmissionTTL); err != nil {
		return nil, appErrors.Internal(err, "failed to store submission")
	}
	attempts, err := s.recordSubmission(ctx, activity, req.UserID, nil, false)
	if err != nil {
		return nil, err
	}
	return &models.SubmissionReceipt{Success: true, Message: "url submission saved", AttemptCount: attempts}, nil
}

// checkSubmissionBudget rejects deliverables once a reviewed activity has used every attempt.
func (s *ActivityService) checkSubmissionBudget(ctx context.Context, activity *models.Activity, userID string) error {
	if !activity.Revisada {
		return nil
	}
	current, err := s.findProgress(ctx, userID, activity.ID)
	if err != nil {
		return err
	}
	if current != nil && current.AttemptCount >= s.cfg.MaxAttempts {
		s.metrics.RecordSubmission(OutcomeExhausted, 0)
		return appErrors.ErrAttemptsExhausted
	}
	return nil
}

// recordSubmission writes deliverable progress. A missing grade keeps the stored one.
func (s *ActivityService) recordSubmission(ctx context.Context, activity *models.Activity, userID string, grade *float64, reviewed bool) (int, error) {
	limit := 0
	if activity.Revisada {
		limit = s.cfg.MaxAttempts
	}
	now := s.now()
	attempts, err := s.progress.RecordSubmission(ctx, models.ActivityProgress{
		UserID:        userID,
		ActivityID:    activity.ID,
		Progress:      100,
		IsCompleted:   true,
		FinalGrade:    grade,
		LastAttemptAt: &now,
		Revisada:      reviewed,
	}, limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordSubmission(OutcomeExhausted, 0)
			return 0, appErrors.ErrAttemptsExhausted
		}
		s.logger.Error("failed to record submission", zap.Int64("activity_id", activity.ID), zap.String("user_id", userID), zap.Error(err))
		return 0, appErrors.Internal(err, "failed to save activity progress")
	}
	return attempts, nil
}

// loadActivity reads activity metadata through the activity cache.
func (s *ActivityService) loadActivity(ctx context.Context, id int64) (*models.Activity, error) {
	key := cache.ActivityKey(id)
	var cached models.Activity
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Internal(err, "failed to load activity")
	}
	_ = s.cache.Set(ctx, key, activity, s.cfg.ActivityCacheTTL)
	return activity, nil
}

func (s *ActivityService) findProgress(ctx context.Context, userID string, activityID int64) (*models.ActivityProgress, error) {
	p, err := s.progress.Find(ctx, userID, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load activity progress")
	}
	return p, nil
}

func (s *ActivityService) exhausted(p *models.ActivityProgress) *models.SubmissionResult {
	zero := 0
	return &models.SubmissionResult{
		Success:           false,
		CanClose:          true,
		AttemptCount:      p.AttemptCount,
		AttemptsRemaining: &zero,
		AttemptsExhausted: true,
		FinalGrade:        p.FinalGrade,
		Message:           fmt.Sprintf("no attempts remaining, the limit is %d", s.cfg.MaxAttempts),
	}
}

func submissionMessage(passed, revisada bool, remaining *int) string {
	switch {
	case passed:
		return "answers saved, activity passed"
	case !revisada:
		return "answers saved"
	case remaining != nil && *remaining == 0:
		return "answers saved, no attempts remaining"
	default:
		return fmt.Sprintf("answers saved, score below passing grade, %d attempts remaining", *remaining)
	}
}
