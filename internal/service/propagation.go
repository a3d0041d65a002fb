package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/jobs"
)

// JobTypePropagate identifies background Stage 2 to 4 runs.
const JobTypePropagate = "grades.propagate"

// PropagationRequest identifies a (course, user) pair to recompute.
type PropagationRequest struct {
	CourseID int64  `json:"courseId" validate:"required,gt=0"`
	UserID   string `json:"userId" validate:"required"`
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (bool, error)
}

type propagator interface {
	Propagate(ctx context.Context, courseID int64, userID string) (*models.RecomputeResult, error)
}

// PropagationScheduler hands propagation work to the background queue.
type PropagationScheduler struct {
	queue  jobEnqueuer
	logger *zap.Logger
}

// NewPropagationScheduler constructs a scheduler.
func NewPropagationScheduler(queue jobEnqueuer, logger *zap.Logger) *PropagationScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropagationScheduler{queue: queue, logger: logger}
}

// Schedule enqueues a propagation. Pending duplicates for the same pair are coalesced.
func (s *PropagationScheduler) Schedule(courseID int64, userID string) {
	if s == nil || s.queue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Key:     propagationKey(courseID, userID),
		Type:    JobTypePropagate,
		Payload: PropagationRequest{CourseID: courseID, UserID: userID},
	}
	queued, err := s.queue.Enqueue(job)
	if err != nil {
		s.logger.Warn("propagation not scheduled", zap.Int64("course_id", courseID), zap.String("user_id", userID), zap.Error(err))
		return
	}
	if !queued {
		s.logger.Debug("propagation already pending", zap.String("key", job.Key))
	}
}

// NewPropagationHandler runs queued propagation jobs against the grade service.
func NewPropagationHandler(grades propagator, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		req, ok := job.Payload.(PropagationRequest)
		if !ok {
			return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
		}
		outcome, err := grades.Propagate(ctx, req.CourseID, req.UserID)
		if err != nil {
			return err
		}
		logger.Debug("propagation completed",
			zap.Int64("course_id", req.CourseID),
			zap.String("user_id", req.UserID),
			zap.Bool("gradable", outcome.FinalGrade.Gradable),
			zap.Int("materias", outcome.MateriasUpdated))
		return nil
	}
}

func propagationKey(courseID int64, userID string) string {
	return fmt.Sprintf("course:%d:user:%s", courseID, userID)
}
