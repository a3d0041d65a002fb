package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/response"
)

type gradeService interface {
	Summary(ctx context.Context, courseID int64, userID string) (*models.GradeSummary, error)
	Propagate(ctx context.Context, courseID int64, userID string) (*models.RecomputeResult, error)
	UpdateGrade(ctx context.Context, req service.UpdateGradeRequest) (*models.GradeUpdateResult, error)
	Export(ctx context.Context, courseID int64, userID, format string) (*service.ExportFile, error)
	MateriaGrades(ctx context.Context, courseID int64, userID string) ([]models.MateriaGrade, error)
}

// GradeHandler exposes course grade endpoints.
type GradeHandler struct {
	grades          gradeService
	propagateOnRead bool
	logger          *zap.Logger
}

// NewGradeHandler constructs handler. With propagateOnRead a summary read also refreshes
// the materia grades of the pair.
func NewGradeHandler(grades gradeService, propagateOnRead bool, logger *zap.Logger) *GradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeHandler{grades: grades, propagateOnRead: propagateOnRead, logger: logger}
}

// Summary godoc
// @Summary Course grade summary
// @Description Final grade is null while no weighted parameter has a completed activity.
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param courseId query int true "Course ID"
// @Param userId query string true "User ID"
// @Success 200 {object} response.Envelope{data=models.GradeSummary}
// @Router /grades/summary [get]
func (h *GradeHandler) Summary(c *gin.Context) {
	courseID, userID, err := h.pair(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.grades.Summary(c.Request.Context(), courseID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.propagateOnRead && summary.FinalGrade.Gradable {
		if _, err := h.grades.Propagate(c.Request.Context(), courseID, userID); err != nil {
			h.logger.Warn("propagation on read failed", zap.Int64("course_id", courseID), zap.String("user_id", userID), zap.Error(err))
		}
	}
	response.JSON(c, http.StatusOK, summary)
}

// Update godoc
// @Summary Override an activity grade
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope{data=models.GradeUpdateResult}
// @Router /grades/update [post]
func (h *GradeHandler) Update(c *gin.Context) {
	var req service.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.grades.UpdateGrade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Propagate godoc
// @Summary Recompute and propagate a course grade
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PropagationRequest true "Course and user"
// @Success 200 {object} response.Envelope{data=models.RecomputeResult}
// @Router /grades/propagate [post]
func (h *GradeHandler) Propagate(c *gin.Context) {
	var req service.PropagationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := authorizeUser(c, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.grades.Propagate(c.Request.Context(), req.CourseID, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Export the course grade summary
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param courseId query int true "Course ID"
// @Param userId query string true "User ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /grades/summary/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	courseID, userID, err := h.pair(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.grades.Export(c.Request.Context(), courseID, userID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// Materias godoc
// @Summary Propagated materia grades
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param courseId query int true "Course ID"
// @Param userId query string true "User ID"
// @Success 200 {object} response.Envelope{data=[]models.MateriaGrade}
// @Router /grades/materias [get]
func (h *GradeHandler) Materias(c *gin.Context) {
	courseID, userID, err := h.pair(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grades, err := h.grades.MateriaGrades(c.Request.Context(), courseID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, map[string]interface{}{"total": len(grades)})
}

func (h *GradeHandler) pair(c *gin.Context) (int64, string, error) {
	courseID, err := queryInt64(c, "courseId")
	if err != nil {
		return 0, "", err
	}
	userID := c.Query("userId")
	if err := authorizeUser(c, userID); err != nil {
		return 0, "", err
	}
	return courseID, userID, nil
}
