package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
	"github.com/noah-isme/lms-grading-api/pkg/response"
)

type activityService interface {
	SubmitAnswers(ctx context.Context, req service.SubmitAnswersRequest) (*models.SubmissionResult, error)
	Attempts(ctx context.Context, activityID int64, userID string) (*models.AttemptStatus, error)
	SubmitFile(ctx context.Context, req service.FileSubmissionRequest) (*models.SubmissionReceipt, error)
	SubmitURL(ctx context.Context, req service.URLSubmissionRequest) (*models.SubmissionReceipt, error)
}

// ActivityHandler exposes activity submission endpoints.
type ActivityHandler struct {
	activities activityService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activities activityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// SubmitAnswers godoc
// @Summary Submit activity answers
// @Description Scores an attempt on a 0 to 5 scale. Reviewed activities allow a limited number of attempts.
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SubmitAnswersRequest true "Answers payload"
// @Success 200 {object} response.Envelope{data=models.SubmissionResult}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope{data=models.SubmissionResult}
// @Router /activities/answers [post]
func (h *ActivityHandler) SubmitAnswers(c *gin.Context) {
	var req service.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := authorizeUser(c, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.activities.SubmitAnswers(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.AttemptsExhausted {
		response.ErrorWithData(c, appErrors.ErrAttemptsExhausted, result)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Attempts godoc
// @Summary Attempt status
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param activityId query int true "Activity ID"
// @Param userId query string true "User ID"
// @Success 200 {object} response.Envelope{data=models.AttemptStatus}
// @Router /activities/attempts [get]
func (h *ActivityHandler) Attempts(c *gin.Context) {
	activityID, err := queryInt64(c, "activityId")
	if err != nil {
		response.Error(c, err)
		return
	}
	userID := c.Query("userId")
	if err := authorizeUser(c, userID); err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.activities.Attempts(c.Request.Context(), activityID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// SubmitFile godoc
// @Summary Register a file submission
// @Description Students upload pending deliverables. Only staff may set a grade or the reviewed status.
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.FileSubmissionRequest true "File submission"
// @Success 201 {object} response.Envelope{data=models.SubmissionReceipt}
// @Failure 403 {object} response.Envelope
// @Router /activities/submissions/file [post]
func (h *ActivityHandler) SubmitFile(c *gin.Context) {
	var req service.FileSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := authorizeUser(c, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	req.Reviewer = isStaff(c)
	receipt, err := h.activities.SubmitFile(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, receipt)
}

// SubmitURL godoc
// @Summary Register a link submission
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.URLSubmissionRequest true "Link submission"
// @Success 201 {object} response.Envelope{data=models.SubmissionReceipt}
// @Failure 403 {object} response.Envelope
// @Router /activities/submissions/url [post]
func (h *ActivityHandler) SubmitURL(c *gin.Context) {
	var req service.URLSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := authorizeUser(c, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := h.activities.SubmitURL(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, receipt)
}
