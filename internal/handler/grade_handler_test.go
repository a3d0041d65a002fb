package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type gradeServiceMock struct {
	summary        *models.GradeSummary
	summaryErr     error
	propagateErr   error
	propagateCalls int
	update         *models.GradeUpdateResult
	updateReq      service.UpdateGradeRequest
	export         *service.ExportFile
	exportFormat   string
}

func (m *gradeServiceMock) Summary(context.Context, int64, string) (*models.GradeSummary, error) {
	return m.summary, m.summaryErr
}

func (m *gradeServiceMock) Propagate(_ context.Context, courseID int64, userID string) (*models.RecomputeResult, error) {
	m.propagateCalls++
	if m.propagateErr != nil {
		return nil, m.propagateErr
	}
	return &models.RecomputeResult{CourseID: courseID, UserID: userID, FinalGrade: models.Gradable(4), MateriasUpdated: 2}, nil
}

func (m *gradeServiceMock) UpdateGrade(_ context.Context, req service.UpdateGradeRequest) (*models.GradeUpdateResult, error) {
	m.updateReq = req
	return m.update, nil
}

func (m *gradeServiceMock) MateriaGrades(_ context.Context, _ int64, userID string) ([]models.MateriaGrade, error) {
	return []models.MateriaGrade{{MateriaID: 7, UserID: userID, Grade: 4}, {MateriaID: 8, UserID: userID, Grade: 4}}, nil
}

func (m *gradeServiceMock) Export(_ context.Context, _ int64, _ string, format string) (*service.ExportFile, error) {
	m.exportFormat = format
	return m.export, nil
}

func TestGradeHandlerSummaryPropagatesOnRead(t *testing.T) {
	mockSvc := &gradeServiceMock{summary: &models.GradeSummary{CourseID: 10, UserID: "u1", FinalGrade: models.Gradable(4), IsCompleted: true}}
	handler := NewGradeHandler(mockSvc, true, nil)

	c, w := newGinContext(http.MethodGet, "/grades/summary?courseId=10&userId=u1", nil)
	asUser(c, "u1", models.RoleStudent)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mockSvc.propagateCalls)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(w).Data, &body))
	assert.Equal(t, 4.0, body["finalGrade"])
	assert.Equal(t, true, body["isCompleted"])
}

func TestGradeHandlerSummaryPropagationFailureIsNotFatal(t *testing.T) {
	mockSvc := &gradeServiceMock{
		summary:      &models.GradeSummary{FinalGrade: models.Gradable(3)},
		propagateErr: errors.New("db down"),
	}
	handler := NewGradeHandler(mockSvc, true, nil)

	c, w := newGinContext(http.MethodGet, "/grades/summary?courseId=10&userId=u1", nil)
	asUser(c, "u1", models.RoleStudent)
	handler.Summary(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGradeHandlerSummaryNotGradable(t *testing.T) {
	mockSvc := &gradeServiceMock{summary: &models.GradeSummary{CourseID: 10, UserID: "u1", FinalGrade: models.NotGradable, Parameters: []models.ParameterSummary{}}}
	handler := NewGradeHandler(mockSvc, true, nil)

	c, w := newGinContext(http.MethodGet, "/grades/summary?courseId=10&userId=u1", nil)
	asUser(c, "edu", models.RoleEducator)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, mockSvc.propagateCalls)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(w).Data, &body))
	assert.Nil(t, body["finalGrade"])
	assert.Equal(t, false, body["isCompleted"])
}

func TestGradeHandlerSummaryRejects(t *testing.T) {
	handler := NewGradeHandler(&gradeServiceMock{}, false, nil)

	c, w := newGinContext(http.MethodGet, "/grades/summary?userId=u1", nil)
	asUser(c, "u1", models.RoleStudent)
	handler.Summary(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/grades/summary?courseId=10&userId=u2", nil)
	asUser(c, "u1", models.RoleStudent)
	handler.Summary(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	handler = NewGradeHandler(&gradeServiceMock{summaryErr: appErrors.Clone(appErrors.ErrInternal, "failed to load grade summary")}, false, nil)
	c, w = newGinContext(http.MethodGet, "/grades/summary?courseId=10&userId=u1", nil)
	asUser(c, "u1", models.RoleStudent)
	handler.Summary(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGradeHandlerUpdate(t *testing.T) {
	mockSvc := &gradeServiceMock{update: &models.GradeUpdateResult{
		Success:         true,
		FinalGrade:      models.Gradable(4.2),
		ParameterGrades: map[int64]models.ParameterAggregate{100: {Sum: 5, Count: 1, Weight: 60}},
	}}
	handler := NewGradeHandler(mockSvc, false, nil)

	c, w := newGinContext(http.MethodPost, "/grades/update", map[string]interface{}{"courseId": 10, "userId": "u1", "activityId": 1, "finalGrade": 5})
	asUser(c, "edu", models.RoleEducator)
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.UpdateGradeRequest{CourseID: 10, UserID: "u1", ActivityID: 1, FinalGrade: 5}, mockSvc.updateReq)
	assert.JSONEq(t, `{"success":true,"finalGrade":4.2,"parameterGrades":{"100":{"sum":5,"count":1,"weight":60}},"materiasUpdated":0}`, string(decode(w).Data))
}

func TestGradeHandlerPropagate(t *testing.T) {
	mockSvc := &gradeServiceMock{}
	handler := NewGradeHandler(mockSvc, false, nil)

	c, w := newGinContext(http.MethodPost, "/grades/propagate", map[string]interface{}{"courseId": 10, "userId": "u1"})
	asUser(c, "u1", models.RoleStudent)
	handler.Propagate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mockSvc.propagateCalls)
}

func TestGradeHandlerExport(t *testing.T) {
	mockSvc := &gradeServiceMock{export: &service.ExportFile{Filename: "grades_course_10_u1.csv", ContentType: "text/csv", Body: []byte("a,b\n")}}
	handler := NewGradeHandler(mockSvc, false, nil)

	c, w := newGinContext(http.MethodGet, "/grades/summary/export?courseId=10&userId=u1", nil)
	asUser(c, "u1", models.RoleStudent)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mockSvc.exportFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "grades_course_10_u1.csv")
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestGradeHandlerMaterias(t *testing.T) {
	handler := NewGradeHandler(&gradeServiceMock{}, false, nil)

	c, w := newGinContext(http.MethodGet, "/grades/materias?courseId=10&userId=u1", nil)
	asUser(c, "u1", models.RoleStudent)
	handler.Materias(c)

	require.Equal(t, http.StatusOK, w.Code)
	var grades []models.MateriaGrade
	require.NoError(t, json.Unmarshal(decode(w).Data, &grades))
	assert.Len(t, grades, 2)
	assert.Contains(t, w.Body.String(), `"total":2`)
}
