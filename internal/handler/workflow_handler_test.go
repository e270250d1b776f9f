package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/middleware"
	"github.com/campus-hub/clearance-api/internal/models"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

type workflowServiceMock struct {
	resolveResp *dto.WorkflowView
	resolveErr  error
	updateResp  *dto.UpdateWorkflowResult
	updateErr   error

	lastQuery  dto.ResolveWorkflowQuery
	lastUpdate dto.UpdateWorkflowRequest
}

func (m *workflowServiceMock) Resolve(ctx context.Context, query dto.ResolveWorkflowQuery) (*dto.WorkflowView, error) {
	m.lastQuery = query
	return m.resolveResp, m.resolveErr
}

func (m *workflowServiceMock) List(ctx context.Context) ([]dto.WorkflowView, error) {
	return nil, nil
}

func (m *workflowServiceMock) Update(ctx context.Context, userID string, req dto.UpdateWorkflowRequest) (*dto.UpdateWorkflowResult, error) {
	m.lastUpdate = req
	return m.updateResp, m.updateErr
}

func TestWorkflowHandlerResolve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &workflowServiceMock{
		resolveResp: &dto.WorkflowView{
			Type:       models.RequestTypeTermination,
			ProgramKey: "undergraduate-regular",
			Sequence:   []string{"Academic Advisor", "Registrar"},
		},
	}
	handler := NewWorkflowHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/workflows/resolve?type=termination&programKey=undergraduate-regular", nil)
	c.Request = req

	handler.Resolve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RequestTypeTermination, mockSvc.lastQuery.Type)
	assert.Equal(t, "undergraduate-regular", mockSvc.lastQuery.ProgramKey)
}

func TestWorkflowHandlerResolveUnknownType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &workflowServiceMock{resolveErr: appErrors.Clone(appErrors.ErrNotFound, "unknown request type")}
	handler := NewWorkflowHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/workflows/resolve?type=graduation&programKey=undergraduate-regular", nil)
	c.Request = req

	handler.Resolve(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &workflowServiceMock{
		updateResp: &dto.UpdateWorkflowResult{UpdatedRequests: 3, SkippedRequests: 1},
	}
	handler := NewWorkflowHandler(mockSvc)

	payload, _ := json.Marshal(dto.UpdateWorkflowRequest{
		Type:       models.RequestTypeTermination,
		ProgramKey: "undergraduate-regular",
		Sequence:   []string{"Registrar", "Finance Office"},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/workflows", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Registrar", "Finance Office"}, mockSvc.lastUpdate.Sequence)
}

func TestWorkflowHandlerUpdateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewWorkflowHandler(&workflowServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/workflows", bytes.NewBufferString(`{"type":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Update(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
