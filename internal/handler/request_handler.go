package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-hub/clearance-api/internal/dto"
	"github.com/campus-hub/clearance-api/internal/service"
	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
	"github.com/campus-hub/clearance-api/pkg/response"
	"github.com/campus-hub/clearance-api/pkg/storage"
)

type requestService interface {
	Submit(ctx context.Context, userID string, req dto.CreateRequestRequest, documents []string) (*dto.RequestView, error)
	Get(ctx context.Context, userID, requestID string) (*dto.RequestView, error)
	List(ctx context.Context, userID string, query dto.RequestQuery) ([]dto.RequestView, error)
	ListPending(ctx context.Context, userID string, query dto.RequestQuery) ([]dto.RequestView, error)
	Decide(ctx context.Context, userID, requestID string, decision dto.DecisionRequest) (*dto.RequestView, error)
	Cancel(ctx context.Context, userID, requestID string) (*dto.RequestView, error)
	Reassign(ctx context.Context, userID, requestID string, req dto.ReassignRequest) (*dto.RequestView, error)
	AttachDocuments(ctx context.Context, userID, requestID string, documents []string) error
	Certificate(ctx context.Context, userID, requestID string) ([]byte, error)
}

// RequestHandler exposes REST endpoints for clearance requests.
type RequestHandler struct {
	service   requestService
	documents *storage.DocumentStore
	metrics   *service.MetricsService
	maxFiles  int
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(svc requestService, documents *storage.DocumentStore, metrics *service.MetricsService, maxFiles int) *RequestHandler {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &RequestHandler{service: svc, documents: documents, metrics: metrics, maxFiles: maxFiles}
}

// Create godoc
// @Summary Submit a clearance request
// @Tags Requests
// @Accept multipart/form-data
// @Produce json
// @Param type formData string true "Request type"
// @Param reason formData string true "Reason"
// @Param programType formData string true "Program type"
// @Param programMode formData string true "Program mode"
// @Param documents formData file false "Supporting documents"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateRequestRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}

	documents, err := h.saveUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.service.Submit(c.Request.Context(), claims.UserID, req, documents)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordSubmission(string(view.Type))
	response.Created(c, view)
}

// List godoc
// @Summary List clearance requests visible to the current account
// @Tags Requests
// @Produce json
// @Param status query string false "Status filter"
// @Param type query string false "Type filter"
// @Param search query string false "Search text"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	views, err := h.service.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// ListPending godoc
// @Summary List requests awaiting the current approver's decision
// @Tags Requests
// @Produce json
// @Param type query string false "Type filter"
// @Param search query string false "Search text"
// @Success 200 {object} response.Envelope
// @Router /requests/pending [get]
func (h *RequestHandler) ListPending(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	views, err := h.service.ListPending(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Get godoc
// @Summary Get one clearance request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Decide godoc
// @Summary Approve or reject the current step
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/decision [post]
func (h *RequestHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var decision dto.DecisionRequest
	if err := c.ShouldBindJSON(&decision); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}

	view, err := h.service.Decide(c.Request.Context(), claims.UserID, c.Param("id"), decision)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordDecision(string(decision.Action))
	response.JSON(c, http.StatusOK, view, nil)
}

// Cancel godoc
// @Summary Cancel own clearance request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.service.Cancel(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Reassign godoc
// @Summary Reassign the current step to a different approver
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReassignRequest true "New approver"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/reassign [post]
func (h *RequestHandler) Reassign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reassignment payload"))
		return
	}

	view, err := h.service.Reassign(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// UploadDocuments godoc
// @Summary Attach supporting documents to own request
// @Tags Requests
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Request ID"
// @Param documents formData file true "Documents"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{id}/documents [post]
func (h *RequestHandler) UploadDocuments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	documents, err := h.saveUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(documents) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no documents supplied"))
		return
	}

	if err := h.service.AttachDocuments(c.Request.Context(), claims.UserID, c.Param("id"), documents); err != nil {
		for _, name := range documents {
			_ = h.documents.Remove(name)
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"documents": documents}, nil)
}

// Certificate godoc
// @Summary Download the clearance certificate
// @Tags Requests
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/certificate [get]
func (h *RequestHandler) Certificate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pdf, err := h.service.Certificate(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("clearance-certificate-%s-%s.pdf", c.Param("id"), time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *RequestHandler) saveUploads(c *gin.Context) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// JSON bodies and form posts without files land here.
		return nil, nil
	}
	files := form.File["documents"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > h.maxFiles {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d documents per upload", h.maxFiles))
	}

	stored := make([]string, 0, len(files))
	for _, header := range files {
		if !h.documents.Allowed(header.Filename) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
		}
		file, err := header.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
		}
		name, err := h.documents.Save(header.Filename, file)
		file.Close()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
		}
		stored = append(stored, name)
	}
	return stored, nil
}
