package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-progress-api/internal/dto"
	"github.com/noah-isme/course-progress-api/internal/models"
	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
	"github.com/noah-isme/course-progress-api/pkg/response"
)

type progressService interface {
	RecordView(ctx context.Context, studentEmail string, req dto.RecordViewRequest) (*models.LessonProgressView, error)
	CourseProgress(ctx context.Context, courseID, studentEmail string) (*models.CourseProgressSummary, error)
	StudentProgress(ctx context.Context, studentEmail string) ([]models.LessonProgressView, error)
}

// ProgressHandler exposes lesson progress endpoints.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler builds a new handler.
func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// RecordView godoc
// @Summary Report watched seconds for a lesson
// @Tags Progress
// @Accept json
// @Produce json
// @Param X-User-Email header string true "Caller email"
// @Param X-User-Role header string true "Caller role"
// @Param payload body dto.RecordViewRequest true "Video progress"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /progress/video/update [post]
func (h *ProgressHandler) RecordView(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid video progress payload"))
		return
	}
	view, err := h.service.RecordView(c.Request.Context(), identity.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// CourseProgress godoc
// @Summary Summarise the caller's progress in a course
// @Tags Progress
// @Produce json
// @Param X-User-Email header string true "Caller email"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /progress/course/{courseId} [get]
func (h *ProgressHandler) CourseProgress(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	summary, err := h.service.CourseProgress(c.Request.Context(), c.Param("courseId"), identity.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// MyProgress godoc
// @Summary List every lesson record of the caller
// @Tags Progress
// @Produce json
// @Param X-User-Email header string true "Caller email"
// @Success 200 {object} response.Envelope
// @Router /progress/my-progress [get]
func (h *ProgressHandler) MyProgress(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	views, err := h.service.StudentProgress(c.Request.Context(), identity.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views)
}
