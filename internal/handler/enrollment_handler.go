package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-progress-api/internal/dto"
	"github.com/noah-isme/course-progress-api/internal/models"
	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
	"github.com/noah-isme/course-progress-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, identity models.Identity, req dto.EnrollRequest) (*models.Enrollment, error)
	ListForStudent(ctx context.Context, studentEmail string) ([]models.Enrollment, error)
	ListForCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateProgress(ctx context.Context, studentEmail string, req dto.UpdateEnrollmentProgressRequest) (*models.Enrollment, error)
	ApplyProgress(ctx context.Context, id string, req dto.ApplyProgressRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, studentEmail string, req dto.EnrollRequest) error
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler builds a new handler.
func NewEnrollmentHandler(service enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// Enroll godoc
// @Summary Enroll the caller in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param X-User-Email header string true "Caller email"
// @Param X-User-Role header string true "Caller role"
// @Param payload body dto.EnrollRequest true "Course to enroll in"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	enrollment, err := h.service.Enroll(c.Request.Context(), *identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// MyEnrollments godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Param X-User-Email header string true "Caller email"
// @Success 200 {object} response.Envelope
// @Router /enrollments/my-enrollments [get]
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	enrollments, err := h.service.ListForStudent(c.Request.Context(), identity.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments)
}

// CourseEnrollments godoc
// @Summary List enrollments of a course
// @Tags Enrollments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/course/{courseId} [get]
func (h *EnrollmentHandler) CourseEnrollments(c *gin.Context) {
	enrollments, err := h.service.ListForCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments)
}

// UpdateProgress godoc
// @Summary Update the caller's progress in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param X-User-Email header string true "Caller email"
// @Param X-User-Role header string true "Caller role"
// @Param payload body dto.UpdateEnrollmentProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/progress [put]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateEnrollmentProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid progress payload"))
		return
	}
	enrollment, err := h.service.UpdateProgress(c.Request.Context(), identity.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Drop godoc
// @Summary Drop the caller's enrollment in a course
// @Tags Enrollments
// @Accept json
// @Param X-User-Email header string true "Caller email"
// @Param X-User-Role header string true "Caller role"
// @Param payload body dto.EnrollRequest false "Course to drop"
// @Param courseId query string false "Course to drop when no body is sent"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /enrollments/drop [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	req := dto.EnrollRequest{CourseID: strings.TrimSpace(c.Query("courseId"))}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid drop payload"))
			return
		}
	}
	if err := h.service.Drop(c.Request.Context(), identity.Email, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get an enrollment by ID
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// ApplyProgress godoc
// @Summary Set an enrollment's progress by ID
// @Description Called by the progress service with the course completion percentage.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.ApplyProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/progress [put]
func (h *EnrollmentHandler) ApplyProgress(c *gin.Context) {
	var req dto.ApplyProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid progress payload"))
		return
	}
	enrollment, err := h.service.ApplyProgress(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}
