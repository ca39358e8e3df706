package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/course-progress-api/internal/models"
)

// EnrollmentClient reads and updates enrollments through the enrollment service API.
type EnrollmentClient struct {
	directory
}

type enrollmentEnvelope struct {
	Data models.EnrollmentSnapshot `json:"data"`
}

type progressPush struct {
	Progress float64 `json:"progress"`
}

// NewEnrollmentClient constructs an enrollment directory client.
func NewEnrollmentClient(baseURL string, timeout time.Duration, observer CallObserver, logger *zap.Logger) *EnrollmentClient {
	return &EnrollmentClient{directory: newDirectory("enrollment", baseURL, timeout, observer, logger)}
}

// GetEnrollment resolves an enrollment by id.
func (c *EnrollmentClient) GetEnrollment(ctx context.Context, enrollmentID string) (*models.EnrollmentSnapshot, error) {
	var envelope enrollmentEnvelope
	_, err := c.call(ctx, "get_enrollment", http.MethodGet, "/api/enrollments/"+url.PathEscape(enrollmentID), func(r *resty.Request) {
		r.SetResult(&envelope).ForceContentType("application/json")
	})
	if err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// PushProgress mirrors a course completion percentage onto the enrollment.
func (c *EnrollmentClient) PushProgress(ctx context.Context, enrollmentID string, percentage float64) error {
	_, err := c.call(ctx, "push_progress", http.MethodPut, "/api/enrollments/"+url.PathEscape(enrollmentID)+"/progress", func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(progressPush{Progress: percentage})
	})
	return err
}
