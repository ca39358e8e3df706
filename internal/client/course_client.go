package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/course-progress-api/internal/models"
)

// CourseClient talks to the course service, which owns course metadata and
// the denormalized enrollment counter.
type CourseClient struct {
	directory
}

type courseDetails struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewCourseClient constructs a course directory client.
func NewCourseClient(baseURL string, timeout time.Duration, observer CallObserver, logger *zap.Logger) *CourseClient {
	return &CourseClient{directory: newDirectory("course", baseURL, timeout, observer, logger)}
}

// GetCourseTitle returns the title of a course.
func (c *CourseClient) GetCourseTitle(ctx context.Context, courseID string) (string, error) {
	var details courseDetails
	_, err := c.call(ctx, "get_course", http.MethodGet, "/api/courses/details/"+url.PathEscape(courseID), func(r *resty.Request) {
		r.SetResult(&details).ForceContentType("application/json")
	})
	if err != nil {
		return "", err
	}
	return details.Title, nil
}

// GetLessonCount returns the total number of lessons across every module of a course.
func (c *CourseClient) GetLessonCount(ctx context.Context, courseID string) (int, error) {
	var count int
	_, err := c.call(ctx, "lesson_count", http.MethodGet, "/api/courses/"+url.PathEscape(courseID)+"/lesson-count", func(r *resty.Request) {
		r.SetResult(&count).ForceContentType("application/json")
	})
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, c.unavailable(fmt.Errorf("negative lesson count %d for course %s", count, courseID))
	}
	return count, nil
}

// GetLesson returns the title and duration of the lesson at the given position.
func (c *CourseClient) GetLesson(ctx context.Context, courseID string, moduleIndex, lessonIndex int) (*models.CourseLesson, error) {
	var lesson models.CourseLesson
	path := fmt.Sprintf("/api/courses/%s/modules/%d/lessons/%d", url.PathEscape(courseID), moduleIndex, lessonIndex)
	_, err := c.call(ctx, "get_lesson", http.MethodGet, path, func(r *resty.Request) {
		r.SetResult(&lesson).ForceContentType("application/json")
	})
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// IncrementEnrollment bumps the course's enrollment counter.
func (c *CourseClient) IncrementEnrollment(ctx context.Context, courseID string) error {
	_, err := c.call(ctx, "increment_enrollment", http.MethodPost, "/api/courses/"+url.PathEscape(courseID)+"/enrollment/increment", nil)
	return err
}

// DecrementEnrollment lowers the course's enrollment counter.
func (c *CourseClient) DecrementEnrollment(ctx context.Context, courseID string) error {
	_, err := c.call(ctx, "decrement_enrollment", http.MethodPost, "/api/courses/"+url.PathEscape(courseID)+"/enrollment/decrement", nil)
	return err
}
