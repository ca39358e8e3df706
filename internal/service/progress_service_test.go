package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-progress-api/internal/dto"
	"github.com/noah-isme/course-progress-api/internal/models"
	"github.com/noah-isme/course-progress-api/internal/repository"
	"github.com/noah-isme/course-progress-api/pkg/config"
	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
)

type progressFixture struct {
	svc         *ProgressService
	repo        *fakeProgressRepo
	courses     *fakeCourseDirectory
	enrollments *fakeEnrollmentDirectory
	metrics     *MetricsService
}

func newProgressFixture(t *testing.T, cfg config.ProgressConfig, withCache bool) progressFixture {
	t.Helper()
	metrics := NewMetricsService()
	repo := newFakeProgressRepo()
	courses := &fakeCourseDirectory{
		lessonCount: 4,
		lessons: map[[2]int]models.CourseLesson{
			{0, 0}: {Title: "Intro", DurationSeconds: intPtr(100)},
			{0, 1}: {Title: "Goroutines", DurationSeconds: intPtr(100)},
			{1, 0}: {Title: "Live session"},
		},
	}
	enrollments := &fakeEnrollmentDirectory{enrollments: map[string]models.EnrollmentSnapshot{
		"enr-1": {ID: "enr-1", StudentEmail: student.Email, CourseID: "course-1", CourseTitle: "Go 101", Status: models.EnrollmentStatusActive},
	}}
	var cache *CacheService
	if withCache {
		cache = NewCacheService(repository.NewMemoryCacheRepository(), metrics, time.Minute, nil, true)
	}
	effects := NewSideEffects(config.EchoConfig{}, time.Second, metrics, nil)
	svc := NewProgressService(repo, courses, enrollments, cache, effects, metrics, cfg, nil, nil)
	svc.now = steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return progressFixture{svc: svc, repo: repo, courses: courses, enrollments: enrollments, metrics: metrics}
}

func viewRequest(enrollmentID string, module, lesson, watched int) dto.RecordViewRequest {
	return dto.RecordViewRequest{
		EnrollmentID:   enrollmentID,
		ModuleIndex:    intPtr(module),
		LessonIndex:    intPtr(lesson),
		WatchedSeconds: intPtr(watched),
	}
}

func TestProgressServiceRecordViewCreatesRecordOnFirstView(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)

	view, err := f.svc.RecordView(context.Background(), student.Email, viewRequest("enr-1", 0, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, "Goroutines", view.LessonTitle)
	assert.Equal(t, "course-1", view.CourseID)
	assert.Equal(t, "Go 101", view.CourseTitle)
	assert.Equal(t, models.CompletionStatusInProgress, view.Status)
	assert.Equal(t, 10, view.WatchedSeconds)

	stored, err := f.repo.FindByLesson(context.Background(), "enr-1", 0, 1)
	require.NoError(t, err)
	assert.NotNil(t, stored.StartedAt)
	assert.Nil(t, stored.CompletedAt)
	assert.Empty(t, f.enrollments.pushed())
}

func TestProgressServiceAutoCompletionSequence(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	ctx := context.Background()

	view, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 89))
	require.NoError(t, err)
	assert.Equal(t, models.CompletionStatusInProgress, view.Status)
	assert.Empty(t, f.enrollments.pushed())

	view, err = f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 90))
	require.NoError(t, err)
	assert.Equal(t, models.CompletionStatusCompleted, view.Status)
	require.NotNil(t, view.CompletedAt)
	completedAt := *view.CompletedAt
	require.Len(t, f.enrollments.pushed(), 1)
	assert.Equal(t, pushedProgress{enrollmentID: "enr-1", percentage: 25}, f.enrollments.pushed()[0])

	view, err = f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 95))
	require.NoError(t, err)
	assert.Equal(t, models.CompletionStatusCompleted, view.Status)
	assert.True(t, view.CompletedAt.Equal(completedAt))
	assert.Len(t, f.enrollments.pushed(), 1, "completion pushes once")

	view, err = f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, models.CompletionStatusCompleted, view.Status, "completion is irreversible")
	assert.Equal(t, 5, view.WatchedSeconds)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.lessonsCompleted))
}

func TestProgressServiceRecordViewClampsWhenConfigured(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{ClampWatchedSeconds: true}, false)
	ctx := context.Background()

	_, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 1, 50))
	require.NoError(t, err)
	view, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, 50, view.WatchedSeconds)
}

func TestProgressServiceRecordViewUnknownLessonNeverCompletes(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	f.courses.lessonErr = errors.New("lesson lookup timed out")

	view, err := f.svc.RecordView(context.Background(), student.Email, viewRequest("enr-1", 3, 3, 1_000_000))
	require.NoError(t, err)
	assert.Equal(t, UnknownLessonTitle, view.LessonTitle)
	assert.Nil(t, view.TotalDurationSeconds)
	assert.Equal(t, models.CompletionStatusInProgress, view.Status)

	f.courses.lessonErr = nil
	view, err = f.svc.RecordView(context.Background(), student.Email, viewRequest("enr-1", 1, 0, 1_000_000))
	require.NoError(t, err)
	assert.Equal(t, "Live session", view.LessonTitle)
	assert.Equal(t, models.CompletionStatusInProgress, view.Status)
}

func TestProgressServiceRecordViewResolvesEnrollment(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	ctx := context.Background()

	_, err := f.svc.RecordView(ctx, student.Email, viewRequest("missing", 0, 0, 10))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = f.svc.RecordView(ctx, "bob@example.com", viewRequest("enr-1", 0, 0, 10))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	f.enrollments.getErr = errors.New("dial tcp: connection refused")
	_, err = f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 10))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDependencyUnavailable))
}

func TestProgressServiceRecordViewValidates(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	ctx := context.Background()

	_, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, -1))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", -1, 0, 10))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = f.svc.RecordView(ctx, student.Email, dto.RecordViewRequest{EnrollmentID: "enr-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestProgressServiceConcurrentCompletionPushesOnce(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	ctx := context.Background()

	_, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 10))
	require.NoError(t, err)

	earlier := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	f.repo.beforeSave = func(r *fakeProgressRepo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		stored := r.items[lessonKey{"enr-1", 0, 0}]
		stored.Status = models.CompletionStatusCompleted
		stored.CompletedAt = &earlier
	}

	view, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 95))
	require.NoError(t, err)
	assert.Equal(t, models.CompletionStatusCompleted, view.Status)
	assert.True(t, view.CompletedAt.Equal(earlier))
	assert.Empty(t, f.enrollments.pushed())
}

func TestProgressServiceCourseProgressSummary(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	ctx := context.Background()
	for _, p := range []models.LessonProgress{
		{ID: "lp-1", EnrollmentID: "enr-1", StudentEmail: student.Email, CourseID: "course-1", CourseTitle: "Go 101", ModuleIndex: 0, LessonIndex: 1, Status: models.CompletionStatusCompleted},
		{ID: "lp-2", EnrollmentID: "enr-1", StudentEmail: student.Email, CourseID: "course-1", CourseTitle: "Go 101", ModuleIndex: 0, LessonIndex: 0, Status: models.CompletionStatusCompleted},
		{ID: "lp-3", EnrollmentID: "enr-1", StudentEmail: student.Email, CourseID: "course-1", CourseTitle: "Go 101", ModuleIndex: 1, LessonIndex: 0, Status: models.CompletionStatusInProgress},
	} {
		f.repo.put(p)
	}

	summary, err := f.svc.CourseProgress(ctx, "course-1", student.Email)
	require.NoError(t, err)
	assert.Equal(t, "Go 101", summary.CourseTitle)
	assert.Equal(t, 4, summary.TotalLessons)
	assert.Equal(t, 2, summary.CompletedLessons)
	assert.Equal(t, 1, summary.InProgressLessons)
	assert.Equal(t, 50.0, summary.CompletionPercentage)
	require.Len(t, summary.LessonProgress, 3)
	assert.Equal(t, "lp-2", summary.LessonProgress[0].ID)
	assert.Equal(t, "lp-3", summary.LessonProgress[2].ID)
	assert.Equal(t, []pushedProgress{{enrollmentID: "enr-1", percentage: 50}}, f.enrollments.pushed())
}

func TestProgressServiceCourseProgressRounding(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	f.courses.lessonCount = 3
	f.repo.put(models.LessonProgress{ID: "lp-1", EnrollmentID: "enr-1", StudentEmail: student.Email, CourseID: "course-1", Status: models.CompletionStatusCompleted})

	summary, err := f.svc.CourseProgress(context.Background(), "course-1", student.Email)
	require.NoError(t, err)
	assert.Equal(t, 33.33, summary.CompletionPercentage)
}

func TestProgressServiceCourseProgressWithoutRecords(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)

	summary, err := f.svc.CourseProgress(context.Background(), "course-1", student.Email)
	require.NoError(t, err)
	assert.Empty(t, summary.CourseTitle)
	assert.Equal(t, 0.0, summary.CompletionPercentage)
	assert.NotNil(t, summary.LessonProgress)
	assert.Empty(t, f.enrollments.pushed())
}

func TestProgressServiceCourseProgressLessonCountFailureSkipsPush(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, false)
	f.courses.countErr = errors.New("course service down")
	f.repo.put(models.LessonProgress{ID: "lp-1", EnrollmentID: "enr-1", StudentEmail: student.Email, CourseID: "course-1", Status: models.CompletionStatusCompleted})

	summary, err := f.svc.CourseProgress(context.Background(), "course-1", student.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalLessons)
	assert.Equal(t, 0.0, summary.CompletionPercentage)
	assert.Empty(t, f.enrollments.pushed())
}

func TestProgressServiceCourseProgressCacheEvictedByView(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, true)
	ctx := context.Background()

	_, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 10))
	require.NoError(t, err)

	first, err := f.svc.CourseProgress(ctx, "course-1", student.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, first.InProgressLessons)
	_, err = f.svc.CourseProgress(ctx, "course-1", student.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, f.courses.countCalls, "second read is served from cache")

	_, err = f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 95))
	require.NoError(t, err)

	refreshed, err := f.svc.CourseProgress(ctx, "course-1", student.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.CompletedLessons)
	assert.Equal(t, 25.0, refreshed.CompletionPercentage)
}

func TestProgressServiceStudentProgressNewestFirst(t *testing.T) {
	f := newProgressFixture(t, config.ProgressConfig{}, true)
	ctx := context.Background()

	_, err := f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 0, 10))
	require.NoError(t, err)
	_, err = f.svc.RecordView(ctx, student.Email, viewRequest("enr-1", 0, 1, 10))
	require.NoError(t, err)

	views, err := f.svc.StudentProgress(ctx, student.Email)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, 1, views[0].LessonIndex)
	assert.Equal(t, 0, views[1].LessonIndex)
}
