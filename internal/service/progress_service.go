package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-progress-api/internal/client"
	"github.com/noah-isme/course-progress-api/internal/dto"
	"github.com/noah-isme/course-progress-api/internal/models"
	"github.com/noah-isme/course-progress-api/pkg/config"
	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
)

// UnknownLessonTitle is stored when the course directory cannot describe a lesson.
const UnknownLessonTitle = "Unknown Lesson"

type lessonProgressRepository interface {
	FindByLesson(ctx context.Context, enrollmentID string, moduleIndex, lessonIndex int) (*models.LessonProgress, error)
	Save(ctx context.Context, progress *models.LessonProgress) error
	CountByStatus(ctx context.Context, courseID, studentEmail string, status models.CompletionStatus) (int, error)
	CountCompletedByEnrollment(ctx context.Context, enrollmentID string) (int, error)
	ListByCourseAndStudent(ctx context.Context, courseID, studentEmail string) ([]models.LessonProgress, error)
	ListByStudent(ctx context.Context, studentEmail string) ([]models.LessonProgress, error)
}

type lessonDirectory interface {
	GetLessonCount(ctx context.Context, courseID string) (int, error)
	GetLesson(ctx context.Context, courseID string, moduleIndex, lessonIndex int) (*models.CourseLesson, error)
}

type enrollmentDirectory interface {
	GetEnrollment(ctx context.Context, enrollmentID string) (*models.EnrollmentSnapshot, error)
	PushProgress(ctx context.Context, enrollmentID string, percentage float64) error
}

// ProgressService ingests lesson views and derives course completion.
type ProgressService struct {
	repo        lessonProgressRepository
	lessons     lessonDirectory
	enrollments enrollmentDirectory
	cache       *CacheService
	effects     *SideEffects
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.ProgressConfig
	now         func() time.Time
}

// NewProgressService constructs a ProgressService.
func NewProgressService(
	repo lessonProgressRepository,
	lessons lessonDirectory,
	enrollments enrollmentDirectory,
	cache *CacheService,
	effects *SideEffects,
	metrics *MetricsService,
	cfg config.ProgressConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if effects == nil {
		effects = NewSideEffects(config.EchoConfig{}, 0, metrics, logger)
	}
	return &ProgressService{
		repo:        repo,
		lessons:     lessons,
		enrollments: enrollments,
		cache:       cache,
		effects:     effects,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         storeClock,
	}
}

// RecordView applies a watched-seconds report to one lesson. Crossing 90% of
// a known duration completes the lesson and pushes the new course percentage
// to the enrollment.
func (s *ProgressService) RecordView(ctx context.Context, studentEmail string, req dto.RecordViewRequest) (*models.LessonProgressView, error) {
	req.EnrollmentID = strings.TrimSpace(req.EnrollmentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid video progress payload")
	}
	moduleIndex, lessonIndex, watched := *req.ModuleIndex, *req.LessonIndex, *req.WatchedSeconds

	progress, err := s.repo.FindByLesson(ctx, req.EnrollmentID, moduleIndex, lessonIndex)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		progress, err = s.newProgress(ctx, studentEmail, req.EnrollmentID, moduleIndex, lessonIndex)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson progress")
	}

	if s.cfg.ClampWatchedSeconds && watched < progress.WatchedSeconds {
		watched = progress.WatchedSeconds
	}
	now := s.now()
	progress.WatchedSeconds = watched
	progress.LastAccessedAt = &now

	completing := false
	if progress.ReachedCompletionThreshold(watched) {
		if progress.Status != models.CompletionStatusCompleted {
			progress.Status = models.CompletionStatusCompleted
			progress.CompletedAt = &now
			completing = true
		}
	} else if progress.Status == models.CompletionStatusNotStarted {
		progress.Status = models.CompletionStatusInProgress
		progress.StartedAt = &now
	}

	if err := s.repo.Save(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save lesson progress")
	}
	s.invalidate(ctx)

	// A concurrent writer that completed the lesson first keeps its stamp; only
	// the request whose stamp was stored pushes.
	if completing && progress.CompletedAt != nil && progress.CompletedAt.Equal(now) {
		s.metrics.RecordLessonCompleted()
		s.logger.Info("lesson completed",
			zap.String("enrollment_id", progress.EnrollmentID),
			zap.Int("module_index", progress.ModuleIndex),
			zap.Int("lesson_index", progress.LessonIndex),
		)
		enrollmentID, courseID := progress.EnrollmentID, progress.CourseID
		s.effects.Run(ctx, EffectPushProgress, func(ctx context.Context) error {
			return s.pushEnrollmentProgress(ctx, enrollmentID, courseID)
		})
	}

	view := progress.View()
	return &view, nil
}

func (s *ProgressService) newProgress(ctx context.Context, studentEmail, enrollmentID string, moduleIndex, lessonIndex int) (*models.LessonProgress, error) {
	enrollment, err := s.enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		if appErrors.HasCode(err, appErrors.ErrDependencyUnavailable) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependencyUnavailable.Code, appErrors.ErrDependencyUnavailable.Status, "enrollment directory unavailable")
	}
	if enrollment.StudentEmail != "" && !strings.EqualFold(enrollment.StudentEmail, studentEmail) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}

	progress := &models.LessonProgress{
		EnrollmentID: enrollmentID,
		StudentEmail: studentEmail,
		CourseID:     enrollment.CourseID,
		CourseTitle:  enrollment.CourseTitle,
		ModuleIndex:  moduleIndex,
		LessonIndex:  lessonIndex,
		LessonTitle:  UnknownLessonTitle,
		Status:       models.CompletionStatusNotStarted,
	}
	lesson, err := s.lessons.GetLesson(ctx, enrollment.CourseID, moduleIndex, lessonIndex)
	if err != nil {
		s.logger.Warn("lesson lookup failed",
			zap.String("course_id", enrollment.CourseID),
			zap.Int("module_index", moduleIndex),
			zap.Int("lesson_index", lessonIndex),
			zap.Error(err),
		)
		return progress, nil
	}
	if title := strings.TrimSpace(lesson.Title); title != "" {
		progress.LessonTitle = title
	}
	progress.TotalDurationSeconds = lesson.DurationSeconds
	return progress, nil
}

func (s *ProgressService) pushEnrollmentProgress(ctx context.Context, enrollmentID, courseID string) error {
	completed, err := s.repo.CountCompletedByEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	total, err := s.lessons.GetLessonCount(ctx, courseID)
	if err != nil {
		return err
	}
	return s.enrollments.PushProgress(ctx, enrollmentID, completionPercentage(completed, total))
}

// CourseProgress summarises a student's progress through one course and
// mirrors the percentage onto the enrollment.
func (s *ProgressService) CourseProgress(ctx context.Context, courseID, studentEmail string) (*models.CourseProgressSummary, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	key := CacheNamespaceProgress + ":course:" + courseID + ":" + studentEmail
	summary, err := Remember(ctx, s.cache, key, func(ctx context.Context) (*models.CourseProgressSummary, error) {
		return s.loadCourseProgress(ctx, courseID, studentEmail)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course progress")
	}
	return summary, nil
}

func (s *ProgressService) loadCourseProgress(ctx context.Context, courseID, studentEmail string) (*models.CourseProgressSummary, error) {
	records, err := s.repo.ListByCourseAndStudent(ctx, courseID, studentEmail)
	if err != nil {
		return nil, err
	}
	completed, err := s.repo.CountByStatus(ctx, courseID, studentEmail, models.CompletionStatusCompleted)
	if err != nil {
		return nil, err
	}
	inProgress, err := s.repo.CountByStatus(ctx, courseID, studentEmail, models.CompletionStatusInProgress)
	if err != nil {
		return nil, err
	}

	total, lookupErr := s.lessons.GetLessonCount(ctx, courseID)
	if lookupErr != nil {
		s.logger.Warn("lesson count lookup failed", zap.String("course_id", courseID), zap.Error(lookupErr))
		total = 0
	}
	percentage := completionPercentage(completed, total)

	summary := &models.CourseProgressSummary{
		CourseID:             courseID,
		StudentEmail:         studentEmail,
		TotalLessons:         total,
		CompletedLessons:     completed,
		InProgressLessons:    inProgress,
		CompletionPercentage: math.Round(percentage*100) / 100,
		LessonProgress:       make([]models.LessonProgressView, 0, len(records)),
	}
	for i := range records {
		summary.LessonProgress = append(summary.LessonProgress, records[i].View())
	}
	if len(records) == 0 {
		return summary, nil
	}

	summary.CourseTitle = records[0].CourseTitle
	if lookupErr == nil {
		enrollmentID := records[0].EnrollmentID
		s.effects.Run(ctx, EffectPushProgress, func(ctx context.Context) error {
			return s.enrollments.PushProgress(ctx, enrollmentID, percentage)
		})
	}
	return summary, nil
}

// StudentProgress lists every lesson record of the student, newest first.
func (s *ProgressService) StudentProgress(ctx context.Context, studentEmail string) ([]models.LessonProgressView, error) {
	key := CacheNamespaceProgress + ":student:" + studentEmail
	views, err := Remember(ctx, s.cache, key, func(ctx context.Context) ([]models.LessonProgressView, error) {
		records, err := s.repo.ListByStudent(ctx, studentEmail)
		if err != nil {
			return nil, err
		}
		views := make([]models.LessonProgressView, 0, len(records))
		for i := range records {
			views = append(views, records[i].View())
		}
		return views, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list progress")
	}
	return views, nil
}

func (s *ProgressService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, CacheNamespaceProgress)
}

// completionPercentage is completed/total*100 capped at 100, or 0 for an empty course.
func completionPercentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(float64(completed)*100/float64(total), 100)
}
