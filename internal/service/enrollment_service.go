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

	"github.com/noah-isme/course-progress-api/internal/dto"
	"github.com/noah-isme/course-progress-api/internal/models"
	"github.com/noah-isme/course-progress-api/internal/repository"
	"github.com/noah-isme/course-progress-api/pkg/config"
	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
)

// UnknownCourseTitle is stored when the course directory cannot name a course.
const UnknownCourseTitle = "Unknown Course"

type enrollmentRepository interface {
	ListByStudent(ctx context.Context, studentEmail string) ([]models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindCurrent(ctx context.Context, studentEmail, courseID string) (*models.Enrollment, error)
	ExistsCurrent(ctx context.Context, studentEmail, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, accessedAt time.Time) error
}

type courseDirectory interface {
	GetCourseTitle(ctx context.Context, courseID string) (string, error)
	IncrementEnrollment(ctx context.Context, courseID string) error
	DecrementEnrollment(ctx context.Context, courseID string) error
}

// EnrollmentService owns the enrollment lifecycle and echoes enrollment
// counts to the course service.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseDirectory
	cache     *CacheService
	effects   *SideEffects
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseDirectory, cache *CacheService, effects *SideEffects, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if effects == nil {
		effects = NewSideEffects(config.EchoConfig{}, 0, nil, logger)
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		cache:     cache,
		effects:   effects,
		validator: validate,
		logger:    logger,
		now:       storeClock,
	}
}

// storeClock matches the microsecond precision of TIMESTAMPTZ so stamps read
// back from the store compare equal to the ones written.
func storeClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Enroll registers the caller to a course.
func (s *EnrollmentService) Enroll(ctx context.Context, identity models.Identity, req dto.EnrollRequest) (*models.Enrollment, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "courseId is required")
	}

	exists, err := s.repo.ExistsCurrent(ctx, identity.Email, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
	}

	now := s.now()
	enrollment := &models.Enrollment{
		StudentEmail:     identity.Email,
		StudentFirstName: identity.FirstName,
		StudentLastName:  identity.LastName,
		CourseID:         req.CourseID,
		CourseTitle:      s.courseTitle(ctx, req.CourseID),
		EnrolledAt:       now,
		Status:           models.EnrollmentStatusActive,
		LastAccessAt:     now,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student", enrollment.StudentEmail),
		zap.String("course_id", enrollment.CourseID),
	)

	s.invalidate(ctx)
	courseID := enrollment.CourseID
	s.effects.Run(ctx, EffectIncrementEnrollment, func(ctx context.Context) error {
		return s.courses.IncrementEnrollment(ctx, courseID)
	})
	return enrollment, nil
}

func (s *EnrollmentService) courseTitle(ctx context.Context, courseID string) string {
	title, err := s.courses.GetCourseTitle(ctx, courseID)
	if err != nil {
		s.logger.Warn("course title lookup failed", zap.String("course_id", courseID), zap.Error(err))
		return UnknownCourseTitle
	}
	if strings.TrimSpace(title) == "" {
		return UnknownCourseTitle
	}
	return title
}

// ListForStudent returns every enrollment of the student, dropped ones included.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studentEmail string) ([]models.Enrollment, error) {
	key := CacheNamespaceEnrollments + ":student:" + studentEmail
	enrollments, err := Remember(ctx, s.cache, key, func(ctx context.Context) ([]models.Enrollment, error) {
		return s.repo.ListByStudent(ctx, studentEmail)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListForCourse returns every enrollment of a course.
func (s *EnrollmentService) ListForCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	key := CacheNamespaceEnrollments + ":course:" + courseID
	enrollments, err := Remember(ctx, s.cache, key, func(ctx context.Context) ([]models.Enrollment, error) {
		return s.repo.ListByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course enrollments")
	}
	return enrollments, nil
}

// Get returns an enrollment by id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// UpdateProgress sets the student's own progress on their current enrollment of a course.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, studentEmail string, req dto.UpdateEnrollmentProgressRequest) (*models.Enrollment, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "progress must be between 0 and 100")
	}

	enrollment, err := s.repo.FindCurrent(ctx, studentEmail, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	enrollment.ApplyProgress(wholePercent(*req.Progress), s.now())
	if err := s.repo.UpdateProgress(ctx, enrollment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	s.invalidate(ctx)
	return enrollment, nil
}

// ApplyProgress sets the progress of an enrollment by id. It receives the
// course completion percentage computed by the progress service.
func (s *EnrollmentService) ApplyProgress(ctx context.Context, id string, req dto.ApplyProgressRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "progress must be between 0 and 100")
	}

	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status == models.EnrollmentStatusDropped {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment dropped")
	}

	enrollment.ApplyProgress(wholePercent(*req.Progress), s.now())
	if err := s.repo.UpdateProgress(ctx, enrollment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment dropped")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	s.invalidate(ctx)
	return enrollment, nil
}

// Drop marks the student's current enrollment of a course as dropped.
func (s *EnrollmentService) Drop(ctx context.Context, studentEmail string, req dto.EnrollRequest) error {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "courseId is required")
	}

	enrollment, err := s.repo.FindCurrent(ctx, studentEmail, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusDropped, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	s.logger.Info("enrollment dropped", zap.String("enrollment_id", enrollment.ID), zap.String("student", studentEmail))

	s.invalidate(ctx)
	courseID := enrollment.CourseID
	s.effects.Run(ctx, EffectDecrementEnrollment, func(ctx context.Context) error {
		return s.courses.DecrementEnrollment(ctx, courseID)
	})
	return nil
}

func (s *EnrollmentService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, CacheNamespaceEnrollments)
}

// wholePercent floors a validated percentage so 99.99 never completes a course.
func wholePercent(progress float64) int {
	return int(math.Floor(progress))
}
