package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-progress-api/internal/models"
)

const enrollmentColumns = `id, student_email, student_first_name, student_last_name, course_id, course_title,
        enrolled_at, status, progress_percentage, last_access_at, completed_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByStudent returns every enrollment of a student, dropped ones included.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentEmail string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_email = $1 ORDER BY enrolled_at DESC`
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, studentEmail); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByCourse returns every enrollment of a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at DESC`
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its ID. An id that is not a UUID cannot
// match a row and is reported as sql.ErrNoRows.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if isInvalidTextRepresentation(err) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &enrollment, nil
}

// FindCurrent returns the newest non-dropped enrollment for the pair.
func (r *EnrollmentRepository) FindCurrent(ctx context.Context, studentEmail, courseID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments
        WHERE student_email = $1 AND course_id = $2 AND status <> $3
        ORDER BY enrolled_at DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentEmail, courseID, models.EnrollmentStatusDropped); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsCurrent checks whether a non-dropped enrollment exists for the pair.
func (r *EnrollmentRepository) ExistsCurrent(ctx context.Context, studentEmail, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_email = $1 AND course_id = $2 AND status <> $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentEmail, courseID, models.EnrollmentStatusDropped); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check current enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record. A concurrent duplicate surfaces as ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.LastAccessAt.IsZero() {
		enrollment.LastAccessAt = enrollment.EnrolledAt
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, student_email, student_first_name, student_last_name, course_id, course_title,
        enrolled_at, status, progress_percentage, last_access_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.StudentEmail, enrollment.StudentFirstName, enrollment.StudentLastName,
		enrollment.CourseID, enrollment.CourseTitle, enrollment.EnrolledAt, enrollment.Status,
		enrollment.ProgressPercentage, enrollment.LastAccessAt, enrollment.CompletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateProgress writes percentage, status and timestamps. Dropped rows are
// left untouched and reported as sql.ErrNoRows.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `UPDATE enrollments
        SET progress_percentage = $2, last_access_at = $3, status = $4, completed_at = COALESCE(completed_at, $5)
        WHERE id = $1 AND status <> $6`
	res, err := r.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.ProgressPercentage, enrollment.LastAccessAt, enrollment.Status,
		enrollment.CompletedAt, models.EnrollmentStatusDropped)
	if err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return requireAffected(res)
}

// UpdateStatus changes the status of an enrollment. A dropped row is final:
// it is left untouched and reported as sql.ErrNoRows, so of two concurrent
// drops only one succeeds.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, accessedAt time.Time) error {
	const query = `UPDATE enrollments SET status = $2, last_access_at = $3 WHERE id = $1 AND status <> $4`
	res, err := r.db.ExecContext(ctx, query, id, status, accessedAt, models.EnrollmentStatusDropped)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
