package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-progress-api/internal/models"
)

const lessonProgressColumns = `id, enrollment_id, student_email, course_id, course_title, module_index, lesson_index,
        lesson_title, status, watched_seconds, total_duration_seconds, started_at, last_accessed_at, completed_at,
        created_at, updated_at`

// LessonProgressRepository persists per-lesson viewing records.
type LessonProgressRepository struct {
	db *sqlx.DB
}

// NewLessonProgressRepository constructs the repository.
func NewLessonProgressRepository(db *sqlx.DB) *LessonProgressRepository {
	return &LessonProgressRepository{db: db}
}

// FindByLesson returns the record of one lesson within an enrollment or sql.ErrNoRows.
func (r *LessonProgressRepository) FindByLesson(ctx context.Context, enrollmentID string, moduleIndex, lessonIndex int) (*models.LessonProgress, error) {
	query := `SELECT ` + lessonProgressColumns + ` FROM lesson_progress
        WHERE enrollment_id = $1 AND module_index = $2 AND lesson_index = $3`
	var progress models.LessonProgress
	if err := r.db.GetContext(ctx, &progress, query, enrollmentID, moduleIndex, lessonIndex); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Save upserts the record on its lesson key. An existing COMPLETED row keeps
// its status, and start/completion stamps are never cleared. The stored
// id, status and stamps are read back into progress.
func (r *LessonProgressRepository) Save(ctx context.Context, progress *models.LessonProgress) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}
	progress.UpdatedAt = now

	const query = `INSERT INTO lesson_progress (id, enrollment_id, student_email, course_id, course_title, module_index,
        lesson_index, lesson_title, status, watched_seconds, total_duration_seconds, started_at, last_accessed_at,
        completed_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        ON CONFLICT (enrollment_id, module_index, lesson_index) DO UPDATE SET
            watched_seconds = EXCLUDED.watched_seconds,
            last_accessed_at = EXCLUDED.last_accessed_at,
            status = CASE WHEN lesson_progress.status = $17 THEN lesson_progress.status ELSE EXCLUDED.status END,
            started_at = COALESCE(lesson_progress.started_at, EXCLUDED.started_at),
            completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
            updated_at = EXCLUDED.updated_at
        RETURNING id, status, started_at, completed_at, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		progress.ID, progress.EnrollmentID, progress.StudentEmail, progress.CourseID, progress.CourseTitle,
		progress.ModuleIndex, progress.LessonIndex, progress.LessonTitle, progress.Status, progress.WatchedSeconds,
		progress.TotalDurationSeconds, progress.StartedAt, progress.LastAccessedAt, progress.CompletedAt,
		progress.CreatedAt, progress.UpdatedAt, models.CompletionStatusCompleted)
	if err := row.Scan(&progress.ID, &progress.Status, &progress.StartedAt, &progress.CompletedAt, &progress.CreatedAt); err != nil {
		return fmt.Errorf("save lesson progress: %w", err)
	}
	return nil
}

// CountByStatus counts a student's lesson records of a course in the given status.
func (r *LessonProgressRepository) CountByStatus(ctx context.Context, courseID, studentEmail string, status models.CompletionStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM lesson_progress WHERE course_id = $1 AND student_email = $2 AND status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, studentEmail, status); err != nil {
		return 0, fmt.Errorf("count lesson progress: %w", err)
	}
	return count, nil
}

// CountCompletedByEnrollment counts completed lessons of one enrollment.
func (r *LessonProgressRepository) CountCompletedByEnrollment(ctx context.Context, enrollmentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM lesson_progress WHERE enrollment_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, enrollmentID, models.CompletionStatusCompleted); err != nil {
		return 0, fmt.Errorf("count completed lessons: %w", err)
	}
	return count, nil
}

// ListByCourseAndStudent returns a student's records of a course ordered by module then lesson.
func (r *LessonProgressRepository) ListByCourseAndStudent(ctx context.Context, courseID, studentEmail string) ([]models.LessonProgress, error) {
	query := `SELECT ` + lessonProgressColumns + ` FROM lesson_progress
        WHERE course_id = $1 AND student_email = $2 ORDER BY module_index, lesson_index`
	records := []models.LessonProgress{}
	if err := r.db.SelectContext(ctx, &records, query, courseID, studentEmail); err != nil {
		return nil, fmt.Errorf("list course lesson progress: %w", err)
	}
	return records, nil
}

// ListByStudent returns every record of a student, newest first.
func (r *LessonProgressRepository) ListByStudent(ctx context.Context, studentEmail string) ([]models.LessonProgress, error) {
	query := `SELECT ` + lessonProgressColumns + ` FROM lesson_progress WHERE student_email = $1 ORDER BY created_at DESC`
	records := []models.LessonProgress{}
	if err := r.db.SelectContext(ctx, &records, query, studentEmail); err != nil {
		return nil, fmt.Errorf("list student lesson progress: %w", err)
	}
	return records, nil
}
