package models

import "time"

// CompletionStatus is the viewing state of a single lesson.
type CompletionStatus string

// Lesson statuses only move forward.
const (
	CompletionStatusNotStarted CompletionStatus = "NOT_STARTED"
	CompletionStatusInProgress CompletionStatus = "IN_PROGRESS"
	CompletionStatusCompleted  CompletionStatus = "COMPLETED"
)

// LessonProgress is the per-lesson viewing record of one enrollment.
type LessonProgress struct {
	ID                   string           `db:"id"`
	EnrollmentID         string           `db:"enrollment_id"`
	StudentEmail         string           `db:"student_email"`
	CourseID             string           `db:"course_id"`
	CourseTitle          string           `db:"course_title"`
	ModuleIndex          int              `db:"module_index"`
	LessonIndex          int              `db:"lesson_index"`
	LessonTitle          string           `db:"lesson_title"`
	Status               CompletionStatus `db:"status"`
	WatchedSeconds       int              `db:"watched_seconds"`
	TotalDurationSeconds *int             `db:"total_duration_seconds"`
	StartedAt            *time.Time       `db:"started_at"`
	LastAccessedAt       *time.Time       `db:"last_accessed_at"`
	CompletedAt          *time.Time       `db:"completed_at"`
	CreatedAt            time.Time        `db:"created_at"`
	UpdatedAt            time.Time        `db:"updated_at"`
}

// ReachedCompletionThreshold reports whether watched covers at least 90% of a
// known duration. Integer math keeps the boundary exact.
func (p *LessonProgress) ReachedCompletionThreshold(watched int) bool {
	if p.TotalDurationSeconds == nil {
		return false
	}
	return watched*10 >= *p.TotalDurationSeconds*9
}

// View converts the record into its API representation.
func (p *LessonProgress) View() LessonProgressView {
	return LessonProgressView{
		ID:                   p.ID,
		EnrollmentID:         p.EnrollmentID,
		CourseID:             p.CourseID,
		CourseTitle:          p.CourseTitle,
		ModuleIndex:          p.ModuleIndex,
		LessonIndex:          p.LessonIndex,
		LessonTitle:          p.LessonTitle,
		Status:               p.Status,
		WatchedSeconds:       p.WatchedSeconds,
		TotalDurationSeconds: p.TotalDurationSeconds,
		CompletedAt:          p.CompletedAt,
	}
}

// LessonProgressView is returned to clients for a lesson record.
type LessonProgressView struct {
	ID                   string           `json:"id"`
	EnrollmentID         string           `json:"enrollmentId"`
	CourseID             string           `json:"courseId"`
	CourseTitle          string           `json:"courseTitle"`
	ModuleIndex          int              `json:"moduleIndex"`
	LessonIndex          int              `json:"lessonIndex"`
	LessonTitle          string           `json:"lessonTitle"`
	Status               CompletionStatus `json:"status"`
	WatchedSeconds       int              `json:"videoWatchedSeconds"`
	TotalDurationSeconds *int             `json:"totalDurationSeconds,omitempty"`
	CompletedAt          *time.Time       `json:"completedAt,omitempty"`
}

// CourseProgressSummary aggregates a student's lesson records for one course.
type CourseProgressSummary struct {
	CourseID             string               `json:"courseId"`
	CourseTitle          string               `json:"courseTitle"`
	StudentEmail         string               `json:"studentEmail"`
	TotalLessons         int                  `json:"totalLessons"`
	CompletedLessons     int                  `json:"completedLessons"`
	InProgressLessons    int                  `json:"inProgressLessons"`
	CompletionPercentage float64              `json:"completionPercentage"`
	LessonProgress       []LessonProgressView `json:"lessonProgress"`
}
