package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// Enrollment captures a student's registration to a course. Rows are never
// deleted; dropping is a status transition.
type Enrollment struct {
	ID                 string           `db:"id" json:"id"`
	StudentEmail       string           `db:"student_email" json:"studentEmail"`
	StudentFirstName   string           `db:"student_first_name" json:"studentFirstName,omitempty"`
	StudentLastName    string           `db:"student_last_name" json:"studentLastName,omitempty"`
	CourseID           string           `db:"course_id" json:"courseId"`
	CourseTitle        string           `db:"course_title" json:"courseTitle"`
	EnrolledAt         time.Time        `db:"enrolled_at" json:"enrolledAt"`
	Status             EnrollmentStatus `db:"status" json:"status"`
	ProgressPercentage int              `db:"progress_percentage" json:"progressPercentage"`
	LastAccessAt       time.Time        `db:"last_access_at" json:"lastAccessAt"`
	CompletedAt        *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
}

// ApplyProgress sets the percentage and access time. Reaching 100 completes
// the enrollment; the completion time is stamped once and a lower value
// afterwards never reopens it.
func (e *Enrollment) ApplyProgress(percentage int, now time.Time) {
	e.ProgressPercentage = percentage
	e.LastAccessAt = now
	if percentage >= 100 {
		e.Status = EnrollmentStatusCompleted
		if e.CompletedAt == nil {
			completed := now
			e.CompletedAt = &completed
		}
	}
}
