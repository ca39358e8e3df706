package dto

// EnrollRequest registers the caller to a course. Drop uses the same payload.
type EnrollRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// UpdateEnrollmentProgressRequest is the student's own progress update.
type UpdateEnrollmentProgressRequest struct {
	CourseID string   `json:"courseId" validate:"required"`
	Progress *float64 `json:"progress" validate:"required,gte=0,lte=100"`
}

// ApplyProgressRequest carries a percentage computed by the progress service.
type ApplyProgressRequest struct {
	Progress *float64 `json:"progress" validate:"required,gte=0,lte=100"`
}
