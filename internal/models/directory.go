package models

// CourseLesson is the lesson metadata served by the course directory.
type CourseLesson struct {
	Title           string `json:"title"`
	DurationSeconds *int   `json:"duration"`
}

// EnrollmentSnapshot is the progress service's read of an enrollment owned by
// the enrollment service.
type EnrollmentSnapshot struct {
	ID                 string           `json:"id"`
	StudentEmail       string           `json:"studentEmail"`
	CourseID           string           `json:"courseId"`
	CourseTitle        string           `json:"courseTitle"`
	ProgressPercentage float64          `json:"progressPercentage"`
	Status             EnrollmentStatus `json:"status"`
}
