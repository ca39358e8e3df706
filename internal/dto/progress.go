package dto

// RecordViewRequest reports how far a student has watched one lesson.
type RecordViewRequest struct {
	EnrollmentID   string `json:"enrollmentId" validate:"required"`
	ModuleIndex    *int   `json:"moduleIndex" validate:"required,gte=0"`
	LessonIndex    *int   `json:"lessonIndex" validate:"required,gte=0"`
	WatchedSeconds *int   `json:"watchedSeconds" validate:"required,gte=0"`
}
