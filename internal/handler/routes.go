package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-progress-api/internal/middleware"
	"github.com/noah-isme/course-progress-api/internal/models"
)

// RegisterEnrollmentRoutes mounts the enrollment service API under rg.
// Routes addressed by enrollment id serve peer services and carry no caller identity.
func RegisterEnrollmentRoutes(rg *gin.RouterGroup, h *EnrollmentHandler) {
	identity := middleware.Identity()
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	enrollments := rg.Group("/enrollments")
	enrollments.POST("/enroll", identity, studentOnly, h.Enroll)
	enrollments.GET("/my-enrollments", identity, h.MyEnrollments)
	enrollments.GET("/course/:courseId", h.CourseEnrollments)
	enrollments.PUT("/progress", identity, studentOnly, h.UpdateProgress)
	enrollments.DELETE("/drop", identity, studentOnly, h.Drop)
	enrollments.GET("/:id", h.Get)
	enrollments.PUT("/:id/progress", h.ApplyProgress)
}

// RegisterProgressRoutes mounts the progress service API under rg.
func RegisterProgressRoutes(rg *gin.RouterGroup, h *ProgressHandler) {
	progress := rg.Group("/progress", middleware.Identity())
	progress.POST("/video/update", middleware.RequireRoles(models.RoleStudent), h.RecordView)
	progress.GET("/course/:courseId", h.CourseProgress)
	progress.GET("/my-progress", h.MyProgress)
}
