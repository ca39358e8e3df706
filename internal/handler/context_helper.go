package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-progress-api/internal/middleware"
	"github.com/noah-isme/course-progress-api/internal/models"
	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
	"github.com/noah-isme/course-progress-api/pkg/response"
)

// identityFromContext returns the caller or writes 401 and reports false.
func identityFromContext(c *gin.Context) (*models.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity"))
		return nil, false
	}
	return identity, true
}
