package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-progress-api/internal/models"
	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
	"github.com/noah-isme/course-progress-api/pkg/response"
)

// Identity headers set by the gateway after it verified the caller.
const (
	HeaderUserEmail     = "X-User-Email"
	HeaderUserRole      = "X-User-Role"
	HeaderUserFirstName = "X-User-FirstName"
	HeaderUserLastName  = "X-User-LastName"
)

// ContextUserKey is the gin context key storing the caller identity.
const ContextUserKey = "currentUser"

// Identity requires the gateway identity headers and stores the caller on the context.
// The headers are trusted verbatim.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.GetHeader(HeaderUserEmail))
		if email == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity"))
			c.Abort()
			return
		}

		c.Set(ContextUserKey, &models.Identity{
			Email:     email,
			Role:      models.UserRole(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderUserRole)))),
			FirstName: strings.TrimSpace(c.GetHeader(HeaderUserFirstName)),
			LastName:  strings.TrimSpace(c.GetHeader(HeaderUserLastName)),
		})
		c.Next()
	}
}

// CurrentIdentity returns the caller stored by Identity.
func CurrentIdentity(c *gin.Context) (*models.Identity, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*models.Identity)
	return identity, ok && identity != nil
}
