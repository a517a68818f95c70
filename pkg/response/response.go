package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"vigorfit.com/progressionengine/pkg/apperror"
	"vigorfit.com/progressionengine/pkg/logger"
)

// GetMemberID retrieves the authenticated member ID from the context
func GetMemberID(c *gin.Context) (uuid.UUID, error) {
	memberIDStr, exists := c.Get("member_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	memberID, err := uuid.Parse(memberIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return memberID, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		logger.L().Errorw("internal error", "path", c.FullPath(), "error", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
