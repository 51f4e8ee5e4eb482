package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/constants"
	"github.com/AlexX2727/backend/internal/database"
	apierrors "github.com/AlexX2727/backend/internal/errors"
	"github.com/AlexX2727/backend/internal/models"
)

// RequireProjectAccess checks that the user owns the project or is a member.
// Non-members get 404 to avoid leaking project existence.
func RequireProjectAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectIDStr := c.Param("id")
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var project models.Project
		if err := database.GetDB().First(&project, projectID).Error; err != nil {
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		if project.OwnerID != userID {
			var member models.ProjectMember
			err := database.GetDB().
				Where("project_id = ? AND user_id = ?", projectID, userID).
				First(&member).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					apierrors.NotFound(c, "Project not found")
				} else {
					apierrors.InternalError(c, "")
				}
				c.Abort()
				return
			}
		}

		c.Set(constants.ContextKeyProject, project)
		c.Next()
	}
}
