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

// RequireTaskAccess checks that the user may see a task: they must own or be
// a member of the task's project. Non-members get 404 to avoid leaking task
// existence.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var task models.Task
		if err := database.GetDB().
			Preload("Project").
			Preload("Assignee").
			First(&task, taskID).Error; err != nil {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		if task.Project.OwnerID != userID {
			var member models.ProjectMember
			err := database.GetDB().
				Where("project_id = ? AND user_id = ?", task.ProjectID, userID).
				First(&member).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					apierrors.NotFound(c, "Task not found")
				} else {
					apierrors.InternalError(c, "")
				}
				c.Abort()
				return
			}
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}
