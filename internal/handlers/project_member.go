package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AlexX2727/backend/internal/dto"
	apierrors "github.com/AlexX2727/backend/internal/errors"
	"github.com/AlexX2727/backend/internal/middleware"
	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/services"
)

// ProjectMemberHandler serves the project membership endpoints.
type ProjectMemberHandler struct {
	projectService *services.ProjectService
}

// NewProjectMemberHandler creates a new ProjectMemberHandler.
func NewProjectMemberHandler(projectService *services.ProjectService) *ProjectMemberHandler {
	return &ProjectMemberHandler{projectService: projectService}
}

// AddMember registers a user as a member of a project.
func (h *ProjectMemberHandler) AddMember(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type AddMemberRequest struct {
		ProjectID uint64 `json:"project_id" binding:"required"`
		UserID    uint64 `json:"user_id" binding:"required"`
		Role      string `json:"role"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	role := models.MemberRole(req.Role)
	if req.Role == "" {
		role = models.MemberRoleMember
	}
	if !role.Valid() {
		apierrors.BadRequest(c, "Invalid member role")
		return
	}

	member, err := h.projectService.AddMember(services.AddMemberInput{
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Role:      role,
		ActorID:   userID,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectMemberDTO(*member))
}

// UpdateMember changes a member's role.
func (h *ProjectMemberHandler) UpdateMember(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid member ID")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateMemberRequest struct {
		Role string `json:"role" binding:"required"`
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	role := models.MemberRole(req.Role)
	if !role.Valid() {
		apierrors.BadRequest(c, "Invalid member role")
		return
	}

	member, err := h.projectService.UpdateMemberRole(memberID, userID, role)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectMemberDTO(*member))
}

// RemoveMember removes a member from a project.
func (h *ProjectMemberHandler) RemoveMember(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid member ID")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.projectService.RemoveMember(memberID, userID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
