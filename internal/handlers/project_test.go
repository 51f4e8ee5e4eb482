package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/constants"
	"github.com/AlexX2727/backend/internal/database"
	"github.com/AlexX2727/backend/internal/dto"
	"github.com/AlexX2727/backend/internal/middleware"
	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
	"github.com/AlexX2727/backend/internal/services"
)

type projectTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
	userID *uint64
}

func setupProjectTestEnv(t *testing.T) projectTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Comment{},
		&models.Attachment{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	authz := services.NewAuthorizationService(projectRepo)
	projectService := services.NewProjectService(projectRepo, userRepo, authz)
	projectHandler := NewProjectHandler(projectService)
	memberHandler := NewProjectMemberHandler(projectService)

	gin.SetMode(gin.TestMode)

	userID := new(uint64)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, *userID)
	})
	projects := r.Group("/api/projects")
	{
		projects.POST("", projectHandler.CreateProject)
		projects.GET("", projectHandler.ListProjects)
		projects.GET("/:id", middleware.RequireProjectAccess(), projectHandler.GetProject)
		projects.PATCH("/:id", middleware.RequireProjectAccess(), projectHandler.UpdateProject)
		projects.DELETE("/:id", middleware.RequireProjectAccess(), projectHandler.DeleteProject)
		projects.GET("/:id/members", middleware.RequireProjectAccess(), projectHandler.ListMembers)
	}
	members := r.Group("/api/project-members")
	{
		members.POST("", memberHandler.AddMember)
		members.PATCH("/:id", memberHandler.UpdateMember)
		members.DELETE("/:id", memberHandler.RemoveMember)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return projectTestEnv{db: db, router: r, userID: userID}
}

func (env projectTestEnv) request(t *testing.T, method, url string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "hashedpassword"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestProjectHandler_CreateProject_OwnerBecomesMember(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createUser(t, env.db, "owner@example.com")
	*env.userID = owner.ID

	w := env.request(t, http.MethodPost, "/api/projects", map[string]any{
		"name":       "Website",
		"start_date": "2026-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.ProjectDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "Website", response.Name)
	require.Equal(t, owner.ID, response.OwnerID)

	var member models.ProjectMember
	require.NoError(t, env.db.Where("project_id = ? AND user_id = ?", response.ID, owner.ID).First(&member).Error)
	require.Equal(t, models.MemberRoleOwner, member.Role)
}

func TestProjectHandler_GetProject_NonMemberGets404(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createUser(t, env.db, "owner@example.com")
	outsider := createUser(t, env.db, "outsider@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, env.db.Create(project).Error)

	*env.userID = outsider.ID
	w := env.request(t, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectHandler_ListProjects_IncludesMemberships(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createUser(t, env.db, "owner@example.com")
	member := createUser(t, env.db, "member@example.com")

	owned := &models.Project{Name: "Mine", OwnerID: member.ID, Status: models.ProjectStatusActive}
	require.NoError(t, env.db.Create(owned).Error)
	joined := &models.Project{Name: "Theirs", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, env.db.Create(joined).Error)
	unrelated := &models.Project{Name: "Other", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, env.db.Create(unrelated).Error)
	require.NoError(t, env.db.Create(&models.ProjectMember{
		ProjectID: joined.ID,
		UserID:    member.ID,
		Role:      models.MemberRoleMember,
	}).Error)

	*env.userID = member.ID
	w := env.request(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Projects []dto.ProjectDTO `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Projects, 2)
}

func TestProjectMemberHandler_AddMember_DuplicateConflict(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createUser(t, env.db, "owner@example.com")
	member := createUser(t, env.db, "member@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, env.db.Create(project).Error)

	*env.userID = owner.ID
	payload := map[string]any{
		"project_id": project.ID,
		"user_id":    member.ID,
		"role":       "member",
	}
	w := env.request(t, http.MethodPost, "/api/project-members", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodPost, "/api/project-members", payload)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestProjectMemberHandler_AddMember_InvalidRole(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createUser(t, env.db, "owner@example.com")
	member := createUser(t, env.db, "member@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, env.db.Create(project).Error)

	*env.userID = owner.ID
	w := env.request(t, http.MethodPost, "/api/project-members", map[string]any{
		"project_id": project.ID,
		"user_id":    member.ID,
		"role":       "superuser",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_DeleteProject_Cascades(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createUser(t, env.db, "owner@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, env.db.Create(project).Error)
	task := &models.Task{ProjectID: project.ID, Title: "Design", Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium}
	require.NoError(t, env.db.Create(task).Error)
	require.NoError(t, env.db.Create(&models.Comment{TaskID: task.ID, UserID: owner.ID, Content: "first"}).Error)
	require.NoError(t, env.db.Create(&models.ProjectMember{ProjectID: project.ID, UserID: owner.ID, Role: models.MemberRoleOwner}).Error)

	*env.userID = owner.ID
	w := env.request(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var taskCount, commentCount, memberCount int64
	env.db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&taskCount)
	env.db.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&commentCount)
	env.db.Model(&models.ProjectMember{}).Where("project_id = ?", project.ID).Count(&memberCount)
	require.Zero(t, taskCount)
	require.Zero(t, commentCount)
	require.Zero(t, memberCount)
}
