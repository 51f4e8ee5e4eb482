package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
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

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	userID uint64
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Comment{},
		&models.Attachment{},
	)
	suite.Require().NoError(err)

	// Set the test DB as the default database
	database.SetDB(suite.db)

	projectRepo := repository.NewProjectRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	authz := services.NewAuthorizationService(projectRepo)
	taskService := services.NewTaskService(taskRepo, projectRepo, authz, nil)
	handler := NewTaskHandler(taskService)

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Router with the user ID injected instead of real token auth
	suite.router = gin.New()
	suite.router.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, suite.userID)
	})
	tasks := suite.router.Group("/api/tasks")
	{
		tasks.GET("", handler.ListTasks)
		tasks.POST("", handler.CreateTask)
		tasks.GET("/:id", middleware.RequireTaskAccess(), handler.GetTask)
		tasks.PATCH("/:id", middleware.RequireTaskAccess(), handler.UpdateTask)
		tasks.DELETE("/:id", middleware.RequireTaskAccess(), handler.DeleteTask)
	}
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskHandlerTestSuite) createTestProject(name string, ownerID uint64) *models.Project {
	project := &models.Project{
		Name:    name,
		OwnerID: ownerID,
		Status:  models.ProjectStatusActive,
	}
	suite.db.Create(project)
	return project
}

func (suite *TaskHandlerTestSuite) createTestMember(projectID, userID uint64, role models.MemberRole) *models.ProjectMember {
	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
	suite.db.Create(member)
	return member
}

func (suite *TaskHandlerTestSuite) createTestTask(title string, projectID uint64) *models.Task {
	task := &models.Task{
		Title:     title,
		ProjectID: projectID,
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
	}
	suite.db.Create(task)
	return task
}

func (suite *TaskHandlerTestSuite) request(method, url string, payload any) *httptest.ResponseRecorder {
	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		suite.Require().NoError(err)
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) TestCreateTask() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Website", owner.ID)
	suite.userID = owner.ID

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"project_id": project.ID,
		"title":      "Design landing page",
		"priority":   "High",
	})

	suite.Equal(http.StatusCreated, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal("Design landing page", response.Title)
	suite.Equal(string(models.TaskStatusTodo), string(response.Status))
	suite.Equal(string(models.TaskPriorityHigh), string(response.Priority))
}

func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidAssignee() {
	owner := suite.createTestUser("owner@example.com")
	outsider := suite.createTestUser("outsider@example.com")
	project := suite.createTestProject("Website", owner.ID)
	suite.userID = owner.ID

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"project_id":  project.ID,
		"title":       "Design landing page",
		"assignee_id": outsider.ID,
	})

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_NoProjectAccess() {
	owner := suite.createTestUser("owner@example.com")
	outsider := suite.createTestUser("outsider@example.com")
	project := suite.createTestProject("Website", owner.ID)
	suite.userID = outsider.ID

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"project_id": project.ID,
		"title":      "Sneaky task",
	})

	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGetTask_NonMemberGets404() {
	owner := suite.createTestUser("owner@example.com")
	outsider := suite.createTestUser("outsider@example.com")
	project := suite.createTestProject("Website", owner.ID)
	task := suite.createTestTask("Design landing page", project.ID)
	suite.userID = outsider.ID

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGetTask_MemberCanRead() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	project := suite.createTestProject("Website", owner.ID)
	suite.createTestMember(project.ID, member.ID, models.MemberRoleMember)
	task := suite.createTestTask("Design landing page", project.ID)
	suite.userID = member.ID

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)

	suite.Equal(http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(task.ID, response.ID)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_DoneStampsCompletedAt() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Website", owner.ID)
	task := suite.createTestTask("Design landing page", project.ID)
	suite.userID = owner.ID

	w := suite.request(http.MethodPatch, fmt.Sprintf("/api/tasks/%d", task.ID), map[string]any{
		"status": "Done",
	})

	suite.Equal(http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(string(models.TaskStatusDone), string(response.Status))
	suite.NotNil(response.CompletedAt)

	// Moving out of Done clears the completion timestamp
	w = suite.request(http.MethodPatch, fmt.Sprintf("/api/tasks/%d", task.ID), map[string]any{
		"status": "In Progress",
	})

	suite.Equal(http.StatusOK, w.Code)
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Nil(response.CompletedAt)
}

func (suite *TaskHandlerTestSuite) TestListTasks_FiltersByStatus() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Website", owner.ID)
	suite.createTestTask("Todo task", project.ID)
	done := suite.createTestTask("Done task", project.ID)
	suite.db.Model(done).Update("status", models.TaskStatusDone)
	suite.userID = owner.ID

	w := suite.request(http.MethodGet, "/api/tasks?status=Done", nil)

	suite.Equal(http.StatusOK, w.Code)

	var response struct {
		Tasks []dto.TaskDTO `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Len(response.Tasks, 1)
	suite.Equal("Done task", response.Tasks[0].Title)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_RemovesCommentsAndAttachments() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Website", owner.ID)
	task := suite.createTestTask("Design landing page", project.ID)
	suite.db.Create(&models.Comment{TaskID: task.ID, UserID: owner.ID, Content: "first"})
	suite.db.Create(&models.Attachment{TaskID: task.ID, UserID: owner.ID, FileName: "a.png", OriginalName: "a.png", Path: "http://x/a.png"})
	suite.userID = owner.ID

	w := suite.request(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)

	suite.Equal(http.StatusOK, w.Code)

	var commentCount, attachmentCount int64
	suite.db.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&commentCount)
	suite.db.Model(&models.Attachment{}).Where("task_id = ?", task.ID).Count(&attachmentCount)
	suite.Zero(commentCount)
	suite.Zero(attachmentCount)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
