package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleEmpty             = errors.New("title cannot be empty")
	ErrInvalidAssignee        = errors.New("assignee must be the project owner or a project member")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
)

// TaskService handles task business logic.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	authz       *AuthorizationService
	aiService   *AIService
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, authz *AuthorizationService, aiService *AIService) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		authz:       authz,
		aiService:   aiService,
	}
}

// ListTasksInput represents filters for listing tasks.
type ListTasksInput struct {
	UserID        uint64
	ProjectID     *uint64
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssigneeID    *uint64
	AssignedToMe  bool
	DueToday      bool
	SortByDueDate bool
	Page          int
	PageSize      int
}

// ListTasks returns tasks in the projects visible to the user.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	var projectIDs []uint64

	if input.ProjectID != nil {
		if err := s.authz.EnsureProjectAccess(*input.ProjectID, input.UserID); err != nil {
			return nil, 0, err
		}
		projectIDs = []uint64{*input.ProjectID}
	} else {
		projects, err := s.projectRepo.ListForUser(input.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve visible projects: %w", err)
		}
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}
	}

	if len(projectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	filter := repository.TaskFilter{
		ProjectIDs:    projectIDs,
		Status:        input.Status,
		Priority:      input.Priority,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}

	if input.AssigneeID != nil {
		filter.AssigneeID = input.AssigneeID
	}
	if input.AssignedToMe {
		filter.AssigneeID = &input.UserID
	}
	if input.DueToday {
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with its related data.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Project", "Assignee", "Comments", "Comments.User", "Attachments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	ProjectID      uint64
	AssigneeID     *uint64
	Title          string
	Description    string
	Status         models.TaskStatus
	Priority       models.TaskPriority
	DueDate        *time.Time
	EstimatedHours *float64
	ActorID        uint64
}

// CreateTask creates a new task after validating project access and assignee.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if err := s.authz.EnsureProjectAccess(input.ProjectID, input.ActorID); err != nil {
		return nil, err
	}

	if input.AssigneeID != nil {
		if err := s.validateAssignee(input.ProjectID, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}

	task := &models.Task{
		ProjectID:      input.ProjectID,
		AssigneeID:     input.AssigneeID,
		Title:          input.Title,
		Description:    input.Description,
		Status:         input.Status,
		Priority:       input.Priority,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
	}

	if task.Status == models.TaskStatusDone {
		now := time.Now()
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Project", "Assignee")
}

// UpdateTaskInput represents input for updating a task.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssigneeID     *uint64
	ClearAssignee  bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
}

// UpdateTask updates an existing task. Moving into Done stamps the completion
// time; moving out of Done clears it.
func (s *TaskService) UpdateTask(taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authz.EnsureProjectAccess(task.ProjectID, actorID); err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := s.validateAssignee(task.ProjectID, *input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}
	if input.Status != nil && *input.Status != task.Status {
		if *input.Status == models.TaskStatusDone {
			now := time.Now()
			task.CompletedAt = &now
		} else if task.Status == models.TaskStatusDone {
			task.CompletedAt = nil
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.EstimatedHours != nil {
		task.EstimatedHours = input.EstimatedHours
	}
	if input.ActualHours != nil {
		task.ActualHours = input.ActualHours
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Project", "Assignee")
}

// DeleteTask deletes a task together with its comments and attachments.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authz.EnsureProjectAccess(task.ProjectID, actorID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// GenerateTasksInput represents input for AI task generation.
type GenerateTasksInput struct {
	ProjectID uint64
	Text      string
	ActorID   uint64
}

// GenerateTasks extracts tasks from free text and creates them in the project.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]models.Task, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrTitleRequired
	}

	if err := s.authz.EnsureProjectAccess(input.ProjectID, input.ActorID); err != nil {
		return nil, err
	}

	generated, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}
	if len(generated) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	created := make([]models.Task, 0, len(generated))
	for _, g := range generated {
		if strings.TrimSpace(g.Title) == "" {
			continue
		}

		priority := models.TaskPriority(g.Priority)
		switch priority {
		case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityCritical:
		default:
			priority = models.TaskPriorityMedium
		}

		task := models.Task{
			ProjectID:   input.ProjectID,
			Title:       g.Title,
			Description: g.Description,
			Status:      models.TaskStatusTodo,
			Priority:    priority,
			DueDate:     g.DueDate,
		}

		if err := s.taskRepo.Create(&task); err != nil {
			return nil, fmt.Errorf("failed to create generated task: %w", err)
		}
		created = append(created, task)
	}

	if len(created) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	return created, nil
}

// validateAssignee verifies the assignee is the project owner or a member
func (s *TaskService) validateAssignee(projectID, assigneeID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID == assigneeID {
		return nil
	}

	if _, err := s.projectRepo.FindMember(projectID, assigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidAssignee
		}
		return fmt.Errorf("failed to verify assignee membership: %w", err)
	}

	return nil
}
