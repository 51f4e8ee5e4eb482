package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

var (
	ErrCommentNotFound         = errors.New("comment not found")
	ErrContentRequired         = errors.New("content is required")
	ErrNotCommentAuthor        = errors.New("only the comment author can edit it")
	ErrCommentPermissionDenied = errors.New("only the comment author or project owner can delete it")
)

// CommentService handles comment business logic.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	authz       *AuthorizationService
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, authz *AuthorizationService) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		authz:       authz,
	}
}

// CreateCommentInput represents input for creating a comment.
type CreateCommentInput struct {
	TaskID  uint64
	ActorID uint64
	Content string
}

// CreateComment attaches a comment to a task visible to the actor.
func (s *CommentService) CreateComment(input CreateCommentInput) (*models.Comment, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrContentRequired
	}

	task, err := s.taskRepo.FindByID(input.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authz.EnsureProjectAccess(task.ProjectID, input.ActorID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		TaskID:  input.TaskID,
		UserID:  input.ActorID,
		Content: input.Content,
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return s.commentRepo.FindByID(comment.ID, "User")
}

// ListComments returns a task's comments in creation order.
func (s *CommentService) ListComments(taskID, actorID uint64) ([]models.Comment, error) {
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

	comments, err := s.commentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// UpdateComment changes a comment's content; author only.
func (s *CommentService) UpdateComment(commentID, actorID uint64, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}

	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	if comment.UserID != actorID {
		return nil, ErrNotCommentAuthor
	}

	comment.Content = content
	if err := s.commentRepo.Update(comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return comment, nil
}

// DeleteComment removes a comment; allowed for the author or the project owner.
func (s *CommentService) DeleteComment(commentID, actorID uint64) error {
	comment, err := s.commentRepo.FindByID(commentID, "Task")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}

	if comment.UserID != actorID {
		project, err := s.projectRepo.FindByID(comment.Task.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to find project: %w", err)
		}
		if project.OwnerID != actorID {
			return ErrCommentPermissionDenied
		}
	}

	if err := s.commentRepo.Delete(commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}
