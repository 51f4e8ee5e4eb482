package repository

import (
	"context"
	"time"

	"github.com/AlexX2727/backend/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindRoleByName finds a role by its unique name
	FindRoleByName(name string) (*models.Role, error)

	// List retrieves users with pagination
	List(page, pageSize int) ([]models.User, int64, error)

	// Update updates a user
	Update(user *models.User) error

	// UpdatePassword replaces a user's password hash
	UpdatePassword(id uint64, passwordHash string) error

	// Delete soft deletes a user
	Delete(id uint64) error
}

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// Create creates a new project
	Create(project *models.Project) error

	// FindByID finds a project by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Project, error)

	// ListForUser lists projects the user owns or is a member of
	ListForUser(userID uint64) ([]models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete removes a project and all dependent rows in a transaction
	Delete(id uint64) error

	// AddMember adds a member to a project
	AddMember(member *models.ProjectMember) error

	// FindMember finds a membership by (project, user) pair
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)

	// FindMemberByID finds a membership by its row ID
	FindMemberByID(id uint64) (*models.ProjectMember, error)

	// UpdateMember updates a membership
	UpdateMember(member *models.ProjectMember) error

	// RemoveMember removes a membership by its row ID
	RemoveMember(id uint64) error

	// ListMembers lists all members of a project
	ListMembers(projectID uint64) ([]models.ProjectMember, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectIDs    []uint64
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssigneeID    *uint64
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete removes a task and its comments and attachments in a transaction
	Delete(id uint64) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	FindByID(id uint64, preload ...string) (*models.Comment, error)
	ListByTask(taskID uint64) ([]models.Comment, error)
	Update(comment *models.Comment) error
	Delete(id uint64) error
}

// AttachmentRepository defines the interface for attachment data access
type AttachmentRepository interface {
	Create(attachment *models.Attachment) error
	FindByID(id uint64, preload ...string) (*models.Attachment, error)
	ListByTask(taskID uint64) ([]models.Attachment, error)
	Delete(id uint64) error
}

// VerificationCodeRepository defines the interface for password reset codes
type VerificationCodeRepository interface {
	// Create persists a new code
	Create(code *models.VerificationCode) error

	// FindActive finds an unused, non-expired code for the user
	FindActive(userID uint64, code string, now time.Time) (*models.VerificationCode, error)

	// DeleteUnusedByUser removes any prior unused codes for the user
	DeleteUnusedByUser(userID uint64) error

	// MarkUsed consumes a code
	MarkUsed(id uint64) error
}

// DashboardRepository defines the read-only queries behind the metrics dashboard.
// Every query is scoped to what the given user may see: projects they own or
// are a member of, and tasks inside those projects or assigned to them.
type DashboardRepository interface {
	ActiveProjects(ctx context.Context, userID uint64, limit int) ([]models.Project, int64, error)
	PendingTasks(ctx context.Context, userID uint64, limit int) ([]models.Task, int64, error)
	CompletedTasks(ctx context.Context, userID uint64, limit int) ([]models.Task, int64, error)
	RecentProjects(ctx context.Context, userID uint64, limit int) ([]models.Project, error)
	RecentTasks(ctx context.Context, userID uint64, limit int) ([]models.Task, error)
	RecentComments(ctx context.Context, userID uint64, limit int) ([]models.Comment, error)
	RecentAttachments(ctx context.Context, userID uint64, limit int) ([]models.Attachment, error)
	MemberUserIDs(ctx context.Context, projectID uint64) ([]uint64, error)
	CommentAuthorIDs(ctx context.Context, taskID uint64) ([]uint64, error)
}
