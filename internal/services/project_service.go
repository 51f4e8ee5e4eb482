package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

var (
	ErrInvalidProjectName   = errors.New("project name cannot be empty")
	ErrAlreadyProjectMember = errors.New("user is already a member of this project")
	ErrMemberNotFound       = errors.New("project member not found")
)

// ProjectService provides business logic for projects and memberships.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	authz       *AuthorizationService
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, authz *AuthorizationService) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		authz:       authz,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
	OwnerID     uint64
}

// CreateProject creates a project and registers the owner as a member.
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidProjectName
	}

	if input.Status == "" {
		input.Status = models.ProjectStatusActive
	}

	project := &models.Project{
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Description: input.Description,
		Status:      input.Status,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    input.OwnerID,
		Role:      models.MemberRoleOwner,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add owner to project: %w", err)
	}

	return project, nil
}

// ListProjectsForUser returns projects the user owns or belongs to.
func (s *ProjectService) ListProjectsForUser(userID uint64) ([]models.Project, error) {
	projects, err := s.projectRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a project with its owner and members.
func (s *ProjectService) GetProject(projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Owner", "Members", "Members.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// UpdateProjectInput represents optional project fields to change.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateProject applies the provided fields after the authorization check.
func (s *ProjectService) UpdateProject(projectID, actorID uint64, input UpdateProjectInput) (*models.Project, error) {
	if err := s.authz.EnsureProjectAccess(projectID, actorID); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidProjectName
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// DeleteProject removes a project and everything under it.
func (s *ProjectService) DeleteProject(projectID, actorID uint64) error {
	if err := s.authz.EnsureProjectAccess(projectID, actorID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// AddMemberInput represents parameters to register a project member.
type AddMemberInput struct {
	ProjectID uint64
	UserID    uint64
	Role      models.MemberRole
	ActorID   uint64
}

// AddMember registers a user as a project member.
func (s *ProjectService) AddMember(input AddMemberInput) (*models.ProjectMember, error) {
	if err := s.authz.EnsureProjectAccess(input.ProjectID, input.ActorID); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByID(input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.projectRepo.FindMember(input.ProjectID, input.UserID); err == nil {
		return nil, ErrAlreadyProjectMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	if input.Role == "" {
		input.Role = models.MemberRoleMember
	}

	member := &models.ProjectMember{
		ProjectID: input.ProjectID,
		UserID:    input.UserID,
		Role:      input.Role,
		JoinedAt:  time.Now(),
	}

	if err := s.projectRepo.AddMember(member); err != nil {
		// The unique (project_id, user_id) index backs up the pre-check
		if isDuplicateKey(err) {
			return nil, ErrAlreadyProjectMember
		}
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}

	return member, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// ListMembers returns the members of a project visible to the actor.
func (s *ProjectService) ListMembers(projectID, actorID uint64) ([]models.ProjectMember, error) {
	if err := s.authz.EnsureProjectAccess(projectID, actorID); err != nil {
		return nil, err
	}

	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}

// UpdateMemberRole changes a member's role label.
func (s *ProjectService) UpdateMemberRole(memberID, actorID uint64, role models.MemberRole) (*models.ProjectMember, error) {
	member, err := s.projectRepo.FindMemberByID(memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find project member: %w", err)
	}

	if err := s.authz.EnsureProjectAccess(member.ProjectID, actorID); err != nil {
		return nil, err
	}

	member.Role = role
	if err := s.projectRepo.UpdateMember(member); err != nil {
		return nil, fmt.Errorf("failed to update project member: %w", err)
	}

	return member, nil
}

// RemoveMember removes a membership row.
func (s *ProjectService) RemoveMember(memberID, actorID uint64) error {
	member, err := s.projectRepo.FindMemberByID(memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find project member: %w", err)
	}

	if err := s.authz.EnsureProjectAccess(member.ProjectID, actorID); err != nil {
		return err
	}

	if err := s.projectRepo.RemoveMember(memberID); err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}

	return nil
}
