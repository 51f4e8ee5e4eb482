package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/repository"
)

var (
	ErrProjectNotFound     = errors.New("project not found")
	ErrProjectAccessDenied = errors.New("user does not have access to this project")
)

// AuthorizationService evaluates the owner-or-member predicate that gates
// every project and task mutation.
type AuthorizationService struct {
	projectRepo repository.ProjectRepository
}

// NewAuthorizationService creates a new AuthorizationService.
func NewAuthorizationService(projectRepo repository.ProjectRepository) *AuthorizationService {
	return &AuthorizationService{
		projectRepo: projectRepo,
	}
}

// EnsureProjectAccess returns nil when the user owns the project or holds a
// membership row for it. Returns ErrProjectNotFound when the project does not
// exist and ErrProjectAccessDenied when the predicate fails.
func (s *AuthorizationService) EnsureProjectAccess(projectID, userID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID == userID {
		return nil
	}

	if _, err := s.projectRepo.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectAccessDenied
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}

	return nil
}

// IsProjectOwnerOrMember reports whether the predicate holds without
// distinguishing the failure mode.
func (s *AuthorizationService) IsProjectOwnerOrMember(projectID, userID uint64) (bool, error) {
	err := s.EnsureProjectAccess(projectID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrProjectAccessDenied) || errors.Is(err, ErrProjectNotFound) {
		return false, nil
	}
	return false, err
}
