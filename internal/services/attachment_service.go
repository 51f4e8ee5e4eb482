package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

var (
	ErrAttachmentNotFound         = errors.New("attachment not found")
	ErrEmptyFile                  = errors.New("file is empty")
	ErrStorageNotConfigured       = errors.New("object storage is not configured")
	ErrAttachmentPermissionDenied = errors.New("only the uploader or project owner can delete an attachment")
)

const attachmentFolder = "attachments"

// AttachmentService handles file attachments backed by object storage.
type AttachmentService struct {
	attachmentRepo repository.AttachmentRepository
	taskRepo       repository.TaskRepository
	projectRepo    repository.ProjectRepository
	authz          *AuthorizationService
	storage        ObjectStorage
}

// NewAttachmentService creates a new AttachmentService.
func NewAttachmentService(attachmentRepo repository.AttachmentRepository, taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, authz *AuthorizationService, storage ObjectStorage) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		taskRepo:       taskRepo,
		projectRepo:    projectRepo,
		authz:          authz,
		storage:        storage,
	}
}

// UploadInput represents an inbound file upload.
type UploadInput struct {
	TaskID       uint64
	ActorID      uint64
	OriginalName string
	MimeType     string
	Data         []byte
}

// Upload stores the file bytes in object storage and persists the metadata.
func (s *AttachmentService) Upload(ctx context.Context, input UploadInput) (*models.Attachment, error) {
	if s.storage == nil {
		return nil, ErrStorageNotConfigured
	}
	if len(input.Data) == 0 {
		return nil, ErrEmptyFile
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

	fileName := uuid.NewString() + filepath.Ext(input.OriginalName)
	key := attachmentFolder + "/" + fileName

	url, err := s.storage.Upload(ctx, key, input.Data, input.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	attachment := &models.Attachment{
		TaskID:       input.TaskID,
		UserID:       input.ActorID,
		FileName:     fileName,
		OriginalName: input.OriginalName,
		Path:         url,
		MimeType:     input.MimeType,
		Size:         int64(len(input.Data)),
	}

	if err := s.attachmentRepo.Create(attachment); err != nil {
		// Avoid leaking the stored object when the row cannot be written
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("failed to clean up orphaned object")
		}
		return nil, fmt.Errorf("failed to persist attachment: %w", err)
	}

	return attachment, nil
}

// ListAttachments returns a task's attachments, newest first.
func (s *AttachmentService) ListAttachments(taskID, actorID uint64) ([]models.Attachment, error) {
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

	attachments, err := s.attachmentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// DeleteAttachment removes the row and the stored object. The object delete
// is best-effort so a storage outage cannot strand the metadata.
func (s *AttachmentService) DeleteAttachment(ctx context.Context, attachmentID, actorID uint64) error {
	attachment, err := s.attachmentRepo.FindByID(attachmentID, "Task")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return fmt.Errorf("failed to find attachment: %w", err)
	}

	if attachment.UserID != actorID {
		project, err := s.projectRepo.FindByID(attachment.Task.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to find project: %w", err)
		}
		if project.OwnerID != actorID {
			return ErrAttachmentPermissionDenied
		}
	}

	if err := s.attachmentRepo.Delete(attachmentID); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	if s.storage != nil {
		key := attachmentFolder + "/" + attachment.FileName
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to delete stored object")
		}
	}

	return nil
}
