package repository

import (
	"context"

	"github.com/AlexX2727/backend/internal/models"
	"gorm.io/gorm"
)

// GormDashboardRepository is a GORM implementation of DashboardRepository
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository creates a new DashboardRepository
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &GormDashboardRepository{db: db}
}

// visibleProjects scopes a projects query to those the user owns or belongs to
func (r *GormDashboardRepository) visibleProjects(ctx context.Context, userID uint64) *gorm.DB {
	memberSub := r.db.Model(&models.ProjectMember{}).
		Select("1").
		Where("project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID)

	return r.db.WithContext(ctx).Model(&models.Project{}).
		Where("projects.owner_id = ? OR EXISTS (?)", userID, memberSub)
}

// visibleTasks scopes a tasks query to those the user is assigned to, or that
// live in a project the user owns or belongs to
func (r *GormDashboardRepository) visibleTasks(ctx context.Context, userID uint64) *gorm.DB {
	ownerSub := r.db.Model(&models.Project{}).
		Select("1").
		Where("projects.id = tasks.project_id").
		Where("projects.owner_id = ?", userID)

	memberSub := r.db.Model(&models.ProjectMember{}).
		Select("1").
		Where("project_members.project_id = tasks.project_id").
		Where("project_members.user_id = ?", userID)

	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where("tasks.assignee_id = ? OR EXISTS (?) OR EXISTS (?)", userID, ownerSub, memberSub)
}

// taskVisibilityCondition applies the visibleTasks predicate to a query whose
// rows carry a task_id column (comments, attachments)
func (r *GormDashboardRepository) taskVisibilityCondition(tableAlias string, userID uint64) *gorm.DB {
	ownerSub := r.db.Model(&models.Project{}).
		Select("1").
		Where("projects.id = tasks.project_id").
		Where("projects.owner_id = ?", userID)

	memberSub := r.db.Model(&models.ProjectMember{}).
		Select("1").
		Where("project_members.project_id = tasks.project_id").
		Where("project_members.user_id = ?", userID)

	return r.db.Model(&models.Task{}).
		Select("1").
		Where("tasks.id = "+tableAlias+".task_id").
		Where("tasks.assignee_id = ? OR EXISTS (?) OR EXISTS (?)", userID, ownerSub, memberSub)
}

// ActiveProjects returns the count and most recently updated page of Active
// projects visible to the user
func (r *GormDashboardRepository) ActiveProjects(ctx context.Context, userID uint64, limit int) ([]models.Project, int64, error) {
	query := r.visibleProjects(ctx, userID).Where("projects.status = ?", models.ProjectStatusActive)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	if err := query.Order("projects.updated_at DESC").Limit(limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// PendingTasks returns visible tasks that are not Done, highest priority
// first, then earliest due date with NULLs last
func (r *GormDashboardRepository) PendingTasks(ctx context.Context, userID uint64, limit int) ([]models.Task, int64, error) {
	query := r.visibleTasks(ctx, userID).Where("tasks.status <> ?", models.TaskStatusDone)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	err := query.
		Order(priorityOrder + ", CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC").
		Limit(limit).
		Preload("Project").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CompletedTasks returns visible Done tasks, most recently completed first
func (r *GormDashboardRepository) CompletedTasks(ctx context.Context, userID uint64, limit int) ([]models.Task, int64, error) {
	query := r.visibleTasks(ctx, userID).Where("tasks.status = ?", models.TaskStatusDone)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	err := query.
		Order("CASE WHEN tasks.completed_at IS NULL THEN 1 ELSE 0 END, tasks.completed_at DESC").
		Limit(limit).
		Preload("Project").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// RecentProjects returns the most recently created projects visible to the user
func (r *GormDashboardRepository) RecentProjects(ctx context.Context, userID uint64, limit int) ([]models.Project, error) {
	var projects []models.Project
	err := r.visibleProjects(ctx, userID).
		Order("projects.created_at DESC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// RecentTasks returns the most recently updated visible tasks
func (r *GormDashboardRepository) RecentTasks(ctx context.Context, userID uint64, limit int) ([]models.Task, error) {
	var tasks []models.Task
	err := r.visibleTasks(ctx, userID).
		Order("tasks.updated_at DESC").
		Limit(limit).
		Preload("Project").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// RecentComments returns the most recent comments on visible tasks
func (r *GormDashboardRepository) RecentComments(ctx context.Context, userID uint64, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("EXISTS (?)", r.taskVisibilityCondition("comments", userID)).
		Order("comments.created_at DESC").
		Limit(limit).
		Preload("User").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// RecentAttachments returns the most recent attachments on visible tasks
func (r *GormDashboardRepository) RecentAttachments(ctx context.Context, userID uint64, limit int) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := r.db.WithContext(ctx).Model(&models.Attachment{}).
		Where("EXISTS (?)", r.taskVisibilityCondition("attachments", userID)).
		Order("attachments.created_at DESC").
		Limit(limit).
		Preload("User").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

// MemberUserIDs returns the user IDs of a project's registered members
func (r *GormDashboardRepository) MemberUserIDs(ctx context.Context, projectID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CommentAuthorIDs returns the distinct authors of a task's comments
func (r *GormDashboardRepository) CommentAuthorIDs(ctx context.Context, taskID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Distinct("user_id").
		Where("task_id = ?", taskID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
