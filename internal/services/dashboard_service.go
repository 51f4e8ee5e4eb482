package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AlexX2727/backend/internal/constants"
	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

// Activity types in the merged feed
const (
	ActivityTaskCreated     = "created"
	ActivityTaskUpdated     = "updated"
	ActivityCommentAdded    = "comment_added"
	ActivityAttachmentAdded = "attachment_added"
)

// ProjectSection is a counted page of projects.
type ProjectSection struct {
	Total    int64
	Projects []models.Project
}

// TaskSection is a counted page of tasks.
type TaskSection struct {
	Total int64
	Tasks []models.Task
}

// TaskCollaborators is the collaborator count for one task: project members
// plus comment authors who are not members.
type TaskCollaborators struct {
	TaskID        uint64
	Title         string
	Collaborators int
}

// ActivityItem is one entry in the merged recent-activity feed.
type ActivityItem struct {
	Type      string
	TaskID    uint64
	ProjectID uint64
	ActorID   uint64
	Title     string
	Timestamp time.Time
}

// DashboardMetrics is the composite result of all six sections.
type DashboardMetrics struct {
	ActiveProjects    ProjectSection
	PendingTasks      TaskSection
	CompletedTasks    TaskSection
	TaskCollaborators []TaskCollaborators
	RecentProjects    []models.Project
	RecentActivity    []ActivityItem
}

// DashboardService computes the per-user metrics dashboard. The sections have
// no dependency on each other, so they fan out concurrently and merge once
// all queries have returned. Any section failure fails the whole request.
type DashboardService struct {
	dashboardRepo repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(dashboardRepo repository.DashboardRepository) *DashboardService {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
	}
}

// GetMetrics computes all dashboard sections for the user. Each section is
// truncated to limit entries.
func (s *DashboardService) GetMetrics(ctx context.Context, userID uint64, limit int) (*DashboardMetrics, error) {
	if limit <= 0 {
		limit = constants.DefaultDashboardLimit
	}
	if limit > constants.MaxDashboardLimit {
		limit = constants.MaxDashboardLimit
	}

	metrics := &DashboardMetrics{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		projects, total, err := s.dashboardRepo.ActiveProjects(gctx, userID, limit)
		if err != nil {
			return fmt.Errorf("active projects: %w", err)
		}
		metrics.ActiveProjects = ProjectSection{Total: total, Projects: projects}
		return nil
	})

	g.Go(func() error {
		tasks, total, err := s.dashboardRepo.PendingTasks(gctx, userID, limit)
		if err != nil {
			return fmt.Errorf("pending tasks: %w", err)
		}
		metrics.PendingTasks = TaskSection{Total: total, Tasks: tasks}
		return nil
	})

	g.Go(func() error {
		tasks, total, err := s.dashboardRepo.CompletedTasks(gctx, userID, limit)
		if err != nil {
			return fmt.Errorf("completed tasks: %w", err)
		}
		metrics.CompletedTasks = TaskSection{Total: total, Tasks: tasks}
		return nil
	})

	g.Go(func() error {
		collaborators, err := s.taskCollaborators(gctx, userID, limit)
		if err != nil {
			return fmt.Errorf("task collaborators: %w", err)
		}
		metrics.TaskCollaborators = collaborators
		return nil
	})

	g.Go(func() error {
		projects, err := s.dashboardRepo.RecentProjects(gctx, userID, limit)
		if err != nil {
			return fmt.Errorf("recent projects: %w", err)
		}
		metrics.RecentProjects = projects
		return nil
	})

	g.Go(func() error {
		activity, err := s.recentActivity(gctx, userID, limit)
		if err != nil {
			return fmt.Errorf("recent activity: %w", err)
		}
		metrics.RecentActivity = activity
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return metrics, nil
}

// taskCollaborators computes, for a bounded set of recently active visible
// tasks, the size of {project members} union {comment authors not already
// members}.
func (s *DashboardService) taskCollaborators(ctx context.Context, userID uint64, limit int) ([]TaskCollaborators, error) {
	tasks, err := s.dashboardRepo.RecentTasks(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	result := make([]TaskCollaborators, 0, len(tasks))
	memberCache := make(map[uint64][]uint64)

	for _, task := range tasks {
		memberIDs, ok := memberCache[task.ProjectID]
		if !ok {
			memberIDs, err = s.dashboardRepo.MemberUserIDs(ctx, task.ProjectID)
			if err != nil {
				return nil, err
			}
			memberCache[task.ProjectID] = memberIDs
		}

		authorIDs, err := s.dashboardRepo.CommentAuthorIDs(ctx, task.ID)
		if err != nil {
			return nil, err
		}

		seen := make(map[uint64]struct{}, len(memberIDs)+len(authorIDs))
		for _, id := range memberIDs {
			seen[id] = struct{}{}
		}
		for _, id := range authorIDs {
			seen[id] = struct{}{}
		}

		result = append(result, TaskCollaborators{
			TaskID:        task.ID,
			Title:         task.Title,
			Collaborators: len(seen),
		})
	}

	return result, nil
}

// recentActivity merges tasks, comments, and attachments into a single
// time-descending feed truncated to limit entries.
func (s *DashboardService) recentActivity(ctx context.Context, userID uint64, limit int) ([]ActivityItem, error) {
	tasks, err := s.dashboardRepo.RecentTasks(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	comments, err := s.dashboardRepo.RecentComments(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	attachments, err := s.dashboardRepo.RecentAttachments(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(tasks)+len(comments)+len(attachments))

	for _, task := range tasks {
		activityType := ActivityTaskCreated
		if task.CompletedAt != nil {
			activityType = ActivityTaskUpdated
		}
		items = append(items, ActivityItem{
			Type:      activityType,
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			Title:     task.Title,
			Timestamp: task.UpdatedAt,
		})
	}

	for _, comment := range comments {
		items = append(items, ActivityItem{
			Type:      ActivityCommentAdded,
			TaskID:    comment.TaskID,
			ActorID:   comment.UserID,
			Title:     comment.Content,
			Timestamp: comment.CreatedAt,
		})
	}

	for _, attachment := range attachments {
		items = append(items, ActivityItem{
			Type:      ActivityAttachmentAdded,
			TaskID:    attachment.TaskID,
			ActorID:   attachment.UserID,
			Title:     attachment.OriginalName,
			Timestamp: attachment.CreatedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}
