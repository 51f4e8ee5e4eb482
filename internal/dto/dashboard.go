package dto

import (
	"time"

	"github.com/AlexX2727/backend/internal/services"
)

// ProjectSectionDTO is a counted page of projects
type ProjectSectionDTO struct {
	Total    int64        `json:"total"`
	Projects []ProjectDTO `json:"projects"`
}

// TaskSectionDTO is a counted page of tasks
type TaskSectionDTO struct {
	Total int64     `json:"total"`
	Tasks []TaskDTO `json:"tasks"`
}

// TaskCollaboratorsDTO is the collaborator count for one task
type TaskCollaboratorsDTO struct {
	TaskID        uint64 `json:"task_id"`
	Title         string `json:"title"`
	Collaborators int    `json:"collaborators"`
}

// ActivityItemDTO is one entry of the merged recent-activity feed
type ActivityItemDTO struct {
	Type      string    `json:"type"`
	TaskID    uint64    `json:"task_id,omitempty"`
	ProjectID uint64    `json:"project_id,omitempty"`
	ActorID   uint64    `json:"actor_id,omitempty"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// DashboardDTO is the composite metrics response
type DashboardDTO struct {
	ActiveProjects    ProjectSectionDTO      `json:"active_projects"`
	PendingTasks      TaskSectionDTO         `json:"pending_tasks"`
	CompletedTasks    TaskSectionDTO         `json:"completed_tasks"`
	TaskCollaborators []TaskCollaboratorsDTO `json:"task_collaborators"`
	RecentProjects    []ProjectDTO           `json:"recent_projects"`
	RecentActivity    []ActivityItemDTO      `json:"recent_activity"`
}

// ToDashboardDTO converts dashboard metrics to the response shape
func ToDashboardDTO(metrics services.DashboardMetrics) DashboardDTO {
	dto := DashboardDTO{
		ActiveProjects: ProjectSectionDTO{
			Total:    metrics.ActiveProjects.Total,
			Projects: ToProjectDTOs(metrics.ActiveProjects.Projects),
		},
		PendingTasks: TaskSectionDTO{
			Total: metrics.PendingTasks.Total,
			Tasks: ToTaskDTOs(metrics.PendingTasks.Tasks),
		},
		CompletedTasks: TaskSectionDTO{
			Total: metrics.CompletedTasks.Total,
			Tasks: ToTaskDTOs(metrics.CompletedTasks.Tasks),
		},
		RecentProjects: ToProjectDTOs(metrics.RecentProjects),
	}

	dto.TaskCollaborators = make([]TaskCollaboratorsDTO, len(metrics.TaskCollaborators))
	for i, tc := range metrics.TaskCollaborators {
		dto.TaskCollaborators[i] = TaskCollaboratorsDTO{
			TaskID:        tc.TaskID,
			Title:         tc.Title,
			Collaborators: tc.Collaborators,
		}
	}

	dto.RecentActivity = make([]ActivityItemDTO, len(metrics.RecentActivity))
	for i, item := range metrics.RecentActivity {
		dto.RecentActivity[i] = ActivityItemDTO{
			Type:      item.Type,
			TaskID:    item.TaskID,
			ProjectID: item.ProjectID,
			ActorID:   item.ActorID,
			Title:     item.Title,
			Timestamp: item.Timestamp,
		}
	}

	return dto
}
