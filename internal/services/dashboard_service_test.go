package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

func setupDashboardDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A pooled :memory: SQLite database is per-connection; cap the pool at one
	// connection so the concurrent dashboard queries all see the same schema.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Comment{},
		&models.Attachment{},
	)
	require.NoError(t, err)

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "hashedpassword"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestDashboardService_GetMetrics_Counts(t *testing.T) {
	db := setupDashboardDB(t)
	owner := seedUser(t, db, "owner@example.com")
	stranger := seedUser(t, db, "stranger@example.com")

	visible := &models.Project{Name: "Visible", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(visible).Error)
	completed := &models.Project{Name: "Shipped", OwnerID: owner.ID, Status: models.ProjectStatusCompleted}
	require.NoError(t, db.Create(completed).Error)
	hidden := &models.Project{Name: "Hidden", OwnerID: stranger.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(hidden).Error)

	now := time.Now()
	require.NoError(t, db.Create(&models.Task{ProjectID: visible.ID, Title: "Open", Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium}).Error)
	require.NoError(t, db.Create(&models.Task{ProjectID: visible.ID, Title: "Working", Status: models.TaskStatusInProgress, Priority: models.TaskPriorityMedium}).Error)
	require.NoError(t, db.Create(&models.Task{ProjectID: visible.ID, Title: "Shipped", Status: models.TaskStatusDone, Priority: models.TaskPriorityMedium, CompletedAt: &now}).Error)
	require.NoError(t, db.Create(&models.Task{ProjectID: hidden.ID, Title: "Invisible", Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium}).Error)

	service := NewDashboardService(repository.NewDashboardRepository(db))
	metrics, err := service.GetMetrics(context.Background(), owner.ID, 5)
	require.NoError(t, err)

	// Only the one active visible project counts, never the stranger's
	require.EqualValues(t, 1, metrics.ActiveProjects.Total)
	require.Len(t, metrics.ActiveProjects.Projects, 1)
	require.Equal(t, "Visible", metrics.ActiveProjects.Projects[0].Name)

	// Done tasks are excluded from pending and vice versa
	require.EqualValues(t, 2, metrics.PendingTasks.Total)
	require.EqualValues(t, 1, metrics.CompletedTasks.Total)
	for _, task := range metrics.PendingTasks.Tasks {
		require.NotEqual(t, models.TaskStatusDone, task.Status)
	}
}

func TestDashboardService_TaskCollaborators_UnionCount(t *testing.T) {
	db := setupDashboardDB(t)
	owner := seedUser(t, db, "owner@example.com")
	member := seedUser(t, db, "member@example.com")
	commenter := seedUser(t, db, "commenter@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: project.ID, UserID: owner.ID, Role: models.MemberRoleOwner}).Error)
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: project.ID, UserID: member.ID, Role: models.MemberRoleMember}).Error)

	task := &models.Task{ProjectID: project.ID, Title: "Design", Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium}
	require.NoError(t, db.Create(task).Error)

	// member comments too; their ID must not be double counted
	require.NoError(t, db.Create(&models.Comment{TaskID: task.ID, UserID: member.ID, Content: "looks good"}).Error)
	require.NoError(t, db.Create(&models.Comment{TaskID: task.ID, UserID: commenter.ID, Content: "one note"}).Error)

	service := NewDashboardService(repository.NewDashboardRepository(db))
	metrics, err := service.GetMetrics(context.Background(), owner.ID, 5)
	require.NoError(t, err)

	require.Len(t, metrics.TaskCollaborators, 1)
	require.Equal(t, task.ID, metrics.TaskCollaborators[0].TaskID)
	require.Equal(t, 3, metrics.TaskCollaborators[0].Collaborators)
}

func TestDashboardService_PendingTasks_PriorityThenDueDateOrder(t *testing.T) {
	db := setupDashboardDB(t)
	owner := seedUser(t, db, "owner@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(project).Error)

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(72 * time.Hour)
	require.NoError(t, db.Create(&models.Task{ProjectID: project.ID, Title: "low-nodate", Status: models.TaskStatusTodo, Priority: models.TaskPriorityLow}).Error)
	require.NoError(t, db.Create(&models.Task{ProjectID: project.ID, Title: "crit-later", Status: models.TaskStatusTodo, Priority: models.TaskPriorityCritical, DueDate: &later}).Error)
	require.NoError(t, db.Create(&models.Task{ProjectID: project.ID, Title: "high-soon", Status: models.TaskStatusInProgress, Priority: models.TaskPriorityHigh, DueDate: &soon}).Error)
	require.NoError(t, db.Create(&models.Task{ProjectID: project.ID, Title: "crit-nodate", Status: models.TaskStatusTodo, Priority: models.TaskPriorityCritical}).Error)
	require.NoError(t, db.Create(&models.Task{ProjectID: project.ID, Title: "crit-soon", Status: models.TaskStatusTodo, Priority: models.TaskPriorityCritical, DueDate: &soon}).Error)

	service := NewDashboardService(repository.NewDashboardRepository(db))
	metrics, err := service.GetMetrics(context.Background(), owner.ID, 10)
	require.NoError(t, err)

	titles := make([]string, 0, len(metrics.PendingTasks.Tasks))
	for _, task := range metrics.PendingTasks.Tasks {
		titles = append(titles, task.Title)
	}

	// Highest priority first, then earliest due date, tasks without a due
	// date after dated ones of the same priority
	require.Equal(t, []string{"crit-soon", "crit-later", "crit-nodate", "high-soon", "low-nodate"}, titles)
}

func TestDashboardService_GetMetrics_CanceledContext(t *testing.T) {
	db := setupDashboardDB(t)
	owner := seedUser(t, db, "owner@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewDashboardService(repository.NewDashboardRepository(db))
	_, err := service.GetMetrics(ctx, owner.ID, 5)
	require.Error(t, err)
}

func TestDashboardService_RecentActivity_SortedAndTruncated(t *testing.T) {
	db := setupDashboardDB(t)
	owner := seedUser(t, db, "owner@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(project).Error)

	task := &models.Task{ProjectID: project.ID, Title: "Design", Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium}
	require.NoError(t, db.Create(task).Error)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		comment := &models.Comment{TaskID: task.ID, UserID: owner.ID, Content: "note"}
		require.NoError(t, db.Create(comment).Error)
		require.NoError(t, db.Model(comment).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	attachment := &models.Attachment{TaskID: task.ID, UserID: owner.ID, FileName: "a.png", OriginalName: "mock.png", Path: "http://x/a.png"}
	require.NoError(t, db.Create(attachment).Error)

	service := NewDashboardService(repository.NewDashboardRepository(db))
	metrics, err := service.GetMetrics(context.Background(), owner.ID, 3)
	require.NoError(t, err)

	require.Len(t, metrics.RecentActivity, 3)
	for i := 1; i < len(metrics.RecentActivity); i++ {
		require.False(t, metrics.RecentActivity[i-1].Timestamp.Before(metrics.RecentActivity[i].Timestamp))
	}
}

func TestDashboardService_LimitClamped(t *testing.T) {
	db := setupDashboardDB(t)
	owner := seedUser(t, db, "owner@example.com")

	service := NewDashboardService(repository.NewDashboardRepository(db))

	metrics, err := service.GetMetrics(context.Background(), owner.ID, -1)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	metrics, err = service.GetMetrics(context.Background(), owner.ID, 10000)
	require.NoError(t, err)
	require.NotNil(t, metrics)
}
