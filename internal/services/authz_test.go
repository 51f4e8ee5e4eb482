package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AlexX2727/backend/internal/models"
	"github.com/AlexX2727/backend/internal/repository"
)

func setupAuthz(t *testing.T) (*AuthorizationService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return NewAuthorizationService(repository.NewProjectRepository(db)), db
}

func TestAuthorizationService_OwnerOrMemberPredicate(t *testing.T) {
	authz, db := setupAuthz(t)
	owner := seedUser(t, db, "owner@example.com")
	member := seedUser(t, db, "member@example.com")
	outsider := seedUser(t, db, "outsider@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&models.ProjectMember{
		ProjectID: project.ID,
		UserID:    member.ID,
		Role:      models.MemberRoleMember,
	}).Error)

	ok, err := authz.IsProjectOwnerOrMember(project.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = authz.IsProjectOwnerOrMember(project.ID, member.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = authz.IsProjectOwnerOrMember(project.ID, outsider.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthorizationService_EnsureProjectAccess_Errors(t *testing.T) {
	authz, db := setupAuthz(t)
	owner := seedUser(t, db, "owner@example.com")
	outsider := seedUser(t, db, "outsider@example.com")

	project := &models.Project{Name: "Website", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(project).Error)

	require.NoError(t, authz.EnsureProjectAccess(project.ID, owner.ID))
	require.ErrorIs(t, authz.EnsureProjectAccess(project.ID, outsider.ID), ErrProjectAccessDenied)
	require.ErrorIs(t, authz.EnsureProjectAccess(9999, owner.ID), ErrProjectNotFound)
}
