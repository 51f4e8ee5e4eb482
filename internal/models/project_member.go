package models

import "time"

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
	MemberRoleViewer MemberRole = "viewer"
)

// Valid reports whether the role is one of the known member roles.
func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleMember, MemberRoleViewer:
		return true
	}
	return false
}

type ProjectMember struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	ProjectID uint64     `gorm:"not null;uniqueIndex:idx_project_user" json:"project_id"`
	UserID    uint64     `gorm:"not null;uniqueIndex:idx_project_user" json:"user_id"`
	Role      MemberRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt  time.Time  `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
