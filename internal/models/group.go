package models

import (
	"time"
)

type GroupPrivacy string

const (
	PrivacyPublic  GroupPrivacy = "PUBLIC"
	PrivacyPrivate GroupPrivacy = "PRIVATE"
)

func (p GroupPrivacy) Valid() bool {
	return p == PrivacyPublic || p == PrivacyPrivate
}

type GroupRole string

const (
	RoleAdmin  GroupRole = "ADMIN"
	RoleMember GroupRole = "MEMBER"
)

type MemberStatus string

const (
	StatusPending  MemberStatus = "PENDING"
	StatusActive   MemberStatus = "ACTIVE"
	StatusRejected MemberStatus = "REJECTED"
)

const (
	DefaultMaxMembers = 10
	MinMaxMembers     = 2
	MaxMaxMembers     = 100
)

// Group is a study group. CurrentMembers always equals the number of ACTIVE
// memberships and never exceeds MaxMembers.
type Group struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name           string       `gorm:"size:100;not null" json:"name"`
	Description    string       `gorm:"size:500" json:"description"`
	CourseID       uint         `gorm:"not null;index" json:"course_id"`
	CreatedByID    uint         `gorm:"not null;index" json:"created_by_id"`
	Privacy        GroupPrivacy `gorm:"type:varchar(10);not null;default:'PUBLIC'" json:"privacy"`
	MaxMembers     int          `gorm:"not null;default:10" json:"max_members"`
	CurrentMembers int          `gorm:"not null;default:0" json:"current_members"`

	Course *Course `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

func (Group) TableName() string {
	return "study_groups"
}

func (g *Group) IsFull() bool {
	return g.CurrentMembers >= g.MaxMembers
}

type GroupMember struct {
	ID       uint         `gorm:"primarykey" json:"id"`
	GroupID  uint         `gorm:"not null;uniqueIndex:idx_group_user;index" json:"group_id"`
	UserID   uint         `gorm:"not null;uniqueIndex:idx_group_user;index" json:"user_id"`
	Role     GroupRole    `gorm:"type:varchar(20);not null;default:'MEMBER'" json:"role"`
	Status   MemberStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	JoinedAt time.Time    `gorm:"autoCreateTime" json:"joined_at"`

	Group *Group `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (m *GroupMember) IsActiveAdmin() bool {
	return m != nil && m.Role == RoleAdmin && m.Status == StatusActive
}

func (m *GroupMember) IsActive() bool {
	return m != nil && m.Status == StatusActive
}

// GroupResponse is a group with its course and creator resolved.
type GroupResponse struct {
	ID             uint         `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	CourseID       uint         `json:"course_id"`
	CourseCode     string       `json:"course_code,omitempty"`
	CourseName     string       `json:"course_name,omitempty"`
	CreatedByID    uint         `json:"created_by_id"`
	CreatedBy      *UserSummary `json:"created_by,omitempty"`
	Privacy        GroupPrivacy `json:"privacy"`
	MaxMembers     int          `json:"max_members"`
	CurrentMembers int          `json:"current_members"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (g *Group) ToResponse(course *Course, creator *User) GroupResponse {
	resp := GroupResponse{
		ID:             g.ID,
		Name:           g.Name,
		Description:    g.Description,
		CourseID:       g.CourseID,
		CreatedByID:    g.CreatedByID,
		Privacy:        g.Privacy,
		MaxMembers:     g.MaxMembers,
		CurrentMembers: g.CurrentMembers,
		CreatedAt:      g.CreatedAt,
	}
	if course != nil {
		resp.CourseCode = course.CourseCode
		resp.CourseName = course.CourseName
	}
	if creator != nil {
		s := creator.ToSummary()
		resp.CreatedBy = &s
	}
	return resp
}

// MemberResponse is a membership row with its user resolved.
type MemberResponse struct {
	GroupID  uint         `json:"group_id"`
	User     UserSummary  `json:"user"`
	Role     GroupRole    `json:"role"`
	Status   MemberStatus `json:"status"`
	JoinedAt time.Time    `json:"joined_at"`
}

func (m *GroupMember) ToResponse(user *User) MemberResponse {
	resp := MemberResponse{
		GroupID:  m.GroupID,
		Role:     m.Role,
		Status:   m.Status,
		JoinedAt: m.JoinedAt,
	}
	if user != nil {
		resp.User = user.ToSummary()
	} else {
		resp.User = UserSummary{ID: m.UserID}
	}
	return resp
}
