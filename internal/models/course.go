package models

import "time"

type Course struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CourseCode  string `gorm:"size:20;uniqueIndex;not null" json:"course_code"`
	CourseName  string `gorm:"size:100;not null" json:"course_name"`
	Description string `gorm:"size:500" json:"description"`
	Credits     int    `json:"credits"`
	Department  string `gorm:"size:100;index" json:"department"`
}

// UserCourse is an enrollment: one row per (user, course).
type UserCourse struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_course;index" json:"user_id"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_user_course;index" json:"course_id"`
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`

	// A course with enrollments cannot be deleted.
	Course *Course `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// PeerResponse describes another user together with the courses both users share.
type PeerResponse struct {
	User          UserSummary `json:"user"`
	CommonCourses []Course    `json:"common_courses"`
}
