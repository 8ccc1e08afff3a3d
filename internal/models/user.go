package models

import (
	"time"
)

const (
	PlatformRoleUser  = "user"
	PlatformRoleAdmin = "admin"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"size:20;not null;default:user" json:"role"`

	// Education history
	SecondarySchool            string   `gorm:"size:200" json:"secondary_school"`
	SecondarySchoolPassingYear *int     `json:"secondary_school_passing_year"`
	SecondarySchoolPercentage  *float64 `json:"secondary_school_percentage"`
	HigherSecondarySchool      string   `gorm:"size:200" json:"higher_secondary_school"`
	HigherSecondaryPassingYear *int     `json:"higher_secondary_passing_year"`
	HigherSecondaryPercentage  *float64 `json:"higher_secondary_percentage"`
	UniversityName             string   `gorm:"size:200" json:"university_name"`
	UniversityPassingYear      *int     `json:"university_passing_year"`
	UniversityPassingGPA       *float64 `json:"university_passing_gpa"`

	Bio string `gorm:"size:1000" json:"bio"`

	// Avatar metadata; the object itself lives in the media store.
	AvatarURL         string     `json:"avatar_url"`
	AvatarContentType string     `gorm:"size:50" json:"-"`
	AvatarSizeBytes   int64      `json:"-"`
	AvatarUpdatedAt   *time.Time `json:"-"`
}

type UserResponse struct {
	ID                         uint      `json:"id"`
	Name                       string    `json:"name"`
	Email                      string    `json:"email"`
	Role                       string    `json:"role"`
	SecondarySchool            string    `json:"secondary_school,omitempty"`
	SecondarySchoolPassingYear *int      `json:"secondary_school_passing_year,omitempty"`
	SecondarySchoolPercentage  *float64  `json:"secondary_school_percentage,omitempty"`
	HigherSecondarySchool      string    `json:"higher_secondary_school,omitempty"`
	HigherSecondaryPassingYear *int      `json:"higher_secondary_passing_year,omitempty"`
	HigherSecondaryPercentage  *float64  `json:"higher_secondary_percentage,omitempty"`
	UniversityName             string    `json:"university_name,omitempty"`
	UniversityPassingYear      *int      `json:"university_passing_year,omitempty"`
	UniversityPassingGPA       *float64  `json:"university_passing_gpa,omitempty"`
	Bio                        string    `json:"bio,omitempty"`
	AvatarURL                  string    `json:"avatar_url,omitempty"`
	CreatedAt                  time.Time `json:"created_at"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:                         u.ID,
		Name:                       u.Name,
		Email:                      u.Email,
		Role:                       u.Role,
		SecondarySchool:            u.SecondarySchool,
		SecondarySchoolPassingYear: u.SecondarySchoolPassingYear,
		SecondarySchoolPercentage:  u.SecondarySchoolPercentage,
		HigherSecondarySchool:      u.HigherSecondarySchool,
		HigherSecondaryPassingYear: u.HigherSecondaryPassingYear,
		HigherSecondaryPercentage:  u.HigherSecondaryPercentage,
		UniversityName:             u.UniversityName,
		UniversityPassingYear:      u.UniversityPassingYear,
		UniversityPassingGPA:       u.UniversityPassingGPA,
		Bio:                        u.Bio,
		AvatarURL:                  u.AvatarURL,
		CreatedAt:                  u.CreatedAt,
	}
}

// UserSummary is the public projection embedded in member lists and chat messages.
type UserSummary struct {
	ID        uint   `json:"id" msgpack:"id"`
	Name      string `json:"name" msgpack:"name"`
	Email     string `json:"email" msgpack:"email"`
	AvatarURL string `json:"avatar_url,omitempty" msgpack:"avatar_url"`
}

func (u *User) ToSummary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
}
