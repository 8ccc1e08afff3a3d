package repository

import (
	"errors"
	"time"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
)

// ErrCapacityExceeded is returned when a member-count delta would push a group
// outside [0, max_members].
var ErrCapacityExceeded = errors.New("group member capacity exceeded")

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	FindByIDs(ids []uint) ([]models.User, error)
	Update(user *models.User) error
}

// CourseRepositoryInterface defines the contract for course catalog operations
type CourseRepositoryInterface interface {
	Create(course *models.Course) error
	CreateBatch(courses []models.Course) error
	FindByID(id uint) (*models.Course, error)
	FindByIDs(ids []uint) ([]models.Course, error)
	FindByCode(code string) (*models.Course, error)
	Update(course *models.Course) error
	Delete(id uint) error
	CountGroups(courseID uint) (int64, error)
	List(search string) ([]models.Course, error)
	ListByDepartment(department string) ([]models.Course, error)
	Count() (int64, error)
}

// EnrollmentRepositoryInterface defines the contract for user-course enrollment operations
type EnrollmentRepositoryInterface interface {
	Create(enrollment *models.UserCourse) error
	Delete(userID, courseID uint) (int64, error)
	Exists(userID, courseID uint) (bool, error)
	CountByCourse(courseID uint) (int64, error)
	CourseIDsForUser(userID uint) ([]uint, error)
	ListCoursesForUser(userID uint) ([]models.Course, error)
	ListOtherEnrollments(userID uint, courseIDs []uint) ([]models.UserCourse, error)
}

// GroupRepositoryInterface defines the contract for group and membership operations.
// Methods taking a delta change the membership row and current_members atomically.
type GroupRepositoryInterface interface {
	CreateWithAdmin(group *models.Group, admin *models.GroupMember) error
	FindByID(id uint) (*models.Group, error)
	FindByIDs(ids []uint) ([]models.Group, error)
	Update(group *models.Group) error
	Search(query string, courseID *uint) ([]models.Group, error)
	ListByCourse(courseID uint) ([]models.Group, error)
	ListOpenForUser(courseIDs []uint, userID uint) ([]models.Group, error)
	ListForMember(userID uint, status models.MemberStatus) ([]models.Group, error)

	FindMember(groupID, userID uint) (*models.GroupMember, error)
	ListMembers(groupID uint, status models.MemberStatus) ([]models.GroupMember, error)
	CountActiveAdmins(groupID uint) (int64, error)
	AddMember(member *models.GroupMember, delta int) error
	UpdateMemberStatus(member *models.GroupMember, delta int) error
	RemoveMember(member *models.GroupMember, delta int) error
	DeleteCascade(groupID uint) error
}

// ChatMessageRepositoryInterface defines the contract for chat history operations
type ChatMessageRepositoryInterface interface {
	Create(message *models.ChatMessage) error
	ListByGroup(groupID uint, page, size int) ([]models.ChatMessage, error)
}

// PasswordResetTokenRepositoryInterface defines the contract for reset token operations
type PasswordResetTokenRepositoryInterface interface {
	Create(token *models.PasswordResetToken) error
	FindByToken(token string) (*models.PasswordResetToken, error)
	DeleteByUser(userID uint) error
	DeleteExpiredOrUsed(now time.Time) error
	MarkUsed(id uint) error
}
