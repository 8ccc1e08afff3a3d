package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password behind NewUser's hash.
const TestPassword = "correct-horse-battery"

var testPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// NewUser returns an unsaved user whose email derives from name.
func NewUser(name string) *models.User {
	if name == "" {
		name = "student"
	}
	return &models.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: testPasswordHash,
		Role:         models.PlatformRoleUser,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// NewCourse returns an unsaved course.
func NewCourse(code string) *models.Course {
	if code == "" {
		code = "CS101"
	}
	return &models.Course{
		CourseCode:  code,
		CourseName:  fmt.Sprintf("Course %s", code),
		Description: "Test course",
		Credits:     3,
		Department:  "Computer Science",
	}
}

// NewChatMessage returns an unsaved text message.
func NewChatMessage(groupID, senderID uint, content string, at time.Time) *models.ChatMessage {
	if content == "" {
		content = "Test message"
	}
	return &models.ChatMessage{
		GroupID:   groupID,
		SenderID:  senderID,
		Type:      models.MessageText,
		Content:   content,
		Timestamp: at,
	}
}

// SetupTestEnv sets the environment the validation helpers read.
func SetupTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	t.Setenv("PASSWORD_MIN_LENGTH", "6")
	t.Setenv("MAX_MESSAGE_LENGTH", "4000")
}
