package service

import (
	"context"
	"testing"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/lock"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/testutil"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users       *MockUserRepository
	courses     *MockCourseRepository
	enrollments *MockEnrollmentRepository
	groups      *MockGroupRepository
	messages    *MockChatMessageRepository
	publisher   *MockPublisher
	revoker     *MockRevoker
	history     *MockHistoryCache

	courseSvc *CourseService
	groupSvc  *GroupService
	chatSvc   *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.SetupTestEnv(t)
	f := &fixture{
		users:     NewMockUserRepository(),
		courses:   NewMockCourseRepository(),
		messages:  NewMockChatMessageRepository(),
		publisher: &MockPublisher{},
		revoker:   &MockRevoker{},
		history:   NewMockHistoryCache(),
	}
	f.enrollments = NewMockEnrollmentRepository(f.courses)
	f.groups = NewMockGroupRepository(f.messages, f.courses)

	f.courseSvc = NewCourseService(f.courses, f.enrollments, f.users, nil)
	f.groupSvc = NewGroupService(f.groups, f.courses, f.enrollments, f.users, lock.NewKeyedMutex(), nil)
	f.groupSvc.SetRealtime(f.revoker, f.history)
	f.chatSvc = NewChatService(f.messages, f.groups, f.users, f.publisher, nil)
	f.chatSvc.SetHistoryCache(f.history)
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := testutil.NewUser(name)
	require.NoError(t, f.users.Create(u))
	return u
}

func (f *fixture) course(t *testing.T, code string) *models.Course {
	t.Helper()
	c := testutil.NewCourse(code)
	require.NoError(t, f.courses.Create(c))
	return c
}

func (f *fixture) enroll(t *testing.T, userID, courseID uint) {
	t.Helper()
	_, err := f.courseSvc.Enroll(userID, courseID)
	require.NoError(t, err)
}

func (f *fixture) group(t *testing.T, creator *models.User, course *models.Course, privacy models.GroupPrivacy, max int) *models.GroupResponse {
	t.Helper()
	g, err := f.groupSvc.CreateGroup(context.Background(), creator.ID, CreateGroupInput{
		Name:       "Study " + course.CourseCode,
		CourseID:   course.ID,
		Privacy:    privacy,
		MaxMembers: max,
	})
	require.NoError(t, err)
	return g
}

// assertCounter checks current_members against the ACTIVE rows.
func (f *fixture) assertCounter(t *testing.T, groupID uint, want int) {
	t.Helper()
	g, err := f.groups.FindByID(groupID)
	require.NoError(t, err)
	require.Equal(t, want, g.CurrentMembers, "current_members")
	require.Equal(t, want, f.groups.activeCount(groupID), "active rows")
}
