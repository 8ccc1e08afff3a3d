package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"gorm.io/gorm"
)

// The mocks below are in-memory, goroutine-safe stand-ins for the gorm
// repositories. They hand out copies so callers cannot mutate stored rows
// without going through the repository, just like the database.

type MockUserRepository struct {
	mu     sync.Mutex
	users  map[uint]models.User
	nextID uint
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]models.User), nextID: 1}
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MockUserRepository) Update(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

// MockCourseRepository refuses to delete a course that enrollments or groups
// still reference, like the RESTRICT foreign keys do.
type MockCourseRepository struct {
	mu          sync.Mutex
	courses     map[uint]models.Course
	nextID      uint
	enrollments *MockEnrollmentRepository
	groups      *MockGroupRepository
}

func NewMockCourseRepository() *MockCourseRepository {
	return &MockCourseRepository{courses: make(map[uint]models.Course), nextID: 1}
}

func (m *MockCourseRepository) Create(course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.CourseCode == course.CourseCode {
			return gorm.ErrDuplicatedKey
		}
	}
	course.ID = m.nextID
	m.nextID++
	m.courses[course.ID] = *course
	return nil
}

func (m *MockCourseRepository) CreateBatch(courses []models.Course) error {
	for i := range courses {
		if err := m.Create(&courses[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockCourseRepository) FindByID(id uint) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockCourseRepository) FindByIDs(ids []uint) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockCourseRepository) FindByCode(code string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if strings.EqualFold(c.CourseCode, code) {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockCourseRepository) Update(course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = *course
	return nil
}

func (m *MockCourseRepository) Delete(id uint) error {
	if m.enrollments != nil {
		if n, _ := m.enrollments.CountByCourse(id); n > 0 {
			return gorm.ErrForeignKeyViolated
		}
	}
	if n, _ := m.CountGroups(id); n > 0 {
		return gorm.ErrForeignKeyViolated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.courses, id)
	return nil
}

func (m *MockCourseRepository) CountGroups(courseID uint) (int64, error) {
	if m.groups == nil {
		return 0, nil
	}
	groups, _ := m.groups.ListByCourse(courseID)
	return int64(len(groups)), nil
}

func (m *MockCourseRepository) List(search string) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search = strings.ToLower(strings.TrimSpace(search))
	var out []models.Course
	for _, c := range m.courses {
		if search == "" ||
			strings.Contains(strings.ToLower(c.CourseCode), search) ||
			strings.Contains(strings.ToLower(c.CourseName), search) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

func (m *MockCourseRepository) ListByDepartment(department string) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Course
	for _, c := range m.courses {
		if strings.EqualFold(c.Department, department) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockCourseRepository) Count() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.courses)), nil
}

type MockEnrollmentRepository struct {
	mu      sync.Mutex
	rows    []models.UserCourse
	courses *MockCourseRepository
	nextID  uint
}

func NewMockEnrollmentRepository(courses *MockCourseRepository) *MockEnrollmentRepository {
	m := &MockEnrollmentRepository{courses: courses, nextID: 1}
	courses.enrollments = m
	return m
}

func (m *MockEnrollmentRepository) Create(e *models.UserCourse) error {
	if _, err := m.courses.FindByID(e.CourseID); err != nil {
		return gorm.ErrForeignKeyViolated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == e.UserID && r.CourseID == e.CourseID {
			return gorm.ErrDuplicatedKey
		}
	}
	e.ID = m.nextID
	m.nextID++
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now()
	}
	m.rows = append(m.rows, *e)
	return nil
}

func (m *MockEnrollmentRepository) Delete(userID, courseID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.UserID == userID && r.CourseID == courseID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MockEnrollmentRepository) Exists(userID, courseID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && r.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockEnrollmentRepository) CountByCourse(courseID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (m *MockEnrollmentRepository) CourseIDsForUser(userID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for _, r := range m.rows {
		if r.UserID == userID {
			ids = append(ids, r.CourseID)
		}
	}
	return ids, nil
}

func (m *MockEnrollmentRepository) ListCoursesForUser(userID uint) ([]models.Course, error) {
	ids, _ := m.CourseIDsForUser(userID)
	return m.courses.FindByIDs(ids)
}

func (m *MockEnrollmentRepository) ListOtherEnrollments(userID uint, courseIDs []uint) ([]models.UserCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uint]bool, len(courseIDs))
	for _, id := range courseIDs {
		want[id] = true
	}
	var out []models.UserCourse
	for _, r := range m.rows {
		if r.UserID != userID && want[r.CourseID] {
			out = append(out, r)
		}
	}
	return out, nil
}

type memberKey struct{ groupID, userID uint }

type MockGroupRepository struct {
	mu         sync.Mutex
	groups     map[uint]models.Group
	members    map[memberKey]models.GroupMember
	messages   *MockChatMessageRepository
	courses    *MockCourseRepository
	nextID     uint
	nextMember uint
}

func NewMockGroupRepository(messages *MockChatMessageRepository, courses *MockCourseRepository) *MockGroupRepository {
	m := &MockGroupRepository{
		groups:     make(map[uint]models.Group),
		members:    make(map[memberKey]models.GroupMember),
		messages:   messages,
		courses:    courses,
		nextID:     1,
		nextMember: 1,
	}
	if messages != nil {
		messages.groups = m
	}
	if courses != nil {
		courses.groups = m
	}
	return m
}

func (m *MockGroupRepository) CreateWithAdmin(group *models.Group, admin *models.GroupMember) error {
	if m.courses != nil {
		if _, err := m.courses.FindByID(group.CourseID); err != nil {
			return gorm.ErrForeignKeyViolated
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	group.ID = m.nextID
	m.nextID++
	group.CreatedAt = time.Now()
	m.groups[group.ID] = *group
	admin.GroupID = group.ID
	admin.ID = m.nextMember
	m.nextMember++
	m.members[memberKey{group.ID, admin.UserID}] = *admin
	return nil
}

func (m *MockGroupRepository) FindByID(id uint) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		return &g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockGroupRepository) FindByIDs(ids []uint) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Group
	for _, id := range ids {
		if g, ok := m.groups[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MockGroupRepository) Update(group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.groups[group.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Name = group.Name
	stored.Description = group.Description
	stored.Privacy = group.Privacy
	stored.MaxMembers = group.MaxMembers
	m.groups[group.ID] = stored
	return nil
}

func (m *MockGroupRepository) filter(keep func(models.Group) bool) []models.Group {
	var out []models.Group
	for _, g := range m.groups {
		if keep(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *MockGroupRepository) Search(query string, courseID *uint) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(strings.TrimSpace(query))
	return m.filter(func(g models.Group) bool {
		if courseID != nil && g.CourseID != *courseID {
			return false
		}
		return query == "" ||
			strings.Contains(strings.ToLower(g.Name), query) ||
			strings.Contains(strings.ToLower(g.Description), query)
	}), nil
}

func (m *MockGroupRepository) ListByCourse(courseID uint) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(g models.Group) bool { return g.CourseID == courseID }), nil
}

func (m *MockGroupRepository) ListOpenForUser(courseIDs []uint, userID uint) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uint]bool, len(courseIDs))
	for _, id := range courseIDs {
		want[id] = true
	}
	return m.filter(func(g models.Group) bool {
		_, member := m.members[memberKey{g.ID, userID}]
		return want[g.CourseID] && g.CurrentMembers < g.MaxMembers && !member
	}), nil
}

func (m *MockGroupRepository) ListForMember(userID uint, status models.MemberStatus) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(g models.Group) bool {
		mem, ok := m.members[memberKey{g.ID, userID}]
		return ok && mem.Status == status
	}), nil
}

func (m *MockGroupRepository) FindMember(groupID, userID uint) (*models.GroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[memberKey{groupID, userID}]; ok {
		return &mem, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockGroupRepository) ListMembers(groupID uint, status models.MemberStatus) ([]models.GroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GroupMember
	for k, mem := range m.members {
		if k.groupID == groupID && mem.Status == status {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockGroupRepository) CountActiveAdmins(groupID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, mem := range m.members {
		if k.groupID == groupID && mem.IsActiveAdmin() {
			n++
		}
	}
	return n, nil
}

// applyDelta mirrors the guarded UPDATE in the gorm repository.
func (m *MockGroupRepository) applyDelta(groupID uint, delta int) error {
	if delta == 0 {
		return nil
	}
	g, ok := m.groups[groupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	next := g.CurrentMembers + delta
	if next < 0 || next > g.MaxMembers {
		return repository.ErrCapacityExceeded
	}
	g.CurrentMembers = next
	m.groups[groupID] = g
	return nil
}

func (m *MockGroupRepository) AddMember(member *models.GroupMember, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memberKey{member.GroupID, member.UserID}
	if _, ok := m.members[k]; ok {
		return gorm.ErrDuplicatedKey
	}
	if err := m.applyDelta(member.GroupID, delta); err != nil {
		return err
	}
	member.ID = m.nextMember
	m.nextMember++
	member.JoinedAt = time.Now()
	m.members[k] = *member
	return nil
}

func (m *MockGroupRepository) UpdateMemberStatus(member *models.GroupMember, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memberKey{member.GroupID, member.UserID}
	stored, ok := m.members[k]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if err := m.applyDelta(member.GroupID, delta); err != nil {
		return err
	}
	stored.Status = member.Status
	m.members[k] = stored
	return nil
}

func (m *MockGroupRepository) RemoveMember(member *models.GroupMember, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memberKey{member.GroupID, member.UserID}
	if _, ok := m.members[k]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := m.applyDelta(member.GroupID, delta); err != nil {
		return err
	}
	delete(m.members, k)
	return nil
}

func (m *MockGroupRepository) DeleteCascade(groupID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages != nil {
		m.messages.deleteGroup(groupID)
	}
	for k := range m.members {
		if k.groupID == groupID {
			delete(m.members, k)
		}
	}
	delete(m.groups, groupID)
	return nil
}

// activeCount counts ACTIVE rows, so tests can compare it with currentMembers.
func (m *MockGroupRepository) activeCount(groupID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, mem := range m.members {
		if k.groupID == groupID && mem.Status == models.StatusActive {
			n++
		}
	}
	return n
}

func (m *MockGroupRepository) memberRows(groupID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.members {
		if k.groupID == groupID {
			n++
		}
	}
	return n
}

// MockChatMessageRepository rejects messages for groups that no longer exist,
// like the group_id foreign key does.
type MockChatMessageRepository struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	nextID   uint
	failNext error
	groups   *MockGroupRepository
}

func NewMockChatMessageRepository() *MockChatMessageRepository {
	return &MockChatMessageRepository{nextID: 1}
}

func (m *MockChatMessageRepository) Create(msg *models.ChatMessage) error {
	if m.groups != nil {
		if _, err := m.groups.FindByID(msg.GroupID); err != nil {
			return gorm.ErrForeignKeyViolated
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	msg.ID = m.nextID
	m.nextID++
	m.messages = append(m.messages, *msg)
	return nil
}

// ListByGroup orders newest first, falling back to insertion order for equal timestamps.
func (m *MockChatMessageRepository) ListByGroup(groupID uint, page, size int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatMessage
	for _, msg := range m.messages {
		if msg.GroupID == groupID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	start := page * size
	if start >= len(out) {
		return []models.ChatMessage{}, nil
	}
	end := start + size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (m *MockChatMessageRepository) deleteGroup(groupID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.GroupID != groupID {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
}

func (m *MockChatMessageRepository) countForGroup(groupID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.GroupID == groupID {
			n++
		}
	}
	return n
}

type MockPasswordResetTokenRepository struct {
	mu         sync.Mutex
	tokens     map[string]models.PasswordResetToken
	nextID     uint
	collisions int
}

func NewMockPasswordResetTokenRepository() *MockPasswordResetTokenRepository {
	return &MockPasswordResetTokenRepository{tokens: make(map[string]models.PasswordResetToken), nextID: 1}
}

func (m *MockPasswordResetTokenRepository) Create(t *models.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collisions > 0 {
		m.collisions--
		return gorm.ErrDuplicatedKey
	}
	if _, ok := m.tokens[t.Token]; ok {
		return gorm.ErrDuplicatedKey
	}
	t.ID = m.nextID
	m.nextID++
	m.tokens[t.Token] = *t
	return nil
}

func (m *MockPasswordResetTokenRepository) FindByToken(token string) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[token]; ok {
		return &t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockPasswordResetTokenRepository) DeleteByUser(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *MockPasswordResetTokenRepository) DeleteExpiredOrUsed(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.Used || t.IsExpired(now) {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *MockPasswordResetTokenRepository) MarkUsed(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.ID == id {
			t.Used = true
			m.tokens[k] = t
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *MockPasswordResetTokenRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type published struct {
	topic   string
	payload interface{}
}

type MockPublisher struct {
	mu     sync.Mutex
	sent   []published
	failed bool
}

func (p *MockPublisher) Publish(topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return errors.New("hub unavailable")
	}
	p.sent = append(p.sent, published{topic: topic, payload: payload})
	return nil
}

func (p *MockPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type MockRevoker struct {
	mu           sync.Mutex
	unsubscribed []string
	closed       []string
}

func (r *MockRevoker) Unsubscribe(userID uint, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribed = append(r.unsubscribed, topic)
}

func (r *MockRevoker) CloseTopic(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, topic)
}

type MockHistoryCache struct {
	mu          sync.Mutex
	pages       map[uint][]models.ChatMessageResponse
	invalidated int
}

func NewMockHistoryCache() *MockHistoryCache {
	return &MockHistoryCache{pages: make(map[uint][]models.ChatMessageResponse)}
}

func (c *MockHistoryCache) GetFirstPage(groupID uint, size int) ([]models.ChatMessageResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[groupID]
	return p, ok
}

func (c *MockHistoryCache) SetFirstPage(groupID uint, size int, messages []models.ChatMessageResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[groupID] = messages
	return nil
}

func (c *MockHistoryCache) InvalidateGroup(groupID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, groupID)
	c.invalidated++
	return nil
}

type MockMediaStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	deleteErr error
}

func NewMockMediaStore() *MockMediaStore {
	return &MockMediaStore{objects: make(map[string][]byte)}
}

func (s *MockMediaStore) Store(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	url := "https://media.example.com/" + key
	s.objects[url] = data
	return url, nil
}

func (s *MockMediaStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, url)
	return nil
}

type sentReset struct {
	to, token string
}

type MockMailer struct {
	mu   sync.Mutex
	sent []sentReset
}

func (m *MockMailer) SendPasswordReset(_ context.Context, to, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentReset{to: to, token: token})
	return nil
}
