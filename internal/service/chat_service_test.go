package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	*fixture
	alice, bob, carol *models.User
	group             *models.GroupResponse
}

// newChatFixture builds a private group with alice as admin, bob active and carol pending.
func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := newFixture(t)
	cf := &chatFixture{fixture: f, alice: f.user(t, "alice"), bob: f.user(t, "bob"), carol: f.user(t, "carol")}
	cs := f.course(t, "CS101")
	for _, u := range []*models.User{cf.alice, cf.bob, cf.carol} {
		f.enroll(t, u.ID, cs.ID)
	}
	cf.group = f.group(t, cf.alice, cs, models.PrivacyPrivate, 5)
	ctx := context.Background()
	for _, u := range []*models.User{cf.bob, cf.carol} {
		_, err := f.groupSvc.JoinGroup(ctx, u.ID, cf.group.ID)
		require.NoError(t, err)
	}
	_, err := f.groupSvc.UpdateMemberStatus(ctx, cf.group.ID, cf.bob.ID, models.StatusActive, cf.alice.ID)
	require.NoError(t, err)
	return cf
}

func TestSendMessage_PersistsThenBroadcasts(t *testing.T) {
	cf := newChatFixture(t)

	msg, err := cf.chatSvc.SendMessage(context.Background(), cf.group.ID, cf.bob.ID, SendMessageInput{Content: "  hi all  "})
	require.NoError(t, err)
	assert.Equal(t, models.MessageText, msg.Type)
	assert.Equal(t, "hi all", msg.Content)
	assert.Equal(t, "bob", msg.Sender.Name)
	assert.Empty(t, msg.FileURL)

	require.Equal(t, 1, cf.publisher.count())
	assert.Equal(t, GroupTopic(cf.group.ID), cf.publisher.sent[0].topic)
	assert.Equal(t, 1, cf.messages.countForGroup(cf.group.ID))
}

func TestSendMessage_URLBecomesLinkWithoutFileFields(t *testing.T) {
	cf := newChatFixture(t)

	size := int64(10)
	msg, err := cf.chatSvc.SendMessage(context.Background(), cf.group.ID, cf.bob.ID, SendMessageInput{
		Content:  "https://example.com/page",
		Type:     models.MessageText,
		FileURL:  "https://ignored.example.com/x",
		FileSize: &size,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageLink, msg.Type)
	assert.Empty(t, msg.FileURL)
	assert.Nil(t, msg.FileSize)
}

func TestSendMessage_DeclaredFileTypeKeepsFileFields(t *testing.T) {
	cf := newChatFixture(t)

	msg, err := cf.chatSvc.SendMessage(context.Background(), cf.group.ID, cf.bob.ID, SendMessageInput{
		Type:     models.MessagePDF,
		FileURL:  "https://media.example.com/chat/1/notes.pdf",
		FileName: "notes.pdf",
		FileType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessagePDF, msg.Type)
	assert.Equal(t, DefaultFileCaption, msg.Content)
	assert.Equal(t, "notes.pdf", msg.FileName)
}

func TestSendMessage_DeclaredFileTypeWithoutURL(t *testing.T) {
	cf := newChatFixture(t)

	msg, err := cf.chatSvc.SendMessage(context.Background(), cf.group.ID, cf.bob.ID, SendMessageInput{
		Content: "diagram from the whiteboard",
		Type:    models.MessageImage,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageImage, msg.Type)
	assert.Empty(t, msg.FileURL)
	assert.Equal(t, 1, cf.messages.countForGroup(cf.group.ID))
}

// interleavedMessageRepo runs beforeCreate after the membership check and before the insert.
type interleavedMessageRepo struct {
	*MockChatMessageRepository
	beforeCreate func()
}

func (r *interleavedMessageRepo) Create(msg *models.ChatMessage) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	return r.MockChatMessageRepository.Create(msg)
}

func TestSendMessage_GroupDeletedBeforeInsert(t *testing.T) {
	cf := newChatFixture(t)
	ctx := context.Background()

	messages := &interleavedMessageRepo{MockChatMessageRepository: cf.messages, beforeCreate: func() {
		require.NoError(t, cf.groupSvc.DeleteGroup(ctx, cf.group.ID, cf.alice.ID))
	}}
	chat := NewChatService(messages, cf.groups, cf.users, cf.publisher, nil)

	_, err := chat.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: "anyone here?"})
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Zero(t, cf.messages.countForGroup(cf.group.ID))
	assert.Zero(t, cf.publisher.count())
}

func TestShareLink_SoleAdminLeftBeforeInsert(t *testing.T) {
	cf := newChatFixture(t)
	ctx := context.Background()

	messages := &interleavedMessageRepo{MockChatMessageRepository: cf.messages, beforeCreate: func() {
		_, err := cf.groupSvc.LeaveGroup(ctx, cf.alice.ID, cf.group.ID)
		require.NoError(t, err)
	}}
	chat := NewChatService(messages, cf.groups, cf.users, cf.publisher, nil)

	_, err := chat.ShareLink(ctx, cf.group.ID, cf.alice.ID, LinkShareInput{URL: "https://go.dev/doc"})
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Zero(t, cf.messages.countForGroup(cf.group.ID))
}

func TestSendMessage_NonMembersNeverPersist(t *testing.T) {
	cf := newChatFixture(t)
	outsider := cf.user(t, "dave")
	rejected := cf.user(t, "erin")
	cs, err := cf.courses.FindByCode("CS101")
	require.NoError(t, err)
	cf.enroll(t, rejected.ID, cs.ID)
	ctx := context.Background()
	_, err = cf.groupSvc.JoinGroup(ctx, rejected.ID, cf.group.ID)
	require.NoError(t, err)
	_, err = cf.groupSvc.UpdateMemberStatus(ctx, cf.group.ID, rejected.ID, models.StatusRejected, cf.alice.ID)
	require.NoError(t, err)

	for _, u := range []*models.User{outsider, cf.carol, rejected} {
		_, err := cf.chatSvc.SendMessage(ctx, cf.group.ID, u.ID, SendMessageInput{Content: "let me in"})
		assert.ErrorIs(t, err, ErrNotAMember, u.Name)
		_, err = cf.chatSvc.ShareLink(ctx, cf.group.ID, u.ID, LinkShareInput{URL: "https://x.example.com"})
		assert.ErrorIs(t, err, ErrNotAMember, u.Name)
		_, err = cf.chatSvc.ShareFile(ctx, cf.group.ID, u.ID, FileShareInput{FileURL: "https://x.example.com/a.png", FileType: "image/png"})
		assert.ErrorIs(t, err, ErrNotAMember, u.Name)
	}
	assert.Zero(t, cf.messages.countForGroup(cf.group.ID))
	assert.Zero(t, cf.publisher.count())
}

func TestSendMessage_Validation(t *testing.T) {
	cf := newChatFixture(t)
	ctx := context.Background()

	_, err := cf.chatSvc.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: "   "})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = cf.chatSvc.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: "x", Type: "VIDEO"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = cf.chatSvc.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: strings.Repeat("a", 4001)})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = cf.chatSvc.SendMessage(ctx, 404, cf.bob.ID, SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestSendMessage_BroadcastFailureIsSwallowed(t *testing.T) {
	cf := newChatFixture(t)
	cf.publisher.failed = true

	msg, err := cf.chatSvc.SendMessage(context.Background(), cf.group.ID, cf.bob.ID, SendMessageInput{Content: "still saved"})
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, 1, cf.messages.countForGroup(cf.group.ID))
}

func TestSendMessage_PersistenceFailureSurfaces(t *testing.T) {
	cf := newChatFixture(t)
	cf.messages.failNext = errors.New("db down")

	_, err := cf.chatSvc.SendMessage(context.Background(), cf.group.ID, cf.bob.ID, SendMessageInput{Content: "lost"})
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	assert.Zero(t, cf.publisher.count())
}

func TestShareFile_ClassifiesByMIME(t *testing.T) {
	cf := newChatFixture(t)
	ctx := context.Background()

	tests := []struct {
		mime string
		want models.MessageType
	}{
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", models.MessageDocument},
		{"image/png", models.MessageImage},
		{"application/octet-stream", models.MessageText},
	}
	for _, tt := range tests {
		msg, err := cf.chatSvc.ShareFile(ctx, cf.group.ID, cf.bob.ID, FileShareInput{
			FileURL:  "https://media.example.com/chat/1/f",
			FileName: "f",
			FileType: tt.mime,
			FileSize: 42,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, msg.Type, tt.mime)
		assert.Equal(t, DefaultFileCaption, msg.Content)
		require.NotNil(t, msg.FileSize)
		assert.Equal(t, int64(42), *msg.FileSize)
	}
}

func TestShareLink_StoresTitleInFileName(t *testing.T) {
	cf := newChatFixture(t)

	msg, err := cf.chatSvc.ShareLink(context.Background(), cf.group.ID, cf.bob.ID, LinkShareInput{
		URL:   "https://go.dev/doc",
		Title: "Go docs",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageLink, msg.Type)
	assert.Equal(t, "https://go.dev/doc", msg.Content)
	assert.Equal(t, "Go docs", msg.FileName)

	_, err = cf.chatSvc.ShareLink(context.Background(), cf.group.ID, cf.bob.ID, LinkShareInput{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUploadFile_StoresThenShares(t *testing.T) {
	cf := newChatFixture(t)
	media := NewMockMediaStore()
	cf.chatSvc.SetMediaStore(media)

	msg, err := cf.chatSvc.UploadFile(context.Background(), cf.group.ID, cf.bob.ID,
		"Week 1 Notes.pdf", "application/pdf", 5, strings.NewReader("%PDF-"), "")
	require.NoError(t, err)
	assert.Equal(t, models.MessagePDF, msg.Type)
	assert.Contains(t, msg.FileURL, "week-1-notes.pdf")
	assert.Len(t, media.objects, 1)

	_, err = cf.chatSvc.UploadFile(context.Background(), cf.group.ID, cf.carol.ID,
		"x.pdf", "application/pdf", 1, strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrNotAMember)
	assert.Len(t, media.objects, 1)
}

func TestUploadFile_RemovesObjectWhenRecordFails(t *testing.T) {
	cf := newChatFixture(t)
	media := NewMockMediaStore()
	cf.chatSvc.SetMediaStore(media)
	cf.messages.failNext = errors.New("db down")

	_, err := cf.chatSvc.UploadFile(context.Background(), cf.group.ID, cf.bob.ID,
		"a.png", "image/png", 1, strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Empty(t, media.objects)
	assert.Len(t, media.deleted, 1)
}

func TestGetHistory_NewestFirstWithInsertionTieBreak(t *testing.T) {
	cf := newChatFixture(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cf.chatSvc.now = func() time.Time { return fixed }

	for _, content := range []string{"first", "second", "third"} {
		_, err := cf.chatSvc.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: content})
		require.NoError(t, err)
	}
	cf.chatSvc.now = func() time.Time { return fixed.Add(-time.Hour) }
	_, err := cf.chatSvc.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: "oldest"})
	require.NoError(t, err)

	page, err := cf.chatSvc.GetHistory(cf.group.ID, cf.bob.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 4)
	assert.Equal(t, []string{"third", "second", "first", "oldest"},
		[]string{page[0].Content, page[1].Content, page[2].Content, page[3].Content})

	second, err := cf.chatSvc.GetHistory(cf.group.ID, cf.bob.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "first", second[0].Content)

	_, err = cf.chatSvc.GetHistory(cf.group.ID, cf.carol.ID, 0, 0)
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestGetHistory_FirstPageCachedAndInvalidated(t *testing.T) {
	cf := newChatFixture(t)
	ctx := context.Background()

	_, err := cf.chatSvc.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: "one"})
	require.NoError(t, err)
	_, err = cf.chatSvc.GetHistory(cf.group.ID, cf.bob.ID, 0, DefaultHistoryPageSize)
	require.NoError(t, err)

	cached, ok := cf.history.GetFirstPage(cf.group.ID, DefaultHistoryPageSize)
	require.True(t, ok)
	assert.Len(t, cached, 1)

	_, err = cf.chatSvc.SendMessage(ctx, cf.group.ID, cf.bob.ID, SendMessageInput{Content: "two"})
	require.NoError(t, err)
	_, ok = cf.history.GetFirstPage(cf.group.ID, DefaultHistoryPageSize)
	assert.False(t, ok)

	page, err := cf.chatSvc.GetHistory(cf.group.ID, cf.bob.ID, 0, DefaultHistoryPageSize)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

type stubPresence map[uint]bool

func (p stubPresence) IsUserOnline(userID uint) bool { return p[userID] }

func TestListOnlineMembers(t *testing.T) {
	cf := newChatFixture(t)
	cf.chatSvc.SetPresence(stubPresence{cf.bob.ID: true, cf.carol.ID: true})

	online, err := cf.chatSvc.ListOnlineMembers(cf.group.ID, cf.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{cf.bob.ID}, online)
}

func TestGetHistory_UnknownSenderKeepsID(t *testing.T) {
	cf := newChatFixture(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, cf.messages.Create(testutil.NewChatMessage(cf.group.ID, cf.alice.ID, "from alice", at)))
	require.NoError(t, cf.messages.Create(testutil.NewChatMessage(cf.group.ID, 999, "from a deleted account", at.Add(time.Minute))))

	page, err := cf.chatSvc.GetHistory(cf.group.ID, cf.bob.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint(999), page[0].Sender.ID)
	assert.Empty(t, page[0].Sender.Name)
	assert.Equal(t, cf.alice.Name, page[1].Sender.Name)
}
