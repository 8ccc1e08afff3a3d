package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/storage"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/validation"
	"go.uber.org/zap"
)

const (
	DefaultHistoryPageSize = 50
	MaxHistoryPageSize     = 100
)

// HistoryCache holds the first page of a group's history.
type HistoryCache interface {
	GetFirstPage(groupID uint, size int) ([]models.ChatMessageResponse, bool)
	SetFirstPage(groupID uint, size int, messages []models.ChatMessageResponse) error
	InvalidateGroup(groupID uint) error
}

// PresenceChecker reports whether a user currently holds a realtime connection.
type PresenceChecker interface {
	IsUserOnline(userID uint) bool
}

// ChatService persists group chat messages and fans them out to subscribers.
type ChatService struct {
	messageRepo repository.ChatMessageRepositoryInterface
	groupRepo   repository.GroupRepositoryInterface
	userRepo    repository.UserRepositoryInterface
	publisher   Publisher
	history     HistoryCache
	presence    PresenceChecker
	media       storage.MediaStore
	log         *zap.Logger
	now         func() time.Time
}

func NewChatService(
	messageRepo repository.ChatMessageRepositoryInterface,
	groupRepo repository.GroupRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	publisher Publisher,
	log *zap.Logger,
) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) SetHistoryCache(history HistoryCache) { s.history = history }

func (s *ChatService) SetPresence(presence PresenceChecker) { s.presence = presence }

func (s *ChatService) SetMediaStore(media storage.MediaStore) { s.media = media }

// SendMessageInput is a plain send. File fields are kept only when the
// resolved type carries a file.
type SendMessageInput struct {
	Content  string             `json:"content"`
	Type     models.MessageType `json:"type"`
	FileURL  string             `json:"file_url"`
	FileName string             `json:"file_name"`
	FileType string             `json:"file_type"`
	FileSize *int64             `json:"file_size"`
}

// FileShareInput records a file that already lives in the media store.
type FileShareInput struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	Caption  string `json:"caption"`
}

type LinkShareInput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SendMessage classifies, persists and broadcasts a plain message.
func (s *ChatService) SendMessage(ctx context.Context, groupID, senderID uint, input SendMessageInput) (*models.ChatMessageResponse, error) {
	content := strings.TrimSpace(input.Content)
	if input.Type != "" && !input.Type.Valid() {
		return nil, apperr.Validation("Unknown message type",
			apperr.FieldError{Field: "type", Message: fmt.Sprintf("%q is not a message type", input.Type)})
	}
	msgType := ResolveMessageType(input.Type, content)

	msg := &models.ChatMessage{
		GroupID:  groupID,
		SenderID: senderID,
		Type:     msgType,
		Content:  content,
	}
	if msgType.CarriesFile() {
		msg.FileURL = strings.TrimSpace(input.FileURL)
		msg.FileName = validation.TrimAndLimit(input.FileName, 255)
		msg.FileType = input.FileType
		msg.FileSize = input.FileSize
		if msg.Content == "" {
			msg.Content = DefaultFileCaption
		}
	} else if content == "" {
		return nil, apperr.Validation("Message content is required",
			apperr.FieldError{Field: "content", Message: "must not be blank"})
	}
	if !validation.WithinLength(msg.Content, validation.MaxMessageLength()) {
		return nil, apperr.Validation("Message is too long",
			apperr.FieldError{Field: "content", Message: fmt.Sprintf("must not exceed %d characters", validation.MaxMessageLength())})
	}

	return s.deliver(ctx, msg)
}

// ShareFile records an uploaded file as a message typed by its MIME type.
func (s *ChatService) ShareFile(ctx context.Context, groupID, senderID uint, input FileShareInput) (*models.ChatMessageResponse, error) {
	if strings.TrimSpace(input.FileURL) == "" {
		return nil, apperr.Validation("File URL is required",
			apperr.FieldError{Field: "file_url", Message: "must not be blank"})
	}
	caption := strings.TrimSpace(input.Caption)
	if caption == "" {
		caption = DefaultFileCaption
	}
	if !validation.WithinLength(caption, validation.MaxMessageLength()) {
		return nil, apperr.Validation("Caption is too long",
			apperr.FieldError{Field: "caption", Message: fmt.Sprintf("must not exceed %d characters", validation.MaxMessageLength())})
	}

	size := input.FileSize
	msg := &models.ChatMessage{
		GroupID:  groupID,
		SenderID: senderID,
		Type:     ClassifyMIME(input.FileType),
		Content:  caption,
		FileURL:  strings.TrimSpace(input.FileURL),
		FileName: validation.TrimAndLimit(input.FileName, 255),
		FileType: input.FileType,
		FileSize: &size,
	}
	return s.deliver(ctx, msg)
}

// ShareLink records an explicit link share; the optional title goes in the
// file name field for display.
func (s *ChatService) ShareLink(ctx context.Context, groupID, senderID uint, input LinkShareInput) (*models.ChatMessageResponse, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return nil, apperr.Validation("Link URL is required",
			apperr.FieldError{Field: "url", Message: "must not be blank"})
	}
	if !validation.WithinLength(url, validation.MaxMessageLength()) {
		return nil, apperr.Validation("Link is too long",
			apperr.FieldError{Field: "url", Message: fmt.Sprintf("must not exceed %d characters", validation.MaxMessageLength())})
	}
	msg := &models.ChatMessage{
		GroupID:  groupID,
		SenderID: senderID,
		Type:     models.MessageLink,
		Content:  url,
		FileName: validation.TrimAndLimit(validation.SanitizeText(input.Title), 255),
	}
	return s.deliver(ctx, msg)
}

// UploadFile stores body in the media store and shares it. Membership is
// checked before anything is stored; the object is removed again if the
// message cannot be recorded.
func (s *ChatService) UploadFile(ctx context.Context, groupID, senderID uint, filename, contentType string, size int64, body io.Reader, caption string) (*models.ChatMessageResponse, error) {
	if s.media == nil {
		return nil, apperr.Internal(ErrStorageNotConfigured)
	}
	if err := s.ensureSender(groupID, senderID); err != nil {
		return nil, err
	}

	url, err := s.media.Store(ctx, storage.ChatFileKey(groupID, filename), body, size, contentType)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("store chat file: %w", err))
	}

	resp, err := s.ShareFile(ctx, groupID, senderID, FileShareInput{
		FileURL:  url,
		FileName: filename,
		FileType: contentType,
		FileSize: size,
		Caption:  caption,
	})
	if err != nil {
		if delErr := s.media.Delete(ctx, url); delErr != nil {
			s.log.Warn("delete orphaned chat file failed", zap.String("url", url), zap.Error(delErr))
		}
		return nil, err
	}
	return resp, nil
}

// GetHistory pages through a group's messages, newest first.
func (s *ChatService) GetHistory(groupID, userID uint, page, size int) ([]models.ChatMessageResponse, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultHistoryPageSize
	}
	if size > MaxHistoryPageSize {
		size = MaxHistoryPageSize
	}
	if err := s.ensureSender(groupID, userID); err != nil {
		return nil, err
	}

	cacheable := s.history != nil && page == 0 && size == DefaultHistoryPageSize
	if cacheable {
		if cached, ok := s.history.GetFirstPage(groupID, size); ok {
			return cached, nil
		}
	}

	messages, err := s.messageRepo.ListByGroup(groupID, page, size)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := s.toResponses(messages)

	if cacheable {
		if err := s.history.SetFirstPage(groupID, size, out); err != nil {
			s.log.Warn("cache chat history failed", zap.Uint("group_id", groupID), zap.Error(err))
		}
	}
	return out, nil
}

// ListOnlineMembers returns the ids of active members with a live connection.
func (s *ChatService) ListOnlineMembers(groupID, userID uint) ([]uint, error) {
	if err := s.ensureSender(groupID, userID); err != nil {
		return nil, err
	}
	online := []uint{}
	if s.presence == nil {
		return online, nil
	}
	members, err := s.groupRepo.ListMembers(groupID, models.StatusActive)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, m := range members {
		if s.presence.IsUserOnline(m.UserID) {
			online = append(online, m.UserID)
		}
	}
	return online, nil
}

// CanSubscribe gates realtime subscriptions to the group topic.
func (s *ChatService) CanSubscribe(groupID, userID uint) error {
	return s.ensureSender(groupID, userID)
}

func (s *ChatService) ensureSender(groupID, userID uint) error {
	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		return notFoundOr(err, ErrGroupNotFound)
	}
	return ensureActiveMember(s.groupRepo, groupID, userID)
}

// deliver gates on membership, persists, then broadcasts. Only the
// persistence step can fail the call.
func (s *ChatService) deliver(_ context.Context, msg *models.ChatMessage) (*models.ChatMessageResponse, error) {
	if err := s.ensureSender(msg.GroupID, msg.SenderID); err != nil {
		return nil, err
	}

	msg.Timestamp = s.now()
	if err := s.messageRepo.Create(msg); err != nil {
		// The group was deleted after the membership check.
		if isForeignKeyViolation(err) {
			return nil, ErrGroupNotFound
		}
		return nil, apperr.Internal(err)
	}

	if s.history != nil {
		if err := s.history.InvalidateGroup(msg.GroupID); err != nil {
			s.log.Warn("invalidate chat history cache failed", zap.Uint("group_id", msg.GroupID), zap.Error(err))
		}
	}

	var sender *models.User
	if u, err := s.userRepo.FindByID(msg.SenderID); err == nil {
		sender = u
	} else {
		s.log.Warn("resolve message sender failed", zap.Uint("user_id", msg.SenderID), zap.Error(err))
	}
	resp := msg.ToResponse(sender)

	s.broadcast(resp)
	return &resp, nil
}

func (s *ChatService) broadcast(resp models.ChatMessageResponse) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(GroupTopic(resp.GroupID), resp); err != nil {
		s.log.Warn("chat broadcast failed",
			zap.Uint("group_id", resp.GroupID),
			zap.Uint("message_id", resp.ID),
			zap.Error(err),
		)
	}
}

func (s *ChatService) toResponses(messages []models.ChatMessage) []models.ChatMessageResponse {
	out := make([]models.ChatMessageResponse, 0, len(messages))
	if len(messages) == 0 {
		return out
	}
	ids := make([]uint, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.SenderID)
	}
	senders := map[uint]*models.User{}
	if users, err := s.userRepo.FindByIDs(uniqueIDs(ids)); err != nil {
		s.log.Warn("resolve message senders failed", zap.Error(err))
	} else {
		for i := range users {
			senders[users[i].ID] = &users[i]
		}
	}
	for i := range messages {
		out = append(out, messages[i].ToResponse(senders[messages[i].SenderID]))
	}
	return out
}
