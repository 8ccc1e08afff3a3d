package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/storage"
	"go.uber.org/zap"
)

type AvatarService struct {
	userRepo repository.UserRepositoryInterface
	media    storage.MediaStore
	log      *zap.Logger
}

func NewAvatarService(userRepo repository.UserRepositoryInterface, media storage.MediaStore, log *zap.Logger) *AvatarService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AvatarService{userRepo: userRepo, media: media, log: log}
}

// UploadAvatar re-encodes the image as a JPEG, stores it and points the user at
// it. The previous object is deleted only after the user row is saved.
func (s *AvatarService) UploadAvatar(ctx context.Context, userID uint, file io.Reader) (*models.User, error) {
	if s.media == nil {
		return nil, apperr.Internal(ErrStorageNotConfigured)
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}

	img, err := storage.ProcessAvatarImage(file, storage.DefaultAvatarOptions())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			return nil, apperr.Validation("Avatar is too large (max 5 MiB)")
		case errors.Is(err, storage.ErrUnsupported), errors.Is(err, storage.ErrInvalidImage):
			return nil, apperr.Validation("Avatar must be a JPEG, PNG or WebP image")
		}
		return nil, apperr.Internal(err)
	}

	url, err := s.media.Store(ctx, storage.AvatarKey(userID), bytes.NewReader(img.Data), img.Size(), img.ContentType)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	oldURL := strings.TrimSpace(user.AvatarURL)
	now := time.Now().UTC()
	user.AvatarURL = url
	user.AvatarContentType = img.ContentType
	user.AvatarSizeBytes = img.Size()
	user.AvatarUpdatedAt = &now

	if err := s.userRepo.Update(user); err != nil {
		s.deleteQuietly(ctx, url)
		return nil, apperr.Internal(err)
	}
	if oldURL != "" && oldURL != url {
		s.deleteQuietly(ctx, oldURL)
	}
	return user, nil
}

// DeleteAvatar clears the avatar reference; removing the stored object is best effort.
func (s *AvatarService) DeleteAvatar(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}

	oldURL := strings.TrimSpace(user.AvatarURL)
	user.AvatarURL = ""
	user.AvatarContentType = ""
	user.AvatarSizeBytes = 0
	user.AvatarUpdatedAt = nil

	if err := s.userRepo.Update(user); err != nil {
		return nil, apperr.Internal(err)
	}
	if oldURL != "" {
		s.deleteQuietly(ctx, oldURL)
	}
	return user, nil
}

func (s *AvatarService) deleteQuietly(ctx context.Context, url string) {
	if s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, url); err != nil {
		s.log.Warn("delete avatar object failed", zap.String("url", url), zap.Error(err))
	}
}
