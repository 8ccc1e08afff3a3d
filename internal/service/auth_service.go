package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/mailer"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// resetTokenAttempts bounds retries when a generated reset token collides.
const resetTokenAttempts = 3

type AuthService struct {
	userRepo  repository.UserRepositoryInterface
	tokenRepo repository.PasswordResetTokenRepositoryInterface
	mailer    mailer.Mailer
	secret    []byte
	tokenTTL  time.Duration
	resetTTL  time.Duration
	log       *zap.Logger
	newToken  func() string
	now       func() time.Time
}

type AuthConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
	ResetTTL  time.Duration
}

func NewAuthService(
	userRepo repository.UserRepositoryInterface,
	tokenRepo repository.PasswordResetTokenRepositoryInterface,
	m mailer.Mailer,
	cfg AuthConfig,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 7 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		mailer:    m,
		secret:    []byte(cfg.JWTSecret),
		tokenTTL:  cfg.JWTTTL,
		resetTTL:  cfg.ResetTTL,
		log:       log,
		newToken:  uuid.NewString,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

// Claims is the access token payload.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(input RegisterInput) (*AuthResponse, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = validation.NormalizeEmail(input.Email)

	var details []apperr.FieldError
	if !validation.ValidateName(input.Name) {
		details = append(details, apperr.FieldError{Field: "name", Message: "Name must be between 2 and 100 characters"})
	}
	if !validation.ValidateEmail(input.Email) {
		details = append(details, apperr.FieldError{Field: "email", Message: "Email should be valid"})
	}
	if !validation.ValidatePassword(input.Password) {
		details = append(details, apperr.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", validation.PasswordMinLength()),
		})
	}
	if len(details) > 0 {
		return nil, apperr.Validation("Invalid registration", details...)
	}

	if _, err := s.userRepo.FindByEmail(input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !isNotFound(err) {
		return nil, apperr.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.PlatformRoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, apperr.Internal(err)
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID))

	return s.authResponse(user)
}

func (s *AuthService) Login(input LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(validation.NormalizeEmail(input.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.authResponse(user)
}

// ParseToken verifies an access token and returns its claims.
func (s *AuthService) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, apperr.Unauthenticated("Invalid or expired token")
	}
	return claims, nil
}

// ForgotPassword replaces the user's reset token and mails a link carrying it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(validation.NormalizeEmail(email))
	if err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}

	if err := s.tokenRepo.DeleteByUser(user.ID); err != nil {
		return apperr.Internal(err)
	}
	if err := s.tokenRepo.DeleteExpiredOrUsed(s.now()); err != nil {
		return apperr.Internal(err)
	}

	var token *models.PasswordResetToken
	var lastErr error
	for attempt := 1; attempt <= resetTokenAttempts; attempt++ {
		candidate := &models.PasswordResetToken{
			Token:     s.newToken(),
			UserID:    user.ID,
			ExpiresAt: s.now().Add(s.resetTTL),
		}
		err := s.tokenRepo.Create(candidate)
		if err == nil {
			token = candidate
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Internal(err)
		}
		lastErr = err
		s.log.Warn("reset token collision", zap.Uint("user_id", user.ID), zap.Int("attempt", attempt))
	}
	if token == nil {
		return apperr.TokenGenerationFailed(lastErr)
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, user.Email, token.Token, s.resetTTL); err != nil {
			return apperr.Internal(err)
		}
	}
	return nil
}

// ResetPassword consumes a live reset token and sets a new password.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	if !validation.ValidatePassword(newPassword) {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters", validation.PasswordMinLength()))
	}
	rt, err := s.tokenRepo.FindByToken(strings.TrimSpace(token))
	if err != nil {
		return notFoundOr(err, ErrInvalidResetToken)
	}
	if rt.Used || rt.IsExpired(s.now()) {
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.FindByID(rt.UserID)
	if err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	if err := s.setPassword(user, newPassword); err != nil {
		return err
	}
	if err := s.tokenRepo.MarkUsed(rt.ID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// UpdatePassword changes the password of a signed-in user.
func (s *AuthService) UpdatePassword(userID uint, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	if !validation.ValidatePassword(newPassword) {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters", validation.PasswordMinLength()))
	}
	return s.setPassword(user, newPassword)
}

func (s *AuthService) setPassword(user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err)
	}
	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(user); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *AuthService) authResponse(user *models.User) (*AuthResponse, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// TokenTTL is how long issued access tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration { return s.tokenTTL }
