package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/lock"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HistoryInvalidator drops cached chat history for a group.
type HistoryInvalidator interface {
	InvalidateGroup(groupID uint) error
}

// GroupService runs the group membership state machine. Every mutation of a
// group's memberships happens under that group's lock, and the membership row
// and current_members change in one repository transaction.
type GroupService struct {
	groupRepo      repository.GroupRepositoryInterface
	courseRepo     repository.CourseRepositoryInterface
	enrollmentRepo repository.EnrollmentRepositoryInterface
	userRepo       repository.UserRepositoryInterface
	locker         lock.Locker
	revoker        SubscriptionRevoker
	history        HistoryInvalidator
	log            *zap.Logger
}

func NewGroupService(
	groupRepo repository.GroupRepositoryInterface,
	courseRepo repository.CourseRepositoryInterface,
	enrollmentRepo repository.EnrollmentRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	locker lock.Locker,
	log *zap.Logger,
) *GroupService {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GroupService{
		groupRepo:      groupRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		locker:         locker,
		log:            log,
	}
}

// SetRealtime wires the optional subscription revoker and history cache.
func (s *GroupService) SetRealtime(revoker SubscriptionRevoker, history HistoryInvalidator) {
	s.revoker = revoker
	s.history = history
}

type CreateGroupInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	CourseID    uint                `json:"course_id"`
	Privacy     models.GroupPrivacy `json:"privacy"`
	MaxMembers  int                 `json:"max_members"`
}

// UpdateGroupInput carries only the attributes being changed.
type UpdateGroupInput struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Privacy     *models.GroupPrivacy `json:"privacy"`
	MaxMembers  *int                 `json:"max_members"`
}

func validateGroupFields(name, description string, privacy models.GroupPrivacy, maxMembers int) error {
	var details []apperr.FieldError
	if name == "" {
		details = append(details, apperr.FieldError{Field: "name", Message: "Group name is required"})
	} else if !validation.WithinLength(name, validation.GroupNameMaxLength) {
		details = append(details, apperr.FieldError{Field: "name", Message: "Group name must not exceed 100 characters"})
	}
	if !validation.WithinLength(description, validation.DescriptionMaxLength) {
		details = append(details, apperr.FieldError{Field: "description", Message: "Description must not exceed 500 characters"})
	}
	if !privacy.Valid() {
		details = append(details, apperr.FieldError{Field: "privacy", Message: "Privacy must be PUBLIC or PRIVATE"})
	}
	if maxMembers < models.MinMaxMembers || maxMembers > models.MaxMaxMembers {
		details = append(details, apperr.FieldError{
			Field:   "max_members",
			Message: fmt.Sprintf("Max members must be between %d and %d", models.MinMaxMembers, models.MaxMaxMembers),
		})
	}
	if len(details) > 0 {
		return apperr.Validation("Invalid group", details...)
	}
	return nil
}

func groupLockKey(groupID uint) string {
	return fmt.Sprintf("group:%d", groupID)
}

func (s *GroupService) withGroupLock(ctx context.Context, groupID uint, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, groupLockKey(groupID))
	if err != nil {
		return apperr.Internal(fmt.Errorf("lock group %d: %w", groupID, err))
	}
	defer unlock()
	return fn()
}

// CreateGroup creates a group in a course the creator is enrolled in. The
// creator becomes its ACTIVE admin and first counted member.
func (s *GroupService) CreateGroup(ctx context.Context, userID uint, input CreateGroupInput) (*models.GroupResponse, error) {
	input.Name = validation.SanitizeText(input.Name)
	input.Description = validation.SanitizeText(input.Description)
	if input.Privacy == "" {
		input.Privacy = models.PrivacyPublic
	}
	if input.MaxMembers == 0 {
		input.MaxMembers = models.DefaultMaxMembers
	}
	if err := validateGroupFields(input.Name, input.Description, input.Privacy, input.MaxMembers); err != nil {
		return nil, err
	}

	creator, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	course, err := s.courseRepo.FindByID(input.CourseID)
	if err != nil {
		return nil, notFoundOr(err, ErrCourseNotFound)
	}
	if err := s.ensureEnrolled(userID, course.ID); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:           input.Name,
		Description:    input.Description,
		CourseID:       course.ID,
		CreatedByID:    userID,
		Privacy:        input.Privacy,
		MaxMembers:     input.MaxMembers,
		CurrentMembers: 1,
	}
	admin := &models.GroupMember{
		UserID: userID,
		Role:   models.RoleAdmin,
		Status: models.StatusActive,
	}
	if err := s.groupRepo.CreateWithAdmin(group, admin); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrCourseNotFound
		}
		return nil, apperr.Internal(err)
	}

	s.log.Info("group created",
		zap.Uint("group_id", group.ID),
		zap.Uint("course_id", course.ID),
		zap.Uint("user_id", userID),
	)
	resp := group.ToResponse(course, creator)
	return &resp, nil
}

// JoinGroup applies the join rules: PUBLIC groups admit immediately, PRIVATE
// groups record a PENDING request, and a REJECTED request is re-opened as PENDING.
func (s *GroupService) JoinGroup(ctx context.Context, userID, groupID uint) (*models.GroupMember, error) {
	var result *models.GroupMember
	err := s.withGroupLock(ctx, groupID, func() error {
		group, err := s.groupRepo.FindByID(groupID)
		if err != nil {
			return notFoundOr(err, ErrGroupNotFound)
		}
		if _, err := s.userRepo.FindByID(userID); err != nil {
			return notFoundOr(err, ErrUserNotFound)
		}

		existing, err := s.findMember(groupID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case models.StatusActive:
				return ErrAlreadyMember
			case models.StatusPending:
				return ErrRequestAlreadyPending
			case models.StatusRejected:
				existing.Status = models.StatusPending
				if err := s.groupRepo.UpdateMemberStatus(existing, 0); err != nil {
					return apperr.Internal(err)
				}
				result = existing
				return nil
			}
		}

		if err := s.ensureEnrolled(userID, group.CourseID); err != nil {
			return err
		}
		if group.IsFull() {
			return ErrGroupFull
		}

		member := &models.GroupMember{GroupID: groupID, UserID: userID, Role: models.RoleMember}
		delta := 0
		if group.Privacy == models.PrivacyPublic {
			member.Status = models.StatusActive
			delta = 1
		} else {
			member.Status = models.StatusPending
		}
		if err := s.groupRepo.AddMember(member, delta); err != nil {
			switch {
			case errors.Is(err, repository.ErrCapacityExceeded):
				return ErrGroupFull
			case errors.Is(err, gorm.ErrDuplicatedKey):
				return ErrAlreadyMember
			}
			return apperr.Internal(err)
		}
		result = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LeaveResult reports whether leaving dissolved the group.
type LeaveResult struct {
	GroupDeleted bool `json:"group_deleted"`
}

// LeaveGroup removes the caller's membership. When the last active admin
// leaves, the whole group goes with them.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID uint) (*LeaveResult, error) {
	result := &LeaveResult{}
	err := s.withGroupLock(ctx, groupID, func() error {
		if _, err := s.groupRepo.FindByID(groupID); err != nil {
			return notFoundOr(err, ErrGroupNotFound)
		}
		member, err := s.findMember(groupID, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrNotAMember
		}

		if member.IsActiveAdmin() {
			admins, err := s.groupRepo.CountActiveAdmins(groupID)
			if err != nil {
				return apperr.Internal(err)
			}
			if admins <= 1 {
				if err := s.groupRepo.DeleteCascade(groupID); err != nil {
					return apperr.Internal(err)
				}
				result.GroupDeleted = true
				return nil
			}
		}

		delta := 0
		if member.Status == models.StatusActive {
			delta = -1
		}
		if err := s.groupRepo.RemoveMember(member, delta); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.GroupDeleted {
		s.afterGroupDeleted(groupID)
		s.log.Info("group dissolved by last admin leaving", zap.Uint("group_id", groupID), zap.Uint("user_id", userID))
	} else if s.revoker != nil {
		s.revoker.Unsubscribe(userID, GroupTopic(groupID))
	}
	return result, nil
}

// UpdateMemberStatus approves (ACTIVE) or rejects (REJECTED) a pending request.
// Approval re-checks capacity.
func (s *GroupService) UpdateMemberStatus(ctx context.Context, groupID, targetUserID uint, status models.MemberStatus, adminUserID uint) (*models.GroupMember, error) {
	if status != models.StatusActive && status != models.StatusRejected {
		return nil, apperr.Validation("Status must be ACTIVE or REJECTED",
			apperr.FieldError{Field: "status", Message: "must be ACTIVE or REJECTED"})
	}

	var result *models.GroupMember
	err := s.withGroupLock(ctx, groupID, func() error {
		group, err := s.groupRepo.FindByID(groupID)
		if err != nil {
			return notFoundOr(err, ErrGroupNotFound)
		}
		if err := s.requireAdmin(groupID, adminUserID); err != nil {
			return err
		}
		target, err := s.findMember(groupID, targetUserID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrMemberNotFound
		}
		if target.Status != models.StatusPending {
			return ErrRequestNotPending
		}

		delta := 0
		if status == models.StatusActive {
			if group.IsFull() {
				return ErrGroupFull
			}
			delta = 1
		}
		target.Status = status
		if err := s.groupRepo.UpdateMemberStatus(target, delta); err != nil {
			if errors.Is(err, repository.ErrCapacityExceeded) {
				return ErrGroupFull
			}
			return apperr.Internal(err)
		}
		result = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveMember lets an admin remove a non-admin member.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, targetUserID, adminUserID uint) error {
	err := s.withGroupLock(ctx, groupID, func() error {
		if _, err := s.groupRepo.FindByID(groupID); err != nil {
			return notFoundOr(err, ErrGroupNotFound)
		}
		if err := s.requireAdmin(groupID, adminUserID); err != nil {
			return err
		}
		if targetUserID == adminUserID {
			return ErrCannotRemoveSelf
		}
		target, err := s.findMember(groupID, targetUserID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrMemberNotFound
		}
		if target.Role == models.RoleAdmin {
			return ErrCannotRemoveAdmin
		}

		delta := 0
		if target.Status == models.StatusActive {
			delta = -1
		}
		if err := s.groupRepo.RemoveMember(target, delta); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.revoker != nil {
		s.revoker.Unsubscribe(targetUserID, GroupTopic(groupID))
	}
	return nil
}

// UpdateGroup edits name, description, privacy or capacity. Capacity may not
// drop below the current member count.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID, userID uint, input UpdateGroupInput) (*models.GroupResponse, error) {
	var updated *models.Group
	err := s.withGroupLock(ctx, groupID, func() error {
		group, err := s.groupRepo.FindByID(groupID)
		if err != nil {
			return notFoundOr(err, ErrGroupNotFound)
		}
		if err := s.requireAdmin(groupID, userID); err != nil {
			return err
		}

		if input.Name != nil {
			group.Name = validation.SanitizeText(*input.Name)
		}
		if input.Description != nil {
			group.Description = validation.SanitizeText(*input.Description)
		}
		if input.Privacy != nil {
			group.Privacy = *input.Privacy
		}
		if input.MaxMembers != nil {
			group.MaxMembers = *input.MaxMembers
		}
		if err := validateGroupFields(group.Name, group.Description, group.Privacy, group.MaxMembers); err != nil {
			return err
		}
		if group.MaxMembers < group.CurrentMembers {
			return apperr.Validation("Max members cannot be lower than the current member count",
				apperr.FieldError{Field: "max_members", Message: fmt.Sprintf("must be at least %d", group.CurrentMembers)})
		}

		if err := s.groupRepo.Update(group); err != nil {
			return apperr.Internal(err)
		}
		updated = group
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := s.toResponses([]models.Group{*updated})
	return &resp[0], nil
}

// DeleteGroup removes the group with its memberships and chat history.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, userID uint) error {
	err := s.withGroupLock(ctx, groupID, func() error {
		if _, err := s.groupRepo.FindByID(groupID); err != nil {
			return notFoundOr(err, ErrGroupNotFound)
		}
		if err := s.requireAdmin(groupID, userID); err != nil {
			return err
		}
		if err := s.groupRepo.DeleteCascade(groupID); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.afterGroupDeleted(groupID)
	s.log.Info("group deleted", zap.Uint("group_id", groupID), zap.Uint("user_id", userID))
	return nil
}

func (s *GroupService) GetGroup(groupID uint) (*models.GroupResponse, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, notFoundOr(err, ErrGroupNotFound)
	}
	resp := s.toResponses([]models.Group{*group})
	return &resp[0], nil
}

// ListGroups searches name and description; courseID narrows to one course.
func (s *GroupService) ListGroups(search string, courseID *uint) ([]models.GroupResponse, error) {
	groups, err := s.groupRepo.Search(search, courseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.toResponses(groups), nil
}

func (s *GroupService) ListGroupsByCourse(courseID uint) ([]models.GroupResponse, error) {
	if _, err := s.courseRepo.FindByID(courseID); err != nil {
		return nil, notFoundOr(err, ErrCourseNotFound)
	}
	groups, err := s.groupRepo.ListByCourse(courseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.toResponses(groups), nil
}

// GetUserGroups lists groups where the user is an ACTIVE member.
func (s *GroupService) GetUserGroups(userID uint) ([]models.GroupResponse, error) {
	groups, err := s.groupRepo.ListForMember(userID, models.StatusActive)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.toResponses(groups), nil
}

// GetRecommendedGroups lists non-full groups in the user's courses that the
// user has no membership row in, in any status.
func (s *GroupService) GetRecommendedGroups(userID uint) ([]models.GroupResponse, error) {
	courseIDs, err := s.enrollmentRepo.CourseIDsForUser(userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(courseIDs) == 0 {
		return []models.GroupResponse{}, nil
	}
	groups, err := s.groupRepo.ListOpenForUser(courseIDs, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.toResponses(groups), nil
}

// GetMembership returns the caller's membership row, or nil when there is none.
func (s *GroupService) GetMembership(userID, groupID uint) (*models.GroupMember, error) {
	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		return nil, notFoundOr(err, ErrGroupNotFound)
	}
	return s.findMember(groupID, userID)
}

func (s *GroupService) ListActiveMembers(groupID uint) ([]models.MemberResponse, error) {
	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		return nil, notFoundOr(err, ErrGroupNotFound)
	}
	members, err := s.groupRepo.ListMembers(groupID, models.StatusActive)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.memberResponses(members)
}

func (s *GroupService) ListPendingRequests(groupID, adminUserID uint) ([]models.MemberResponse, error) {
	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		return nil, notFoundOr(err, ErrGroupNotFound)
	}
	if err := s.requireAdmin(groupID, adminUserID); err != nil {
		return nil, err
	}
	members, err := s.groupRepo.ListMembers(groupID, models.StatusPending)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.memberResponses(members)
}

// EnsureActiveMember fails unless userID holds an ACTIVE membership in groupID.
func (s *GroupService) EnsureActiveMember(groupID, userID uint) error {
	return ensureActiveMember(s.groupRepo, groupID, userID)
}

func ensureActiveMember(repo repository.GroupRepositoryInterface, groupID, userID uint) error {
	member, err := repo.FindMember(groupID, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrNotAMember
		}
		return apperr.Internal(err)
	}
	if !member.IsActive() {
		return ErrNotAMember
	}
	return nil
}

func (s *GroupService) findMember(groupID, userID uint) (*models.GroupMember, error) {
	member, err := s.groupRepo.FindMember(groupID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	return member, nil
}

func (s *GroupService) requireAdmin(groupID, userID uint) error {
	member, err := s.findMember(groupID, userID)
	if err != nil {
		return err
	}
	if !member.IsActiveAdmin() {
		return ErrNotAuthorized
	}
	return nil
}

func (s *GroupService) ensureEnrolled(userID, courseID uint) error {
	enrolled, err := s.enrollmentRepo.Exists(userID, courseID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}

func (s *GroupService) afterGroupDeleted(groupID uint) {
	if s.revoker != nil {
		s.revoker.CloseTopic(GroupTopic(groupID))
	}
	if s.history != nil {
		if err := s.history.InvalidateGroup(groupID); err != nil {
			s.log.Warn("invalidate chat history cache failed", zap.Uint("group_id", groupID), zap.Error(err))
		}
	}
}

// toResponses resolves course and creator for each group in two batch lookups.
// Lookup failures degrade to responses without the resolved fields.
func (s *GroupService) toResponses(groups []models.Group) []models.GroupResponse {
	out := make([]models.GroupResponse, 0, len(groups))
	if len(groups) == 0 {
		return out
	}

	courseIDs := make([]uint, 0, len(groups))
	userIDs := make([]uint, 0, len(groups))
	for i := range groups {
		courseIDs = append(courseIDs, groups[i].CourseID)
		userIDs = append(userIDs, groups[i].CreatedByID)
	}

	courses := map[uint]*models.Course{}
	if found, err := s.courseRepo.FindByIDs(uniqueIDs(courseIDs)); err != nil {
		s.log.Warn("resolve group courses failed", zap.Error(err))
	} else {
		for i := range found {
			courses[found[i].ID] = &found[i]
		}
	}
	users := map[uint]*models.User{}
	if found, err := s.userRepo.FindByIDs(uniqueIDs(userIDs)); err != nil {
		s.log.Warn("resolve group creators failed", zap.Error(err))
	} else {
		for i := range found {
			users[found[i].ID] = &found[i]
		}
	}

	for i := range groups {
		out = append(out, groups[i].ToResponse(courses[groups[i].CourseID], users[groups[i].CreatedByID]))
	}
	return out
}

func (s *GroupService) memberResponses(members []models.GroupMember) ([]models.MemberResponse, error) {
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	out := make([]models.MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, members[i].ToResponse(byID[members[i].UserID]))
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
