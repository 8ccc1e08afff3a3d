package service

import (
	"errors"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = apperr.NotFound("User")
	ErrCourseNotFound = apperr.NotFound("Course")
	ErrGroupNotFound  = apperr.NotFound("Group")
	ErrMemberNotFound = apperr.NotFound("Member")

	ErrCourseCodeTaken = apperr.AlreadyExists("course_code_taken", "A course with this code already exists")
	ErrAlreadyEnrolled = apperr.AlreadyExists("already_enrolled", "You are already enrolled in this course")
	ErrEmailTaken      = apperr.AlreadyExists("email_taken", "An account with this email already exists")

	ErrNotEnrolled   = apperr.NotEnrolled("You must be enrolled in the course to do this")
	ErrNotAMember    = apperr.NotAMember("You are not a member of this group")
	ErrNotAuthorized = apperr.NotAuthorized("Only group admins can perform this action")

	ErrHasEnrollments        = apperr.InvalidState("has_enrollments", "Cannot delete a course with enrolled students")
	ErrHasGroups             = apperr.InvalidState("has_groups", "Cannot delete a course that still has study groups")
	ErrAlreadyMember         = apperr.InvalidState("already_member", "You are already a member of this group")
	ErrRequestAlreadyPending = apperr.InvalidState("request_pending", "Your join request is already pending")
	ErrGroupFull             = apperr.InvalidState("group_full", "This group is full")
	ErrCannotRemoveAdmin     = apperr.InvalidState("cannot_remove_admin", "Admins cannot be removed from the group")
	ErrCannotRemoveSelf      = apperr.InvalidState("cannot_remove_self", "Use leave to exit the group yourself")
	ErrRequestNotPending     = apperr.InvalidState("request_not_pending", "Only pending requests can be approved or rejected")

	ErrInvalidCredentials = apperr.Unauthenticated("Invalid email or password")
	ErrWrongPassword      = apperr.Validation("Current password is incorrect")
	ErrInvalidResetToken  = apperr.Validation("Invalid or expired reset token")

	ErrStorageNotConfigured = errors.New("storage not configured")
)

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// notFoundOr maps a record-not-found error to nf and anything else to an internal error.
func notFoundOr(err error, nf error) error {
	if isNotFound(err) {
		return nf
	}
	return apperr.Internal(err)
}
