package service

import (
	"strings"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepositoryInterface
}

func NewUserService(userRepo repository.UserRepositoryInterface) *UserService {
	return &UserService{userRepo: userRepo}
}

// UpdateProfileInput only changes fields that are present.
type UpdateProfileInput struct {
	Name                       *string  `json:"name"`
	Bio                        *string  `json:"bio"`
	SecondarySchool            *string  `json:"secondary_school"`
	SecondarySchoolPassingYear *int     `json:"secondary_school_passing_year"`
	SecondarySchoolPercentage  *float64 `json:"secondary_school_percentage"`
	HigherSecondarySchool      *string  `json:"higher_secondary_school"`
	HigherSecondaryPassingYear *int     `json:"higher_secondary_passing_year"`
	HigherSecondaryPercentage  *float64 `json:"higher_secondary_percentage"`
	UniversityName             *string  `json:"university_name"`
	UniversityPassingYear      *int     `json:"university_passing_year"`
	UniversityPassingGPA       *float64 `json:"university_passing_gpa"`
}

// GetUserByID resolves an authenticated principal to its user.
func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(userID uint, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	var details []apperr.FieldError
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if !validation.ValidateName(name) {
			details = append(details, apperr.FieldError{Field: "name", Message: "Name must be between 2 and 100 characters"})
		}
		user.Name = name
	}
	if input.Bio != nil {
		bio := validation.SanitizeText(*input.Bio)
		if !validation.WithinLength(bio, validation.BioMaxLength) {
			details = append(details, apperr.FieldError{Field: "bio", Message: "Bio must not exceed 1000 characters"})
		}
		user.Bio = bio
	}
	for _, pct := range []*float64{input.SecondarySchoolPercentage, input.HigherSecondaryPercentage} {
		if pct != nil && (*pct < 0 || *pct > 100) {
			details = append(details, apperr.FieldError{Field: "percentage", Message: "Percentage must be between 0 and 100"})
			break
		}
	}
	if len(details) > 0 {
		return nil, apperr.Validation("Invalid profile", details...)
	}

	if input.SecondarySchool != nil {
		user.SecondarySchool = validation.TrimAndLimit(*input.SecondarySchool, 200)
	}
	if input.SecondarySchoolPassingYear != nil {
		user.SecondarySchoolPassingYear = input.SecondarySchoolPassingYear
	}
	if input.SecondarySchoolPercentage != nil {
		user.SecondarySchoolPercentage = input.SecondarySchoolPercentage
	}
	if input.HigherSecondarySchool != nil {
		user.HigherSecondarySchool = validation.TrimAndLimit(*input.HigherSecondarySchool, 200)
	}
	if input.HigherSecondaryPassingYear != nil {
		user.HigherSecondaryPassingYear = input.HigherSecondaryPassingYear
	}
	if input.HigherSecondaryPercentage != nil {
		user.HigherSecondaryPercentage = input.HigherSecondaryPercentage
	}
	if input.UniversityName != nil {
		user.UniversityName = validation.TrimAndLimit(*input.UniversityName, 200)
	}
	if input.UniversityPassingYear != nil {
		user.UniversityPassingYear = input.UniversityPassingYear
	}
	if input.UniversityPassingGPA != nil {
		user.UniversityPassingGPA = input.UniversityPassingGPA
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, apperr.Internal(err)
	}
	return user, nil
}
