package service

import (
	"errors"
	"strings"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/repository"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseService owns the course catalog and user enrollments.
type CourseService struct {
	courseRepo     repository.CourseRepositoryInterface
	enrollmentRepo repository.EnrollmentRepositoryInterface
	userRepo       repository.UserRepositoryInterface
	log            *zap.Logger
}

func NewCourseService(
	courseRepo repository.CourseRepositoryInterface,
	enrollmentRepo repository.EnrollmentRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	log *zap.Logger,
) *CourseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CourseService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		log:            log,
	}
}

type CourseInput struct {
	CourseCode  string `json:"course_code"`
	CourseName  string `json:"course_name"`
	Description string `json:"description"`
	Credits     int    `json:"credits"`
	Department  string `json:"department"`
}

func (in *CourseInput) normalize() {
	in.CourseCode = validation.NormalizeCourseCode(in.CourseCode)
	in.CourseName = validation.SanitizeText(in.CourseName)
	in.Description = validation.SanitizeText(in.Description)
	in.Department = strings.TrimSpace(in.Department)
}

func (in *CourseInput) validate() error {
	var details []apperr.FieldError
	if in.CourseCode == "" {
		details = append(details, apperr.FieldError{Field: "course_code", Message: "Course code is required"})
	} else if !validation.WithinLength(in.CourseCode, validation.CourseCodeMaxLength) {
		details = append(details, apperr.FieldError{Field: "course_code", Message: "Course code must not exceed 20 characters"})
	}
	if in.CourseName == "" {
		details = append(details, apperr.FieldError{Field: "course_name", Message: "Course name is required"})
	} else if !validation.WithinLength(in.CourseName, validation.CourseNameMaxLength) {
		details = append(details, apperr.FieldError{Field: "course_name", Message: "Course name must not exceed 100 characters"})
	}
	if !validation.WithinLength(in.Description, validation.DescriptionMaxLength) {
		details = append(details, apperr.FieldError{Field: "description", Message: "Description must not exceed 500 characters"})
	}
	if in.Credits < 0 {
		details = append(details, apperr.FieldError{Field: "credits", Message: "Credits cannot be negative"})
	}
	if len(details) > 0 {
		return apperr.Validation("Invalid course", details...)
	}
	return nil
}

// DefaultCourses is the starter catalog installed into an empty database.
var DefaultCourses = []models.Course{
	{CourseCode: "CS 101", CourseName: "Introduction to Computer Science", Description: "Fundamental concepts of computer science and programming", Credits: 3, Department: "Computer Science"},
	{CourseCode: "MATH 201", CourseName: "Calculus I", Description: "Differential and integral calculus of one variable", Credits: 4, Department: "Mathematics"},
	{CourseCode: "PHYS 101", CourseName: "General Physics I", Description: "Mechanics, heat, and waves", Credits: 4, Department: "Physics"},
	{CourseCode: "CHEM 101", CourseName: "General Chemistry", Description: "Basic principles of chemistry", Credits: 3, Department: "Chemistry"},
	{CourseCode: "ENG 102", CourseName: "English Composition", Description: "College-level writing and composition", Credits: 3, Department: "English"},
	{CourseCode: "CS 201", CourseName: "Data Structures", Description: "Fundamental data structures and algorithms", Credits: 3, Department: "Computer Science"},
	{CourseCode: "MATH 202", CourseName: "Calculus II", Description: "Advanced integration techniques and series", Credits: 4, Department: "Mathematics"},
	{CourseCode: "PHYS 102", CourseName: "General Physics II", Description: "Electricity, magnetism, and optics", Credits: 4, Department: "Physics"},
}

// SeedDefaults installs DefaultCourses when the catalog is empty and reports how many were added.
func (s *CourseService) SeedDefaults() (int, error) {
	count, err := s.courseRepo.Count()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	courses := make([]models.Course, len(DefaultCourses))
	copy(courses, DefaultCourses)
	if err := s.courseRepo.CreateBatch(courses); err != nil {
		return 0, err
	}
	s.log.Info("seeded course catalog", zap.Int("courses", len(courses)))
	return len(courses), nil
}

func (s *CourseService) ListCourses(search string) ([]models.Course, error) {
	courses, err := s.courseRepo.List(search)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return courses, nil
}

func (s *CourseService) ListByDepartment(department string) ([]models.Course, error) {
	courses, err := s.courseRepo.ListByDepartment(strings.TrimSpace(department))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return courses, nil
}

func (s *CourseService) GetCourse(courseID uint) (*models.Course, error) {
	course, err := s.courseRepo.FindByID(courseID)
	if err != nil {
		return nil, notFoundOr(err, ErrCourseNotFound)
	}
	return course, nil
}

func (s *CourseService) CreateCourse(input CourseInput) (*models.Course, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := s.courseRepo.FindByCode(input.CourseCode); err == nil {
		return nil, ErrCourseCodeTaken
	} else if !isNotFound(err) {
		return nil, apperr.Internal(err)
	}

	course := &models.Course{
		CourseCode:  input.CourseCode,
		CourseName:  input.CourseName,
		Description: input.Description,
		Credits:     input.Credits,
		Department:  input.Department,
	}
	if err := s.courseRepo.Create(course); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCourseCodeTaken
		}
		return nil, apperr.Internal(err)
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(courseID uint, input CourseInput) (*models.Course, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}
	course, err := s.courseRepo.FindByID(courseID)
	if err != nil {
		return nil, notFoundOr(err, ErrCourseNotFound)
	}

	if !strings.EqualFold(course.CourseCode, input.CourseCode) {
		if other, err := s.courseRepo.FindByCode(input.CourseCode); err == nil && other.ID != course.ID {
			return nil, ErrCourseCodeTaken
		} else if err != nil && !isNotFound(err) {
			return nil, apperr.Internal(err)
		}
	}

	course.CourseCode = input.CourseCode
	course.CourseName = input.CourseName
	course.Description = input.Description
	course.Credits = input.Credits
	course.Department = input.Department
	if err := s.courseRepo.Update(course); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCourseCodeTaken
		}
		return nil, apperr.Internal(err)
	}
	return course, nil
}

// DeleteCourse refuses while any user is enrolled or any group belongs to the
// course. The counts give the precise error; the foreign keys catch rows
// inserted between the counts and the delete.
func (s *CourseService) DeleteCourse(courseID uint) error {
	if _, err := s.courseRepo.FindByID(courseID); err != nil {
		return notFoundOr(err, ErrCourseNotFound)
	}
	if err := s.ensureUnreferenced(courseID); err != nil {
		return err
	}
	if err := s.courseRepo.Delete(courseID); err != nil {
		if isForeignKeyViolation(err) {
			if refErr := s.ensureUnreferenced(courseID); refErr != nil {
				return refErr
			}
			return ErrHasEnrollments
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *CourseService) ensureUnreferenced(courseID uint) error {
	n, err := s.enrollmentRepo.CountByCourse(courseID)
	if err != nil {
		return apperr.Internal(err)
	}
	if n > 0 {
		return ErrHasEnrollments
	}
	groups, err := s.courseRepo.CountGroups(courseID)
	if err != nil {
		return apperr.Internal(err)
	}
	if groups > 0 {
		return ErrHasGroups
	}
	return nil
}

func (s *CourseService) Enroll(userID, courseID uint) (*models.UserCourse, error) {
	if err := s.ensureUserAndCourse(userID, courseID); err != nil {
		return nil, err
	}
	enrolled, err := s.enrollmentRepo.Exists(userID, courseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	enrollment := &models.UserCourse{UserID: userID, CourseID: courseID}
	if err := s.enrollmentRepo.Create(enrollment); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAlreadyEnrolled
		case isForeignKeyViolation(err):
			return nil, ErrCourseNotFound
		}
		return nil, apperr.Internal(err)
	}
	return enrollment, nil
}

func (s *CourseService) Unenroll(userID, courseID uint) error {
	if err := s.ensureUserAndCourse(userID, courseID); err != nil {
		return err
	}
	removed, err := s.enrollmentRepo.Delete(userID, courseID)
	if err != nil {
		return apperr.Internal(err)
	}
	if removed == 0 {
		return ErrNotEnrolled
	}
	return nil
}

func (s *CourseService) IsEnrolled(userID, courseID uint) (bool, error) {
	ok, err := s.enrollmentRepo.Exists(userID, courseID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ok, nil
}

func (s *CourseService) ListEnrolledCourses(userID uint) ([]models.Course, error) {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	courses, err := s.enrollmentRepo.ListCoursesForUser(userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return courses, nil
}

// ListPeers returns every other user sharing at least one course with userID,
// each with the shared courses.
func (s *CourseService) ListPeers(userID uint) ([]models.PeerResponse, error) {
	courseIDs, err := s.enrollmentRepo.CourseIDsForUser(userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	peers := []models.PeerResponse{}
	if len(courseIDs) == 0 {
		return peers, nil
	}

	rows, err := s.enrollmentRepo.ListOtherEnrollments(userID, courseIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return peers, nil
	}

	shared := make(map[uint][]uint)
	peerIDs := make([]uint, 0)
	for _, row := range rows {
		if _, seen := shared[row.UserID]; !seen {
			peerIDs = append(peerIDs, row.UserID)
		}
		shared[row.UserID] = append(shared[row.UserID], row.CourseID)
	}

	courses, err := s.courseRepo.FindByIDs(courseIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	courseByID := make(map[uint]models.Course, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}

	users, err := s.userRepo.FindByIDs(peerIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range users {
		common := make([]models.Course, 0, len(shared[users[i].ID]))
		for _, cid := range shared[users[i].ID] {
			if c, ok := courseByID[cid]; ok {
				common = append(common, c)
			}
		}
		peers = append(peers, models.PeerResponse{User: users[i].ToSummary(), CommonCourses: common})
	}
	return peers, nil
}

// ListPeersInCourse returns the other users enrolled in courseID.
func (s *CourseService) ListPeersInCourse(userID, courseID uint) ([]models.UserSummary, error) {
	if _, err := s.courseRepo.FindByID(courseID); err != nil {
		return nil, notFoundOr(err, ErrCourseNotFound)
	}
	rows, err := s.enrollmentRepo.ListOtherEnrollments(userID, []uint{courseID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToSummary())
	}
	return out, nil
}

func (s *CourseService) ensureUserAndCourse(userID, courseID uint) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	if _, err := s.courseRepo.FindByID(courseID); err != nil {
		return notFoundOr(err, ErrCourseNotFound)
	}
	return nil
}
