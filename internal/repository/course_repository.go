package repository

import (
	"strings"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"gorm.io/gorm"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(course *models.Course) error {
	return r.db.Create(course).Error
}

func (r *CourseRepository) CreateBatch(courses []models.Course) error {
	return r.db.Create(&courses).Error
}

func (r *CourseRepository) FindByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindByIDs(ids []uint) ([]models.Course, error) {
	var courses []models.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.db.Where("id IN ?", ids).Order("course_code").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindByCode(code string) (*models.Course, error) {
	var course models.Course
	if err := r.db.Where("UPPER(course_code) = UPPER(?)", code).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) Update(course *models.Course) error {
	return r.db.Save(course).Error
}

// Delete fails with gorm.ErrForeignKeyViolated while enrollments or groups
// still reference the course.
func (r *CourseRepository) Delete(id uint) error {
	return r.db.Delete(&models.Course{}, id).Error
}

func (r *CourseRepository) CountGroups(courseID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Group{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

// List returns all courses, or those whose code or name contains search.
func (r *CourseRepository) List(search string) ([]models.Course, error) {
	var courses []models.Course
	q := r.db.Model(&models.Course{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(course_code) LIKE ? OR LOWER(course_name) LIKE ?)", like, like)
	}
	err := q.Order("course_code").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListByDepartment(department string) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.Where("LOWER(department) = LOWER(?)", department).Order("course_code").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Course{}).Count(&count).Error
	return count, err
}
