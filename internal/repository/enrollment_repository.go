package repository

import (
	"github.com/lib/pq"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) Create(enrollment *models.UserCourse) error {
	return r.db.Create(enrollment).Error
}

func (r *EnrollmentRepository) Delete(userID, courseID uint) (int64, error) {
	res := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&models.UserCourse{})
	return res.RowsAffected, res.Error
}

func (r *EnrollmentRepository) Exists(userID, courseID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserCourse{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *EnrollmentRepository) CountByCourse(courseID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserCourse{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) CourseIDsForUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.UserCourse{}).
		Where("user_id = ?", userID).
		Order("course_id").
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *EnrollmentRepository) ListCoursesForUser(userID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.Joins("JOIN user_courses ON user_courses.course_id = courses.id").
		Where("user_courses.user_id = ?", userID).
		Order("courses.course_code").
		Find(&courses).Error
	return courses, err
}

// ListOtherEnrollments returns enrollments of users other than userID in any of courseIDs.
func (r *EnrollmentRepository) ListOtherEnrollments(userID uint, courseIDs []uint) ([]models.UserCourse, error) {
	var rows []models.UserCourse
	if len(courseIDs) == 0 {
		return rows, nil
	}
	err := r.db.Where("course_id = ANY(?) AND user_id <> ?", pq.Array(toInt64s(courseIDs)), userID).
		Order("user_id, course_id").
		Find(&rows).Error
	return rows, err
}
