package repository

import (
	"strings"

	"github.com/lib/pq"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"gorm.io/gorm"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// CreateWithAdmin inserts the group and its creator's ACTIVE admin membership together.
func (r *GroupRepository) CreateWithAdmin(group *models.Group, admin *models.GroupMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		admin.GroupID = group.ID
		return tx.Create(admin).Error
	})
}

func (r *GroupRepository) FindByID(id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) FindByIDs(ids []uint) ([]models.Group, error) {
	var groups []models.Group
	if len(ids) == 0 {
		return groups, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&groups).Error
	return groups, err
}

// Update persists the editable attributes only; current_members is owned by the membership methods.
func (r *GroupRepository) Update(group *models.Group) error {
	return r.db.Model(group).
		Select("name", "description", "privacy", "max_members").
		Updates(group).Error
}

func (r *GroupRepository) Search(query string, courseID *uint) ([]models.Group, error) {
	var groups []models.Group
	q := r.db.Model(&models.Group{})
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if courseID != nil {
		q = q.Where("course_id = ?", *courseID)
	}
	err := q.Order("created_at DESC").Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) ListByCourse(courseID uint) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Where("course_id = ?", courseID).Order("created_at DESC").Find(&groups).Error
	return groups, err
}

// ListOpenForUser returns non-full groups in courseIDs where userID holds no membership row.
func (r *GroupRepository) ListOpenForUser(courseIDs []uint, userID uint) ([]models.Group, error) {
	var groups []models.Group
	if len(courseIDs) == 0 {
		return groups, nil
	}
	err := r.db.Where("course_id = ANY(?)", pq.Array(toInt64s(courseIDs))).
		Where("current_members < max_members").
		Where("NOT EXISTS (SELECT 1 FROM group_members gm WHERE gm.group_id = study_groups.id AND gm.user_id = ?)", userID).
		Order("created_at DESC").
		Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) ListForMember(userID uint, status models.MemberStatus) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Joins("JOIN group_members ON group_members.group_id = study_groups.id").
		Where("group_members.user_id = ? AND group_members.status = ?", userID, status).
		Order("study_groups.created_at DESC").
		Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) FindMember(groupID, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	if err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GroupRepository) ListMembers(groupID uint, status models.MemberStatus) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.Where("group_id = ? AND status = ?", groupID, status).
		Order("joined_at, id").
		Find(&members).Error
	return members, err
}

func (r *GroupRepository) CountActiveAdmins(groupID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND role = ? AND status = ?", groupID, models.RoleAdmin, models.StatusActive).
		Count(&count).Error
	return count, err
}

func (r *GroupRepository) AddMember(member *models.GroupMember, delta int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return applyMemberDelta(tx, member.GroupID, delta)
	})
}

func (r *GroupRepository) UpdateMemberStatus(member *models.GroupMember, delta int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GroupMember{}).
			Where("id = ?", member.ID).
			Update("status", member.Status).Error; err != nil {
			return err
		}
		return applyMemberDelta(tx, member.GroupID, delta)
	})
}

func (r *GroupRepository) RemoveMember(member *models.GroupMember, delta int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.GroupMember{}, member.ID).Error; err != nil {
			return err
		}
		return applyMemberDelta(tx, member.GroupID, delta)
	})
}

// DeleteCascade removes the group's chat history, memberships and the group row.
func (r *GroupRepository) DeleteCascade(groupID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, groupID).Error
	})
}

// applyMemberDelta shifts current_members by delta, refusing to leave [0, max_members].
func applyMemberDelta(tx *gorm.DB, groupID uint, delta int) error {
	if delta == 0 {
		return nil
	}
	q := tx.Model(&models.Group{}).Where("id = ?", groupID)
	if delta > 0 {
		q = q.Where("current_members + ? <= max_members", delta)
	} else {
		q = q.Where("current_members + ? >= 0", delta)
	}
	res := q.UpdateColumn("current_members", gorm.Expr("current_members + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}
