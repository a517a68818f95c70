package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"vigorfit.com/progressionengine/internal/entity"
)

type BadgeRepository interface {
	ListBadges(tx *gorm.DB) ([]entity.Badge, error)
	ListMemberBadges(tx *gorm.DB, memberID uuid.UUID) ([]entity.MemberBadge, error)
	// InsertMemberBadge returns false when the badge was already held:
	// the composite primary key absorbs concurrent double-grants.
	InsertMemberBadge(tx *gorm.DB, memberID, badgeID uuid.UUID, unlockedAt time.Time) (bool, error)
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *badgeRepository) ListBadges(tx *gorm.DB) ([]entity.Badge, error) {
	var badges []entity.Badge
	err := r.conn(tx).Order("created_at ASC").Find(&badges).Error
	return badges, err
}

func (r *badgeRepository) ListMemberBadges(tx *gorm.DB, memberID uuid.UUID) ([]entity.MemberBadge, error) {
	var rows []entity.MemberBadge
	err := r.conn(tx).Preload("Badge").
		Where("member_id = ?", memberID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *badgeRepository) InsertMemberBadge(tx *gorm.DB, memberID, badgeID uuid.UUID, unlockedAt time.Time) (bool, error) {
	res := r.conn(tx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entity.MemberBadge{
		MemberID:   memberID,
		BadgeID:    badgeID,
		UnlockedAt: unlockedAt,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
