package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
)

type RankRepository interface {
	ListRanks(tx *gorm.DB) ([]entity.Rank, error)
	GetMemberRankID(tx *gorm.DB, memberID uuid.UUID) (*uint, error)
	SetMemberRank(tx *gorm.DB, memberID uuid.UUID, rankID uint, achievedAt time.Time) error
}

type rankRepository struct {
	db *gorm.DB
}

func NewRankRepository(db *gorm.DB) RankRepository {
	return &rankRepository{db: db}
}

func (r *rankRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *rankRepository) ListRanks(tx *gorm.DB) ([]entity.Rank, error) {
	var ranks []entity.Rank
	err := r.conn(tx).Order("rank_order ASC").Find(&ranks).Error
	return ranks, err
}

func (r *rankRepository) GetMemberRankID(tx *gorm.DB, memberID uuid.UUID) (*uint, error) {
	var mx entity.MemberXp
	err := r.conn(tx).Select("current_rank_id").Where("member_id = ?", memberID).First(&mx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return mx.CurrentRankID, nil
}

func (r *rankRepository) SetMemberRank(tx *gorm.DB, memberID uuid.UUID, rankID uint, achievedAt time.Time) error {
	return r.conn(tx).Model(&entity.MemberXp{}).
		Where("member_id = ?", memberID).
		Updates(map[string]interface{}{
			"current_rank_id":  rankID,
			"rank_achieved_at": achievedAt,
		}).Error
}
