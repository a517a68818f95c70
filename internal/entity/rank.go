package entity

// Rank is seeded reference data. Thresholds must cover 0 upward with
// ascending min_xp; the highest rank has no upper bound.
type Rank struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	RankOrder int    `gorm:"uniqueIndex;not null" json:"rank_order"`
	MinXP     int    `gorm:"not null" json:"min_xp"`
}
