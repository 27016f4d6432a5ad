package db

import (
	"time"

	"gorm.io/gorm"
)

// Challenge 与 Mission 结构一致，仅作为独立目录维护。
type Challenge struct {
	gorm.Model
	Content      string `gorm:"size:500;not null"`
	Category     string `gorm:"size:150;not null;index"`
	CreatedBy    *uint  `gorm:"index:idx_challenge_precreated_created_by;index"`
	IsPrecreated bool   `gorm:"index:idx_challenge_precreated_created_by"`
}

// CoupleChallenge 记录某个 Couple 接受了某个挑战。
type CoupleChallenge struct {
	gorm.Model
	CoupleID    uint      `gorm:"index;uniqueIndex:idx_couple_challenge_unique;not null"`
	ChallengeID uint      `gorm:"index;uniqueIndex:idx_couple_challenge_unique;not null"`
	AcceptedAt  time.Time `gorm:"not null"`
}
