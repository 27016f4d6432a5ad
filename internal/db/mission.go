package db

import (
	"time"

	"gorm.io/gorm"
)

// Mission 是目录内容：预置任务对所有 Couple 可见，用户创建的只对其所属 Couple 可见。
// CreatedBy 为空即预置；否则指向拥有它的 Couple。
type Mission struct {
	gorm.Model
	Content      string `gorm:"size:500;not null"`
	Category     string `gorm:"size:150;not null;index"`
	CreatedBy    *uint  `gorm:"index:idx_mission_precreated_created_by;index"`
	IsPrecreated bool   `gorm:"index:idx_mission_precreated_created_by"`
}

// CoupleMission 记录某个 Couple 接受了某个任务。
// (couple_id, mission_id) 唯一索引保证重复接受幂等。
type CoupleMission struct {
	gorm.Model
	CoupleID   uint      `gorm:"index;uniqueIndex:idx_couple_mission_unique;not null"`
	MissionID  uint      `gorm:"index;uniqueIndex:idx_couple_mission_unique;not null"`
	AcceptedAt time.Time `gorm:"not null"`
}
