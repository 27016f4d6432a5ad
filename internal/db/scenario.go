package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scenario 是角色扮演类目录内容，字段与 Mission 不同：
// Setting 描述场景，Roles 是有序的角色名列表（JSON 列），Time 为自由格式时间串。
// 所有权与 Mission/Challenge 一致，按 Couple 归属。
type Scenario struct {
	gorm.Model
	Setting      string         `gorm:"size:150;not null"`
	Roles        datatypes.JSON `gorm:"not null"`
	Prompt       string         `gorm:"size:500;not null"`
	Time         string         `gorm:"size:50"`
	CreatedBy    *uint          `gorm:"index"`
	IsPrecreated bool           `gorm:"index"`
}

// CoupleScenario 记录某个 Couple 接受了某个场景。
type CoupleScenario struct {
	gorm.Model
	CoupleID   uint      `gorm:"index;uniqueIndex:idx_couple_scenario_unique;not null"`
	ScenarioID uint      `gorm:"index;uniqueIndex:idx_couple_scenario_unique;not null"`
	AcceptedAt time.Time `gorm:"not null"`
}
