package db

import (
	"time"

	"gorm.io/gorm"
)

// StoryProgress 记录某个 Couple 在故事某一页的完成情况。
// (couple_id, page_number) 唯一索引：同一页重复提交走更新而不是插入。
type StoryProgress struct {
	gorm.Model
	CoupleID    uint      `gorm:"index;uniqueIndex:idx_story_progress_couple_page;not null"`
	PageNumber  int       `gorm:"uniqueIndex:idx_story_progress_couple_page;not null"`
	CompletedAt time.Time `gorm:"not null"`
	FunLevel    int
	Comments    string `gorm:"size:300"`
}
