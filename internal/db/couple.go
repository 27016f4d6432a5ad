package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Couple 是聚合根：两名用户共享的一切（目录内容、接受记录、故事进度、积分）都挂在它名下。
// InvitationCode 在创建时生成，唯一，第二位成员凭它加入；容量上限 2 由业务层在行锁下保证。
type Couple struct {
	gorm.Model
	Name             string `gorm:"size:30;not null"`
	InvitationCode   string `gorm:"size:36;uniqueIndex;not null"`
	Level            int    `gorm:"not null;default:1"`
	Points           int    `gorm:"not null;default:0"`
	StoryStartedAt   *time.Time
	StoryCurrentPage int `gorm:"not null;default:0"`
	Users            []User
}

// NewCouple 构造一个带新邀请码的 Couple。
func NewCouple(name string) Couple {
	return Couple{
		Name:           name,
		InvitationCode: uuid.NewString(),
		Level:          1,
	}
}

// MaxMembers 是每个 Couple 的成员上限。
const MaxMembers = 2
