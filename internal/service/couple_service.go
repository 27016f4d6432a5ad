package service

import (
	"errors"
	"fmt"

	"github.com/coupleup/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUserNotFound 在指定用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrCoupleNotFound 在用户的 Couple 记录缺失时返回（防御性，正常不会发生）
	ErrCoupleNotFound = errors.New("couple not found")
	// ErrInvitationNotFound 在邀请码无效时返回
	ErrInvitationNotFound = errors.New("invitation code not found")
	// ErrCoupleFull 在 Couple 已有两名成员时返回
	ErrCoupleFull = errors.New("couple is full")
)

// CoupleService 负责 Couple 聚合：创建、邀请码兑换、视图查询与级联删除。
type CoupleService struct {
	db *gorm.DB
}

// CoupleView 是 GET /couple 的响应数据
type CoupleView struct {
	Name           string
	Level          int
	Points         int
	InvitationCode string
	Members        []string
}

// NewCoupleService 构造 CoupleService
func NewCoupleService(gdb *gorm.DB) *CoupleService {
	return &CoupleService{db: gdb}
}

// Create 在事务 tx 内新建 Couple，邀请码随 NewCouple 生成。
func (s *CoupleService) Create(tx *gorm.DB, name string) (*db.Couple, error) {
	validated, err := ValidateName(name, "Couple name")
	if err != nil {
		return nil, err
	}

	couple := db.NewCouple(validated)
	if err := tx.Create(&couple).Error; err != nil {
		return nil, fmt.Errorf("create couple: %w", err)
	}
	return &couple, nil
}

// Join 在事务 tx 内按邀请码把新成员挂进已有 Couple。
// 行锁保证并发兑换同一邀请码时容量检查与插入原子：两个并发加入者不会同时通过人数检查。
func (s *CoupleService) Join(tx *gorm.DB, code string) (*db.Couple, error) {
	// sqlite 的整库写锁已保证事务串行；postgres 下显式加行锁
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var couple db.Couple
	err := query.
		Where("invitation_code = ?", code).
		First(&couple).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("find couple by invitation: %w", err)
	}

	var members int64
	if err := tx.Model(&db.User{}).Where("couple_id = ?", couple.ID).Count(&members).Error; err != nil {
		return nil, fmt.Errorf("count couple members: %w", err)
	}
	if members >= db.MaxMembers {
		return nil, ErrCoupleFull
	}

	return &couple, nil
}

// View 解析调用者所属的 Couple 并返回概要。
func (s *CoupleService) View(userID uint) (*CoupleView, error) {
	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	var couple db.Couple
	if err := s.db.First(&couple, user.CoupleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCoupleNotFound
		}
		return nil, fmt.Errorf("find couple: %w", err)
	}

	var members []db.User
	if err := s.db.Where("couple_id = ?", couple.ID).Order("id").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list couple members: %w", err)
	}

	names := make([]string, 0, len(members))
	for _, member := range members {
		names = append(names, member.Name)
	}

	return &CoupleView{
		Name:           couple.Name,
		Level:          couple.Level,
		Points:         couple.Points,
		InvitationCode: couple.InvitationCode,
		Members:        names,
	}, nil
}

// CoupleIDOf 返回用户所属 Couple 的 ID。
func (s *CoupleService) CoupleIDOf(userID uint) (uint, error) {
	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("find user: %w", err)
	}
	return user.CoupleID, nil
}

// RemoveUser 删除用户。若这是 Couple 的最后一名成员，则在同一事务内
// 级联清理：该 Couple 名下的目录内容及其接受记录、三类接受账本、
// 故事进度，最后删除 Couple 本身。任何一步失败整体回滚，不留孤儿行。
func (s *CoupleService) RemoveUser(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		coupleID := user.CoupleID

		var remaining int64
		if err := tx.Model(&db.User{}).
			Where("couple_id = ? AND id <> ?", coupleID, user.ID).
			Count(&remaining).Error; err != nil {
			return fmt.Errorf("count remaining members: %w", err)
		}

		if err := tx.Unscoped().Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		if remaining > 0 {
			return nil
		}

		// 最后一名成员离开：先删内容的接受记录，再删内容，再删账本与进度，最后删 Couple
		if err := tx.Unscoped().
			Where("mission_id IN (?)", tx.Model(&db.Mission{}).Select("id").Where("created_by = ?", coupleID)).
			Delete(&db.CoupleMission{}).Error; err != nil {
			return fmt.Errorf("delete owned mission acceptances: %w", err)
		}
		if err := tx.Unscoped().Where("created_by = ?", coupleID).Delete(&db.Mission{}).Error; err != nil {
			return fmt.Errorf("delete owned missions: %w", err)
		}

		if err := tx.Unscoped().
			Where("challenge_id IN (?)", tx.Model(&db.Challenge{}).Select("id").Where("created_by = ?", coupleID)).
			Delete(&db.CoupleChallenge{}).Error; err != nil {
			return fmt.Errorf("delete owned challenge acceptances: %w", err)
		}
		if err := tx.Unscoped().Where("created_by = ?", coupleID).Delete(&db.Challenge{}).Error; err != nil {
			return fmt.Errorf("delete owned challenges: %w", err)
		}

		if err := tx.Unscoped().
			Where("scenario_id IN (?)", tx.Model(&db.Scenario{}).Select("id").Where("created_by = ?", coupleID)).
			Delete(&db.CoupleScenario{}).Error; err != nil {
			return fmt.Errorf("delete owned scenario acceptances: %w", err)
		}
		if err := tx.Unscoped().Where("created_by = ?", coupleID).Delete(&db.Scenario{}).Error; err != nil {
			return fmt.Errorf("delete owned scenarios: %w", err)
		}

		for _, model := range []interface{}{&db.CoupleMission{}, &db.CoupleChallenge{}, &db.CoupleScenario{}, &db.StoryProgress{}} {
			if err := tx.Unscoped().Where("couple_id = ?", coupleID).Delete(model).Error; err != nil {
				return fmt.Errorf("delete couple rows: %w", err)
			}
		}

		if err := tx.Unscoped().Delete(&db.Couple{}, coupleID).Error; err != nil {
			return fmt.Errorf("delete couple: %w", err)
		}

		return nil
	})
}
