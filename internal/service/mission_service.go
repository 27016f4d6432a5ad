package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/coupleup/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrItemNotFound 在目录条目不存在或对调用方不可见时返回
	ErrItemNotFound = errors.New("item not found")
	// ErrNotOwner 在尝试删除非本 Couple 创建的条目时返回（预置条目永不可删）
	ErrNotOwner = errors.New("item not owned by couple")
	// ErrQuotaExceeded 在 Couple 自建条目达到上限后继续创建时返回
	ErrQuotaExceeded = errors.New("creation quota exceeded")
	// ErrAcceptanceNotFound 在取消一个不存在的接受记录时返回
	ErrAcceptanceNotFound = errors.New("acceptance not found")
)

// MaxOwnedItems 是每个 Couple 每类目录内容的自建上限。
const MaxOwnedItems = 5

// MissionService 负责任务目录与其接受账本。
// 可见性规则：预置任务全员可见，自建任务只对创建它的 Couple 可见。
type MissionService struct {
	db *gorm.DB
}

// MissionItem 是列表响应里的一条任务，带 accepted 标记
type MissionItem struct {
	ID           uint   `json:"id"`
	Content      string `json:"content"`
	Category     string `json:"category"`
	IsPrecreated bool   `json:"is_precreated"`
	CreatedBy    *uint  `json:"created_by"`
	Accepted     bool   `json:"accepted"`
}

// NewMissionService 构造 MissionService
func NewMissionService(gdb *gorm.DB) *MissionService {
	return &MissionService{db: gdb}
}

// List 返回预置任务与本 Couple 自建任务的并集，并标注是否已接受。
func (s *MissionService) List(coupleID uint) ([]MissionItem, error) {
	var missions []db.Mission
	if err := s.db.
		Where("is_precreated = ? OR created_by = ?", true, coupleID).
		Order("id").
		Find(&missions).Error; err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}

	var accepted []db.CoupleMission
	if err := s.db.Where("couple_id = ?", coupleID).Find(&accepted).Error; err != nil {
		return nil, fmt.Errorf("list accepted missions: %w", err)
	}

	acceptedIDs := make(map[uint]struct{}, len(accepted))
	for _, entry := range accepted {
		acceptedIDs[entry.MissionID] = struct{}{}
	}

	items := make([]MissionItem, 0, len(missions))
	for _, mission := range missions {
		_, ok := acceptedIDs[mission.ID]
		items = append(items, MissionItem{
			ID:           mission.ID,
			Content:      mission.Content,
			Category:     mission.Category,
			IsPrecreated: mission.IsPrecreated,
			CreatedBy:    mission.CreatedBy,
			Accepted:     ok,
		})
	}
	return items, nil
}

// Create 为 Couple 新建任务，受 MaxOwnedItems 配额约束。
func (s *MissionService) Create(coupleID uint, content, category string) (*db.Mission, error) {
	validContent, err := ValidateText(content, "Mission content", 5, 300)
	if err != nil {
		return nil, err
	}
	validCategory, err := ValidateText(category, "Category", 1, 150)
	if err != nil {
		return nil, err
	}

	var mission db.Mission
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&db.Mission{}).Where("created_by = ?", coupleID).Count(&owned).Error; err != nil {
			return fmt.Errorf("count owned missions: %w", err)
		}
		if owned >= MaxOwnedItems {
			return ErrQuotaExceeded
		}

		owner := coupleID
		mission = db.Mission{
			Content:      validContent,
			Category:     validCategory,
			CreatedBy:    &owner,
			IsPrecreated: false,
		}
		if err := tx.Create(&mission).Error; err != nil {
			return fmt.Errorf("create mission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &mission, nil
}

// Delete 删除 Couple 自建的任务，并连带清掉它的接受记录。
func (s *MissionService) Delete(missionID, coupleID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var mission db.Mission
		if err := tx.First(&mission, missionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("find mission: %w", err)
		}

		if mission.CreatedBy == nil || *mission.CreatedBy != coupleID {
			return ErrNotOwner
		}

		if err := tx.Unscoped().Where("mission_id = ?", mission.ID).Delete(&db.CoupleMission{}).Error; err != nil {
			return fmt.Errorf("delete mission acceptances: %w", err)
		}
		if err := tx.Unscoped().Delete(&mission).Error; err != nil {
			return fmt.Errorf("delete mission: %w", err)
		}
		return nil
	})
}

// Accept 记录 Couple 接受某任务。重复接受依赖唯一索引上的 DO NOTHING，幂等。
func (s *MissionService) Accept(coupleID, missionID uint) error {
	var mission db.Mission
	if err := s.db.
		Where("id = ? AND (is_precreated = ? OR created_by = ?)", missionID, true, coupleID).
		First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("find mission: %w", err)
	}

	entry := db.CoupleMission{CoupleID: coupleID, MissionID: missionID, AcceptedAt: time.Now()}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "couple_id"}, {Name: "mission_id"}},
		DoNothing: true,
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("accept mission: %w", err)
	}
	return nil
}

// Unaccept 取消接受记录。
func (s *MissionService) Unaccept(coupleID, missionID uint) error {
	result := s.db.Unscoped().
		Where("couple_id = ? AND mission_id = ?", coupleID, missionID).
		Delete(&db.CoupleMission{})
	if result.Error != nil {
		return fmt.Errorf("unaccept mission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAcceptanceNotFound
	}
	return nil
}
