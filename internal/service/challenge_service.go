package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/coupleup/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeService 负责挑战目录与其接受账本，契约与 MissionService 一致。
type ChallengeService struct {
	db *gorm.DB
}

// ChallengeItem 是列表响应里的一条挑战
type ChallengeItem struct {
	ID           uint   `json:"id"`
	Content      string `json:"content"`
	Category     string `json:"category"`
	IsPrecreated bool   `json:"is_precreated"`
	CreatedBy    *uint  `json:"created_by"`
	Accepted     bool   `json:"accepted"`
}

// NewChallengeService 构造 ChallengeService
func NewChallengeService(gdb *gorm.DB) *ChallengeService {
	return &ChallengeService{db: gdb}
}

// List 返回预置挑战与本 Couple 自建挑战的并集，并标注是否已接受。
func (s *ChallengeService) List(coupleID uint) ([]ChallengeItem, error) {
	var challenges []db.Challenge
	if err := s.db.
		Where("is_precreated = ? OR created_by = ?", true, coupleID).
		Order("id").
		Find(&challenges).Error; err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}

	var accepted []db.CoupleChallenge
	if err := s.db.Where("couple_id = ?", coupleID).Find(&accepted).Error; err != nil {
		return nil, fmt.Errorf("list accepted challenges: %w", err)
	}

	acceptedIDs := make(map[uint]struct{}, len(accepted))
	for _, entry := range accepted {
		acceptedIDs[entry.ChallengeID] = struct{}{}
	}

	items := make([]ChallengeItem, 0, len(challenges))
	for _, challenge := range challenges {
		_, ok := acceptedIDs[challenge.ID]
		items = append(items, ChallengeItem{
			ID:           challenge.ID,
			Content:      challenge.Content,
			Category:     challenge.Category,
			IsPrecreated: challenge.IsPrecreated,
			CreatedBy:    challenge.CreatedBy,
			Accepted:     ok,
		})
	}
	return items, nil
}

// Create 为 Couple 新建挑战，受 MaxOwnedItems 配额约束。
func (s *ChallengeService) Create(coupleID uint, content, category string) (*db.Challenge, error) {
	validContent, err := ValidateText(content, "Challenge content", 5, 300)
	if err != nil {
		return nil, err
	}
	validCategory, err := ValidateText(category, "Category", 1, 150)
	if err != nil {
		return nil, err
	}

	var challenge db.Challenge
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&db.Challenge{}).Where("created_by = ?", coupleID).Count(&owned).Error; err != nil {
			return fmt.Errorf("count owned challenges: %w", err)
		}
		if owned >= MaxOwnedItems {
			return ErrQuotaExceeded
		}

		owner := coupleID
		challenge = db.Challenge{
			Content:      validContent,
			Category:     validCategory,
			CreatedBy:    &owner,
			IsPrecreated: false,
		}
		if err := tx.Create(&challenge).Error; err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// Delete 删除 Couple 自建的挑战，并连带清掉它的接受记录。
func (s *ChallengeService) Delete(challengeID, coupleID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var challenge db.Challenge
		if err := tx.First(&challenge, challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("find challenge: %w", err)
		}

		if challenge.CreatedBy == nil || *challenge.CreatedBy != coupleID {
			return ErrNotOwner
		}

		if err := tx.Unscoped().Where("challenge_id = ?", challenge.ID).Delete(&db.CoupleChallenge{}).Error; err != nil {
			return fmt.Errorf("delete challenge acceptances: %w", err)
		}
		if err := tx.Unscoped().Delete(&challenge).Error; err != nil {
			return fmt.Errorf("delete challenge: %w", err)
		}
		return nil
	})
}

// Accept 记录 Couple 接受某挑战，幂等。
func (s *ChallengeService) Accept(coupleID, challengeID uint) error {
	var challenge db.Challenge
	if err := s.db.
		Where("id = ? AND (is_precreated = ? OR created_by = ?)", challengeID, true, coupleID).
		First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("find challenge: %w", err)
	}

	entry := db.CoupleChallenge{CoupleID: coupleID, ChallengeID: challengeID, AcceptedAt: time.Now()}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "couple_id"}, {Name: "challenge_id"}},
		DoNothing: true,
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("accept challenge: %w", err)
	}
	return nil
}

// Unaccept 取消接受记录。
func (s *ChallengeService) Unaccept(coupleID, challengeID uint) error {
	result := s.db.Unscoped().
		Where("couple_id = ? AND challenge_id = ?", coupleID, challengeID).
		Delete(&db.CoupleChallenge{})
	if result.Error != nil {
		return fmt.Errorf("unaccept challenge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAcceptanceNotFound
	}
	return nil
}
