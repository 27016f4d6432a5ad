package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coupleup/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidRoles 在角色列表为空或超出上限时返回
var ErrInvalidRoles = errors.New("roles must contain between 1 and 6 entries")

// maxScenarioRoles 限制一个场景里的角色数量。
const maxScenarioRoles = 6

// ScenarioService 负责场景目录与其接受账本。
// 可见性与 Mission/Challenge 一致：预置全员可见，自建只对所属 Couple 可见。
type ScenarioService struct {
	db *gorm.DB
}

// ScenarioItem 是列表响应里的一条场景
type ScenarioItem struct {
	ID           uint     `json:"id"`
	Setting      string   `json:"setting"`
	Roles        []string `json:"roles"`
	Prompt       string   `json:"prompt"`
	Time         string   `json:"time"`
	IsPrecreated bool     `json:"is_precreated"`
	CreatedBy    *uint    `json:"created_by"`
	Accepted     bool     `json:"accepted"`
}

// NewScenarioService 构造 ScenarioService
func NewScenarioService(gdb *gorm.DB) *ScenarioService {
	return &ScenarioService{db: gdb}
}

// List 返回预置场景与本 Couple 自建场景的并集，并标注是否已接受。
func (s *ScenarioService) List(coupleID uint) ([]ScenarioItem, error) {
	var scenarios []db.Scenario
	if err := s.db.
		Where("is_precreated = ? OR created_by = ?", true, coupleID).
		Order("id").
		Find(&scenarios).Error; err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}

	var accepted []db.CoupleScenario
	if err := s.db.Where("couple_id = ?", coupleID).Find(&accepted).Error; err != nil {
		return nil, fmt.Errorf("list accepted scenarios: %w", err)
	}

	acceptedIDs := make(map[uint]struct{}, len(accepted))
	for _, entry := range accepted {
		acceptedIDs[entry.ScenarioID] = struct{}{}
	}

	items := make([]ScenarioItem, 0, len(scenarios))
	for _, scenario := range scenarios {
		roles, err := decodeRoles(scenario.Roles)
		if err != nil {
			return nil, fmt.Errorf("decode roles for scenario %d: %w", scenario.ID, err)
		}
		_, ok := acceptedIDs[scenario.ID]
		items = append(items, ScenarioItem{
			ID:           scenario.ID,
			Setting:      scenario.Setting,
			Roles:        roles,
			Prompt:       scenario.Prompt,
			Time:         scenario.Time,
			IsPrecreated: scenario.IsPrecreated,
			CreatedBy:    scenario.CreatedBy,
			Accepted:     ok,
		})
	}
	return items, nil
}

// Create 为 Couple 新建场景，所有文本字段过文本守卫，受 MaxOwnedItems 配额约束。
func (s *ScenarioService) Create(coupleID uint, setting string, roles []string, prompt, timeHint string) (*db.Scenario, error) {
	validSetting, err := ValidateText(setting, "Setting", 1, 150)
	if err != nil {
		return nil, err
	}
	validPrompt, err := ValidateText(prompt, "Prompt", 5, 500)
	if err != nil {
		return nil, err
	}

	validTime := ""
	if timeHint != "" {
		validTime, err = ValidateText(timeHint, "Time", 1, 50)
		if err != nil {
			return nil, err
		}
	}

	if len(roles) == 0 || len(roles) > maxScenarioRoles {
		return nil, ErrInvalidRoles
	}
	validRoles := make([]string, 0, len(roles))
	for _, role := range roles {
		validRole, err := ValidateText(role, "Role", 1, 50)
		if err != nil {
			return nil, err
		}
		validRoles = append(validRoles, validRole)
	}

	encoded, err := json.Marshal(validRoles)
	if err != nil {
		return nil, fmt.Errorf("encode roles: %w", err)
	}

	var scenario db.Scenario
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&db.Scenario{}).Where("created_by = ?", coupleID).Count(&owned).Error; err != nil {
			return fmt.Errorf("count owned scenarios: %w", err)
		}
		if owned >= MaxOwnedItems {
			return ErrQuotaExceeded
		}

		owner := coupleID
		scenario = db.Scenario{
			Setting:      validSetting,
			Roles:        datatypes.JSON(encoded),
			Prompt:       validPrompt,
			Time:         validTime,
			CreatedBy:    &owner,
			IsPrecreated: false,
		}
		if err := tx.Create(&scenario).Error; err != nil {
			return fmt.Errorf("create scenario: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Delete 删除 Couple 自建的场景，并连带清掉它的接受记录。
func (s *ScenarioService) Delete(scenarioID, coupleID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var scenario db.Scenario
		if err := tx.First(&scenario, scenarioID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("find scenario: %w", err)
		}

		if scenario.CreatedBy == nil || *scenario.CreatedBy != coupleID {
			return ErrNotOwner
		}

		if err := tx.Unscoped().Where("scenario_id = ?", scenario.ID).Delete(&db.CoupleScenario{}).Error; err != nil {
			return fmt.Errorf("delete scenario acceptances: %w", err)
		}
		if err := tx.Unscoped().Delete(&scenario).Error; err != nil {
			return fmt.Errorf("delete scenario: %w", err)
		}
		return nil
	})
}

// Accept 记录 Couple 接受某场景，幂等。
func (s *ScenarioService) Accept(coupleID, scenarioID uint) error {
	var scenario db.Scenario
	if err := s.db.
		Where("id = ? AND (is_precreated = ? OR created_by = ?)", scenarioID, true, coupleID).
		First(&scenario).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("find scenario: %w", err)
	}

	entry := db.CoupleScenario{CoupleID: coupleID, ScenarioID: scenarioID, AcceptedAt: time.Now()}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "couple_id"}, {Name: "scenario_id"}},
		DoNothing: true,
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("accept scenario: %w", err)
	}
	return nil
}

// Unaccept 取消接受记录。
func (s *ScenarioService) Unaccept(coupleID, scenarioID uint) error {
	result := s.db.Unscoped().
		Where("couple_id = ? AND scenario_id = ?", coupleID, scenarioID).
		Delete(&db.CoupleScenario{})
	if result.Error != nil {
		return fmt.Errorf("unaccept scenario: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAcceptanceNotFound
	}
	return nil
}

func decodeRoles(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var roles []string
	if err := json.Unmarshal(raw, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}
