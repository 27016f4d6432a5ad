package service

import (
	"encoding/json"
	"fmt"

	"github.com/coupleup/internal/db"
	"github.com/coupleup/internal/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MissionSeed 与 ChallengeSeed 是预置目录内容的静态条目。
type MissionSeed struct {
	Content  string
	Category string
}

// ChallengeSeed 同 MissionSeed。
type ChallengeSeed struct {
	Content  string
	Category string
}

// ScenarioSeed 是预置场景条目。
type ScenarioSeed struct {
	Setting string
	Roles   []string
	Prompt  string
	Time    string
}

// SeedCatalog 打包一次播种要写入的全部预置内容。
type SeedCatalog struct {
	Missions   []MissionSeed
	Challenges []ChallengeSeed
	Scenarios  []ScenarioSeed
}

// SeedService 在启动时幂等地补齐预置目录内容：
// 已存在的条目（按 content/prompt 匹配）跳过，只插入缺失的。
// Force 模式先清空全部预置行再重建，不触碰用户自建内容。
type SeedService struct {
	db *gorm.DB
}

// NewSeedService 构造 SeedService
func NewSeedService(gdb *gorm.DB) *SeedService {
	return &SeedService{db: gdb}
}

// Run 执行一轮播种。整个过程在一个事务里，失败全量回滚。
func (s *SeedService) Run(catalog SeedCatalog, force bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if force {
			for _, model := range []interface{}{&db.Mission{}, &db.Challenge{}, &db.Scenario{}} {
				if err := tx.Unscoped().Where("is_precreated = ?", true).Delete(model).Error; err != nil {
					return fmt.Errorf("delete precreated rows: %w", err)
				}
			}
		}

		if err := s.seedMissions(tx, catalog.Missions); err != nil {
			return err
		}
		if err := s.seedChallenges(tx, catalog.Challenges); err != nil {
			return err
		}
		return s.seedScenarios(tx, catalog.Scenarios)
	})
}

func (s *SeedService) seedMissions(tx *gorm.DB, seeds []MissionSeed) error {
	var existing []db.Mission
	if err := tx.Where("is_precreated = ?", true).Find(&existing).Error; err != nil {
		return fmt.Errorf("list precreated missions: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, mission := range existing {
		known[mission.Content] = struct{}{}
	}

	added := 0
	for _, seed := range seeds {
		if _, ok := known[seed.Content]; ok {
			continue
		}
		mission := db.Mission{Content: seed.Content, Category: seed.Category, IsPrecreated: true}
		if err := tx.Create(&mission).Error; err != nil {
			return fmt.Errorf("seed mission: %w", err)
		}
		added++
	}
	if added > 0 {
		logger.Info("seeded missions", "added", added)
	}
	return nil
}

func (s *SeedService) seedChallenges(tx *gorm.DB, seeds []ChallengeSeed) error {
	var existing []db.Challenge
	if err := tx.Where("is_precreated = ?", true).Find(&existing).Error; err != nil {
		return fmt.Errorf("list precreated challenges: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, challenge := range existing {
		known[challenge.Content] = struct{}{}
	}

	added := 0
	for _, seed := range seeds {
		if _, ok := known[seed.Content]; ok {
			continue
		}
		challenge := db.Challenge{Content: seed.Content, Category: seed.Category, IsPrecreated: true}
		if err := tx.Create(&challenge).Error; err != nil {
			return fmt.Errorf("seed challenge: %w", err)
		}
		added++
	}
	if added > 0 {
		logger.Info("seeded challenges", "added", added)
	}
	return nil
}

func (s *SeedService) seedScenarios(tx *gorm.DB, seeds []ScenarioSeed) error {
	var existing []db.Scenario
	if err := tx.Where("is_precreated = ?", true).Find(&existing).Error; err != nil {
		return fmt.Errorf("list precreated scenarios: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, scenario := range existing {
		known[scenario.Prompt] = struct{}{}
	}

	added := 0
	for _, seed := range seeds {
		if _, ok := known[seed.Prompt]; ok {
			continue
		}
		encoded, err := json.Marshal(seed.Roles)
		if err != nil {
			return fmt.Errorf("encode seed roles: %w", err)
		}
		scenario := db.Scenario{
			Setting:      seed.Setting,
			Roles:        datatypes.JSON(encoded),
			Prompt:       seed.Prompt,
			Time:         seed.Time,
			IsPrecreated: true,
		}
		if err := tx.Create(&scenario).Error; err != nil {
			return fmt.Errorf("seed scenario: %w", err)
		}
		added++
	}
	if added > 0 {
		logger.Info("seeded scenarios", "added", added)
	}
	return nil
}
