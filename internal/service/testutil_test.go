package service

import (
	"testing"

	"github.com/coupleup/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cleanup := func() {
		// 逐表清空，避免共享内存库把状态带进下一个测试
		for _, model := range []interface{}{
			&db.CoupleMission{}, &db.CoupleChallenge{}, &db.CoupleScenario{},
			&db.StoryProgress{}, &db.Mission{}, &db.Challenge{}, &db.Scenario{},
			&db.User{}, &db.Couple{},
		} {
			gdb.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model)
		}
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return gdb, cleanup
}

func createTestCouple(t *testing.T, gdb *gorm.DB, name string) *db.Couple {
	t.Helper()
	couple := db.NewCouple(name)
	if err := gdb.Create(&couple).Error; err != nil {
		t.Fatalf("failed to create couple: %v", err)
	}
	return &couple
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func createTestUser(t *testing.T, gdb *gorm.DB, username, name string, coupleID uint) *db.User {
	t.Helper()
	user := db.User{Username: username, Name: name, CoupleID: coupleID}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}
