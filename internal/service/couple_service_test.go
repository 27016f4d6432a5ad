package service

import (
	"errors"
	"testing"

	"github.com/coupleup/internal/db"
)

func TestCoupleCreateIssuesInvitationCode(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewCoupleService(gdb)

	couple, err := svc.Create(gdb, "The Pioneers")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if couple.InvitationCode == "" {
		t.Fatal("expected invitation code to be generated")
	}
	if couple.Level != 1 {
		t.Fatalf("expected level 1, got %d", couple.Level)
	}
	if couple.Points != 0 {
		t.Fatalf("expected 0 points, got %d", couple.Points)
	}

	// 名称过文本守卫
	if _, err := svc.Create(gdb, ""); err == nil {
		t.Fatal("expected error for empty couple name")
	}
	if _, err := svc.Create(gdb, "<script>alert(1)</script>"); err == nil {
		t.Fatal("expected error for unsafe couple name")
	}
}

func TestCoupleJoinEnforcesCapacity(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewCoupleService(gdb)
	couple := createTestCouple(t, gdb, "Full House")
	createTestUser(t, gdb, "a@example.com", "Alice", couple.ID)

	joined, err := svc.Join(gdb, couple.InvitationCode)
	if err != nil {
		t.Fatalf("Join returned error with one member: %v", err)
	}
	if joined.ID != couple.ID {
		t.Fatalf("joined wrong couple: %d", joined.ID)
	}
	createTestUser(t, gdb, "b@example.com", "Bob", couple.ID)

	if _, err := svc.Join(gdb, couple.InvitationCode); !errors.Is(err, ErrCoupleFull) {
		t.Fatalf("expected ErrCoupleFull, got %v", err)
	}

	if _, err := svc.Join(gdb, "no-such-code-1234"); !errors.Is(err, ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestCoupleView(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewCoupleService(gdb)
	couple := createTestCouple(t, gdb, "Stargazers")
	user := createTestUser(t, gdb, "a@example.com", "Alice", couple.ID)
	createTestUser(t, gdb, "b@example.com", "Bob", couple.ID)

	view, err := svc.View(user.ID)
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}

	if view.Name != "Stargazers" {
		t.Fatalf("unexpected couple name: %s", view.Name)
	}
	if view.InvitationCode != couple.InvitationCode {
		t.Fatal("expected invitation code in view")
	}
	if len(view.Members) != 2 || view.Members[0] != "Alice" || view.Members[1] != "Bob" {
		t.Fatalf("unexpected members: %v", view.Members)
	}

	if _, err := svc.View(99999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRemoveUserKeepsCoupleWhilePartnerRemains(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewCoupleService(gdb)
	couple := createTestCouple(t, gdb, "Half Left")
	alice := createTestUser(t, gdb, "a@example.com", "Alice", couple.ID)
	createTestUser(t, gdb, "b@example.com", "Bob", couple.ID)

	if err := svc.RemoveUser(alice.ID); err != nil {
		t.Fatalf("RemoveUser returned error: %v", err)
	}

	var couples int64
	gdb.Model(&db.Couple{}).Where("id = ?", couple.ID).Count(&couples)
	if couples != 1 {
		t.Fatal("expected couple to survive while a member remains")
	}

	var users int64
	gdb.Model(&db.User{}).Where("couple_id = ?", couple.ID).Count(&users)
	if users != 1 {
		t.Fatalf("expected 1 remaining user, got %d", users)
	}
}

func TestRemoveLastUserCascades(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	couple := createTestCouple(t, gdb, "Leaving Soon")
	alice := createTestUser(t, gdb, "a@example.com", "Alice", couple.ID)

	// 另一对 Couple 的数据必须不受影响
	other := createTestCouple(t, gdb, "Bystanders")
	createTestUser(t, gdb, "c@example.com", "Cara", other.ID)

	missions := NewMissionService(gdb)
	challenges := NewChallengeService(gdb)
	scenarios := NewScenarioService(gdb)
	story := NewStoryService(gdb)

	mission, err := missions.Create(couple.ID, "Plan a picnic under the stars", "Romance")
	if err != nil {
		t.Fatalf("failed to create mission: %v", err)
	}
	if err := missions.Accept(couple.ID, mission.ID); err != nil {
		t.Fatalf("failed to accept mission: %v", err)
	}

	challenge, err := challenges.Create(couple.ID, "One week without complaining", "Habits")
	if err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}
	if err := challenges.Accept(couple.ID, challenge.ID); err != nil {
		t.Fatalf("failed to accept challenge: %v", err)
	}

	scenario, err := scenarios.Create(couple.ID, "A rooftop at midnight", []string{"The dreamer", "The skeptic"}, "One of you wants to move abroad tomorrow.", "10:00 PM")
	if err != nil {
		t.Fatalf("failed to create scenario: %v", err)
	}
	if err := scenarios.Accept(couple.ID, scenario.ID); err != nil {
		t.Fatalf("failed to accept scenario: %v", err)
	}

	if _, err := story.Start(couple.ID); err != nil {
		t.Fatalf("failed to start story: %v", err)
	}
	if _, err := story.RecordProgress(couple.ID, 0, intPtr(4), strPtr("lovely")); err != nil {
		t.Fatalf("failed to record progress: %v", err)
	}

	otherMission, err := missions.Create(other.ID, "Cook dinner blindfolded together", "Fun")
	if err != nil {
		t.Fatalf("failed to create other mission: %v", err)
	}

	if err := NewCoupleService(gdb).RemoveUser(alice.ID); err != nil {
		t.Fatalf("RemoveUser returned error: %v", err)
	}

	// 该 Couple 的一切都应消失
	checks := []struct {
		name  string
		model interface{}
		where string
	}{
		{"couple", &db.Couple{}, "id = ?"},
		{"users", &db.User{}, "couple_id = ?"},
		{"missions", &db.Mission{}, "created_by = ?"},
		{"mission acceptances", &db.CoupleMission{}, "couple_id = ?"},
		{"challenges", &db.Challenge{}, "created_by = ?"},
		{"challenge acceptances", &db.CoupleChallenge{}, "couple_id = ?"},
		{"scenarios", &db.Scenario{}, "created_by = ?"},
		{"scenario acceptances", &db.CoupleScenario{}, "couple_id = ?"},
		{"story progress", &db.StoryProgress{}, "couple_id = ?"},
	}
	for _, check := range checks {
		var count int64
		if err := gdb.Model(check.model).Where(check.where, couple.ID).Count(&count).Error; err != nil {
			t.Fatalf("failed to count %s: %v", check.name, err)
		}
		if count != 0 {
			t.Fatalf("expected no %s rows after cascade, got %d", check.name, count)
		}
	}

	// 旁观者不受波及
	var otherMissions int64
	gdb.Model(&db.Mission{}).Where("id = ?", otherMission.ID).Count(&otherMissions)
	if otherMissions != 1 {
		t.Fatal("expected other couple's mission to survive")
	}
}
