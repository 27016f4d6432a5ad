package service

import (
	"errors"
	"testing"

	"github.com/coupleup/internal/db"
)

func TestScenarioCreateAndList(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewScenarioService(gdb)
	couple := createTestCouple(t, gdb, "Improvisers")

	roles := []string{"The detective", "The suspect"}
	scenario, err := svc.Create(couple.ID, "A dimly lit interrogation room", roles, "One of you knows where the cake went.", "9:00 PM")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	items, err := svc.List(couple.ID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(items))
	}

	item := items[0]
	if item.ID != scenario.ID {
		t.Fatalf("unexpected scenario id %d", item.ID)
	}
	if len(item.Roles) != 2 || item.Roles[0] != "The detective" || item.Roles[1] != "The suspect" {
		t.Fatalf("roles did not survive the round trip: %v", item.Roles)
	}
	if item.Accepted {
		t.Fatal("fresh scenario should not be marked accepted")
	}
}

func TestScenarioRolesBounds(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewScenarioService(gdb)
	couple := createTestCouple(t, gdb, "Casting")

	if _, err := svc.Create(couple.ID, "An empty stage", nil, "Nobody shows up to the audition.", ""); !errors.Is(err, ErrInvalidRoles) {
		t.Fatalf("expected ErrInvalidRoles for empty roles, got %v", err)
	}

	tooMany := []string{"one", "two", "three", "four", "five", "six", "seven"}
	if _, err := svc.Create(couple.ID, "A crowded stage", tooMany, "Everyone shows up to the audition.", ""); !errors.Is(err, ErrInvalidRoles) {
		t.Fatalf("expected ErrInvalidRoles for too many roles, got %v", err)
	}

	// 角色文本同样过文本守卫
	if _, err := svc.Create(couple.ID, "A stage", []string{"<script>alert(1)</script>"}, "A perfectly normal prompt here.", ""); !IsValidationError(err) {
		t.Fatalf("expected ValidationError for unsafe role, got %v", err)
	}
}

func TestScenarioAcceptVisibility(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewScenarioService(gdb)
	mine := createTestCouple(t, gdb, "Mine")
	theirs := createTestCouple(t, gdb, "Theirs")

	scenario, err := svc.Create(theirs.ID, "Their private stage", []string{"Lead"}, "A scenario the other couple keeps to itself.", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 别人的自建场景既看不见也接受不了
	if err := svc.Accept(mine.ID, scenario.ID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	items, err := svc.List(mine.ID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("foreign scenario leaked into listing: %+v", items)
	}

	if err := svc.Accept(theirs.ID, scenario.ID); err != nil {
		t.Fatalf("owner accept failed: %v", err)
	}

	var rows int64
	gdb.Model(&db.CoupleScenario{}).Where("couple_id = ?", theirs.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected 1 acceptance row, got %d", rows)
	}
}

func TestScenarioDelete(t *testing.T) {
	gdb, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewScenarioService(gdb)
	couple := createTestCouple(t, gdb, "Cleaners")

	scenario, err := svc.Create(couple.ID, "A stage to strike", []string{"Stagehand"}, "Time to pack everything away again.", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := svc.Accept(couple.ID, scenario.ID); err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}

	if err := svc.Delete(scenario.ID, couple.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var rows int64
	gdb.Model(&db.CoupleScenario{}).Where("scenario_id = ?", scenario.ID).Count(&rows)
	if rows != 0 {
		t.Fatalf("expected acceptance rows to be removed, got %d", rows)
	}
	if err := svc.Delete(scenario.ID, couple.ID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound after delete, got %v", err)
	}
}
