package store

import (
	"testing"

	"github.com/tandemapp/tandem/internal/database"
)

func setupSurveyTestDB(t *testing.T) (*SurveyStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSurveyStore(db), NewUserStore(db)
}

func TestSurveyCreateAndGet(t *testing.T) {
	svs, us := setupSurveyTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice")

	sv, err := svs.Create(u.ID, "full_time", 2, "97201", "weekday mornings", "prefers outdoor time")
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}
	if sv.Children != 2 {
		t.Errorf("children = %d, want 2", sv.Children)
	}
	if sv.ZipCode != "97201" {
		t.Errorf("zip_code = %q, want %q", sv.ZipCode, "97201")
	}

	got, err := svs.GetByID(sv.ID)
	if err != nil {
		t.Fatalf("get survey: %v", err)
	}
	if got == nil || got.CareNeeds != "full_time" {
		t.Errorf("get survey = %+v, want care_needs full_time", got)
	}
}

func TestSurveyGetLatestByUser(t *testing.T) {
	svs, us := setupSurveyTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice")

	first, _ := svs.Create(u.ID, "part_time", 1, "97201", "", "")
	second, _ := svs.Create(u.ID, "full_time", 1, "97201", "", "")

	latest, err := svs.GetLatestByUser(u.ID)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected survey, got nil")
	}
	if latest.ID != second.ID {
		t.Errorf("latest id = %d, want %d (not %d)", latest.ID, second.ID, first.ID)
	}
}

func TestSurveyUpdate(t *testing.T) {
	svs, us := setupSurveyTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice")
	sv, _ := svs.Create(u.ID, "part_time", 1, "97201", "", "")

	updated, err := svs.Update(sv.ID, "full_time", 2, "97202", "afternoons", "new sibling")
	if err != nil {
		t.Fatalf("update survey: %v", err)
	}
	if updated.Children != 2 {
		t.Errorf("children = %d, want 2", updated.Children)
	}
	if updated.Availability != "afternoons" {
		t.Errorf("availability = %q, want %q", updated.Availability, "afternoons")
	}
}

func TestSurveyDelete(t *testing.T) {
	svs, us := setupSurveyTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice")
	sv, _ := svs.Create(u.ID, "part_time", 1, "97201", "", "")

	if err := svs.Delete(sv.ID); err != nil {
		t.Fatalf("delete survey: %v", err)
	}

	got, err := svs.GetByID(sv.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
