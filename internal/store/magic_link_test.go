package store

import (
	"testing"

	"github.com/tandemapp/tandem/internal/database"
)

func setupMagicLinkTestDB(t *testing.T) *MagicLinkStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewMagicLinkStore(db)
}

func TestMagicLinkCreate(t *testing.T) {
	mls := setupMagicLinkTestDB(t)

	ml, err := mls.Create("alice@example.com", "login", nil)
	if err != nil {
		t.Fatalf("create magic link: %v", err)
	}
	if len(ml.Token) != 6 {
		t.Errorf("token length = %d, want 6", len(ml.Token))
	}
	for _, c := range ml.Token {
		if c < '0' || c > '9' {
			t.Errorf("token %q contains non-digit %q", ml.Token, c)
		}
	}
	if ml.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", ml.Attempts)
	}
	if ml.UsedAt != nil {
		t.Error("new link should not be marked used")
	}
}

func TestMagicLinkCreateInvalidatesPrevious(t *testing.T) {
	mls := setupMagicLinkTestDB(t)

	first, err := mls.Create("alice@example.com", "login", nil)
	if err != nil {
		t.Fatalf("create first link: %v", err)
	}
	second, err := mls.Create("alice@example.com", "login", nil)
	if err != nil {
		t.Fatalf("create second link: %v", err)
	}

	stale, err := mls.GetByEmailAndCode("alice@example.com", first.Token)
	if err != nil {
		t.Fatalf("get stale code: %v", err)
	}
	if stale != nil && stale.ID == first.ID {
		t.Error("first code should be invalidated by the second")
	}

	latest, err := mls.GetLatestByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Errorf("latest = %+v, want id %d", latest, second.ID)
	}
}

func TestMagicLinkGetByEmailAndCode(t *testing.T) {
	mls := setupMagicLinkTestDB(t)

	created, err := mls.Create("alice@example.com", "register", nil)
	if err != nil {
		t.Fatalf("create magic link: %v", err)
	}

	ml, err := mls.GetByEmailAndCode("alice@example.com", created.Token)
	if err != nil {
		t.Fatalf("get by email and code: %v", err)
	}
	if ml == nil {
		t.Fatal("expected link, got nil")
	}
	if ml.Purpose != "register" {
		t.Errorf("purpose = %q, want %q", ml.Purpose, "register")
	}

	wrong, err := mls.GetByEmailAndCode("alice@example.com", "000000")
	if err != nil {
		t.Fatalf("get with wrong code: %v", err)
	}
	if wrong != nil {
		t.Error("expected nil for wrong code")
	}
}

func TestMagicLinkMarkUsedSingleUse(t *testing.T) {
	mls := setupMagicLinkTestDB(t)

	created, _ := mls.Create("alice@example.com", "login", nil)

	if err := mls.MarkUsed(created.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	ml, err := mls.GetByEmailAndCode("alice@example.com", created.Token)
	if err != nil {
		t.Fatalf("get after use: %v", err)
	}
	if ml != nil {
		t.Error("used code should no longer resolve")
	}
}

func TestMagicLinkIncrementAttempts(t *testing.T) {
	mls := setupMagicLinkTestDB(t)

	created, _ := mls.Create("alice@example.com", "login", nil)

	for want := 1; want <= 3; want++ {
		got, err := mls.IncrementAttempts(created.ID)
		if err != nil {
			t.Fatalf("increment attempts: %v", err)
		}
		if got != want {
			t.Errorf("attempts = %d, want %d", got, want)
		}
	}
}
