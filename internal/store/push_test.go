package store

import (
	"testing"

	"github.com/tandemapp/tandem/internal/database"
)

func setupPushTestDB(t *testing.T) (*PushStore, *UserStore, *ShareStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db), NewUserStore(db), NewShareStore(db)
}

func TestPushSubscribe(t *testing.T) {
	ps, us, _ := setupPushTestDB(t)

	u, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sub, err := ps.Subscribe(u.ID, "https://push.example.com/ep1", "p256dh-key", "auth-key")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.UserID != u.ID {
		t.Errorf("user_id = %d, want %d", sub.UserID, u.ID)
	}
	if sub.Endpoint != "https://push.example.com/ep1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
}

func TestPushResubscribeRefreshesKeys(t *testing.T) {
	ps, us, _ := setupPushTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice")

	first, err := ps.Subscribe(u.ID, "https://push.example.com/ep1", "old-p256dh", "old-auth")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	second, err := ps.Subscribe(u.ID, "https://push.example.com/ep1", "new-p256dh", "new-auth")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("resubscribe created a new row: id %d, want %d", second.ID, first.ID)
	}
	if second.P256dhKey != "new-p256dh" {
		t.Errorf("p256dh = %q, want refreshed key", second.P256dhKey)
	}

	subs, err := ps.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(subs))
	}
}

func TestPushListForShareExcludesAuthor(t *testing.T) {
	ps, us, ss := setupPushTestDB(t)

	alice, _ := us.Create("alice@example.com", "Alice")
	bob, _ := us.Create("bob@example.com", "Bob")
	carol, _ := us.Create("carol@example.com", "Carol")

	sh, err := ss.Create("Weekday crew", "code1234")
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	for _, u := range []int64{alice.ID, bob.ID} {
		if _, err := ss.AddMember(sh.ID, u, "member"); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	ps.Subscribe(alice.ID, "https://push.example.com/alice", "k", "a")
	ps.Subscribe(bob.ID, "https://push.example.com/bob", "k", "a")
	ps.Subscribe(carol.ID, "https://push.example.com/carol", "k", "a")

	subs, err := ps.ListForShare(sh.ID, alice.ID)
	if err != nil {
		t.Fatalf("list for share: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1", len(subs))
	}
	if subs[0].UserID != bob.ID {
		t.Errorf("user_id = %d, want %d", subs[0].UserID, bob.ID)
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	ps, us, _ := setupPushTestDB(t)

	u, _ := us.Create("alice@example.com", "Alice")
	ps.Subscribe(u.ID, "https://push.example.com/ep1", "k", "a")
	ps.Subscribe(u.ID, "https://push.example.com/ep2", "k", "a")

	if err := ps.DeleteByEndpoint("https://push.example.com/ep1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	subs, err := ps.ListByUser(u.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1", len(subs))
	}
	if subs[0].Endpoint != "https://push.example.com/ep2" {
		t.Errorf("endpoint = %q, want ep2 to survive", subs[0].Endpoint)
	}
}
