package push

import (
	"encoding/base64"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tandemapp/tandem/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	if pub == "" {
		t.Error("expected non-empty public key")
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

type fakeSender struct {
	sent   []Payload
	sentTo []string
	errFor map[string]error
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	if err, ok := f.errFor[sub.Endpoint]; ok {
		return err
	}
	f.sent = append(f.sent, payload)
	f.sentTo = append(f.sentTo, sub.Endpoint)
	return nil
}

type fakeSubs struct {
	subs    []model.PushSubscription
	deleted []string
}

func (f *fakeSubs) ListForShare(shareID, exclude int64) ([]model.PushSubscription, error) {
	var out []model.PushSubscription
	for _, s := range f.subs {
		if s.UserID != exclude {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeleteByEndpoint(endpoint string) error {
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func testNotifier(sender Sender, subs SubscriptionSource) *Notifier {
	return NewNotifier(sender, subs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifyMessageSkipsAuthor(t *testing.T) {
	sender := &fakeSender{}
	subs := &fakeSubs{subs: []model.PushSubscription{
		{UserID: 1, Endpoint: "https://push/alice"},
		{UserID: 2, Endpoint: "https://push/bob"},
	}}

	testNotifier(sender, subs).NotifyMessage(7, 1, "Alice", "pickup swap?")

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sender.sent))
	}
	if sender.sentTo[0] != "https://push/bob" {
		t.Errorf("sent to %q, want bob's endpoint", sender.sentTo[0])
	}
	if sender.sent[0].Title != "Alice sent a message" {
		t.Errorf("title = %q", sender.sent[0].Title)
	}
	if sender.sent[0].Body != "pickup swap?" {
		t.Errorf("body = %q", sender.sent[0].Body)
	}
}

func TestNotifyMessageTruncatesBody(t *testing.T) {
	sender := &fakeSender{}
	subs := &fakeSubs{subs: []model.PushSubscription{
		{UserID: 2, Endpoint: "https://push/bob"},
	}}

	long := make([]byte, 120)
	for i := range long {
		long[i] = 'x'
	}
	testNotifier(sender, subs).NotifyMessage(7, 1, "Alice", string(long))

	if got := len(sender.sent[0].Body); got != 80 {
		t.Errorf("body length = %d, want 80", got)
	}
}

func TestNotifyMessageTruncatesOnRuneBoundary(t *testing.T) {
	sender := &fakeSender{}
	subs := &fakeSubs{subs: []model.PushSubscription{
		{UserID: 2, Endpoint: "https://push/bob"},
	}}

	long := strings.Repeat("日", 100)
	testNotifier(sender, subs).NotifyMessage(7, 1, "Alice", long)

	body := sender.sent[0].Body
	if !utf8.ValidString(body) {
		t.Errorf("body is not valid UTF-8: %q", body)
	}
	if got := utf8.RuneCountInString(body); got != 80 {
		t.Errorf("rune count = %d, want 80", got)
	}
	if !strings.HasSuffix(body, "...") {
		t.Errorf("body = %q, want ellipsis suffix", body)
	}
}

func TestNotifyExpiredSubscriptionRemoved(t *testing.T) {
	sender := &fakeSender{errFor: map[string]error{
		"https://push/stale": ErrExpired,
	}}
	subs := &fakeSubs{subs: []model.PushSubscription{
		{UserID: 2, Endpoint: "https://push/stale"},
		{UserID: 3, Endpoint: "https://push/fresh"},
	}}

	testNotifier(sender, subs).NotifyScheduleUpdated(7, 1, "Alice", "2026-09-07")

	if len(subs.deleted) != 1 || subs.deleted[0] != "https://push/stale" {
		t.Errorf("deleted = %v, want the stale endpoint", subs.deleted)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d notifications, want 1", len(sender.sent))
	}
}
