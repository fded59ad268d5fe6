package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tandemapp/tandem/internal/auth"
	"github.com/tandemapp/tandem/internal/database"
	"github.com/tandemapp/tandem/internal/identity"
	"github.com/tandemapp/tandem/internal/store"
)

func setupAuthTest(t *testing.T) (*store.SessionStore, *store.UserStore, int64) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	user, err := users.Create("casey@example.com", "Casey")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	return store.NewSessionStore(db), users, user.ID
}

func okHandler(t *testing.T, wantUserID int64) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := auth.UserID(r.Context()); got != wantUserID {
			t.Errorf("user id in context = %d, want %d", got, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthSessionCookie(t *testing.T) {
	sessions, users, userID := setupAuthTest(t)

	sess, err := sessions.Create(userID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	handler := RequireAuth(sessions, users, nil)(okHandler(t, userID))

	req := httptest.NewRequest("GET", "/api/schedules", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuthMissingCredentials(t *testing.T) {
	sessions, users, _ := setupAuthTest(t)

	handler := RequireAuth(sessions, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/schedules", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestRequireAuthInvalidCookie(t *testing.T) {
	sessions, users, _ := setupAuthTest(t)

	handler := RequireAuth(sessions, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/schedules", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not-a-real-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthBearerToken(t *testing.T) {
	sessions, users, userID := setupAuthTest(t)

	verifier := identity.NewVerifier("test-secret", "tandem-idp", "tandem")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		Email: "casey@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tandem-idp",
			Audience:  jwt.ClaimStrings{"tandem"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	handler := RequireAuth(sessions, users, verifier)(okHandler(t, userID))

	req := httptest.NewRequest("GET", "/api/schedules", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuthBearerUnknownUser(t *testing.T) {
	sessions, users, _ := setupAuthTest(t)

	verifier := identity.NewVerifier("test-secret", "tandem-idp", "tandem")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		Email: "stranger@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tandem-idp",
			Audience:  jwt.ClaimStrings{"tandem"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	handler := RequireAuth(sessions, users, verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/schedules", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
