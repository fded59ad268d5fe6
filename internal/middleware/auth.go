package middleware

import (
	"net/http"
	"strings"

	"github.com/tandemapp/tandem/internal/auth"
	"github.com/tandemapp/tandem/internal/identity"
	"github.com/tandemapp/tandem/internal/store"
)

const sessionCookieName = "tandem_session"

// RequireAuth validates the session cookie, or an identity-provider
// bearer token when a verifier is configured, and populates AuthContext.
func RequireAuth(sessionStore *store.SessionStore, userStore *store.UserStore, verifier *identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ac, ok := authenticate(r, sessionStore, userStore, verifier); ok {
				ctx := auth.WithAuth(r.Context(), ac)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
		})
	}
}

func authenticate(r *http.Request, sessionStore *store.SessionStore, userStore *store.UserStore, verifier *identity.Verifier) (auth.AuthContext, bool) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		sess, err := sessionStore.GetByToken(cookie.Value)
		if err == nil && sess != nil {
			return auth.AuthContext{UserID: sess.UserID, SessionToken: sess.Token}, true
		}
	}

	if verifier != nil && verifier.Configured() {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			claims, err := verifier.Verify(token)
			if err != nil {
				return auth.AuthContext{}, false
			}
			user, err := userStore.GetByEmail(claims.Email)
			if err != nil || user == nil {
				return auth.AuthContext{}, false
			}
			return auth.AuthContext{UserID: user.ID}, true
		}
	}

	return auth.AuthContext{}, false
}
