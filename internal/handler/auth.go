package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tandemapp/tandem/internal/auth"
	"github.com/tandemapp/tandem/internal/email"
	"github.com/tandemapp/tandem/internal/model"
	"github.com/tandemapp/tandem/internal/store"
)

const (
	sessionCookieName = "tandem_session"
	maxCodeAttempts   = 5
	sessionCookieAge  = 30 * 24 * 60 * 60
)

type AuthHandler struct {
	userStore      *store.UserStore
	sessionStore   *store.SessionStore
	magicLinkStore *store.MagicLinkStore
	emailClient    *email.Client
	logger         *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, mls *store.MagicLinkStore, ec *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:      us,
		sessionStore:   ss,
		magicLinkStore: mls,
		emailClient:    ec,
		logger:         logger,
	}
}

type authRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login emails a sign-in code. The response is the same whether or not
// the account exists, to prevent user enumeration.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	defer writeJSON(w, http.StatusAccepted, map[string]string{"status": "check your email"})

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		return
	}
	if user == nil {
		return // account doesn't exist, same response either way
	}

	ml, err := h.magicLinkStore.Create(req.Email, "login", nil)
	if err != nil {
		h.logger.Error("create auth code", "error", err)
		return
	}

	if err := h.emailClient.SendAuthCode(req.Email, ml.Token, "login"); err != nil {
		h.logger.Error("send auth code", "error", err)
	}
}

// Register creates an account and emails a sign-in code.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if existing != nil {
		// Same response as success, to prevent enumeration
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "check your email"})
		return
	}

	if _, err := h.userStore.Create(req.Email, req.Name); err != nil {
		h.logger.Error("create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	ml, err := h.magicLinkStore.Create(req.Email, "register", nil)
	if err != nil {
		h.logger.Error("create auth code", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if err := h.emailClient.SendAuthCode(req.Email, ml.Token, "register"); err != nil {
		h.logger.Error("send auth code", "error", err)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "check your email"})
}

// validateCode checks the code for the given email, handling attempts
// and expiry. Returns the magic link on success, or an error message
// string on failure.
func (h *AuthHandler) validateCode(emailAddr, code string) (*model.MagicLink, string) {
	if emailAddr == "" || code == "" {
		return nil, "email and code are required"
	}

	latest, err := h.magicLinkStore.GetLatestByEmail(emailAddr)
	if err != nil {
		h.logger.Error("validate code lookup", "error", err)
		return nil, "internal error"
	}
	if latest == nil {
		return nil, "code has expired or already been used, request a new one"
	}

	if latest.Attempts >= maxCodeAttempts {
		h.magicLinkStore.MarkUsed(latest.ID)
		return nil, "too many attempts, request a new code"
	}

	if latest.Token != code {
		newAttempts, err := h.magicLinkStore.IncrementAttempts(latest.ID)
		if err != nil {
			h.logger.Error("increment attempts", "error", err)
		}
		if newAttempts >= maxCodeAttempts {
			h.magicLinkStore.MarkUsed(latest.ID)
			return nil, "too many attempts, request a new code"
		}
		return nil, "incorrect code"
	}

	if err := h.magicLinkStore.MarkUsed(latest.ID); err != nil {
		h.logger.Error("mark code used", "error", err)
		return nil, "internal error"
	}

	return latest, ""
}

// Verify exchanges a valid email+code pair for a session cookie.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	emailAddr := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	code := strings.TrimSpace(r.URL.Query().Get("code"))

	ml, errMsg := h.validateCode(emailAddr, code)
	if errMsg != "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": errMsg})
		return
	}

	user, err := h.userStore.GetByEmail(ml.Email)
	if err != nil || user == nil {
		h.logger.Error("verify user lookup", "error", err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "account not found"})
		return
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   sessionCookieAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	writeJSON(w, http.StatusOK, user)
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if ok && ac.SessionToken != "" {
		if err := h.sessionStore.Delete(ac.SessionToken); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}
