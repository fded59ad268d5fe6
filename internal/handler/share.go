package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tandemapp/tandem/internal/auth"
	"github.com/tandemapp/tandem/internal/model"
	"github.com/tandemapp/tandem/internal/store"
)

type ShareHandler struct {
	shareStore *store.ShareStore
	logger     *slog.Logger
}

func NewShareHandler(ss *store.ShareStore, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{shareStore: ss, logger: logger}
}

type shareRequest struct {
	Name     string `json:"name"`
	JoinCode string `json:"join_code"`
}

// generateJoinCode returns an 8-character hex code.
func generateJoinCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create makes a new share with the caller as owner. The join code is
// returned once in the response; only its hash is stored.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	joinCode := strings.TrimSpace(req.JoinCode)
	if joinCode == "" {
		code, err := generateJoinCode()
		if err != nil {
			h.logger.Error("generate join code", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create share"})
			return
		}
		joinCode = code
	}

	share, err := h.shareStore.Create(req.Name, joinCode)
	if err != nil {
		h.logger.Error("create share", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create share"})
		return
	}

	if _, err := h.shareStore.AddMember(share.ID, userID, "owner"); err != nil {
		h.logger.Error("add owner", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create share"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"share":     share,
		"join_code": joinCode,
	})
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	shares, err := h.shareStore.ListForUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shares"})
		return
	}
	if shares == nil {
		shares = []model.Share{}
	}
	writeJSON(w, http.StatusOK, shares)
}

// Join adds the caller to the share after checking the join code.
func (h *ShareHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	share, ok := h.loadShare(w, r)
	if !ok {
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	valid, err := h.shareStore.VerifyJoinCode(share.ID, strings.TrimSpace(req.JoinCode))
	if err != nil {
		h.logger.Error("verify join code", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to join share"})
		return
	}
	if !valid {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid join code"})
		return
	}

	member, err := h.shareStore.AddMember(share.ID, userID, "member")
	if err != nil {
		h.logger.Error("add member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to join share"})
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// Members lists the share's members. Only members may look.
func (h *ShareHandler) Members(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	share, ok := h.requireMembership(w, r, userID)
	if !ok {
		return
	}

	members, err := h.shareStore.ListMembers(share.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}
	if members == nil {
		members = []model.ShareMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

// loadShare resolves the {id} path value, which may be either a
// numeric row id or a share's public id.
func (h *ShareHandler) loadShare(w http.ResponseWriter, r *http.Request) (*model.Share, bool) {
	idStr := r.PathValue("id")

	var share *model.Share
	var err error
	if isDigits(idStr) {
		id, _ := parseIDParam(r)
		share, err = h.shareStore.GetByID(id)
	} else {
		share, err = h.shareStore.GetByPublicID(idStr)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get share"})
		return nil, false
	}
	if share == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "share not found"})
		return nil, false
	}
	return share, true
}

func (h *ShareHandler) requireMembership(w http.ResponseWriter, r *http.Request, userID int64) (*model.Share, bool) {
	share, ok := h.loadShare(w, r)
	if !ok {
		return nil, false
	}

	member, err := h.shareStore.GetMember(share.ID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check membership"})
		return nil, false
	}
	if member == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this share"})
		return nil, false
	}
	return share, true
}
