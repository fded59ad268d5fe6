package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tandemapp/tandem/internal/auth"
	"github.com/tandemapp/tandem/internal/model"
	"github.com/tandemapp/tandem/internal/realtime"
	"github.com/tandemapp/tandem/internal/store"
)

const maxMessageLength = 2000

type MessageHandler struct {
	messageStore *store.MessageStore
	shareHandler *ShareHandler
	userStore    *store.UserStore
	hub          *realtime.Hub
	notifier     MessageNotifier
	logger       *slog.Logger
}

// MessageNotifier pushes new-message notifications to share members.
type MessageNotifier interface {
	NotifyMessage(shareID, authorID int64, authorName, body string)
}

func NewMessageHandler(ms *store.MessageStore, sh *ShareHandler, us *store.UserStore, hub *realtime.Hub, notifier MessageNotifier, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messageStore: ms,
		shareHandler: sh,
		userStore:    us,
		hub:          hub,
		notifier:     notifier,
		logger:       logger,
	}
}

type messageRequest struct {
	Body string `json:"body"`
}

// Create posts a message to the share and fans it out to the share's
// realtime room and push subscribers.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	share, ok := h.shareHandler.requireMembership(w, r, userID)
	if !ok {
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body is required"})
		return
	}
	if len(req.Body) > maxMessageLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message too long"})
		return
	}

	msg, err := h.messageStore.Create(share.ID, userID, req.Body)
	if err != nil {
		h.logger.Error("create message", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create message"})
		return
	}

	h.hub.BroadcastToShare(share.PublicID, realtime.NewEvent(share.PublicID, "message", "created", msg.ID, map[string]any{
		"user_id": userID,
		"body":    msg.Body,
	}))

	if h.notifier != nil {
		name := ""
		if user, err := h.userStore.GetByID(userID); err == nil && user != nil {
			name = user.Name
		}
		h.notifier.NotifyMessage(share.ID, userID, name, msg.Body)
	}

	writeJSON(w, http.StatusCreated, msg)
}

// List returns the share's messages, oldest first.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	share, ok := h.shareHandler.requireMembership(w, r, userID)
	if !ok {
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	messages, err := h.messageStore.ListByShare(share.ID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}
