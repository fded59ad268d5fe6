package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tandemapp/tandem/internal/auth"
	"github.com/tandemapp/tandem/internal/model"
	"github.com/tandemapp/tandem/internal/realtime"
	"github.com/tandemapp/tandem/internal/schedule"
	"github.com/tandemapp/tandem/internal/store"
	"github.com/tandemapp/tandem/internal/week"
)

type ScheduleHandler struct {
	scheduleStore *store.ScheduleStore
	shareStore    *store.ShareStore
	userStore     *store.UserStore
	hub           *realtime.Hub
	notifier      ScheduleNotifier
	logger        *slog.Logger
}

// ScheduleNotifier pushes schedule-change notifications to share members.
type ScheduleNotifier interface {
	NotifyScheduleUpdated(shareID, authorID int64, authorName, weekDate string)
}

func NewScheduleHandler(ss *store.ScheduleStore, shs *store.ShareStore, us *store.UserStore, hub *realtime.Hub, notifier ScheduleNotifier, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleStore: ss,
		shareStore:    shs,
		userStore:     us,
		hub:           hub,
		notifier:      notifier,
		logger:        logger,
	}
}

type scheduleRequest struct {
	Title        string                   `json:"title"`
	Days         []string                 `json:"days"`
	StartTime    string                   `json:"start_time"`
	EndTime      string                   `json:"end_time"`
	Location     string                   `json:"location"`
	Notes        string                   `json:"notes"`
	DeletedDates []string                 `json:"deleted_dates"`
	EditedDates  []string                 `json:"edited_dates"`
	DayTimes     map[string]model.DayTime `json:"day_times"`
	WeekDate     string                   `json:"week_date"`
	NextWeek     bool                     `json:"next_week"`
}

// normalizeWeek returns the Monday anchor for the request. An explicit
// week_date must already be a valid date; otherwise the week is
// resolved from the current instant.
func normalizeWeek(req *scheduleRequest) (string, bool) {
	if req.WeekDate != "" {
		parsed, err := time.Parse(week.DateFormat, req.WeekDate)
		if err != nil {
			return "", false
		}
		return week.ResolveDate(parsed, false), true
	}
	return week.ResolveDate(time.Now(), req.NextWeek), true
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	weekDate, ok := normalizeWeek(&req)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid week_date"})
		return
	}

	sc, err := h.scheduleStore.Upsert(&model.Schedule{
		UserID:       userID,
		Title:        req.Title,
		Days:         req.Days,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Location:     req.Location,
		Notes:        req.Notes,
		DeletedDates: req.DeletedDates,
		EditedDates:  req.EditedDates,
		DayTimes:     req.DayTimes,
		WeekDate:     weekDate,
	})
	if err != nil {
		h.logger.Error("create schedule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create schedule"})
		return
	}

	h.announceChange(userID, sc)
	writeJSON(w, http.StatusCreated, sc)
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	schedules, err := h.scheduleStore.ListByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list schedules"})
		return
	}
	if schedules == nil {
		schedules = []model.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	sc, ok := h.ownedSchedule(w, r, userID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	existing, ok := h.ownedSchedule(w, r, userID)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.WeekDate == "" {
		req.WeekDate = existing.WeekDate
	}
	weekDate, ok := normalizeWeek(&req)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid week_date"})
		return
	}

	sc, err := h.scheduleStore.Upsert(&model.Schedule{
		UserID:       userID,
		Title:        req.Title,
		Days:         req.Days,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Location:     req.Location,
		Notes:        req.Notes,
		DeletedDates: req.DeletedDates,
		EditedDates:  req.EditedDates,
		DayTimes:     req.DayTimes,
		WeekDate:     weekDate,
	})
	if err != nil {
		h.logger.Error("update schedule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update schedule"})
		return
	}

	h.announceChange(userID, sc)
	writeJSON(w, http.StatusOK, sc)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	sc, ok := h.ownedSchedule(w, r, userID)
	if !ok {
		return
	}

	if err := h.scheduleStore.Delete(sc.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete schedule"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Current returns the schedule for the requested week, or the most
// recently updated schedule when no week is given.
func (h *ScheduleHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if weekDate := r.URL.Query().Get("week"); weekDate != "" {
		parsed, err := time.Parse(week.DateFormat, weekDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid week"})
			return
		}
		sc, err := h.scheduleStore.FindByUserAndWeek(userID, week.ResolveDate(parsed, false))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get schedule"})
			return
		}
		if sc == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no schedule for week"})
			return
		}
		writeJSON(w, http.StatusOK, sc)
		return
	}

	schedules, err := h.scheduleStore.ListByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list schedules"})
		return
	}
	latest := schedule.Latest(schedules)
	if latest == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no schedules"})
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

type resolveWeekRequest struct {
	Transcript string `json:"transcript"`
	Reference  string `json:"reference"`
}

type resolveWeekResponse struct {
	NextWeek bool   `json:"next_week"`
	WeekDate string `json:"week_date"`
}

// ResolveWeek maps a spoken transcript and a reference instant to the
// Monday anchor of the intended week.
func (h *ScheduleHandler) ResolveWeek(w http.ResponseWriter, r *http.Request) {
	var req resolveWeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	ref := time.Now()
	if req.Reference != "" {
		parsed, err := time.Parse(time.RFC3339, req.Reference)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reference, want RFC 3339"})
			return
		}
		ref = parsed
	}

	nextWeek := week.DetectNextWeek(req.Transcript, ref)
	writeJSON(w, http.StatusOK, resolveWeekResponse{
		NextWeek: nextWeek,
		WeekDate: week.ResolveDate(ref, nextWeek),
	})
}

// ownedSchedule loads the schedule from the id path parameter and
// verifies it belongs to the user, writing the error response itself.
func (h *ScheduleHandler) ownedSchedule(w http.ResponseWriter, r *http.Request, userID int64) (*model.Schedule, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	sc, err := h.scheduleStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get schedule"})
		return nil, false
	}
	if sc == nil || sc.UserID != userID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "schedule not found"})
		return nil, false
	}
	return sc, true
}

// announceChange fans a schedule_updated event out to every share the
// user belongs to, over both the websocket hub and web push.
func (h *ScheduleHandler) announceChange(userID int64, sc *model.Schedule) {
	shares, err := h.shareStore.ListForUser(userID)
	if err != nil {
		h.logger.Error("list shares for announce", "error", err)
		return
	}

	name := ""
	if user, err := h.userStore.GetByID(userID); err == nil && user != nil {
		name = user.Name
	}

	for _, share := range shares {
		h.hub.BroadcastToShare(share.PublicID, realtime.NewEvent(share.PublicID, "schedule", "updated", sc.ID, map[string]any{
			"user_id":   userID,
			"week_date": sc.WeekDate,
		}))
		if h.notifier != nil {
			h.notifier.NotifyScheduleUpdated(share.ID, userID, name, sc.WeekDate)
		}
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
