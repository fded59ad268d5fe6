package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tandemapp/tandem/internal/backup"
	"github.com/tandemapp/tandem/internal/email"
	"github.com/tandemapp/tandem/internal/handler"
	"github.com/tandemapp/tandem/internal/identity"
	"github.com/tandemapp/tandem/internal/middleware"
	"github.com/tandemapp/tandem/internal/push"
	"github.com/tandemapp/tandem/internal/realtime"
	"github.com/tandemapp/tandem/internal/store"
)

// Config carries everything the server needs beyond the database.
type Config struct {
	BaseURL         string
	PostmarkToken   string
	FromEmail       string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	Backup          backup.Config
}

type Server struct {
	db            *sql.DB
	hub           *realtime.Hub
	authH         *handler.AuthHandler
	scheduleH     *handler.ScheduleHandler
	shareH        *handler.ShareHandler
	messageH      *handler.MessageHandler
	surveyH       *handler.SurveyHandler
	pushH         *handler.PushHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	verifier      *identity.Verifier
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, logger.With("component", "realtime"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	magicLinkStore := store.NewMagicLinkStore(db)
	shareStore := store.NewShareStore(db)
	scheduleStore := store.NewScheduleStore(db)
	surveyStore := store.NewSurveyStore(db)
	messageStore := store.NewMessageStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	verifier := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	var scheduleNotifier handler.ScheduleNotifier
	var messageNotifier handler.MessageNotifier
	if pushSvc.Configured() {
		notifier := push.NewNotifier(pushSvc, pushStore, logger)
		scheduleNotifier = notifier
		messageNotifier = notifier
	}

	shareH := handler.NewShareHandler(shareStore, logger.With("component", "share"))

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, magicLinkStore, emailClient, logger.With("component", "auth")),
		scheduleH:     handler.NewScheduleHandler(scheduleStore, shareStore, userStore, hub, scheduleNotifier, logger.With("component", "schedule")),
		shareH:        shareH,
		messageH:      handler.NewMessageHandler(messageStore, shareH, userStore, hub, messageNotifier, logger.With("component", "message")),
		surveyH:       handler.NewSurveyHandler(surveyStore, logger.With("component", "survey")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		verifier:      verifier,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// MagicLinkStore returns the magic link store for cleanup tasks.
func (s *Server) MagicLinkStore() *store.MagicLinkStore {
	return store.NewMagicLinkStore(s.db)
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("GET /auth/verify", s.rateLimitedHandler(s.authH.Verify))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.verifier)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	// Schedule API routes
	mux.HandleFunc("POST /api/schedules", s.scheduleH.Create)
	mux.HandleFunc("GET /api/schedules", s.scheduleH.List)
	mux.HandleFunc("GET /api/schedules/current", s.scheduleH.Current)
	mux.HandleFunc("POST /api/schedules/resolve-week", s.scheduleH.ResolveWeek)
	mux.HandleFunc("GET /api/schedules/{id}", s.scheduleH.Get)
	mux.HandleFunc("PUT /api/schedules/{id}", s.scheduleH.Update)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.scheduleH.Delete)

	// Share API routes
	mux.HandleFunc("POST /api/shares", s.shareH.Create)
	mux.HandleFunc("GET /api/shares", s.shareH.List)
	mux.HandleFunc("POST /api/shares/{id}/join", s.shareH.Join)
	mux.HandleFunc("GET /api/shares/{id}/members", s.shareH.Members)
	mux.HandleFunc("POST /api/shares/{id}/messages", s.messageH.Create)
	mux.HandleFunc("GET /api/shares/{id}/messages", s.messageH.List)

	// Survey API routes
	mux.HandleFunc("POST /api/surveys", s.surveyH.Create)
	mux.HandleFunc("GET /api/surveys/mine", s.surveyH.Mine)
	mux.HandleFunc("PUT /api/surveys/{id}", s.surveyH.Update)

	// Push notification API routes
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)

	// Realtime
	mux.HandleFunc("GET /ws", realtime.HandleWebSocket(s.hub, s.logger.With("component", "ws_handler")))
}
