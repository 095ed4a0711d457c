package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cjnewshub/apiserver/config"
	"github.com/cjnewshub/apiserver/internal/db"
	"github.com/cjnewshub/apiserver/internal/handlers"
	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/moderation"
	"github.com/cjnewshub/apiserver/internal/mq"
	"github.com/cjnewshub/apiserver/internal/notify"
	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/internal/session"
	"github.com/cjnewshub/apiserver/internal/storage"
	"github.com/cjnewshub/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	log        logging.Logger
	janitor    *services.Janitor
	closers    []io.Closer
	runCtx     context.Context
	stop       context.CancelFunc
}

// Services are the application services the router serves.
type Services struct {
	Auth         *services.AuthService
	Users        *services.UserService
	Verification *services.VerificationService
	Articles     *services.ArticleService
	Ads          *services.AdvertisementService
	EPaper       *services.EPaperService
	Moderation   *services.ModerationService
	Clippings    *services.ClippingService
	Settings     *services.SettingsService

	Sessions handlers.SessionResolver

	// ExposeVerificationCodes echoes one-time codes in API responses.
	ExposeVerificationCodes bool
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logging.New(os.Stdout, cfg.LogLevel)

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	srv := &Server{db: dbConn, log: log}
	srv.runCtx, srv.stop = context.WithCancel(context.Background())
	fail := func(err error) (*Server, error) {
		_ = srv.Shutdown()
		return nil, err
	}

	sessionStore, err := openSessionStore(ctx, cfg.Redis, log)
	if err != nil {
		return fail(err)
	}
	if c, ok := sessionStore.(io.Closer); ok {
		srv.closers = append(srv.closers, c)
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fail(fmt.Errorf("open object storage: %w", err))
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return fail(fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err))
	}

	var notifier services.Notifier
	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		log.Warn(ctx, "message broker unavailable, verification messages will not be delivered", "error", err)
	} else {
		srv.closers = append(srv.closers, queue)
		notifier = notify.NewPublisher(queue, cfg.MQ.NotificationChannel)
	}

	policy := moderation.NewPolicy(cfg.Auth.ChiefUserID)
	sessions := session.NewManager(sessionStore, jwtSecret, cfg.Auth.TokenTTL)

	userRepo := store.NewUserRepository(dbConn)
	codeRepo := store.NewVerificationRepository(dbConn)
	settingsService := services.NewSettingsService(store.NewKVRepository(dbConn), log)

	svc := Services{
		Auth:  services.NewAuthService(userRepo, sessions, log),
		Users: services.NewUserService(userRepo, policy, log),
		Verification: services.NewVerificationService(userRepo, codeRepo, settingsService, notifier, services.VerificationConfig{
			ChiefID:   cfg.Auth.ChiefUserID,
			MasterKey: cfg.Auth.MasterRecoveryKey,
			TTL:       cfg.Auth.VerificationTTL,
		}, log),
		Articles: services.NewArticleService(store.NewArticleRepository(dbConn), policy, log),
		Ads:      services.NewAdvertisementService(store.NewAdvertisementRepository(dbConn), policy, log),
		EPaper:   services.NewEPaperService(store.NewEPaperRepository(dbConn), policy, log),
		Moderation: services.NewModerationService(
			store.NewArticleRepository(dbConn),
			store.NewAdvertisementRepository(dbConn),
			store.NewEPaperRepository(dbConn),
			policy,
			log,
		),
		Clippings: services.NewClippingService(
			store.NewClippingRepository(dbConn),
			storage.NewGateway(objects, services.ClippingObjectPrefix,
				storage.WithCacheControl(storage.ImmutableCacheControl)),
			log,
		),
		Settings:                settingsService,
		Sessions:                sessions,
		ExposeVerificationCodes: cfg.Auth.ExposeVerificationCodes,
	}
	srv.router = NewRouter(svc)
	srv.janitor = services.NewJanitor(codeRepo, 0, log)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

// openSessionStore uses Redis when an address is configured and an
// in-process store otherwise.
func openSessionStore(ctx context.Context, cfg config.RedisConfig, log logging.Logger) (session.Store, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		log.Warn(ctx, "REDIS_ADDR not set, sessions are kept in memory")
		return session.NewMemoryStore(), nil
	}
	rs := session.NewRedisStore(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = rs.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rs, nil
}

// NewRouter mounts every route group on a fresh chi router.
func NewRouter(svc Services) *chi.Mux {
	auth := handlers.NewAuthenticator(svc.Sessions, svc.Users)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)

	router.Group(func(r chi.Router) {
		r.Use(auth.Identify)

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, svc.Auth)
			r.Route("/recovery", func(r chi.Router) {
				handlers.RecoveryRouter(r, svc.Verification, svc.ExposeVerificationCodes)
			})
			r.Route("/profile", func(r chi.Router) {
				handlers.ProfileRouter(r, svc.Verification, svc.ExposeVerificationCodes)
			})
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Users)
		})
		r.Route("/articles", func(r chi.Router) {
			handlers.ArticleRouter(r, svc.Articles)
		})
		r.Route("/ads", func(r chi.Router) {
			handlers.AdvertisementRouter(r, svc.Ads)
		})
		r.Route("/epaper", func(r chi.Router) {
			handlers.EPaperRouter(r, svc.EPaper)
		})
		r.Route("/moderation", func(r chi.Router) {
			handlers.ModerationRouter(r, svc.Moderation)
		})
		r.Route("/clippings", func(r chi.Router) {
			handlers.ClippingRouter(r, svc.Clippings)
		})
		r.Route("/settings", func(r chi.Router) {
			handlers.SettingsRouter(r, svc.Settings)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the background janitor and the HTTP server.
func (s *Server) Start() error {
	go s.janitor.Run(s.runCtx)

	s.log.Info(s.runCtx, "server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and releases every connection.
func (s *Server) Shutdown() error {
	s.stop()
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
