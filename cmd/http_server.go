package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/auth"
	authPostgres "github.com/frahmantamala/audit-workflow/internal/auth/postgres"
	"github.com/frahmantamala/audit-workflow/internal/comment"
	commentPostgres "github.com/frahmantamala/audit-workflow/internal/comment/postgres"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/audit-workflow/internal/dashboard/postgres"
	"github.com/frahmantamala/audit-workflow/internal/notification"
	notificationPostgres "github.com/frahmantamala/audit-workflow/internal/notification/postgres"
	"github.com/frahmantamala/audit-workflow/internal/organization"
	organizationPostgres "github.com/frahmantamala/audit-workflow/internal/organization/postgres"
	"github.com/frahmantamala/audit-workflow/internal/profile"
	profilePostgres "github.com/frahmantamala/audit-workflow/internal/profile/postgres"
	"github.com/frahmantamala/audit-workflow/internal/realtime"
	"github.com/frahmantamala/audit-workflow/internal/request"
	requestPostgres "github.com/frahmantamala/audit-workflow/internal/request/postgres"
	"github.com/frahmantamala/audit-workflow/internal/scorer"
	"github.com/frahmantamala/audit-workflow/internal/storage"
	"github.com/frahmantamala/audit-workflow/internal/transport"
	"github.com/frahmantamala/audit-workflow/internal/transport/rest"
	"github.com/frahmantamala/audit-workflow/internal/transport/swagger"
	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server with the REST API and the realtime feed`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger

	Bus    *events.EventBus
	Queue  *notification.Queue
	Relay  realtime.Relay
	Hub    *realtime.Hub
	cancel context.CancelFunc
}

func startHTTPServer() {
	cfg := mustLoadConfig()

	deps, err := initializeDependencies(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Close()
	deps.Logger.Info("Server stopped")
}

// Close stops background work in dependency order: no new events reach the
// feed, queued notifications drain, sockets close, then the pool.
func (d *Dependencies) Close() {
	d.Hub.Close()
	d.Queue.Shutdown()
	if d.cancel != nil {
		d.cancel()
	}
	if err := d.Relay.Close(); err != nil {
		d.Logger.Error("Realtime relay close error", "error", err)
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(cfg *internal.Config) (*Dependencies, error) {
	ctx := context.Background()
	lg := logger.LoggerWrapper()

	if _, err := swagger.Load(ctx); err != nil {
		return nil, fmt.Errorf("invalid embedded openapi document: %w", err)
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := database.NewGorm(db.DB)
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := events.NewEventBus(lg)
	base := transport.NewBaseHandler(lg)

	// directory
	organizationRepo := organizationPostgres.NewOrganizationRepository(gormDB)
	organizationService := organization.NewService(organizationRepo, lg)

	profileRepo := profilePostgres.NewProfileRepository(gormDB)
	profileService := profile.NewService(profileRepo, organizationService, bus, lg)

	authService := auth.NewService(
		profileRepo,
		organizationService,
		authPostgres.NewResetRepository(gormDB),
		auth.NewJWTTokenGenerator(cfg.Security),
		auth.LogMailer{Logger: lg},
		cfg.Security,
		lg,
	)

	// scoring and attachments
	var backend scorer.Backend
	if cfg.Scorer.APIKey != "" {
		backend = scorer.NewOpenAIClient(cfg.Scorer.APIURL, cfg.Scorer.APIKey, cfg.Scorer.Model, cfg.Scorer.Timeout)
	} else {
		lg.Warn("scorer api key not configured, scoring runs in fallback mode")
	}
	scorerService := scorer.NewService(
		backend,
		scorer.NewTokenIssuer(cfg.Scorer.TokenSecret, cfg.Scorer.TokenTTL),
		scorer.NewLimiter(cfg.Scorer.RequestsPerMinute, cfg.Scorer.Burst),
		cfg.Scorer.Timeout,
		lg,
	)

	storageClient := storage.NewClient(cfg.Storage, lg)
	storageService := storage.NewService(storageClient, lg)

	// workflow
	requestRepo := requestPostgres.NewRequestRepository(gormDB)
	commentService := comment.NewService(commentPostgres.NewCommentRepository(gormDB), requestRepo, bus, lg)

	notificationRepo := notificationPostgres.NewNotificationRepository(gormDB)
	queue := notification.NewQueue(notification.QueueConfig{
		MaxWorkers:     cfg.Notification.MaxWorkers,
		JobQueueSize:   cfg.Notification.JobQueueSize,
		WorkerPoolSize: cfg.Notification.WorkerPoolSize,
	}, lg)
	fanout := notification.NewFanout(notificationRepo, profileRepo, queue, bus, lg)
	queue.Start(fanout.Deliver)

	requestService := request.NewService(request.Dependencies{
		Repository:  requestRepo,
		Scores:      scorerService,
		Departments: organizationService,
		Comments:    commentService,
		Notifier:    fanout,
		Attachments: storageClient,
		Publisher:   bus,
		Logger:      lg,
	})

	dashboardService := dashboard.NewService(dashboardPostgres.NewDashboardRepository(db), lg)

	// realtime
	relay := newRelay(cfg.Realtime, lg)
	realtime.NewBridge(relay, lg).Register(bus)

	origins := rest.ParseOrigins(cfg.Server.AllowedOrigins)
	hub := realtime.NewHub(base, profileService, realtime.HubConfigFrom(cfg.Realtime), originChecker(origins))

	runCtx, cancel := context.WithCancel(ctx)
	stream, err := relay.Subscribe(runCtx)
	if err != nil {
		cancel()
		queue.Shutdown()
		db.Close()
		return nil, fmt.Errorf("failed to subscribe to realtime relay: %w", err)
	}
	go hub.Run(runCtx, stream)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:          auth.NewHandler(base, authService),
		Authenticator: authService,
		Profile:       profile.NewHandler(base, profileService),
		Organization:  organization.NewHandler(base, organizationService),
		Request:       request.NewHandler(base, requestService),
		Comment:       comment.NewHandler(base, commentService),
		Scorer:        scorer.NewHandler(base, scorerService),
		Storage:       storage.NewHandler(base, storageService, cfg.Storage.MaxUploadBytes),
		Notification:  notification.NewHandler(base, notification.NewService(notificationRepo, lg)),
		Dashboard:     dashboard.NewHandler(base, dashboardService),
		Realtime:      hub,
	}, rest.Options{
		AllowedOrigins: origins,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
	}, lg)

	return &Dependencies{
		Config: cfg,
		DB:     db,
		Gorm:   gormDB,
		Router: router,
		Logger: lg,
		Bus:    bus,
		Queue:  queue,
		Relay:  relay,
		Hub:    hub,
		cancel: cancel,
	}, nil
}

// newRelay uses redis when an address is configured so several server
// instances share one feed.
func newRelay(cfg internal.RealtimeConfig, lg *slog.Logger) realtime.Relay {
	if cfg.RedisAddr == "" {
		lg.Info("realtime relay running in process")
		return realtime.NewLocalRelay(lg)
	}
	lg.Info("realtime relay using redis", "addr", cfg.RedisAddr, "channel", cfg.Channel)
	return realtime.NewRedisRelay(realtime.NewRedisClient(cfg), cfg.Channel, lg)
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
