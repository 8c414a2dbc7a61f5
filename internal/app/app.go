package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "habitvault/docs"
	"habitvault/internal/config"
	"habitvault/internal/handlers"
	"habitvault/internal/pdf"
	"habitvault/internal/realtime"
	"habitvault/internal/reminders"
	"habitvault/internal/repositories"
	"habitvault/internal/routes"
	"habitvault/internal/services"
)

const shutdownTimeout = 10 * time.Second

// Deps is everything the commands share: storage, delivery and the dispatcher.
type Deps struct {
	DB         *sql.DB
	Tasks      repositories.TaskRepository
	Profiles   repositories.ProfileRepository
	Email      services.EmailService
	Telegram   *services.TelegramService
	Dispatcher *reminders.Dispatcher
	Location   *time.Location
}

// Open connects to Postgres and the Bot API. A Telegram failure only disables Telegram.
func Open(cfg *config.Config) (*Deps, error) {
	if cfg.Database.DSN == "" {
		return nil, errors.New("database url is not configured (DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	tg, err := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.APIEndpoint, nil)
	if err != nil {
		log.Printf("[app][tg][warn] telegram disabled: %v", err)
		tg = nil
	}
	return NewDeps(cfg, db, tg), nil
}

func NewDeps(cfg *config.Config, db *sql.DB, tg *services.TelegramService) *Deps {
	loc := cfg.Reminders.Location()
	d := &Deps{
		DB:       db,
		Tasks:    repositories.NewTaskRepository(db),
		Profiles: repositories.NewProfileRepository(db),
		Email: services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
			loc,
		),
		Telegram: tg,
		Location: loc,
	}
	d.Dispatcher = reminders.NewDispatcher(d.Tasks, d.Email, reminders.DispatcherOptions{
		Lookahead:   cfg.Reminders.Lookahead,
		Concurrency: cfg.Reminders.DispatchConcurrency,
	})
	return d
}

func (d *Deps) Close() {
	if err := d.DB.Close(); err != nil {
		log.Printf("[app][db][warn] close: %v", err)
	}
}

// NewRouter builds the HTTP surface.
func NewRouter(cfg *config.Config, d *Deps, hub *realtime.Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	taskService := services.NewTaskService(d.Tasks)
	agenda := pdf.NewAgendaGenerator(cfg.Files.FontPath)

	taskHandler := handlers.NewTaskHandler(taskService, agenda, d.Location)
	reminderHandler := handlers.NewReminderHandler(d.Dispatcher)
	sessionHandler := handlers.NewSessionHandler(d.Tasks, hub, cfg.Reminders.ScanInterval, d.Location, cfg.Reminders.SoundSrc)

	if cfg.Auth.JWTSecret == "" {
		log.Printf("[app][auth][warn] jwt secret is empty; every protected request will be rejected")
	}
	return routes.SetupRoutes(router, routes.Options{
		JWTSecret:        []byte(cfg.Auth.JWTSecret),
		TriggerTokenHash: cfg.Reminders.TriggerTokenHash,
	}, taskHandler, reminderHandler, sessionHandler)
}

// Serve runs the API and the dispatch schedule until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config) error {
	d, err := Open(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	hub := realtime.NewHub()
	router := NewRouter(cfg, d, hub)

	sched, err := StartScheduler(cfg.Reminders.DispatchSchedule, d.Dispatcher)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[app] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("[app] shut down signal received...")
	case err := <-errCh:
		sched.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	sched.Stop()
	// hijacked websocket connections are not closed by Shutdown
	hub.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	log.Printf("[app] shut down gracefully")
	return nil
}

// RemindOnce performs a single dispatch.
func RemindOnce(ctx context.Context, cfg *config.Config) (*reminders.DispatchSummary, error) {
	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.Dispatcher.Run(ctx)
}

// Watch runs a terminal scan session for userID: the bell is the sound, a
// linked Telegram chat is the system notification, a colored line is the toast.
func Watch(ctx context.Context, cfg *config.Config, userID string, out io.Writer) error {
	d, err := Open(cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	return WatchWith(ctx, d, cfg.Reminders.ScanInterval, userID, out)
}

func WatchWith(ctx context.Context, d *Deps, interval time.Duration, userID string, out io.Writer) error {
	channels := reminders.Channels{
		Sound: reminders.BellNotifier{W: out},
		Toast: reminders.ConsoleToast{W: out},
	}
	var perms reminders.Permissions = reminders.StaticPermissions(reminders.PermissionDenied)
	if d.Telegram.Enabled() {
		channels.System = reminders.TelegramNotifier{TG: d.Telegram, Settings: d.Profiles}
		perms = &reminders.TelegramPermissions{TG: d.Telegram, Settings: d.Profiles, UserID: userID}
	}

	scanner := reminders.NewScanner(d.Tasks, channels, perms, reminders.ScannerOptions{
		Interval: interval,
		Location: d.Location,
	})
	return scanner.Run(ctx, userID)
}
