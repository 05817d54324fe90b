package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collage-sync/internal/config"
	"collage-sync/internal/gateway"
	"collage-sync/internal/handlers"
	"collage-sync/internal/lifecycle"
	"collage-sync/internal/middleware"
	"collage-sync/internal/push"
	"collage-sync/internal/realtime"
	"collage-sync/internal/repository"
	"collage-sync/internal/services"
	"collage-sync/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Connect to database
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse database config")
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Realtime notifications use their own connection, not the pool
	listener := repository.NewPhotoListener(cfg.Database.DSN(), cfg.Realtime.ResubscribeDelay)
	if err := listener.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start photo listener")
	}
	defer listener.Close()

	// Object storage
	blobs, err := storage.NewS3Store(ctx, storage.S3Options{
		Region:        cfg.Storage.Region,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Endpoint:      cfg.Storage.Endpoint,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store")
	}

	gw := gateway.NewRemote(gateway.Repositories{
		Users:       repository.NewUserRepository(db),
		Collages:    repository.NewCollageRepository(db),
		Members:     repository.NewMembershipRepository(db),
		Photos:      repository.NewPhotoRepository(db),
		Friendships: repository.NewFriendshipRepository(db),
		Invites:     repository.NewInviteRepository(db),
		Themes:      repository.NewThemeRepository(db),
		Listener:    listener,
	}, blobs, storage.Transcoder{
		MaxDimension: cfg.Storage.MaxDimension,
		Quality:      cfg.Storage.JPEGQuality,
	})

	// Expired collage cleanup
	reconciler := lifecycle.NewReconciler(gw, cfg.Storage.Bucket, cfg.Lifecycle.CleanupTimeout, log.Logger)
	sweeper := lifecycle.NewSweeper(reconciler, cfg.Lifecycle.SweepInterval, cfg.Lifecycle.CleanupTimeout, log.Logger)

	var notifier push.Notifier = push.Noop{}
	if cfg.APNs.Enabled {
		apns, err := push.NewAPNs(cfg.APNs, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		notifier = apns
	}

	hub := realtime.NewHub(log.Logger)
	manager := services.NewManager(services.Deps{
		Gateway:  gw,
		Cleaner:  reconciler,
		Bridge:   realtime.NewBridge(gw, cfg.Realtime.ResubscribeDelay, log.Logger),
		Notifier: notifier,
		Bucket:   cfg.Storage.Bucket,
		Collage:  cfg.Collage,
		Log:      log.Logger,
		IdleTTL:  cfg.Cache.ClientIdleTTL,
	}, services.NewAuthService(gw, cfg.JWT.Secret, cfg.JWT.TTL))

	r := NewRouter(cfg, manager, hub, sweeper)

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	sweeper.Start()

	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	go manager.RunEviction(evictCtx, time.Minute)

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// WebSocket connections are hijacked and not closed by Shutdown; they end
	// when the process exits.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sweeper.Stop()
	reconciler.Wait()

	log.Info().Msg("Server exited")
}

// NewRouter builds the HTTP routes
func NewRouter(cfg *config.Config, manager *services.Manager, hub *realtime.Hub, sweeper *lifecycle.Sweeper) http.Handler {
	authHandler := handlers.NewAuthHandler(manager)
	profileHandler := handlers.NewProfileHandler()
	collageHandler := handlers.NewCollageHandler()
	photoHandler := handlers.NewPhotoHandler()
	socialHandler := handlers.NewSocialHandler()
	adminHandler := handlers.NewAdminHandler(sweeper)
	wsHandler := handlers.NewWebSocketHandler(manager, hub, cfg.Server.AllowedOrigins)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", authHandler.SignUp)
		r.Post("/auth/signin", authHandler.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(manager))

			r.Post("/auth/signout", authHandler.SignOut)
			r.Get("/auth/session", authHandler.CurrentSession)

			r.Put("/me/username", profileHandler.UpdateUsername)
			r.Put("/me/avatar", profileHandler.UpdateAvatar)
			r.Put("/me/push-token", profileHandler.UpdatePushToken)
			r.Get("/themes", profileHandler.ListThemes)

			r.Get("/sessions", collageHandler.Sessions)
			r.Post("/collages", collageHandler.Create)
			r.Post("/collages/join", collageHandler.Join)
			r.Get("/collages/{collage_id}", collageHandler.Get)
			r.Put("/collages/{collage_id}/preview", collageHandler.UpdatePreview)
			r.Post("/collages/{collage_id}/photos", collageHandler.UploadPhoto)
			r.Post("/collages/{collage_id}/paste", collageHandler.PastePhoto)
			r.Post("/collages/{collage_id}/invites", collageHandler.SendInvite)

			r.Delete("/photos/{photo_id}", photoHandler.Delete)
			r.Put("/photos/{photo_id}/transform", photoHandler.Transform)

			r.Get("/friends", socialHandler.ListFriends)
			r.Get("/friends/requests", socialHandler.ListFriendRequests)
			r.Post("/friends/requests", socialHandler.SendFriendRequest)
			r.Post("/friends/requests/{friendship_id}/respond", socialHandler.RespondFriendRequest)
			r.Get("/friends/{user_id}/status", socialHandler.FriendshipStatus)

			r.Get("/invites", socialHandler.ListInvites)
			r.Post("/invites/{invite_id}/respond", socialHandler.RespondInvite)
		})

		// Maintenance routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly(cfg.Server.AdminToken))
			r.Post("/admin/cleanup", adminHandler.Cleanup)
			r.Get("/admin/cleanup", adminHandler.Status)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
