package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/junaidrashid-git/eshop/auth"
	"github.com/junaidrashid-git/eshop/config"
	orderControllers "github.com/junaidrashid-git/eshop/controllers/order"
	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/mail"
	"github.com/junaidrashid-git/eshop/metrics"
	"github.com/junaidrashid-git/eshop/payment"
	"github.com/junaidrashid-git/eshop/routes"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/storage"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func sessionStore(ctx context.Context, cfg config.SessionConfig, log *logrus.Logger) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, sessions are kept in memory")
		return session.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return session.NewRedisStore(client), func() { client.Close() }, nil
}

func serve(ctx context.Context) error {
	cfg, log, db, err := boot()
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions, closeSessions, err := sessionStore(ctx, cfg.Session, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	disk, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	deps := routes.Deps{
		DB:       db,
		Config:   cfg,
		Log:      log,
		Mailer:   mail.New(cfg.Email, log),
		Gateway:  payment.NewClient(cfg.Payment),
		Disk:     disk,
		Sessions: sessions,
		Hub:      orderControllers.NewHub(log),
		Tokens:   auth.NewVerificationTokens(cfg.SecretKey, cfg.VerifyTokenTTL),
		Metrics:  metrics.New(),
		Done:     ctx.Done(),
	}
	google, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		return err
	}
	if google != nil {
		deps.Google = google
	}

	router, err := routes.NewRouter(deps)
	if err != nil {
		return err
	}

	if cfg.Storage.Driver == "local" && cfg.Storage.BackupDir != "" {
		go storage.RunDailyBackup(ctx, cfg.Storage.MediaRoot, cfg.Storage.BackupDir,
			cfg.Storage.BackupRetention, cfg.Storage.BackupHour, log)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
