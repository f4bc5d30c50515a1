package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/medcore/clinic-api/internal/config"
	"github.com/medcore/clinic-api/internal/handler"
	appointmentHandler "github.com/medcore/clinic-api/internal/handler/appointment"
	authHandler "github.com/medcore/clinic-api/internal/handler/auth"
	doctorHandler "github.com/medcore/clinic-api/internal/handler/doctor"
	"github.com/medcore/clinic-api/internal/middleware"
	"github.com/medcore/clinic-api/internal/repository/postgres"
	"github.com/medcore/clinic-api/internal/router"
	appointmentService "github.com/medcore/clinic-api/internal/service/appointment"
	authService "github.com/medcore/clinic-api/internal/service/auth"
	notificationService "github.com/medcore/clinic-api/internal/service/notification"
	"github.com/medcore/clinic-api/pkg/auth"
	"github.com/medcore/clinic-api/pkg/lock"
	"github.com/medcore/clinic-api/pkg/logger"
	messagingRedis "github.com/medcore/clinic-api/pkg/messaging/redis"
	"github.com/medcore/clinic-api/pkg/security"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.ZL)
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	// The booking lock shares the broker's connection pool.
	redisBroker := broker.(*messagingRedis.RedisBroker)
	locker := lock.NewRedisLocker(redisBroker.Client(), lock.Config{
		TTL:        cfg.Scheduling.LockTTL(),
		Retries:    cfg.Scheduling.LockRetries,
		RetryDelay: cfg.Scheduling.LockBackoff(),
	})

	appointmentRepo := postgres.NewAppointmentRepository(db)
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)

	jwtExpiry := time.Duration(cfg.JWT.ExpiryHours) * time.Hour
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, jwtExpiry)
	hasher := security.NewBcryptHasher(0)

	notificationSvc := notificationService.NewService(broker, &log.ZL)
	authSvc := authService.NewService(userRepo, jwtSvc, hasher, jwtExpiry)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		userRepo,
		patientRepo,
		locker,
		notificationSvc,
		cfg.Scheduling,
		&log.ZL,
	)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)
	doctorH := doctorHandler.NewHandler(
		userRepo,
		appointmentSvc,
		time.Duration(cfg.Scheduling.AvailabilityCacheS)*time.Second,
	)

	r := router.NewRouter(authMiddleware, authH, appointmentH, doctorH, h, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
		RateBurst:     cfg.Server.RateLimitBurst,
		MetricsPrefix: "clinic_api",
		Logger:        log.ZL,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.ZL.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
	log.Info("server stopped")
}
