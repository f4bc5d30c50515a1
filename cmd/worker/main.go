package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/medcore/clinic-api/internal/email"
	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/service/notification"
	"github.com/medcore/clinic-api/pkg/logger"
	messagingRedis "github.com/medcore/clinic-api/pkg/messaging/redis"
)

// workerConfig is sourced from the environment; the worker runs without a
// config file so it can be deployed separately from the API.
type workerConfig struct {
	RedisURL     string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	SMTPHost     string `envconfig:"SMTP_HOST" required:"true"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@medcore.local"`
	HealthPort   string `envconfig:"HEALTH_PORT" default:"8081"`
}

func main() {
	log := logger.NewLogger(nil)

	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal(err, "failed to load worker configuration")
	}

	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{
		URL:        cfg.RedisURL,
		MaxRetries: 3,
		PoolSize:   5,
	}, &log.ZL)
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	sender := email.NewSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs, err := broker.Subscribe(ctx, notification.EmailChannel)
	if err != nil {
		log.Fatal(err, "failed to subscribe to email channel")
	}

	// Liveness endpoint so orchestrators can watch the worker.
	health := &http.Server{
		Addr: ":" + cfg.HealthPort,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}),
	}
	go func() {
		if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "health server failed")
		}
	}()

	log.Info("email worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			log.Info("shutting down worker")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = health.Shutdown(shutdownCtx)
			shutdownCancel()
			return
		case payload, ok := <-jobs:
			if !ok {
				log.Info("subscription closed, exiting")
				return
			}
			handleJob(log, sender, payload)
		}
	}
}

func handleJob(log *logger.Logger, sender *email.Sender, payload []byte) {
	var job model.EmailJob
	if err := json.Unmarshal(payload, &job); err != nil {
		log.Error(err, "failed to decode email job")
		return
	}

	if err := sender.Send(&job); err != nil {
		log.ZL.Error().
			Err(err).
			Str("type", string(job.Type)).
			Str("to", job.To).
			Msg("failed to deliver email")
		return
	}

	log.ZL.Info().
		Str("type", string(job.Type)).
		Str("to", job.To).
		Msg("email delivered")
}
