package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/pkg/messaging"
)

// EmailChannel is the broker channel the delivery worker subscribes to.
const EmailChannel = "notifications:email"

// Service hands email jobs to the message broker. Delivery is the worker's
// problem; callers treat every method here as fire-and-forget and a failure
// must never affect the outcome of the operation that triggered it.
type Service interface {
	ScheduleReminder(ctx context.Context, job *model.EmailJob) error
	SendCancellation(ctx context.Context, job *model.EmailJob) error
}

type service struct {
	broker messaging.Broker
	logger *zerolog.Logger
}

func NewService(broker messaging.Broker, logger *zerolog.Logger) Service {
	return &service{broker: broker, logger: logger}
}

func (s *service) ScheduleReminder(ctx context.Context, job *model.EmailJob) error {
	job.Type = model.EmailJobReminder
	return s.publish(ctx, job)
}

func (s *service) SendCancellation(ctx context.Context, job *model.EmailJob) error {
	job.Type = model.EmailJobCancellation
	return s.publish(ctx, job)
}

func (s *service) publish(ctx context.Context, job *model.EmailJob) error {
	if err := s.broker.Publish(ctx, EmailChannel, job); err != nil {
		s.logger.Error().
			Err(err).
			Str("type", string(job.Type)).
			Str("to", job.To).
			Msg("failed to publish email job")
		return err
	}
	return nil
}
