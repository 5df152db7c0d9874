package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	"github.com/noah-isme/kiosk-attendance-api/pkg/jobs"
)

type mirrorResyncer interface {
	Enabled() bool
	Resync(ctx context.Context) (int, error)
}

type checkInNotifier interface {
	NotifyCheckIn(ctx context.Context, payload models.CheckInNotificationPayload) (bool, error)
}

// SideEffectService executes outbox jobs recorded by the attendance workflow.
type SideEffectService struct {
	mirror   mirrorResyncer
	notifier checkInNotifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSideEffectService constructs a SideEffectService.
func NewSideEffectService(mirror mirrorResyncer, notifier checkInNotifier, metrics *MetricsService, logger *zap.Logger) *SideEffectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SideEffectService{mirror: mirror, notifier: notifier, metrics: metrics, logger: logger}
}

// Handle runs a single job. It satisfies jobs.Handler.
func (s *SideEffectService) Handle(ctx context.Context, job jobs.Job) error {
	status, err := s.run(ctx, job)
	s.metrics.RecordSideEffect(job.Type, status)
	if err != nil {
		s.logger.Warn("side effect failed",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
	}
	return err
}

func (s *SideEffectService) run(ctx context.Context, job jobs.Job) (string, error) {
	switch job.Type {
	case models.JobMirrorResync:
		if !s.mirror.Enabled() {
			return SideEffectSkipped, nil
		}
		if _, err := s.mirror.Resync(ctx); err != nil {
			return SideEffectFailed, err
		}
		return SideEffectSucceeded, nil
	case models.JobNotificationCheckIn:
		var payload models.CheckInNotificationPayload
		if err := job.DecodePayload(&payload); err != nil {
			return SideEffectFailed, err
		}
		sent, err := s.notifier.NotifyCheckIn(ctx, payload)
		if err != nil {
			return SideEffectFailed, err
		}
		if !sent {
			return SideEffectSkipped, nil
		}
		return SideEffectSucceeded, nil
	default:
		return SideEffectFailed, fmt.Errorf("unknown side effect %q", job.Type)
	}
}
