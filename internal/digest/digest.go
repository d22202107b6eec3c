// Package digest sends each shop a scheduled push summary of its open jobs.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"luthier-backend/config"
	"luthier-backend/internal/metrics"
	"luthier-backend/internal/notification"
	"luthier-backend/internal/store"
)

// Dispatcher queues notification jobs.
type Dispatcher interface {
	Dispatch(job notification.Job) bool
}

// Service runs the digest on a cron schedule.
type Service struct {
	cfg     config.DigestConfig
	records store.RecordStore
	subs    store.SubscriptionStore
	pool    Dispatcher
	log     *zap.Logger
}

// NewService creates a digest service.
func NewService(cfg config.DigestConfig, records store.RecordStore, subs store.SubscriptionStore, pool Dispatcher, log *zap.Logger) *Service {
	return &Service{cfg: cfg, records: records, subs: subs, pool: pool, log: log}
}

// Start schedules the digest and stops the scheduler when ctx is done.
func (s *Service) Start(ctx context.Context) error {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid digest timezone %q: %w", s.cfg.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.log.Info("digest scheduler started", zap.String("schedule", s.cfg.Schedule), zap.String("timezone", loc.String()))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		s.log.Info("digest scheduler stopped")
	}()
	return nil
}

// RunOnce dispatches a digest to every tenant with staff subscribed to
// pushes and returns how many were queued. Tenants without open jobs are
// skipped.
func (s *Service) RunOnce(ctx context.Context) int {
	tenants, err := s.subs.TenantsWithSubscriptions(ctx)
	if err != nil {
		s.log.Error("failed to list subscribed tenants", zap.Error(err))
		return 0
	}

	sent := 0
	for _, tenantID := range tenants {
		records, err := s.records.ListRecords(ctx, tenantID)
		if err != nil {
			s.log.Error("failed to list records", zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		pending := metrics.Pending(records, 0)
		if len(pending) == 0 {
			continue
		}
		if s.pool.Dispatch(notification.DigestJob(tenantID, pending)) {
			sent++
		}
	}
	s.log.Info("digest run completed", zap.Int("tenants", len(tenants)), zap.Int("dispatched", sent))
	return sent
}
