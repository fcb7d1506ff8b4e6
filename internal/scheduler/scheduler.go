package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RateRefresher refreshes the cached reference rate
type RateRefresher interface {
	RefreshReferenceRate(ctx context.Context) (float64, error)
}

// Scheduler runs the periodic reference rate refresh
type Scheduler struct {
	cron    *cron.Cron
	rates   RateRefresher
	log     *logrus.Logger
	timeout time.Duration
}

// New registers the refresh job under spec, a standard five-field cron
// expression or a descriptor such as "@hourly"
func New(spec string, rates RateRefresher, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		rates:   rates,
		log:     log,
		timeout: 30 * time.Second,
	}
	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rate, err := s.rates.RefreshReferenceRate(ctx)
	if err != nil {
		s.log.Errorf("Reference rate refresh failed: %v", err)
		return
	}
	s.log.WithField("key_rate", rate).Info("Reference rate refreshed")
}

// Start warms the rate cache once and then runs the job on schedule
func (s *Scheduler) Start() {
	s.refresh()
	s.cron.Start()
	s.log.Info("Rate refresh scheduler started")
}

// Stop halts the scheduler and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Rate refresh scheduler stopped")
}
