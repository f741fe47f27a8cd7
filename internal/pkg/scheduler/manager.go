package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuelReschke/edupay/internal/pkg/payments"
	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

// RenewalRunner is the job the manager schedules.
type RenewalRunner interface {
	RunRenewalPass(ctx context.Context, now time.Time) (*payments.RenewalSummary, error)
}

// Manager runs the renewal pass on a cron schedule. Every run, scheduled or
// triggered by hand, first takes the Locker so passes never overlap.
type Manager struct {
	runner      RenewalRunner
	locker      Locker
	spec        string
	passTimeout time.Duration
	now         func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

func NewManager(runner RenewalRunner, locker Locker, spec string, passTimeout time.Duration) *Manager {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if passTimeout <= 0 {
		passTimeout = 10 * time.Minute
	}
	return &Manager{
		runner:      runner,
		locker:      locker,
		spec:        spec,
		passTimeout: passTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the renewal job and starts the cron loop. The spec uses
// the six-field format with seconds.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(m.spec, m.scheduledRun); err != nil {
		return fmt.Errorf("invalid renewal schedule %q: %w", m.spec, err)
	}
	c.Start()

	m.cron = c
	m.running = true
	log.Infof("[Scheduler] Renewal pass scheduled (%s)", m.spec)
	return nil
}

// Stop stops scheduling new runs and waits for a running pass to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	wasRunning := m.running
	m.cron = nil
	m.running = false
	m.mu.Unlock()

	if !wasRunning || c == nil {
		return
	}

	log.Info("[Scheduler] Stopping renewal scheduler...")
	<-c.Stop().Done()
	log.Info("[Scheduler] Stopped")
}

func (m *Manager) scheduledRun() {
	if _, err := m.RunOnce(context.Background()); err != nil {
		if errors.Is(err, ErrLocked) {
			log.Infof("[Scheduler] Skipping renewal pass: %v", err)
			return
		}
		log.Errorf("[Scheduler] Renewal pass failed: %v", err)
	}
}

// RunOnce runs a single guarded pass. It returns ErrLocked without running
// when another pass holds the lock. The pass never outlives passTimeout, so a
// lock expiry of at least passTimeout cannot lapse while it runs.
func (m *Manager) RunOnce(ctx context.Context) (*payments.RenewalSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, m.passTimeout)
	defer cancel()

	unlock, err := m.locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	summary, err := m.runner.RunRenewalPass(ctx, m.now())
	if err != nil {
		return summary, err
	}
	log.Infof("[Scheduler] Renewal pass finished in %s: processed=%d succeeded=%d failed=%d",
		time.Since(start).Round(time.Millisecond), summary.Processed, summary.Succeeded, summary.Failed)
	return summary, nil
}
