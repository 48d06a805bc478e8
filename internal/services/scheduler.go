package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ServiceStatus represents the current state of a background service
type ServiceStatus struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	Running     bool      `json:"running"`
	Interval    string    `json:"interval"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
	LastError   string    `json:"last_error,omitempty"`
	RunCount    int64     `json:"run_count"`
}

var (
	ErrServiceUnknown  = errors.New("service is not registered")
	ErrServiceDisabled = errors.New("service is disabled")
	ErrServiceRunning  = errors.New("service is already running")
)

// JobFunc is the body of a background service.
type JobFunc func(ctx context.Context) error

type job struct {
	interval time.Duration
	timeout  time.Duration
	run      JobFunc
}

// ServiceScheduler runs background services on fixed intervals and tracks their status
type ServiceScheduler struct {
	services map[string]*ServiceStatus
	jobs     map[string]job
	mu       sync.RWMutex

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// Service name constants
const (
	ServiceGenreWarmup  = "genre_warmup"
	ServiceCacheCleanup = "cache_cleanup"
)

// NewServiceScheduler creates a new service scheduler
func NewServiceScheduler(logger *slog.Logger) *ServiceScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ServiceScheduler{
		services: make(map[string]*ServiceStatus),
		jobs:     make(map[string]job),
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
}

// Register adds a new service to track
func (s *ServiceScheduler) Register(name, description string, interval time.Duration, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[name] = &ServiceStatus{
		Name:        name,
		Description: description,
		Enabled:     enabled,
		Interval:    formatDuration(interval),
		NextRun:     time.Now().Add(interval),
	}
}

// AddJob registers a service and schedules fn every interval. Each run gets
// its own deadline of timeout (interval if zero).
func (s *ServiceScheduler) AddJob(name, description string, interval, timeout time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("service %s: interval must be positive", name)
	}
	if timeout <= 0 {
		timeout = interval
	}

	s.Register(name, description, interval, true)

	s.mu.Lock()
	s.jobs[name] = job{interval: interval, timeout: timeout, run: fn}
	s.mu.Unlock()

	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if err := s.RunNow(s.ctx, name); err != nil {
			s.logger.Debug("scheduler.run.skipped", "service", name, "reason", err)
		}
	}))
	return nil
}

// RunNow runs a registered job synchronously. It refuses to start a job that
// is disabled or already running.
func (s *ServiceScheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	svc := s.services[name]
	if !ok || svc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrServiceUnknown)
	}
	if !svc.Enabled {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrServiceDisabled)
	}
	if svc.Running {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrServiceRunning)
	}
	svc.Running = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	started := time.Now()
	err := j.run(ctx)
	s.MarkComplete(name, err, j.interval)

	if err != nil {
		s.logger.Warn("scheduler.run.failed", "service", name, "duration", time.Since(started), "error", err)
	} else {
		s.logger.Info("scheduler.run.completed", "service", name, "duration", time.Since(started))
	}
	return nil
}

// Start begins firing scheduled jobs in the background.
func (s *ServiceScheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *ServiceScheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// MarkComplete marks a service run as complete
func (s *ServiceScheduler) MarkComplete(name string, err error, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, exists := s.services[name]; exists {
		svc.Running = false
		svc.LastRun = time.Now()
		svc.NextRun = time.Now().Add(interval)
		svc.RunCount++
		if err != nil {
			svc.LastError = err.Error()
		} else {
			svc.LastError = ""
		}
	}
}

// GetStatus returns a snapshot of one service's status
func (s *ServiceScheduler) GetStatus(name string) (ServiceStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if svc, exists := s.services[name]; exists {
		return *svc, true
	}
	return ServiceStatus{}, false
}

// GetAllStatus returns snapshots of every service, sorted by name
func (s *ServiceScheduler) GetAllStatus() []ServiceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]ServiceStatus, 0, len(s.services))
	for _, svc := range s.services {
		statuses = append(statuses, *svc)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// SetEnabled enables or disables a service
func (s *ServiceScheduler) SetEnabled(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, exists := s.services[name]; exists {
		svc.Enabled = enabled
	}
}

// formatDuration converts a duration to a human-readable string
func formatDuration(d time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	}
	return d.String()
}
