package scheduler

import (
	"context"
	"time"

	"recurring_message_bot/internal/app" // For Dispatcher interface
	"recurring_message_bot/internal/domain/schedule"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TickLock mutually excludes overlapping ticks across processes. ok=false
// means another holder has the lock and this tick should be skipped.
// A nil TickLock disables exclusion entirely.
type TickLock interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// TickScheduler drives the dispatcher on a cron cadence. It is owned and
// started by the host process; the scheduling core registers no ambient
// timers of its own.
type TickScheduler struct {
	cronEngine   *cron.Cron
	dispatcher   app.Dispatcher
	clock        schedule.Clock
	lock         TickLock // may be nil
	logger       *logrus.Logger
	cronSpecTick string
}

func NewTickScheduler(
	dispatcher app.Dispatcher,
	clock schedule.Clock,
	lock TickLock,
	logger *logrus.Logger,
	loc *time.Location,
	cronSpecTick string, // e.g., "0 9 * * *" (9:00 AM daily)
) *TickScheduler {
	return &TickScheduler{
		cronEngine:   cron.New(cron.WithLocation(loc)), // Cron fires in the engine's configured zone
		dispatcher:   dispatcher,
		clock:        clock,
		lock:         lock,
		logger:       logger,
		cronSpecTick: cronSpecTick,
	}
}

func (s *TickScheduler) Start() {
	s.logger.Info("Starting tick scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecTick, func() {
		s.logger.Info("Cron job triggered for dispatch tick.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add dispatch tick cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Infof("Tick scheduler started with spec %q.", s.cronSpecTick)
}

// RunOnce executes a single tick against today's date, honoring the tick
// lock when one is configured.
func (s *TickScheduler) RunOnce(ctx context.Context) {
	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx)
		if err != nil {
			s.logger.Errorf("Failed to acquire tick lock: %v", err)
			return
		}
		if !ok {
			s.logger.Warn("Tick lock held elsewhere; skipping this tick.")
			return
		}
		defer release()
	}

	asOf := schedule.Today(s.clock)
	fired, err := s.dispatcher.RunTick(ctx, asOf)
	if err != nil {
		s.logger.Errorf("Error during dispatch tick for %s: %v", asOf, err)
		return
	}
	s.logger.Infof("Dispatch tick for %s fired %d rule(s).", asOf, fired)
}

func (s *TickScheduler) Stop() {
	s.logger.Info("Stopping tick scheduler...")
	ctx := s.cronEngine.Stop() // Stops new jobs, waits for running ones.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Tick scheduler gracefully stopped.")
}
