// Package dispatch drives scheduled notification runs off a minute tick.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"

	"tubecast/internal/models"
	"tubecast/pkg/logger"
)

// An individual dispatch run is bounded so one stuck session cannot pin a
// goroutine forever.
const dispatchTimeout = 10 * time.Minute

// Target is the per-user side that actually delivers content.
type Target interface {
	Dispatch(ctx context.Context, groupIDs []string) bool
}

// Entry pairs a connected user's target with that user's schedules.
type Entry struct {
	UserID    string
	Target    Target
	Schedules []models.Schedule
}

// Source yields the entries to evaluate. It is called once per tick, so
// sessions that connect or disconnect between ticks are picked up
// automatically.
type Source func() []Entry

// Dispatcher evaluates every user's schedules once per minute and fires
// matching ones. Users run concurrently; one user's schedules run in order.
type Dispatcher struct {
	source Source
	log    *logger.Logger
	sched  gocron.Scheduler

	// now is swapped out in tests.
	now func() time.Time
}

func New(source Source, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		source: source,
		log:    log,
		now:    time.Now,
	}
}

// Start begins the minute tick. The first tick fires at the next wall-clock
// minute boundary.
func (d *Dispatcher) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if _, err := sched.NewJob(
		gocron.CronJob("* * * * *", false),
		gocron.NewTask(d.Tick),
		gocron.WithName("schedule-tick"),
	); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	sched.Start()
	d.sched = sched
	d.log.Info("Dispatcher started")
	return nil
}

// Stop shuts the tick down and waits for running jobs to finish.
func (d *Dispatcher) Stop() error {
	if d.sched == nil {
		return nil
	}
	if err := d.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	d.log.Info("Dispatcher stopped")
	return nil
}

// Tick runs one evaluation pass. The current minute is captured once so
// every schedule in the pass sees the same instant, even if evaluation
// straddles a minute boundary.
func (d *Dispatcher) Tick() {
	now := d.now().Truncate(time.Minute)
	entries := d.source()

	var wg sync.WaitGroup
	for _, entry := range entries {
		due := dueSchedules(entry.Schedules, now)
		if len(due) == 0 {
			continue
		}

		wg.Add(1)
		go func(entry Entry, due []models.Schedule) {
			defer wg.Done()
			for _, sched := range due {
				d.log.Info("Schedule %q due for user %s (%d groups)", sched.Name, entry.UserID, len(sched.Groups))

				ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
				if !entry.Target.Dispatch(ctx, sched.Groups) {
					d.log.Warn("Schedule %q for user %s did not run", sched.Name, entry.UserID)
				}
				cancel()
			}
		}(entry, due)
	}
	wg.Wait()
}

func dueSchedules(schedules []models.Schedule, now time.Time) []models.Schedule {
	var due []models.Schedule
	for _, sched := range schedules {
		if !sched.Active {
			continue
		}
		if matches(&sched, now) {
			due = append(due, sched)
		}
	}
	return due
}

// matches reports whether the schedule fires at the given minute. now must
// already be truncated to the minute.
func matches(sched *models.Schedule, now time.Time) bool {
	if sched.CronExpr != "" {
		expr, err := cron.ParseStandard(sched.CronExpr)
		if err != nil {
			// Validated on write; a bad stored expression just never fires.
			return false
		}
		return expr.Next(now.Add(-time.Second)).Equal(now)
	}
	return sched.Hour == now.Hour() &&
		sched.Minute == now.Minute() &&
		sched.HasDay(int(now.Weekday()))
}
