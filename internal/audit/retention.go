package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs nightly, off the full hour to avoid
// clashing with other cron-style housekeeping on the host.
const DefaultPurgeSchedule = "17 3 * * *"

// Retention purges old audit records on a schedule.
type Retention struct {
	storage  *Storage
	days     int
	schedule string
	cron     *cron.Cron
}

// NewRetention creates a scheduled purge keeping the last days of
// records. An empty schedule falls back to DefaultPurgeSchedule.
func NewRetention(storage *Storage, days int, schedule string) *Retention {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	return &Retention{
		storage:  storage,
		days:     days,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start schedules the purge and runs one immediately in the
// background.
func (r *Retention) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.purge); err != nil {
		return err
	}
	r.cron.Start()
	go r.purge()
	log.Debug("audit retention active: %d days", r.days)
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Retention) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := r.storage.Purge(ctx, r.days); err != nil {
		log.Warn("scheduled audit purge failed: %v", err)
	}
}
