package reports

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aestimo/internal/common"
)

// Janitor periodically sweeps expired reports from the store.
type Janitor struct {
	store  *Store
	config *common.ReportsConfig
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewJanitor creates a janitor for the store. It does nothing until Start
// is called, and never runs when the configured TTL is zero.
func NewJanitor(store *Store, config *common.ReportsConfig, logger arbor.ILogger) *Janitor {
	return &Janitor{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start schedules the sweep. Returns an error for an invalid schedule.
func (j *Janitor) Start() error {
	if j.config.TTL <= 0 {
		j.logger.Debug().Msg("Report TTL disabled, janitor not started")
		return nil
	}

	schedule := j.config.SweepSchedule
	if schedule == "" {
		schedule = "@every 5m"
	}

	_, err := j.cron.AddFunc(schedule, j.sweep)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	j.cron.Start()
	j.logger.Info().
		Str("schedule", schedule).
		Dur("ttl", j.config.TTL).
		Msg("Report janitor started")

	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Debug().Msg("Report janitor stopped")
}

func (j *Janitor) sweep() {
	removed := j.store.Sweep(j.config.TTL)
	if removed > 0 {
		j.logger.Info().
			Int("removed", removed).
			Int("remaining", j.store.Len()).
			Msg("Swept expired reports")
	}
}
