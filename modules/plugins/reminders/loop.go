package reminders

import (
	"context"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/managers"
	"github.com/Seklfreak/Lumi/metrics"
	"github.com/Seklfreak/Lumi/models"
	"github.com/pkg/errors"
)

// Loop polls for due reminders on the main shard and hands them to the delivery one after another
type Loop struct {
	reminders *managers.Reminders
	delivery  *Delivery
	shard     Shard
	interval  time.Duration
	now       func() time.Time
}

// Run polls every interval until ctx is cancelled
func (l *Loop) Run(ctx context.Context) {
	cache.GetLogger().WithField("module", "reminders").Infof("Started reminder loop (%s)", l.interval.String())

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cache.GetLogger().WithField("module", "reminders").Info("Stopped reminder loop")
			return
		case <-ticker.C:
			l.Poll(ctx)
		}
	}
}

// Poll runs one cycle and returns how many reminders were consumed. A failing cycle never stops the loop.
func (l *Loop) Poll(ctx context.Context) (consumed int) {
	defer helpers.Recover()

	if !l.shard.IsMain() {
		return 0
	}
	log := cache.GetLogger().WithField("module", "reminders")

	start := time.Now()
	defer func() {
		metrics.ReminderPollDuration.Observe(time.Since(start).Seconds())
	}()

	due, err := l.reminders.Find(ctx, models.DueBy(l.now()), managers.FindOptions{})
	if err != nil {
		metrics.ReminderPollErrors.Inc()
		log.Errorf("finding due reminders failed: %s", err.Error())
		return 0
	}

	for _, reminder := range due {
		if ctx.Err() != nil {
			return consumed
		}

		_, err = l.delivery.Deliver(ctx, reminder)
		switch {
		case err == nil:
			consumed++
		case errors.Cause(err) == ErrDeliveryUnreachable:
			consumed++
			log.Warn(err.Error())
		default:
			metrics.ReminderPollErrors.Inc()
			log.Errorf("delivering reminder %s failed: %s", reminder.ID.String(), err.Error())
		}
	}
	return consumed
}
