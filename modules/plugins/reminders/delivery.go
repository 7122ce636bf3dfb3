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

// ErrDeliveryUnreachable is returned when a reminder was consumed but the user could not be told about it
var ErrDeliveryUnreachable = errors.New("reminder could not be delivered")

// Shard tells whether this process runs the reminders
type Shard interface {
	IsMain() bool
}

// Delivery consumes due reminders. A reminder is deleted before the user is notified,
// a reminder is therefore delivered at most once and a failed notification is not repeated.
type Delivery struct {
	managers   *managers.Managers
	snowflakes *helpers.Snowflakes
	shard      Shard
	notifier   Notifier
	retries    RetryStore
	retryTTL   time.Duration
}

// Deliver handles one due reminder. Returns the successor of a recursive reminder, if one was scheduled.
func (d *Delivery) Deliver(ctx context.Context, reminder models.Reminder) (*models.Reminder, error) {
	if !d.shard.IsMain() {
		return nil, nil
	}
	log := cache.GetLogger().WithField("module", "reminders").WithField("reminderID", reminder.ID.String())

	err := d.managers.Reminders.Delete(ctx, reminder.ID, reminder.UserID)
	if errors.Cause(err) == managers.ErrNotFound {
		// consumed already, by an earlier cycle or a delete of the user
		log.Debug("skipping reminder that is gone already")
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "deleting due reminder failed")
	}

	settings, err := d.managers.Users.Settings(ctx, reminder.UserID)
	if err != nil {
		log.Warnf("loading settings of %s failed, using defaults: %s", reminder.UserID, err.Error())
		settings = models.DefaultUserSettings(reminder.UserID)
	}
	notification := newNotification(reminder, settings.Locale)

	var successor *models.Reminder
	if reminder.Recursive {
		successor, err = d.rearm(ctx, reminder)
		if err != nil {
			log.Errorf("scheduling the next occurrence failed: %s", err.Error())
		} else {
			notification.NextDueAt = successor.Timestamp
			metrics.RemindersRearmed.Inc()
		}
	}

	if settings.DisabledDM && reminder.ChannelID != "" {
		err = d.notifier.Post(ctx, reminder.ChannelID, notification.ChannelMessage())
	} else {
		err = d.notifier.Notify(ctx, reminder.UserID, notification.Message())
	}
	if err != nil {
		metrics.RemindersUnreachable.Inc()
		d.offerRetry(ctx, reminder, notification)
		return successor, errors.Wrapf(ErrDeliveryUnreachable, "reminder %s of %s: %s",
			reminder.ID.String(), reminder.UserID, err.Error())
	}

	metrics.RemindersDelivered.Inc()
	return successor, nil
}

// rearm schedules the successor of a recursive reminder with a fresh id and the same interval
func (d *Delivery) rearm(ctx context.Context, reminder models.Reminder) (*models.Reminder, error) {
	elapsed := reminder.Elapsed()
	if elapsed <= 0 {
		return nil, errors.Errorf("reminder %s has no positive interval", reminder.ID.String())
	}

	id := d.snowflakes.Next()
	content := reminder.Content
	timestamp := id.Time().UnixMilli() + elapsed
	recursive := true
	channelID := reminder.ChannelID
	guildID := reminder.GuildID

	successor, err := d.managers.Reminders.Set(ctx, id, reminder.UserID, models.ReminderData{
		Content:   &content,
		Timestamp: &timestamp,
		Recursive: &recursive,
		ChannelID: &channelID,
		GuildID:   &guildID,
	}, managers.SetOptions{Merge: false})
	if err != nil {
		return nil, err
	}
	return &successor, nil
}

// offerRetry parks the notification and asks the user in the origin channel to retry
func (d *Delivery) offerRetry(ctx context.Context, reminder models.Reminder, notification Notification) {
	if reminder.ChannelID == "" || d.retries == nil {
		return
	}
	log := cache.GetLogger().WithField("module", "reminders").WithField("reminderID", reminder.ID.String())

	err := d.retries.Save(notification, d.retryTTL)
	if err != nil {
		log.Warnf("saving the notification for a retry failed: %s", err.Error())
		return
	}
	err = d.notifier.Post(ctx, reminder.ChannelID, notification.RetryOffer())
	if err != nil {
		log.Warnf("offering a retry in channel %s failed: %s", reminder.ChannelID, err.Error())
	}
}
