package managers

import (
	"context"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/invalidation"
	"github.com/Seklfreak/Lumi/models"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pkg/errors"
)

// Reminders manages the reminders nested in the user documents as entities of their own.
// The reminders of a user are served from the entity cache while the user is cached,
// every reminder write therefore invalidates the reminder and its owner.
type Reminders struct {
	entities    *cache.Entities
	broadcaster invalidation.Broadcaster
	store       UserStore
	users       *Users
}

func NewReminders(entities *cache.Entities, broadcaster invalidation.Broadcaster, store UserStore, users *Users) *Reminders {
	return &Reminders{
		entities:    entities,
		broadcaster: broadcaster,
		store:       store,
		users:       users,
	}
}

// Set updates the reminder of the user in place or adds it and returns the stored reminder
func (r *Reminders) Set(ctx context.Context, reminderID snowflake.ID, userRef interface{}, data models.ReminderData, options SetOptions) (models.Reminder, error) {
	userID, err := resolveID(userRef)
	if err != nil {
		return models.Reminder{}, err
	}
	if reminderID == 0 {
		return models.Reminder{}, errors.Wrap(ErrInvalidReference, "empty reminder id")
	}

	_, ownerCached := r.entities.Get(cache.KindUser, userID)

	entry, err := r.store.UpsertReminder(ctx, userID, reminderID.String(), data, options.Merge)
	if err != nil {
		return models.Reminder{}, err
	}
	reminder, err := entry.Reminder(userID)
	if err != nil {
		return models.Reminder{}, errors.Wrap(err, "stored reminder has an invalid id")
	}

	r.broadcast(ctx, reminder.ID, userID)
	r.entities.Set(cache.KindReminder, reminder.ID.String(), reminder)
	if ownerCached {
		r.reloadOwner(ctx, userID)
	}

	return reminder, nil
}

// Edit merges the supplied fields into an existing reminder, ErrNotFound if the user has no such reminder.
// Unlike Set it never adds a reminder, a reminder consumed in between stays gone.
func (r *Reminders) Edit(ctx context.Context, reminderID snowflake.ID, userRef interface{}, data models.ReminderData) (models.Reminder, error) {
	userID, err := resolveID(userRef)
	if err != nil {
		return models.Reminder{}, err
	}

	_, ownerCached := r.entities.Get(cache.KindUser, userID)

	entry, found, err := r.store.UpdateReminder(ctx, userID, reminderID.String(), data)
	if err != nil {
		return models.Reminder{}, err
	}
	if !found {
		return models.Reminder{}, errors.Wrapf(ErrNotFound, "reminder %s of user %s", reminderID.String(), userID)
	}
	reminder, err := entry.Reminder(userID)
	if err != nil {
		return models.Reminder{}, errors.Wrap(err, "stored reminder has an invalid id")
	}

	r.broadcast(ctx, reminder.ID, userID)
	r.entities.Set(cache.KindReminder, reminder.ID.String(), reminder)
	if ownerCached {
		r.reloadOwner(ctx, userID)
	}

	return reminder, nil
}

// Fetch returns one reminder of the user, false if the user has no such reminder
func (r *Reminders) Fetch(ctx context.Context, userRef interface{}, reminderID snowflake.ID, options FetchOptions) (models.Reminder, bool, error) {
	userID, err := resolveID(userRef)
	if err != nil {
		return models.Reminder{}, false, err
	}

	if options.Cache && !options.Force {
		if _, ok := r.entities.Get(cache.KindUser, userID); ok {
			cached, ok := r.entities.Get(cache.KindReminder, reminderID.String())
			if !ok {
				return models.Reminder{}, false, nil
			}
			reminder := cached.(models.Reminder)
			if reminder.UserID != userID {
				return models.Reminder{}, false, nil
			}
			return reminder, true, nil
		}
	}

	_, reminders, _, err := r.users.load(ctx, userID, options.Cache)
	if err != nil {
		return models.Reminder{}, false, err
	}
	for _, reminder := range reminders {
		if reminder.ID == reminderID {
			return reminder, true, nil
		}
	}
	return models.Reminder{}, false, nil
}

// FetchAll returns the reminders of the user ordered by due time
func (r *Reminders) FetchAll(ctx context.Context, userRef interface{}, options FetchOptions) ([]models.Reminder, error) {
	userID, err := resolveID(userRef)
	if err != nil {
		return nil, err
	}

	if options.Cache && !options.Force {
		if _, ok := r.entities.Get(cache.KindUser, userID); ok {
			cached := r.entities.Filter(cache.KindReminder, func(entity interface{}) bool {
				return entity.(models.Reminder).UserID == userID
			})
			reminders := make([]models.Reminder, 0, len(cached))
			for _, entity := range cached {
				reminders = append(reminders, entity.(models.Reminder))
			}
			sortReminders(reminders)
			return reminders, nil
		}
	}

	_, reminders, _, err := r.users.load(ctx, userID, options.Cache)
	if reminders == nil {
		reminders = make([]models.Reminder, 0)
	}
	return reminders, err
}

// Find scans the reminders of all users, the results are cached
func (r *Reminders) Find(ctx context.Context, query models.ReminderQuery, options FindOptions) ([]models.Reminder, error) {
	matches, err := r.store.FindReminders(ctx, query, options.SkipDisabledDM)
	if err != nil {
		return nil, err
	}

	reminders := make([]models.Reminder, 0, len(matches))
	for _, match := range matches {
		reminder, err := match.Entry.Reminder(match.UserID)
		if err != nil {
			cache.GetLogger().WithField("module", "managers").Warnf(
				"skipping reminder %s of user %s with invalid id: %s", match.Entry.ID, match.UserID, err.Error())
			continue
		}
		r.entities.Set(cache.KindReminder, reminder.ID.String(), reminder)
		reminders = append(reminders, reminder)
	}
	sortReminders(reminders)

	return reminders, nil
}

// Delete removes the reminder of the user, ErrNotFound if the user has no such reminder
func (r *Reminders) Delete(ctx context.Context, reminderID snowflake.ID, userRef interface{}) error {
	userID, err := resolveID(userRef)
	if err != nil {
		return err
	}

	_, ownerCached := r.entities.Get(cache.KindUser, userID)

	removed, err := r.store.PullReminder(ctx, userID, reminderID.String())
	if err != nil {
		return err
	}

	r.broadcast(ctx, reminderID, userID)
	if ownerCached {
		r.reloadOwner(ctx, userID)
	}

	if !removed {
		return errors.Wrapf(ErrNotFound, "reminder %s of user %s", reminderID.String(), userID)
	}
	return nil
}

// reloadOwner caches the owner again as stored after the write.
// A snapshot taken before the write may miss a write of another shard that arrived in between.
func (r *Reminders) reloadOwner(ctx context.Context, userID string) {
	_, _, _, err := r.users.load(ctx, userID, true)
	if err != nil {
		cache.GetLogger().WithField("module", "managers").Warnf(
			"reloading user %s after a reminder write failed: %s", userID, err.Error())
	}
}

func (r *Reminders) broadcast(ctx context.Context, reminderID snowflake.ID, userID string) {
	invalidate(ctx, r.broadcaster, cache.KindReminder, reminderID.String())
	invalidate(ctx, r.broadcaster, cache.KindUser, userID)
}
