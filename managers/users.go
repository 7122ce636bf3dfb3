package managers

import (
	"context"
	"sort"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/invalidation"
	"github.com/Seklfreak/Lumi/models"
)

// Users manages user settings. Loading a user also loads its reminders into the entity cache.
type Users struct {
	entities    *cache.Entities
	broadcaster invalidation.Broadcaster
	store       UserStore
	now         func() time.Time
}

func NewUsers(entities *cache.Entities, broadcaster invalidation.Broadcaster, store UserStore, now func() time.Time) *Users {
	return &Users{
		entities:    entities,
		broadcaster: broadcaster,
		store:       store,
		now:         now,
	}
}

// Fetch returns the settings of the user, false if the user has no document
func (u *Users) Fetch(ctx context.Context, ref interface{}, options FetchOptions) (models.UserSettings, bool, error) {
	id, err := resolveID(ref)
	if err != nil {
		return models.UserSettings{}, false, err
	}

	if options.Cache && !options.Force {
		if cached, ok := u.entities.Get(cache.KindUser, id); ok {
			return cached.(models.UserSettings), true, nil
		}
	}

	settings, _, found, err := u.load(ctx, id, options.Cache)
	return settings, found, err
}

// Settings returns the settings of the user with the defaults for a user without document
func (u *Users) Settings(ctx context.Context, ref interface{}) (models.UserSettings, error) {
	settings, found, err := u.Fetch(ctx, ref, DefaultFetchOptions)
	if err != nil {
		return settings, err
	}
	if !found {
		id, _ := resolveID(ref)
		return models.DefaultUserSettings(id), nil
	}
	return settings, nil
}

// load reads the user document, with populate the user and its reminders replace whatever was cached for them
func (u *Users) load(ctx context.Context, id string, populate bool) (models.UserSettings, []models.Reminder, bool, error) {
	entry, found, err := u.store.FindUser(ctx, id)
	if err != nil {
		return models.UserSettings{}, nil, false, err
	}
	if !found {
		if populate {
			u.forget(id)
		}
		return models.UserSettings{}, nil, false, nil
	}
	entry.ID = id

	settings := entry.Settings(u.now())
	reminders := make([]models.Reminder, 0, len(entry.Reminders))
	for _, reminderEntry := range entry.Reminders {
		reminder, err := reminderEntry.Reminder(id)
		if err != nil {
			cache.GetLogger().WithField("module", "managers").Warnf(
				"skipping reminder %s of user %s with invalid id: %s", reminderEntry.ID, id, err.Error())
			continue
		}
		reminders = append(reminders, reminder)
	}
	sortReminders(reminders)

	if populate {
		u.forget(id)
		u.entities.Set(cache.KindUser, id, settings)
		for _, reminder := range reminders {
			u.entities.Set(cache.KindReminder, reminder.ID.String(), reminder)
		}
	}
	return settings, reminders, true, nil
}

// forget drops the user and its reminders from the local cache
func (u *Users) forget(id string) {
	u.entities.Delete(cache.KindUser, id)
	u.entities.DeleteWhere(cache.KindReminder, func(entity interface{}) bool {
		return entity.(models.Reminder).UserID == id
	})
}

// Set writes the supplied fields (merge) or all settings fields (replace) and returns the new settings.
// The reminders of the user are kept either way.
func (u *Users) Set(ctx context.Context, ref interface{}, data models.UserSettingsData, options SetOptions) (models.UserSettings, error) {
	id, err := resolveID(ref)
	if err != nil {
		return models.UserSettings{}, err
	}
	now := u.now()

	old := models.DefaultUserSettings(id)
	expired := make([]string, 0)
	if options.Merge {
		old, err = u.Settings(ctx, id)
		if err != nil {
			return models.UserSettings{}, err
		}
		if data.SuppressedWarnings != nil {
			expired, err = u.expiredWarnings(ctx, id, data, now)
			if err != nil {
				return models.UserSettings{}, err
			}
		}
	} else {
		expired = models.ExpiredWarnings(data.SuppressedWarnings, now)
	}

	err = u.store.UpdateUser(ctx, id, data, expired, options.Merge)
	if err != nil {
		return models.UserSettings{}, err
	}
	invalidate(ctx, u.broadcaster, cache.KindUser, id)

	var settings models.UserSettings
	if options.Merge {
		settings = old.Merge(data, now)
	} else {
		settings = data.Replace(id, now)
	}
	u.entities.Set(cache.KindUser, id, settings)

	return settings, nil
}

// expiredWarnings lists the warning kinds that are expired in the stored document or in data
func (u *Users) expiredWarnings(ctx context.Context, id string, data models.UserSettingsData, now time.Time) ([]string, error) {
	entry, _, err := u.store.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}

	warnings := make(map[string]int64, len(entry.SuppressedWarnings)+len(data.SuppressedWarnings))
	for kind, expiry := range entry.SuppressedWarnings {
		warnings[kind] = expiry
	}
	for kind, expiry := range data.SuppressedWarnings {
		warnings[kind] = expiry
	}
	return models.ExpiredWarnings(warnings, now), nil
}

// SuppressWarning hides the warning kind for the user until the given time
func (u *Users) SuppressWarning(ctx context.Context, ref interface{}, kind string, until time.Time) (models.UserSettings, error) {
	return u.Set(ctx, ref, models.UserSettingsData{
		SuppressedWarnings: map[string]int64{kind: until.UnixMilli()},
	}, DefaultSetOptions)
}

// Delete removes the document of the user including its reminders and returns the default settings
func (u *Users) Delete(ctx context.Context, ref interface{}) (models.UserSettings, error) {
	id, err := resolveID(ref)
	if err != nil {
		return models.UserSettings{}, err
	}

	err = u.store.DeleteUser(ctx, id)
	if err != nil {
		return models.UserSettings{}, err
	}
	invalidate(ctx, u.broadcaster, cache.KindUser, id)
	u.forget(id)

	return models.DefaultUserSettings(id), nil
}

func sortReminders(reminders []models.Reminder) {
	sort.SliceStable(reminders, func(i, j int) bool {
		if reminders[i].Timestamp == reminders[j].Timestamp {
			return reminders[i].ID < reminders[j].ID
		}
		return reminders[i].Timestamp < reminders[j].Timestamp
	})
}
