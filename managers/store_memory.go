package managers

import (
	"context"
	"sort"
	"sync"

	"github.com/Seklfreak/Lumi/models"
)

// MemoryStore implements GuildStore and UserStore in process memory.
// It is used when no MongoDB is configured and by tests.
type MemoryStore struct {
	mutex  sync.Mutex
	guilds map[string]models.GuildSettings
	users  map[string]models.UserEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guilds: make(map[string]models.GuildSettings),
		users:  make(map[string]models.UserEntry),
	}
}

func (s *MemoryStore) FindGuild(ctx context.Context, id string) (models.GuildSettings, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.guilds[id]
	if !ok {
		return models.GuildSettings{}, false, nil
	}
	return entry.Merge(models.GuildSettingsData{
		AllowNonEphemeral: entry.AllowNonEphemeral,
		Autorole:          entry.Autorole,
	}), true, nil
}

func (s *MemoryStore) UpdateGuild(ctx context.Context, id string, data models.GuildSettingsData, merge bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if merge {
		entry := s.guilds[id].Merge(data)
		entry.ID = id
		s.guilds[id] = entry
		return nil
	}
	s.guilds[id] = data.Replace(id)
	return nil
}

func (s *MemoryStore) DeleteGuild(ctx context.Context, id string) error {
	s.mutex.Lock()
	delete(s.guilds, id)
	s.mutex.Unlock()
	return nil
}

func (s *MemoryStore) FindUser(ctx context.Context, id string) (models.UserEntry, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.users[id]
	if !ok {
		return models.UserEntry{}, false, nil
	}
	return copyUserEntry(entry), true, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, data models.UserSettingsData, expiredWarnings []string, merge bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry := copyUserEntry(s.users[id])
	entry.ID = id
	if !merge {
		entry = models.UserEntry{ID: id, Reminders: entry.Reminders}
	}

	if data.Locale != nil {
		entry.Locale = copyString(data.Locale)
	}
	if data.AutoLocale != nil {
		entry.AutoLocale = copyBool(data.AutoLocale)
	}
	if data.EphemeralResponses != nil {
		entry.EphemeralResponses = copyBool(data.EphemeralResponses)
	}
	if data.IgnoreEphemeralRoles != nil {
		entry.IgnoreEphemeralRoles = copyBool(data.IgnoreEphemeralRoles)
	}
	if data.DisabledDM != nil {
		entry.DisabledDM = copyBool(data.DisabledDM)
	}
	if data.GameIcon != nil {
		entry.GameIcon = copyString(data.GameIcon)
	}

	if entry.SuppressedWarnings == nil {
		entry.SuppressedWarnings = make(map[string]int64)
	}
	for kind, expiry := range data.SuppressedWarnings {
		entry.SuppressedWarnings[kind] = expiry
	}
	for _, kind := range expiredWarnings {
		delete(entry.SuppressedWarnings, kind)
	}
	if len(entry.SuppressedWarnings) == 0 {
		entry.SuppressedWarnings = nil
	}

	s.users[id] = entry
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mutex.Lock()
	delete(s.users, id)
	s.mutex.Unlock()
	return nil
}

func (s *MemoryStore) UpsertReminder(ctx context.Context, userID, reminderID string, data models.ReminderData, merge bool) (models.ReminderEntry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry := copyUserEntry(s.users[userID])
	entry.ID = userID

	for i, reminder := range entry.Reminders {
		if reminder.ID != reminderID {
			continue
		}
		if merge {
			entry.Reminders[i] = reminder.Merge(data)
		} else {
			entry.Reminders[i] = data.Replace(reminderID)
		}
		s.users[userID] = entry
		return entry.Reminders[i], nil
	}

	reminder := data.Replace(reminderID)
	entry.Reminders = append(entry.Reminders, reminder)
	s.users[userID] = entry
	return reminder, nil
}

func (s *MemoryStore) UpdateReminder(ctx context.Context, userID, reminderID string, data models.ReminderData) (models.ReminderEntry, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.users[userID]
	if !ok {
		return models.ReminderEntry{}, false, nil
	}
	entry = copyUserEntry(entry)

	for i, reminder := range entry.Reminders {
		if reminder.ID == reminderID {
			entry.Reminders[i] = reminder.Merge(data)
			s.users[userID] = entry
			return entry.Reminders[i], true, nil
		}
	}
	return models.ReminderEntry{}, false, nil
}

func (s *MemoryStore) PullReminder(ctx context.Context, userID, reminderID string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	entry = copyUserEntry(entry)

	reminders := make([]models.ReminderEntry, 0, len(entry.Reminders))
	for _, reminder := range entry.Reminders {
		if reminder.ID != reminderID {
			reminders = append(reminders, reminder)
		}
	}
	if len(reminders) == len(entry.Reminders) {
		return false, nil
	}
	if len(reminders) == 0 {
		reminders = nil
	}
	entry.Reminders = reminders
	s.users[userID] = entry
	return true, nil
}

func (s *MemoryStore) FindReminders(ctx context.Context, query models.ReminderQuery, skipDisabledDM bool) ([]models.ReminderMatch, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	userIDs := make([]string, 0, len(s.users))
	for id := range s.users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	matches := make([]models.ReminderMatch, 0)
	for _, id := range userIDs {
		entry := s.users[id]
		if skipDisabledDM && entry.DisabledDM != nil && *entry.DisabledDM {
			continue
		}
		for _, reminder := range entry.Reminders {
			if query.Matches(reminder) {
				matches = append(matches, models.ReminderMatch{UserID: id, Entry: reminder})
			}
		}
	}
	return matches, nil
}

func copyUserEntry(entry models.UserEntry) models.UserEntry {
	entry.Locale = copyString(entry.Locale)
	entry.AutoLocale = copyBool(entry.AutoLocale)
	entry.EphemeralResponses = copyBool(entry.EphemeralResponses)
	entry.IgnoreEphemeralRoles = copyBool(entry.IgnoreEphemeralRoles)
	entry.DisabledDM = copyBool(entry.DisabledDM)
	entry.GameIcon = copyString(entry.GameIcon)

	if entry.SuppressedWarnings != nil {
		warnings := make(map[string]int64, len(entry.SuppressedWarnings))
		for kind, expiry := range entry.SuppressedWarnings {
			warnings[kind] = expiry
		}
		entry.SuppressedWarnings = warnings
	}
	if entry.Reminders != nil {
		entry.Reminders = append([]models.ReminderEntry{}, entry.Reminders...)
	}
	return entry
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
