package managers

import (
	"context"

	"github.com/Seklfreak/Lumi/models"
)

// GuildStore persists guild settings documents
type GuildStore interface {
	// FindGuild returns false if the guild has no document
	FindGuild(ctx context.Context, id string) (models.GuildSettings, bool, error)
	// UpdateGuild upserts the document, merge writes only the supplied fields
	UpdateGuild(ctx context.Context, id string, data models.GuildSettingsData, merge bool) error
	DeleteGuild(ctx context.Context, id string) error
}

// UserStore persists user documents including their nested reminders array
type UserStore interface {
	// FindUser returns false if the user has no document
	FindUser(ctx context.Context, id string) (models.UserEntry, bool, error)
	// UpdateUser upserts the settings fields of the document and unsets the expired warning kinds.
	// The reminders array is never touched, also not when replacing.
	UpdateUser(ctx context.Context, id string, data models.UserSettingsData, expiredWarnings []string, merge bool) error
	DeleteUser(ctx context.Context, id string) error

	// UpsertReminder updates the reminder in place if the user has it and pushes a new one otherwise.
	// Returns the stored reminder.
	UpsertReminder(ctx context.Context, userID, reminderID string, data models.ReminderData, merge bool) (models.ReminderEntry, error)
	// UpdateReminder edits the reminder in place only, returns false if the user does not have it
	UpdateReminder(ctx context.Context, userID, reminderID string, data models.ReminderData) (models.ReminderEntry, bool, error)
	// PullReminder removes the reminder, an array left empty is removed from the document.
	// Returns false if the user had no such reminder.
	PullReminder(ctx context.Context, userID, reminderID string) (bool, error)
	// FindReminders scans all users for reminders matching query
	FindReminders(ctx context.Context, query models.ReminderQuery, skipDisabledDM bool) ([]models.ReminderMatch, error)
}
