package models

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

func TestUserEntrySettingsDefaults(t *testing.T) {
	settings := UserEntry{ID: "1"}.Settings(time.Now())

	if settings.ID != "1" || settings.AutoLocale != DefaultAutoLocale || settings.EphemeralResponses != DefaultEphemeralResponses {
		t.Fatalf("UserEntry.Settings() did not apply defaults: %+v", settings)
	}
	if settings.SuppressedWarnings == nil {
		t.Fatalf("UserEntry.Settings() left SuppressedWarnings nil")
	}
}

func TestUserSettingsMergeDropsExpiredWarnings(t *testing.T) {
	now := time.Unix(1700000000, 0)
	settings := UserSettings{
		ID: "1",
		SuppressedWarnings: map[string]int64{
			"expired": now.Add(-time.Minute).UnixMilli(),
			"exact":   now.UnixMilli(),
			"active":  now.Add(time.Hour).UnixMilli(),
		},
	}

	locale := "de"
	merged := settings.Merge(UserSettingsData{
		Locale:             &locale,
		SuppressedWarnings: map[string]int64{"new": now.Add(time.Minute).UnixMilli()},
	}, now)

	if merged.Locale != "de" {
		t.Fatalf("UserSettings.Merge() locale = %q, want de", merged.Locale)
	}
	if len(merged.SuppressedWarnings) != 2 {
		t.Fatalf("UserSettings.Merge() kept %v, want active and new", merged.SuppressedWarnings)
	}
	if !merged.WarningSuppressed("active", now) || !merged.WarningSuppressed("new", now) {
		t.Fatalf("UserSettings.WarningSuppressed() lost a live warning")
	}
	if merged.WarningSuppressed("exact", now) {
		t.Fatalf("UserSettings.WarningSuppressed() treated expiry == now as live")
	}
	if len(settings.SuppressedWarnings) != 3 {
		t.Fatalf("UserSettings.Merge() mutated the original snapshot")
	}
}

func TestGuildSettingsMergeAndReplace(t *testing.T) {
	old := GuildSettings{
		ID:                "10",
		AllowNonEphemeral: &AllowNonEphemeral{ChannelIDs: []string{"20"}},
		Autorole:          &Autorole{Enabled: true, RoleID: "30"},
	}

	merged := old.Merge(GuildSettingsData{Autorole: &Autorole{Enabled: false, RoleID: "31"}})
	if merged.AllowNonEphemeral == nil || !merged.AllowNonEphemeral.HasChannel("20") {
		t.Fatalf("GuildSettings.Merge() dropped a field that was not supplied")
	}
	if merged.Autorole.RoleID != "31" || merged.Autorole.Enabled {
		t.Fatalf("GuildSettings.Merge() did not apply the supplied autorole: %+v", merged.Autorole)
	}

	replaced := GuildSettingsData{Autorole: &Autorole{RoleID: "31"}}.Replace("10")
	if replaced.AllowNonEphemeral != nil || replaced.ID != "10" {
		t.Fatalf("GuildSettingsData.Replace() kept unsupplied fields: %+v", replaced)
	}
}

func TestToggleString(t *testing.T) {
	set, member := ToggleString([]string{"a"}, "b")
	if !member || len(set) != 2 {
		t.Fatalf("ToggleString() add = %v, %v", set, member)
	}
	set, member = ToggleString(set, "a")
	if member || len(set) != 1 || set[0] != "b" {
		t.Fatalf("ToggleString() remove = %v, %v", set, member)
	}
}

func TestReminderElapsedAndQuery(t *testing.T) {
	created := time.UnixMilli(1700000000000)
	reminder := Reminder{
		ID:        snowflake.New(created),
		UserID:    "1",
		Content:   "drink water",
		Timestamp: created.Add(3 * time.Minute).UnixMilli(),
	}

	if reminder.Elapsed() != 180000 {
		t.Fatalf("Reminder.Elapsed() = %d, want 180000", reminder.Elapsed())
	}
	if reminder.IsDue(created) || !reminder.IsDue(reminder.DueAt()) {
		t.Fatalf("Reminder.IsDue() wrong around the due time")
	}

	entry := reminder.Entry()
	back, err := entry.Reminder("1")
	if err != nil || back != reminder {
		t.Fatalf("ReminderEntry.Reminder() = %+v, %v; want %+v", back, err, reminder)
	}

	if !DueBy(reminder.DueAt()).Matches(entry) {
		t.Fatalf("DueBy(due).Matches() = false, want true")
	}
	if DueBy(reminder.DueAt().Add(-time.Millisecond)).Matches(entry) {
		t.Fatalf("DueBy(due-1ms).Matches() = true, want false")
	}
	recursive := true
	if (ReminderQuery{Recursive: &recursive}).Matches(entry) {
		t.Fatalf("ReminderQuery{Recursive: true}.Matches() matched a one-shot reminder")
	}
}
