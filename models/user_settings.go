package models

import (
	"time"
)

const (
	UsersTable MongoDbCollection = "users"

	DefaultAutoLocale         = true
	DefaultEphemeralResponses = true
)

// UserSettingFields are the document keys owned by the user settings, the reminders array is not one of them
var UserSettingFields = []string{
	"locale",
	"autoLocale",
	"ephemeralResponses",
	"ignoreEphemeralRoles",
	"disabledDM",
	"gameIcon",
	"suppressedWarnings",
}

// UserEntry is the stored shape of a user document
type UserEntry struct {
	ID                   string           `bson:"_id"`
	Locale               *string          `bson:"locale,omitempty"`
	AutoLocale           *bool            `bson:"autoLocale,omitempty"`
	EphemeralResponses   *bool            `bson:"ephemeralResponses,omitempty"`
	IgnoreEphemeralRoles *bool            `bson:"ignoreEphemeralRoles,omitempty"`
	DisabledDM           *bool            `bson:"disabledDM,omitempty"`
	GameIcon             *string          `bson:"gameIcon,omitempty"`
	SuppressedWarnings   map[string]int64 `bson:"suppressedWarnings,omitempty"`
	Reminders            []ReminderEntry  `bson:"reminders,omitempty"`
}

// UserSettings is the materialized user entity with defaults applied
type UserSettings struct {
	ID                   string
	Locale               string
	AutoLocale           bool
	EphemeralResponses   bool
	IgnoreEphemeralRoles bool
	DisabledDM           bool
	GameIcon             string
	// SuppressedWarnings maps a warning kind to its expiry in epoch milliseconds
	SuppressedWarnings map[string]int64
}

// UserSettingsData is a write payload, nil fields were not supplied
type UserSettingsData struct {
	Locale               *string
	AutoLocale           *bool
	EphemeralResponses   *bool
	IgnoreEphemeralRoles *bool
	DisabledDM           *bool
	GameIcon             *string
	SuppressedWarnings   map[string]int64
}

func DefaultUserSettings(id string) UserSettings {
	return UserSettings{
		ID:                 id,
		AutoLocale:         DefaultAutoLocale,
		EphemeralResponses: DefaultEphemeralResponses,
		SuppressedWarnings: map[string]int64{},
	}
}

// Settings builds the entity, expired warnings are left out
func (e UserEntry) Settings(now time.Time) UserSettings {
	settings := DefaultUserSettings(e.ID)
	return settings.Merge(UserSettingsData{
		Locale:               e.Locale,
		AutoLocale:           e.AutoLocale,
		EphemeralResponses:   e.EphemeralResponses,
		IgnoreEphemeralRoles: e.IgnoreEphemeralRoles,
		DisabledDM:           e.DisabledDM,
		GameIcon:             e.GameIcon,
		SuppressedWarnings:   e.SuppressedWarnings,
	}, now)
}

// Merge layers the supplied fields of data over a copy of s.
// Suppressed warnings are merged per kind and expired kinds are dropped.
func (s UserSettings) Merge(data UserSettingsData, now time.Time) UserSettings {
	if data.Locale != nil {
		s.Locale = *data.Locale
	}
	if data.AutoLocale != nil {
		s.AutoLocale = *data.AutoLocale
	}
	if data.EphemeralResponses != nil {
		s.EphemeralResponses = *data.EphemeralResponses
	}
	if data.IgnoreEphemeralRoles != nil {
		s.IgnoreEphemeralRoles = *data.IgnoreEphemeralRoles
	}
	if data.DisabledDM != nil {
		s.DisabledDM = *data.DisabledDM
	}
	if data.GameIcon != nil {
		s.GameIcon = *data.GameIcon
	}

	warnings := make(map[string]int64, len(s.SuppressedWarnings)+len(data.SuppressedWarnings))
	for kind, expiry := range s.SuppressedWarnings {
		warnings[kind] = expiry
	}
	for kind, expiry := range data.SuppressedWarnings {
		warnings[kind] = expiry
	}
	for _, kind := range ExpiredWarnings(warnings, now) {
		delete(warnings, kind)
	}
	s.SuppressedWarnings = warnings
	return s
}

// Replace builds the settings for id from the supplied fields only
func (data UserSettingsData) Replace(id string, now time.Time) UserSettings {
	return DefaultUserSettings(id).Merge(data, now)
}

// WarningSuppressed reports whether kind is suppressed and not yet expired at now
func (s UserSettings) WarningSuppressed(kind string, now time.Time) bool {
	expiry, ok := s.SuppressedWarnings[kind]
	return ok && expiry > now.UnixMilli()
}

// ExpiredWarnings returns the kinds whose expiry is at or before now
func ExpiredWarnings(warnings map[string]int64, now time.Time) []string {
	expired := make([]string, 0)
	for kind, expiry := range warnings {
		if expiry <= now.UnixMilli() {
			expired = append(expired, kind)
		}
	}
	return expired
}
