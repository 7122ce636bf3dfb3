package models

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// ReminderEntry is a reminder as stored inside the reminders array of its owner's user document
type ReminderEntry struct {
	ID        string `bson:"_id"`
	Content   string `bson:"content"`
	Timestamp int64  `bson:"timestamp"`
	Recursive bool   `bson:"recursive,omitempty"`
	ChannelID string `bson:"channelId,omitempty"`
	GuildID   string `bson:"guildId,omitempty"`
}

// Reminder is the addressable reminder entity, the owner is attached on load
type Reminder struct {
	ID     snowflake.ID
	UserID string
	// Content is what the user wants to be reminded about
	Content string
	// Timestamp is the due time in epoch milliseconds
	Timestamp int64
	Recursive bool
	ChannelID string
	GuildID   string
}

// ReminderData is a write payload, nil fields were not supplied
type ReminderData struct {
	Content   *string
	Timestamp *int64
	Recursive *bool
	ChannelID *string
	GuildID   *string
}

// ReminderQuery is a structural predicate over reminders, unset fields match everything
type ReminderQuery struct {
	// TimestampLTE matches reminders due at or before the given epoch milliseconds
	TimestampLTE *int64
	// TimestampGT matches reminders due after the given epoch milliseconds
	TimestampGT *int64
	Recursive   *bool
}

// ReminderMatch is a reminder found by a cross user scan
type ReminderMatch struct {
	UserID string
	Entry  ReminderEntry
}

// Reminder attaches the owner to the stored entry
func (e ReminderEntry) Reminder(userID string) (Reminder, error) {
	id, err := snowflake.Parse(e.ID)
	if err != nil {
		return Reminder{}, err
	}
	return Reminder{
		ID:        id,
		UserID:    userID,
		Content:   e.Content,
		Timestamp: e.Timestamp,
		Recursive: e.Recursive,
		ChannelID: e.ChannelID,
		GuildID:   e.GuildID,
	}, nil
}

// Merge layers the supplied fields of data over a copy of e
func (e ReminderEntry) Merge(data ReminderData) ReminderEntry {
	if data.Content != nil {
		e.Content = *data.Content
	}
	if data.Timestamp != nil {
		e.Timestamp = *data.Timestamp
	}
	if data.Recursive != nil {
		e.Recursive = *data.Recursive
	}
	if data.ChannelID != nil {
		e.ChannelID = *data.ChannelID
	}
	if data.GuildID != nil {
		e.GuildID = *data.GuildID
	}
	return e
}

// Replace builds the entry for id from the supplied fields only
func (data ReminderData) Replace(id string) ReminderEntry {
	return ReminderEntry{ID: id}.Merge(data)
}

func (r Reminder) Entry() ReminderEntry {
	return ReminderEntry{
		ID:        r.ID.String(),
		Content:   r.Content,
		Timestamp: r.Timestamp,
		Recursive: r.Recursive,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
	}
}

// CreatedAt is recovered from the id
func (r Reminder) CreatedAt() time.Time {
	return r.ID.Time()
}

func (r Reminder) DueAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Elapsed is the interval between creation and due time in milliseconds
func (r Reminder) Elapsed() int64 {
	return r.Timestamp - r.CreatedAt().UnixMilli()
}

func (r Reminder) IsDue(now time.Time) bool {
	return r.Timestamp <= now.UnixMilli()
}

// Matches evaluates the query against a stored entry
func (q ReminderQuery) Matches(entry ReminderEntry) bool {
	if q.TimestampLTE != nil && entry.Timestamp > *q.TimestampLTE {
		return false
	}
	if q.TimestampGT != nil && entry.Timestamp <= *q.TimestampGT {
		return false
	}
	if q.Recursive != nil && entry.Recursive != *q.Recursive {
		return false
	}
	return true
}

// DueBy matches every reminder due at or before t
func DueBy(t time.Time) ReminderQuery {
	ms := t.UnixMilli()
	return ReminderQuery{TimestampLTE: &ms}
}
