package reminders

import (
	"strconv"
	"strings"
	"time"

	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/pkg/errors"
)

const (
	retryCustomIDPrefix = "reminders:retry:"

	embedColor = 0x5865F2
)

// Notification is everything needed to tell a user about a due reminder, also after the reminder is gone
type Notification struct {
	ReminderID string `msgpack:"id"`
	UserID     string `msgpack:"user"`
	Content    string `msgpack:"content"`
	// CreatedAt, DueAt and NextDueAt are epoch milliseconds, NextDueAt is 0 unless the reminder repeats
	CreatedAt int64  `msgpack:"created"`
	DueAt     int64  `msgpack:"due"`
	NextDueAt int64  `msgpack:"next,omitempty"`
	Locale    string `msgpack:"locale"`
}

func newNotification(reminder models.Reminder, locale string) Notification {
	return Notification{
		ReminderID: reminder.ID.String(),
		UserID:     reminder.UserID,
		Content:    reminder.Content,
		CreatedAt:  reminder.CreatedAt().UnixMilli(),
		DueAt:      reminder.Timestamp,
		Locale:     locale,
	}
}

// Message renders the notification as the direct message sent to the user
func (n Notification) Message() *discordgo.MessageSend {
	created := time.UnixMilli(n.CreatedAt)
	due := time.UnixMilli(n.DueAt)

	embed := &discordgo.MessageEmbed{
		Title:       helpers.GetText(n.Locale, "plugins.reminders.notification-title"),
		Description: n.Content,
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: helpers.GetText(n.Locale, "plugins.reminders.field-id"), Value: "`" + n.ReminderID + "`", Inline: true},
			{Name: helpers.GetText(n.Locale, "plugins.reminders.field-created"), Value: discordTimestamp(created, "f"), Inline: true},
			{Name: helpers.GetText(n.Locale, "plugins.reminders.field-due"), Value: discordTimestamp(due, "f"), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: helpers.GetTextF(n.Locale, "plugins.reminders.notification-footer", strings.TrimSpace(humanize.RelTime(created, due, "", ""))),
		},
		Timestamp: due.UTC().Format(time.RFC3339),
	}
	if n.NextDueAt > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   helpers.GetText(n.Locale, "plugins.reminders.field-next"),
			Value:  discordTimestamp(time.UnixMilli(n.NextDueAt), "f"),
			Inline: true,
		})
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
}

// ChannelMessage renders the notification for the channel the reminder was created in
func (n Notification) ChannelMessage() *discordgo.MessageSend {
	message := n.Message()
	message.Content = "<@" + n.UserID + ">"
	message.AllowedMentions = &discordgo.MessageAllowedMentions{Users: []string{n.UserID}}
	return message
}

// RetryOffer is posted in the channel of the reminder when the direct message failed
func (n Notification) RetryOffer() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         helpers.GetTextF(n.Locale, "plugins.reminders.retry-offer", "<@"+n.UserID+">"),
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{n.UserID}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    helpers.GetText(n.Locale, "plugins.reminders.retry-button"),
						Style:    discordgo.PrimaryButton,
						CustomID: retryCustomIDPrefix + n.ReminderID,
					},
				},
			},
		},
	}
}

// discordTimestamp renders t with the clients timezone, style is one of the discord timestamp styles
func discordTimestamp(t time.Time, style string) string {
	return "<t:" + strconv.FormatInt(t.Unix(), 10) + ":" + style + ">"
}

func newParser() *when.Parser {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)
	return parser
}

// parseDue understands durations ("90m", "1h30m") and natural language ("tomorrow at 10am", "in 2 hours")
func parseDue(parser *when.Parser, text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrTimeUnparsable
	}

	if duration, err := time.ParseDuration(strings.ReplaceAll(text, " ", "")); err == nil {
		return now.Add(duration), nil
	}

	result, err := parser.Parse(text, now)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrTimeUnparsable, err.Error())
	}
	if result == nil {
		return time.Time{}, ErrTimeUnparsable
	}
	return result.Time, nil
}

func listLine(locale string, reminder models.Reminder, now time.Time) string {
	content := reminder.Content
	if len([]rune(content)) > 80 {
		content = string([]rune(content)[:79]) + "…"
	}

	line := helpers.GetTextF(locale, "plugins.reminders.list-entry",
		reminder.ID.String(), content, discordTimestamp(reminder.DueAt(), "f"), humanize.RelTime(reminder.DueAt(), now, "ago", "from now"))
	if reminder.Recursive {
		line += " " + helpers.GetText(locale, "plugins.reminders.list-recursive")
	}
	return line
}
