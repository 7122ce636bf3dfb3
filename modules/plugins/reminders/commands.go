package reminders

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/managers"
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const (
	MaxContentLength = 1000
	MaxReminders     = 25
	MinimumDelay     = time.Minute
)

var (
	ErrContentEmpty     = errors.New("reminder content is empty")
	ErrContentTooLong   = errors.New("reminder content is too long")
	ErrTimeUnparsable   = errors.New("due time not understood")
	ErrTimeInPast       = errors.New("due time is not in the future")
	ErrTimeTooClose     = errors.New("due time is too close")
	ErrTooManyReminders = errors.New("too many pending reminders")
	ErrInvalidID        = errors.New("invalid reminder id")
)

// errorKeys translate the validation errors for the user, everything else is an internal error
var errorKeys = map[error]string{
	ErrContentEmpty:      "plugins.reminders.errors.content-empty",
	ErrContentTooLong:    "plugins.reminders.errors.content-too-long",
	ErrTimeUnparsable:    "plugins.reminders.errors.time-unparsable",
	ErrTimeInPast:        "plugins.reminders.errors.time-in-past",
	ErrTimeTooClose:      "plugins.reminders.errors.time-too-close",
	ErrTooManyReminders:  "plugins.reminders.errors.too-many",
	ErrInvalidID:         "plugins.reminders.errors.invalid-id",
	managers.ErrNotFound: "plugins.reminders.errors.already-processed",
}

func (p *Plugin) Commands() []*discordgo.ApplicationCommand {
	idOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "ID of the reminder, see /reminder list",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "reminder",
			Description: "Get reminded about something",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Create a reminder",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "when",
							Description: "When to remind you, for example \"in 2 hours\" or \"tomorrow at 10am\"",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "content",
							Description: "What to remind you about",
							Required:    true,
							MaxLength:   MaxContentLength,
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "recursive",
							Description: "Repeat the reminder with the same interval",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your pending reminders",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Delete a reminder",
					Options:     []*discordgo.ApplicationCommandOption{idOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "Change the content or due time of a reminder",
					Options: []*discordgo.ApplicationCommandOption{
						idOption,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "content",
							Description: "New content",
							MaxLength:   MaxContentLength,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "when",
							Description: "New due time",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "recursive",
					Description: "Turn repeating on or off for a reminder",
					Options: []*discordgo.ApplicationCommandOption{
						idOption,
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "enabled",
							Description: "Repeat the reminder",
							Required:    true,
						},
					},
				},
			},
		},
	}
}

type createRequest struct {
	UserID    string
	ChannelID string
	GuildID   string
	When      string
	Content   string
	Recursive bool
}

// createReminder validates the request and stores the reminder.
// The due time is resolved relative to the creation time carried by the new id.
func (p *Plugin) createReminder(ctx context.Context, request createRequest) (models.Reminder, error) {
	content, err := validContent(request.Content)
	if err != nil {
		return models.Reminder{}, err
	}

	pending, err := p.managers.Reminders.FetchAll(ctx, request.UserID, managers.DefaultFetchOptions)
	if err != nil {
		return models.Reminder{}, err
	}
	if len(pending) >= MaxReminders {
		return models.Reminder{}, ErrTooManyReminders
	}

	id := p.snowflakes.Next()
	created := id.Time()
	due, err := parseDue(p.parser, request.When, created)
	if err != nil {
		return models.Reminder{}, err
	}
	if err = validDue(due, created); err != nil {
		return models.Reminder{}, err
	}

	timestamp := due.UnixMilli()
	return p.managers.Reminders.Set(ctx, id, request.UserID, models.ReminderData{
		Content:   &content,
		Timestamp: &timestamp,
		Recursive: &request.Recursive,
		ChannelID: &request.ChannelID,
		GuildID:   &request.GuildID,
	}, managers.SetOptions{Merge: false})
}

// editReminder changes content and due time of a pending reminder, empty values are left alone
func (p *Plugin) editReminder(ctx context.Context, userID, rawID, content, dueText string) (models.Reminder, error) {
	id, err := parseID(rawID)
	if err != nil {
		return models.Reminder{}, err
	}

	var data models.ReminderData
	if strings.TrimSpace(content) != "" {
		content, err = validContent(content)
		if err != nil {
			return models.Reminder{}, err
		}
		data.Content = &content
	}
	if strings.TrimSpace(dueText) != "" {
		now := p.now()
		due, err := parseDue(p.parser, dueText, now)
		if err != nil {
			return models.Reminder{}, err
		}
		if err = validDue(due, now); err != nil {
			return models.Reminder{}, err
		}
		timestamp := due.UnixMilli()
		data.Timestamp = &timestamp
	}

	return p.managers.Reminders.Edit(ctx, id, userID, data)
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrContentEmpty
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

func validDue(due, from time.Time) error {
	if !due.After(from) {
		return ErrTimeInPast
	}
	if due.Sub(from) < MinimumDelay {
		return ErrTimeTooClose
	}
	return nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.Parse(strings.Trim(strings.TrimSpace(raw), "`"))
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// answerError answers validation errors and hands everything else to the interaction recovery
func answerError(session *discordgo.Session, interaction *discordgo.InteractionCreate, locale string, err error) {
	key, ok := errorKeys[errors.Cause(err)]
	if !ok {
		helpers.Relax(err)
	}
	helpers.RelaxLog(helpers.RespondText(session, interaction, helpers.GetText(locale, key), true))
}

func (p *Plugin) actionCreate(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, user *discordgo.User, options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) {
	request := createRequest{
		UserID:    user.ID,
		ChannelID: interaction.ChannelID,
		GuildID:   interaction.GuildID,
	}
	if option, ok := options["when"]; ok {
		request.When = option.StringValue()
	}
	if option, ok := options["content"]; ok {
		request.Content = option.StringValue()
	}
	if option, ok := options["recursive"]; ok {
		request.Recursive = option.BoolValue()
	}

	reminder, err := p.createReminder(ctx, request)
	if err != nil {
		answerError(session, interaction, invocation.Locale, err)
		return
	}

	key := "plugins.reminders.created"
	if reminder.Recursive {
		key = "plugins.reminders.created-recursive"
	}
	helpers.RelaxLog(helpers.RespondText(session, interaction, helpers.GetTextF(invocation.Locale, key,
		discordTimestamp(reminder.DueAt(), "f"), discordTimestamp(reminder.DueAt(), "R"), reminder.ID.String()),
		invocation.Ephemeral))
}

func (p *Plugin) actionList(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, user *discordgo.User,
) {
	reminders, err := p.managers.Reminders.FetchAll(ctx, user.ID, managers.DefaultFetchOptions)
	helpers.Relax(err)

	if len(reminders) == 0 {
		helpers.RelaxLog(helpers.RespondText(session, interaction,
			helpers.GetText(invocation.Locale, "plugins.reminders.list-empty"), invocation.Ephemeral))
		return
	}

	now := p.now()
	lines := make([]string, 0, len(reminders))
	for _, reminder := range reminders {
		lines = append(lines, listLine(invocation.Locale, reminder, now))
	}

	helpers.RelaxLog(helpers.RespondEmbed(session, interaction, &discordgo.MessageEmbed{
		Title:       helpers.GetTextF(invocation.Locale, "plugins.reminders.list-title", humanize.Comma(int64(len(reminders)))),
		Description: strings.Join(lines, "\n"),
		Color:       embedColor,
	}, invocation.Ephemeral))
}

func (p *Plugin) actionDelete(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, user *discordgo.User, options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) {
	id, err := parseID(options["id"].StringValue())
	if err == nil {
		err = p.managers.Reminders.Delete(ctx, id, user.ID)
	}
	if err != nil {
		answerError(session, interaction, invocation.Locale, err)
		return
	}

	helpers.RelaxLog(helpers.RespondText(session, interaction,
		helpers.GetTextF(invocation.Locale, "plugins.reminders.deleted", id.String()), invocation.Ephemeral))
}

func (p *Plugin) actionEdit(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, user *discordgo.User, options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) {
	var content, dueText string
	if option, ok := options["content"]; ok {
		content = option.StringValue()
	}
	if option, ok := options["when"]; ok {
		dueText = option.StringValue()
	}
	if strings.TrimSpace(content) == "" && strings.TrimSpace(dueText) == "" {
		helpers.RelaxLog(helpers.RespondText(session, interaction,
			helpers.GetText(invocation.Locale, "plugins.reminders.edit-nothing"), true))
		return
	}

	reminder, err := p.editReminder(ctx, user.ID, options["id"].StringValue(), content, dueText)
	if err != nil {
		answerError(session, interaction, invocation.Locale, err)
		return
	}

	helpers.RelaxLog(helpers.RespondText(session, interaction, helpers.GetTextF(invocation.Locale, "plugins.reminders.edited",
		reminder.ID.String(), discordTimestamp(reminder.DueAt(), "f")), invocation.Ephemeral))
}

func (p *Plugin) actionRecursive(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, user *discordgo.User, options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) {
	enabled := options["enabled"].BoolValue()

	id, err := parseID(options["id"].StringValue())
	if err == nil {
		_, err = p.managers.Reminders.Edit(ctx, id, user.ID, models.ReminderData{Recursive: &enabled})
	}
	if err != nil {
		answerError(session, interaction, invocation.Locale, err)
		return
	}

	key := "plugins.reminders.recursive-off"
	if enabled {
		key = "plugins.reminders.recursive-on"
	}
	helpers.RelaxLog(helpers.RespondText(session, interaction,
		helpers.GetTextF(invocation.Locale, key, id.String()), invocation.Ephemeral))
}
