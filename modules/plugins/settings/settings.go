package settings

import (
	"context"
	"strings"
	"time"

	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/managers"
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const (
	commandTimeout = 10 * time.Second

	embedColor = 0x5865F2
)

var (
	ErrGuildOnly         = errors.New("command is only available in guilds")
	ErrMissingPermission = errors.New("manage server permission required")
	ErrRoleRequired      = errors.New("autorole needs a role")
)

var errorKeys = map[error]string{
	ErrGuildOnly:         "plugins.settings.errors.guild-only",
	ErrMissingPermission: "plugins.settings.errors.missing-permission",
	ErrRoleRequired:      "plugins.settings.errors.role-required",
}

// Settings lets users and guild managers change their settings and applies the guild autorole
type Settings struct {
	managers *managers.Managers
}

func New(managers *managers.Managers) *Settings {
	return &Settings{managers: managers}
}

func (s *Settings) Commands() []*discordgo.ApplicationCommand {
	locales := make([]*discordgo.ApplicationCommandOptionChoice, 0)
	for _, locale := range helpers.SupportedLocales() {
		locales = append(locales, &discordgo.ApplicationCommandOptionChoice{Name: locale, Value: locale})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "settings",
			Description: "Show or change settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "user",
					Description: "Your personal settings",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "locale",
							Description: "Language of the answers",
							Choices:     locales,
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "auto-locale",
							Description: "Follow the language of your Discord client",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "ephemeral",
							Description: "Answer only visible to you",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "ignore-ephemeral-roles",
							Description: "Ignore the roles a server made visible",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "disabled-dm",
							Description: "Post reminders in their channel instead of a direct message",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "guild",
					Description: "Settings of this server",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "autorole",
							Description: "Give new members a role",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionBoolean,
									Name:        "enabled",
									Description: "Turn the autorole on or off",
								},
								{
									Type:        discordgo.ApplicationCommandOptionRole,
									Name:        "role",
									Description: "Role to give",
								},
								{
									Type:        discordgo.ApplicationCommandOptionBoolean,
									Name:        "allow-bots",
									Description: "Also give the role to bots",
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "visibility",
							Description: "Toggle channels and roles where answers are visible to everyone",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionChannel,
									Name:        "channel",
									Description: "Channel to toggle",
								},
								{
									Type:        discordgo.ApplicationCommandOptionRole,
									Name:        "role",
									Description: "Role to toggle",
								},
							},
						},
					},
				},
			},
		},
	}
}

func (s *Settings) Init(session *discordgo.Session) {
}

func (s *Settings) Uninit(session *discordgo.Session) {
}

func (s *Settings) Action(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	invocation, err := s.managers.Invocation(ctx, interaction)
	helpers.Relax(err)

	path, options := helpers.CommandOptions(interaction.ApplicationCommandData())
	switch strings.Join(path, " ") {
	case "user":
		s.actionUser(ctx, session, interaction, invocation, options)
	case "guild autorole":
		s.actionAutorole(ctx, session, interaction, invocation, options)
	case "guild visibility":
		s.actionVisibility(ctx, session, interaction, invocation, options)
	}
}

func (s *Settings) actionUser(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) {
	settings := invocation.User
	locale := invocation.Locale
	title := "plugins.settings.user-title"

	if data, changed := userSettingsData(options); changed {
		var err error
		settings, err = s.managers.Users.Set(ctx, settings.ID, data, managers.DefaultSetOptions)
		helpers.Relax(err)
		if settings.Locale != "" {
			locale = settings.Locale
		}
		title = "plugins.settings.saved"
	}

	helpers.RelaxLog(helpers.RespondEmbed(session, interaction, userEmbed(locale, title, settings), true))
}

func (s *Settings) actionAutorole(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) {
	if err := requireManager(interaction); err != nil {
		answerError(session, interaction, invocation.Locale, err)
		return
	}

	settings := *invocation.Guild
	title := "plugins.settings.autorole-title"
	if len(options) > 0 {
		autorole, err := mergeAutorole(settings.Autorole, options)
		if err != nil {
			answerError(session, interaction, invocation.Locale, err)
			return
		}
		settings, err = s.managers.Guilds.Set(ctx, interaction.GuildID, models.GuildSettingsData{Autorole: autorole}, managers.DefaultSetOptions)
		helpers.Relax(err)
		title = "plugins.settings.saved"
	}

	helpers.RelaxLog(helpers.RespondEmbed(session, interaction, autoroleEmbed(invocation.Locale, title, settings.Autorole), true))
}

func (s *Settings) actionVisibility(
	ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate,
	invocation managers.Invocation, options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) {
	if err := requireManager(interaction); err != nil {
		answerError(session, interaction, invocation.Locale, err)
		return
	}

	settings := *invocation.Guild
	title := "plugins.settings.visibility-title"
	channelID, roleID := optionID(options, "channel"), optionID(options, "role")
	if channelID != "" || roleID != "" {
		var err error
		settings, err = s.managers.Guilds.Set(ctx, interaction.GuildID, models.GuildSettingsData{
			AllowNonEphemeral: toggleVisibility(settings.AllowNonEphemeral, channelID, roleID),
		}, managers.DefaultSetOptions)
		helpers.Relax(err)
		title = "plugins.settings.saved"
	}

	helpers.RelaxLog(helpers.RespondEmbed(session, interaction, visibilityEmbed(invocation.Locale, title, settings.AllowNonEphemeral), true))
}

// userSettingsData collects the supplied options, false if nothing was supplied.
// Picking a locale turns the automatic locale off unless auto-locale is supplied as well.
func userSettingsData(options map[string]*discordgo.ApplicationCommandInteractionDataOption) (models.UserSettingsData, bool) {
	var data models.UserSettingsData
	if option, ok := options["locale"]; ok {
		locale := helpers.MatchLocale(option.StringValue())
		autoLocale := false
		data.Locale = &locale
		data.AutoLocale = &autoLocale
	}
	if option, ok := options["auto-locale"]; ok {
		value := option.BoolValue()
		data.AutoLocale = &value
	}
	if option, ok := options["ephemeral"]; ok {
		value := option.BoolValue()
		data.EphemeralResponses = &value
	}
	if option, ok := options["ignore-ephemeral-roles"]; ok {
		value := option.BoolValue()
		data.IgnoreEphemeralRoles = &value
	}
	if option, ok := options["disabled-dm"]; ok {
		value := option.BoolValue()
		data.DisabledDM = &value
	}
	return data, len(options) > 0
}

// mergeAutorole applies the supplied options to the current autorole, an enabled autorole needs a role
func mergeAutorole(current *models.Autorole, options map[string]*discordgo.ApplicationCommandInteractionDataOption) (*models.Autorole, error) {
	autorole := models.Autorole{}
	if current != nil {
		autorole = *current
	}

	if roleID := optionID(options, "role"); roleID != "" {
		autorole.RoleID = roleID
		autorole.Enabled = true
	}
	if option, ok := options["enabled"]; ok {
		autorole.Enabled = option.BoolValue()
	}
	if option, ok := options["allow-bots"]; ok {
		autorole.AllowBots = option.BoolValue()
	}

	if autorole.Enabled && autorole.RoleID == "" {
		return nil, ErrRoleRequired
	}
	return &autorole, nil
}

// toggleVisibility returns a copy of current with channelID and roleID toggled, empty ids are left alone
func toggleVisibility(current *models.AllowNonEphemeral, channelID, roleID string) *models.AllowNonEphemeral {
	allowed := current.Copy()
	if allowed == nil {
		allowed = &models.AllowNonEphemeral{}
	}
	if channelID != "" {
		allowed.ChannelIDs, _ = models.ToggleString(allowed.ChannelIDs, channelID)
	}
	if roleID != "" {
		allowed.RoleIDs, _ = models.ToggleString(allowed.RoleIDs, roleID)
	}
	return allowed
}

func requireManager(interaction *discordgo.InteractionCreate) error {
	if interaction.GuildID == "" || interaction.Member == nil {
		return ErrGuildOnly
	}
	if interaction.Member.Permissions&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) == 0 {
		return ErrMissingPermission
	}
	return nil
}

// optionID returns the id of a role or channel option, empty if it was not supplied
func optionID(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	option, ok := options[name]
	if !ok {
		return ""
	}
	id, _ := option.Value.(string)
	return id
}

func answerError(session *discordgo.Session, interaction *discordgo.InteractionCreate, locale string, err error) {
	key, ok := errorKeys[errors.Cause(err)]
	if !ok {
		helpers.Relax(err)
	}
	helpers.RelaxLog(helpers.RespondText(session, interaction, helpers.GetText(locale, key), true))
}
