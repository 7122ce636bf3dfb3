package managers

import (
	"context"

	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
)

// Invocation is what a command handler needs to know about who invoked it and how to answer
type Invocation struct {
	User models.UserSettings
	// Guild is nil outside of guilds
	Guild     *models.GuildSettings
	Locale    string
	Ephemeral bool
}

// Invocation loads the settings of the invoking user and guild.
// Users with autoLocale get the locale of their client stored when it changed.
func (m *Managers) Invocation(ctx context.Context, interaction *discordgo.InteractionCreate) (Invocation, error) {
	var invocation Invocation

	user := helpers.InteractionUser(interaction)
	if user == nil {
		return invocation, ErrInvalidReference
	}

	settings, err := m.Users.Settings(ctx, user)
	if err != nil {
		return invocation, err
	}

	clientLocale := ""
	if interaction.Locale != "" {
		clientLocale = helpers.MatchLocale(string(interaction.Locale))
	}
	if settings.AutoLocale && clientLocale != "" && settings.Locale != clientLocale {
		settings, err = m.Users.Set(ctx, user, models.UserSettingsData{Locale: &clientLocale}, DefaultSetOptions)
		if err != nil {
			return invocation, err
		}
	}

	invocation.User = settings
	invocation.Locale = settings.Locale
	if invocation.Locale == "" {
		invocation.Locale = helpers.MatchLocale(clientLocale)
	}

	if interaction.GuildID != "" {
		guild, err := m.Guilds.Settings(ctx, interaction.GuildID)
		if err != nil {
			return invocation, err
		}
		invocation.Guild = &guild
	}

	invocation.Ephemeral = helpers.ShouldBeEphemeral(invocation.Guild, settings, interaction.Member, interaction.ChannelID)
	return invocation, nil
}
