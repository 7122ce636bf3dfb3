package settings

import (
	"strings"

	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
)

func userEmbed(locale, title string, settings models.UserSettings) *discordgo.MessageEmbed {
	userLocale := settings.Locale
	if userLocale == "" {
		userLocale = "-"
	}

	return &discordgo.MessageEmbed{
		Title: helpers.GetText(locale, title),
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: helpers.GetText(locale, "plugins.settings.user-locale"), Value: userLocale, Inline: true},
			{Name: helpers.GetText(locale, "plugins.settings.user-auto-locale"), Value: yesNo(locale, settings.AutoLocale), Inline: true},
			{Name: helpers.GetText(locale, "plugins.settings.user-ephemeral"), Value: yesNo(locale, settings.EphemeralResponses), Inline: true},
			{Name: helpers.GetText(locale, "plugins.settings.user-ignore-roles"), Value: yesNo(locale, settings.IgnoreEphemeralRoles), Inline: true},
			{Name: helpers.GetText(locale, "plugins.settings.user-disabled-dm"), Value: yesNo(locale, settings.DisabledDM), Inline: true},
		},
	}
}

func autoroleEmbed(locale, title string, autorole *models.Autorole) *discordgo.MessageEmbed {
	if autorole == nil {
		autorole = &models.Autorole{}
	}
	role := "-"
	if autorole.RoleID != "" {
		role = "<@&" + autorole.RoleID + ">"
	}

	return &discordgo.MessageEmbed{
		Title: helpers.GetText(locale, title),
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: helpers.GetText(locale, "plugins.settings.autorole-enabled"), Value: yesNo(locale, autorole.Enabled), Inline: true},
			{Name: helpers.GetText(locale, "plugins.settings.autorole-role"), Value: role, Inline: true},
			{Name: helpers.GetText(locale, "plugins.settings.autorole-allow-bots"), Value: yesNo(locale, autorole.AllowBots), Inline: true},
		},
	}
}

func visibilityEmbed(locale, title string, allowed *models.AllowNonEphemeral) *discordgo.MessageEmbed {
	if allowed == nil {
		allowed = &models.AllowNonEphemeral{}
	}

	return &discordgo.MessageEmbed{
		Title:       helpers.GetText(locale, title),
		Description: helpers.GetText(locale, "plugins.settings.visibility-description"),
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: helpers.GetText(locale, "plugins.settings.visibility-channels"), Value: mentions(locale, "<#", allowed.ChannelIDs)},
			{Name: helpers.GetText(locale, "plugins.settings.visibility-roles"), Value: mentions(locale, "<@&", allowed.RoleIDs)},
		},
	}
}

func mentions(locale, prefix string, ids []string) string {
	if len(ids) == 0 {
		return helpers.GetText(locale, "plugins.settings.none")
	}
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, prefix+id+">")
	}
	return strings.Join(mentions, " ")
}

func yesNo(locale string, value bool) string {
	if value {
		return helpers.GetText(locale, "bot.yes")
	}
	return helpers.GetText(locale, "bot.no")
}
