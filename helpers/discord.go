package helpers

import (
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
)

// InteractionUser returns the invoking user, in guilds it is taken from the member
func InteractionUser(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction == nil || interaction.Interaction == nil {
		return nil
	}
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

// Respond answers the interaction with a message
func Respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) error {
	return session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// RespondEphemeral answers the interaction with a message only the invoking user can see
func RespondEphemeral(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string) error {
	return Respond(session, interaction, &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// RespondText answers the interaction with a plain message
func RespondText(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Content: content,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return Respond(session, interaction, data)
}

// RespondEmbed answers the interaction with a single embed
func RespondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return Respond(session, interaction, data)
}

// ShouldBeEphemeral decides whether a response to the user is hidden from the rest of the channel.
// guild is nil outside of guilds.
func ShouldBeEphemeral(guild *models.GuildSettings, user models.UserSettings, member *discordgo.Member, channelID string) bool {
	if !user.EphemeralResponses {
		return false
	}
	if guild == nil {
		return true
	}
	if guild.AllowNonEphemeral.HasChannel(channelID) {
		return false
	}
	if !user.IgnoreEphemeralRoles && member != nil && guild.AllowNonEphemeral.HasAnyRole(member.Roles) {
		return false
	}
	return true
}

// CommandOptions flattens the options of the deepest subcommand of a command
// and returns the path of subcommand names that lead to it.
func CommandOptions(data discordgo.ApplicationCommandInteractionData) (path []string, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	current := data.Options
	for len(current) == 1 &&
		(current[0].Type == discordgo.ApplicationCommandOptionSubCommand ||
			current[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup) {
		path = append(path, current[0].Name)
		current = current[0].Options
	}

	options = make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(current))
	for _, option := range current {
		options[option.Name] = option
	}
	return path, options
}
