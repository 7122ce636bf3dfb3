package modules

import "github.com/bwmarrin/discordgo"

type BaseModule interface{}

type Plugin interface {
	BaseModule

	// Commands are registered as application commands on the main shard
	Commands() []*discordgo.ApplicationCommand

	Init(session *discordgo.Session)

	Uninit(session *discordgo.Session)

	Action(
		session *discordgo.Session,
		interaction *discordgo.InteractionCreate,
	)
}

// ComponentPlugin also handles message components (buttons) it sent
type ComponentPlugin interface {
	Plugin

	// ComponentPrefixes are the custom id prefixes of the plugin's components
	ComponentPrefixes() []string

	OnComponent(
		session *discordgo.Session,
		interaction *discordgo.InteractionCreate,
	)
}

type ExtendedPlugin interface {
	Plugin

	OnGuildMemberAdd(
		member *discordgo.Member,
		session *discordgo.Session,
	)
}
