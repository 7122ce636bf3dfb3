package main

import (
	"fmt"
	"sync"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/modules"
	"github.com/bwmarrin/discordgo"
)

var (
	plugins  []modules.Plugin
	initOnce sync.Once
)

// BotOnReady gets called after the gateway connected
func BotOnReady(session *discordgo.Session, event *discordgo.Ready) {
	log := cache.GetLogger()

	log.WithField("module", "bot").Info("Connected to discord!")
	log.WithField("module", "bot").Info("Invite link: " + fmt.Sprintf(
		"https://discord.com/oauth2/authorize?client_id=%s&scope=bot%%20applications.commands&permissions=%s",
		helpers.ConfigString("discord.id", event.User.ID),
		helpers.ConfigString("discord.perms", "268435456"),
	))

	// Cache the session
	cache.SetSession(session)

	// Load and init all modules, a reconnect fires ready again
	initOnce.Do(func() {
		modules.Init(session, plugins)

		if shard := loadShardConfig(); shard.IsMain() {
			go registerCommands(session, event.User.ID)
		}
	})
}

// registerCommands replaces the global application commands with the ones of the plugins
func registerCommands(session *discordgo.Session, applicationID string) {
	defer helpers.Recover()

	commands, err := session.ApplicationCommandBulkOverwrite(applicationID, "", modules.Commands())
	if err != nil {
		cache.GetLogger().WithField("module", "bot").Errorf("registering application commands failed: %s", err.Error())
		return
	}
	cache.GetLogger().WithField("module", "bot").Infof("Registered %d application commands", len(commands))
}

func BotOnInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	modules.CallBotPlugin(session, interaction)
}

func BotOnGuildMemberAdd(session *discordgo.Session, member *discordgo.GuildMemberAdd) {
	modules.CallExtendedPluginOnGuildMemberAdd(
		member.Member,
	)
}

// BotDestroy uninitializes the plugins, stopping the reminder loop
func BotDestroy() {
	modules.Uninit(cache.GetSession())
}
