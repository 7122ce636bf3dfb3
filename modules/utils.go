package modules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/ratelimits"
	"github.com/bwmarrin/discordgo"
)

// Init indexes the commands and components of the plugins and initializes them
func Init(session *discordgo.Session, plugins []Plugin) {
	pluginMutex.Lock()
	defer pluginMutex.Unlock()

	PluginList = plugins
	PluginExtendedList = make([]ExtendedPlugin, 0)
	pluginCache = make(map[string]Plugin)
	componentCache = make(map[string]ComponentPlugin)

	logTemplate := "[PLUG] %T reacts to [ %s]"
	for _, plugin := range plugins {
		listeners := ""
		for _, command := range plugin.Commands() {
			if _, duplicate := pluginCache[command.Name]; duplicate {
				cache.GetLogger().WithField("module", "modules").Warnf("command %s is registered twice", command.Name)
			}
			pluginCache[command.Name] = plugin
			listeners += command.Name + " "
		}

		if componentPlugin, ok := plugin.(ComponentPlugin); ok {
			for _, prefix := range componentPlugin.ComponentPrefixes() {
				componentCache[prefix] = componentPlugin
				listeners += prefix + "* "
			}
		}
		if extendedPlugin, ok := plugin.(ExtendedPlugin); ok {
			PluginExtendedList = append(PluginExtendedList, extendedPlugin)
		}

		cache.GetLogger().WithField("module", "modules").Info(fmt.Sprintf(logTemplate, plugin, listeners))

		plugin.Init(session)
	}

	cache.GetLogger().WithField("module", "modules").Info(
		"Initializer finished. Loaded " + strconv.Itoa(len(PluginList)) + " plugins, " +
			strconv.Itoa(len(PluginExtendedList)) + " of them extended",
	)
}

// Uninit deinitializes the plugins
func Uninit(session *discordgo.Session) {
	pluginMutex.RLock()
	defer pluginMutex.RUnlock()

	for _, plugin := range PluginList {
		cache.GetLogger().WithField("module", "modules").Info(fmt.Sprintf("[PLUG] %T deinitializing…", plugin))
		plugin.Uninit(session)
	}

	cache.GetLogger().WithField("module", "modules").Info(
		"Uninit finished. Uninitialized " + strconv.Itoa(len(PluginList)) + " plugins",
	)
}

// Commands returns the application commands of all plugins
func Commands() []*discordgo.ApplicationCommand {
	pluginMutex.RLock()
	defer pluginMutex.RUnlock()

	commands := make([]*discordgo.ApplicationCommand, 0)
	for _, plugin := range PluginList {
		commands = append(commands, plugin.Commands()...)
	}
	return commands
}

// CallBotPlugin routes an interaction to the plugin owning its command or component
func CallBotPlugin(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	// Defer a recovery in case anything panics
	defer helpers.RecoverInteraction(session, interaction)

	user := helpers.InteractionUser(interaction)
	if user == nil || user.Bot {
		return
	}

	// Consume a key for this action
	if !ratelimits.Container.Drain(user.ID) {
		helpers.RelaxLog(helpers.RespondEphemeral(session, interaction,
			helpers.GetText(helpers.InteractionLocale(interaction), "bot.errors.ratelimited")))
		return
	}

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		if plugin, ok := findCommandPlugin(interaction.ApplicationCommandData().Name); ok {
			plugin.Action(session, interaction)
		}
	case discordgo.InteractionMessageComponent:
		if plugin, ok := findComponentPlugin(interaction.MessageComponentData().CustomID); ok {
			plugin.OnComponent(session, interaction)
		}
	}
}

func CallExtendedPluginOnGuildMemberAdd(member *discordgo.Member) {
	pluginMutex.RLock()
	plugins := PluginExtendedList
	pluginMutex.RUnlock()

	for _, extendedPlugin := range plugins {
		go func(plugin ExtendedPlugin) {
			defer helpers.Recover()
			plugin.OnGuildMemberAdd(member, cache.GetSession())
		}(extendedPlugin)
	}
}

func findCommandPlugin(name string) (Plugin, bool) {
	pluginMutex.RLock()
	defer pluginMutex.RUnlock()

	plugin, ok := pluginCache[name]
	return plugin, ok
}

func findComponentPlugin(customID string) (ComponentPlugin, bool) {
	pluginMutex.RLock()
	defer pluginMutex.RUnlock()

	for prefix, plugin := range componentCache {
		if strings.HasPrefix(customID, prefix) {
			return plugin, true
		}
	}
	return nil, false
}
