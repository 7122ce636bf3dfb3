package modules

import (
	"sync"
	"time"

	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/managers"
	"github.com/Seklfreak/Lumi/modules/plugins/reminders"
	"github.com/Seklfreak/Lumi/modules/plugins/settings"
)

var (
	pluginMutex        sync.RWMutex
	pluginCache        map[string]Plugin
	componentCache     map[string]ComponentPlugin
	PluginList         []Plugin
	PluginExtendedList []ExtendedPlugin
)

// Dependencies are handed to the plugins on construction
type Dependencies struct {
	Managers   *managers.Managers
	Snowflakes *helpers.Snowflakes
	Shard      reminders.Shard
	Notifier   reminders.Notifier
	Retries    reminders.RetryStore
	Now        func() time.Time
}

// NewPluginList builds every plugin of the bot
func NewPluginList(dependencies Dependencies) []Plugin {
	return []Plugin{
		reminders.New(reminders.Options{
			Managers:   dependencies.Managers,
			Snowflakes: dependencies.Snowflakes,
			Shard:      dependencies.Shard,
			Notifier:   dependencies.Notifier,
			Retries:    dependencies.Retries,
			Interval:   helpers.ConfigDuration("reminders.interval", reminders.DefaultInterval),
			RetryTTL:   helpers.ConfigDuration("reminders.retry_ttl", reminders.DefaultRetryTTL),
			Now:        dependencies.Now,
		}),
		settings.New(dependencies.Managers),
	}
}
