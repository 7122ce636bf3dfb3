package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/invalidation"
	"github.com/Seklfreak/Lumi/logging"
	"github.com/Seklfreak/Lumi/managers"
	"github.com/Seklfreak/Lumi/metrics"
	"github.com/Seklfreak/Lumi/modules"
	"github.com/Seklfreak/Lumi/modules/plugins/reminders"
	"github.com/Seklfreak/Lumi/ratelimits"
	"github.com/Seklfreak/Lumi/version"
	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
)

// BotRuntimeChannel receives the signal the bot stops on
var BotRuntimeChannel chan os.Signal

func main() {
	log := logging.New(os.Stdout, false)
	cache.SetLogger(log)

	helpers.LoadConfig("config.json")
	if helpers.ConfigBool("debug", false) {
		helpers.DEBUG_MODE = true
		log.SetLevel(logrus.DebugLevel)
	}

	if path := helpers.ConfigString("logging.jsonfile", ""); path != "" {
		fileHook, err := logging.AddFileHook(log, path)
		if err != nil {
			log.WithField("module", "launcher").Errorf("opening json log %s failed: %s", path, err.Error())
		} else {
			defer fileHook.Close()
		}
	}
	if webhook := helpers.ConfigString("logging.discord_webhook", ""); webhook != "" {
		logging.AddWebhook(log, webhook)
	}

	shard := loadShardConfig()
	log.WithField("module", "launcher").Infof("Booting Lumi shard %d/%d (main: %v)...", shard.ID, shard.Count, shard.IsMain())

	helpers.LoadTranslations()
	version.DumpInfo()

	if address := helpers.ConfigString("metrics.address", ""); address != "" {
		metricsErrors := metrics.Init(address)
		go func() {
			log.WithField("module", "metrics").Errorf("metrics server stopped: %s", (<-metricsErrors).Error())
		}()
		log.WithField("module", "launcher").Info("Serving metrics on " + address)
	}

	if dsn := helpers.ConfigString("sentry", ""); dsn != "" {
		helpers.Relax(raven.SetDSN(dsn))
		raven.SetRelease(version.BOT_VERSION)
		log.WithField("module", "launcher").Info("Reporting errors to sentry")
	}

	if address := helpers.ConfigString("redis.address", ""); address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     address,
			Password: helpers.ConfigString("redis.password", ""),
			DB:       helpers.ConfigInt("redis.db", 0),
		})
		helpers.Relax(client.Ping().Err())
		cache.SetRedisClient(client)
		log.WithField("module", "launcher").Infof("Connected to redis at %s", address)
	}

	var guildStore managers.GuildStore
	var userStore managers.UserStore
	if url := helpers.ConfigString("mongodb.url", ""); url != "" {
		helpers.ConnectMDB(url, helpers.ConfigString("mongodb.db", "lumi"), helpers.ConfigDuration("mongodb.timeout", 10*time.Second))
		defer helpers.GetMDbSession().Close()

		store := managers.NewMDbStore()
		guildStore, userStore = store, store
	} else {
		log.WithField("module", "launcher").Warn("No mongodb configured, settings and reminders are kept in memory")
		store := managers.NewMemoryStore()
		guildStore, userStore = store, store
	}

	entities := cache.NewEntities()
	broadcaster := newBroadcaster(entities, shard)
	defer broadcaster.Close()

	dataManagers := managers.New(entities, broadcaster, guildStore, userStore, time.Now)

	discordgo.Logger = logging.DiscordgoLogger(log)
	log.WithField("module", "launcher").Info("Connecting Lumi to discord...")
	discord, err := discordgo.New("Bot " + helpers.ConfigString("discord.token", ""))
	helpers.Relax(err)

	discord.Lock()
	discord.Debug = false
	discord.LogLevel = discordgo.LogInformational
	discord.StateEnabled = true
	discord.ShardID = shard.ID
	discord.ShardCount = shard.Count
	discord.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsDirectMessages
	discord.Unlock()

	cache.SetSession(discord)

	var retries reminders.RetryStore
	if cache.HasRedisClient() {
		retries = reminders.NewRedisRetryStore(cache.GetRedisCacheCodec())
	} else {
		retries = reminders.NewMemoryRetryStore(time.Now)
	}

	plugins = modules.NewPluginList(modules.Dependencies{
		Managers:   dataManagers,
		Snowflakes: helpers.NewSnowflakes(shard.ID, time.Now),
		Shard:      shard,
		Notifier:   reminders.NewDiscordNotifier(discord, helpers.ConfigFloat("reminders.dm_rate", 5)),
		Retries:    retries,
		Now:        time.Now,
	})

	discord.AddHandler(BotOnReady)
	discord.AddHandler(BotOnInteractionCreate)
	discord.AddHandler(BotOnGuildMemberAdd)

	stopRatelimits := make(chan struct{})
	go ratelimits.Container.Refiller(stopRatelimits)

	if err = discord.Open(); err != nil {
		raven.CaptureErrorAndWait(err, nil)
		log.WithField("module", "launcher").Fatalf("connecting to discord failed: %s", err.Error())
	}

	BotRuntimeChannel = make(chan os.Signal, 1)
	signal.Notify(BotRuntimeChannel, os.Interrupt, syscall.SIGTERM)
	received := <-BotRuntimeChannel

	log.WithField("module", "launcher").Infof("Received %s, stopping plugins and closing the gateway", received)
	BotDestroy()
	close(stopRatelimits)
	helpers.RelaxLog(discord.Close())
}

// newBroadcaster picks the invalidation transport, a single process gets along without one
func newBroadcaster(entities *cache.Entities, shard shardConfig) invalidation.Broadcaster {
	log := cache.GetLogger().WithField("module", "launcher")
	ackTimeout := helpers.ConfigDuration("invalidation.ack_timeout", 2*time.Second)

	transport := helpers.ConfigString("invalidation.transport", "local")
	switch transport {
	case "redis":
		broadcaster, err := invalidation.NewRedis(
			cache.GetRedisClient(),
			entities,
			helpers.ConfigString("invalidation.channel", "lumi:invalidations"),
			ackTimeout,
		)
		helpers.Relax(err)
		log.Info("Broadcasting cache invalidations over redis")
		return broadcaster
	case "amqp":
		broadcaster, err := invalidation.NewAMQP(
			helpers.ConfigString("amqp.url", ""),
			helpers.ConfigString("amqp.exchange", "lumi.invalidations"),
			entities,
			shard.Count-1,
			ackTimeout,
		)
		helpers.Relax(err)
		log.Info("Broadcasting cache invalidations over amqp")
		return broadcaster
	}

	if shard.Count > 1 {
		log.Warnf("running %d shards with %s invalidations, caches of other shards will go stale", shard.Count, transport)
	}
	return invalidation.NewLocal(entities)
}
