package reminders

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/managers"
	"github.com/bwmarrin/discordgo"
	"github.com/olebedev/when"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultRetryTTL = 24 * time.Hour

	commandTimeout = 10 * time.Second
)

// Options are the dependencies of the plugin
type Options struct {
	Managers   *managers.Managers
	Snowflakes *helpers.Snowflakes
	Shard      Shard
	Notifier   Notifier
	Retries    RetryStore
	Interval   time.Duration
	RetryTTL   time.Duration
	Now        func() time.Time
}

// Plugin provides the /reminder command, the retry button and runs the scheduler loop on the main shard
type Plugin struct {
	managers   *managers.Managers
	snowflakes *helpers.Snowflakes
	shard      Shard
	notifier   Notifier
	retries    RetryStore
	parser     *when.Parser
	now        func() time.Time

	delivery *Delivery
	loop     *Loop

	loopMutex sync.Mutex
	stopLoop  context.CancelFunc
	loopDone  chan struct{}
}

func New(options Options) *Plugin {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}
	if options.RetryTTL <= 0 {
		options.RetryTTL = DefaultRetryTTL
	}
	if options.Retries == nil {
		options.Retries = NewMemoryRetryStore(options.Now)
	}

	delivery := &Delivery{
		managers:   options.Managers,
		snowflakes: options.Snowflakes,
		shard:      options.Shard,
		notifier:   options.Notifier,
		retries:    options.Retries,
		retryTTL:   options.RetryTTL,
	}

	return &Plugin{
		managers:   options.Managers,
		snowflakes: options.Snowflakes,
		shard:      options.Shard,
		notifier:   options.Notifier,
		retries:    options.Retries,
		parser:     newParser(),
		now:        options.Now,
		delivery:   delivery,
		loop: &Loop{
			reminders: options.Managers.Reminders,
			delivery:  delivery,
			shard:     options.Shard,
			interval:  options.Interval,
			now:       options.Now,
		},
	}
}

func (p *Plugin) Init(session *discordgo.Session) {
	if !p.shard.IsMain() {
		cache.GetLogger().WithField("module", "reminders").Info("not the main shard, reminder loop stays off")
		return
	}

	p.loopMutex.Lock()
	defer p.loopMutex.Unlock()
	if p.stopLoop != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.stopLoop = cancel
	p.loopDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		defer helpers.Recover()
		p.loop.Run(ctx)
	}(p.loopDone)
}

// Uninit stops the loop and waits for the running cycle to finish
func (p *Plugin) Uninit(session *discordgo.Session) {
	p.loopMutex.Lock()
	defer p.loopMutex.Unlock()
	if p.stopLoop == nil {
		return
	}

	p.stopLoop()
	<-p.loopDone
	p.stopLoop = nil
}

func (p *Plugin) Action(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	invocation, err := p.managers.Invocation(ctx, interaction)
	helpers.Relax(err)

	path, options := helpers.CommandOptions(interaction.ApplicationCommandData())
	if len(path) == 0 {
		return
	}
	user := helpers.InteractionUser(interaction)

	switch path[0] {
	case "create":
		p.actionCreate(ctx, session, interaction, invocation, user, options)
	case "list":
		p.actionList(ctx, session, interaction, invocation, user)
	case "delete":
		p.actionDelete(ctx, session, interaction, invocation, user, options)
	case "edit":
		p.actionEdit(ctx, session, interaction, invocation, user, options)
	case "recursive":
		p.actionRecursive(ctx, session, interaction, invocation, user, options)
	}
}

func (p *Plugin) ComponentPrefixes() []string {
	return []string{retryCustomIDPrefix}
}

// OnComponent handles the retry button posted when a direct message failed
func (p *Plugin) OnComponent(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	locale := helpers.InteractionLocale(interaction)
	reminderID := strings.TrimPrefix(interaction.MessageComponentData().CustomID, retryCustomIDPrefix)

	key, err := p.retry(ctx, helpers.InteractionUser(interaction), reminderID)
	helpers.Relax(err)

	helpers.RelaxLog(helpers.RespondText(session, interaction, helpers.GetText(locale, key), true))
}

// retry sends the parked notification again and returns the translation key of the answer
func (p *Plugin) retry(ctx context.Context, user *discordgo.User, reminderID string) (string, error) {
	notification, found, err := p.retries.Load(reminderID)
	if err != nil {
		return "", err
	}
	if !found {
		return "plugins.reminders.retry-expired", nil
	}
	if user == nil || user.ID != notification.UserID {
		return "plugins.reminders.retry-not-owner", nil
	}

	err = p.notifier.Notify(ctx, notification.UserID, notification.Message())
	if err != nil {
		cache.GetLogger().WithField("module", "reminders").WithField("reminderID", reminderID).Warnf(
			"retrying the notification failed: %s", err.Error())
		return "plugins.reminders.retry-failed", nil
	}

	helpers.RelaxLog(p.retries.Delete(reminderID))
	return "plugins.reminders.retry-sent", nil
}
