package reminders

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Notifier sends messages for the reminders
type Notifier interface {
	// Notify sends a direct message to the user
	Notify(ctx context.Context, userID string, message *discordgo.MessageSend) error
	// Post sends a message to a channel
	Post(ctx context.Context, channelID string, message *discordgo.MessageSend) error
}

// DiscordNotifier sends through the discord session, limited to a rate of messages per second
type DiscordNotifier struct {
	session *discordgo.Session
	limiter *rate.Limiter
}

func NewDiscordNotifier(session *discordgo.Session, perSecond float64) *DiscordNotifier {
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = int(perSecond) + 1
	}
	return &DiscordNotifier{
		session: session,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (n *DiscordNotifier) Notify(ctx context.Context, userID string, message *discordgo.MessageSend) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	channel, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "opening direct message channel failed")
	}
	_, err = n.session.ChannelMessageSendComplex(channel.ID, message, discordgo.WithContext(ctx))
	return errors.Wrap(err, "sending direct message failed")
}

func (n *DiscordNotifier) Post(ctx context.Context, channelID string, message *discordgo.MessageSend) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := n.session.ChannelMessageSendComplex(channelID, message, discordgo.WithContext(ctx))
	return errors.Wrap(err, "sending channel message failed")
}
