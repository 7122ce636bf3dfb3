// Except.go: Contains functions to make handling panics less PITA

package helpers

import (
	"fmt"
	"runtime"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// DEBUG_MODE is set by the launcher from the debug config key
var DEBUG_MODE = false

// Recover recover()s and logs the error
func Recover() {
	err := recover()
	if err != nil {
		cache.GetLogger().WithField("module", "except").Errorf("recovered from panic: %#v", err)
		raven.CaptureError(panicError(err), map[string]string{})
	}
}

// RecoverInteraction recover()s, reports the error and answers the interaction with a generic failure
func RecoverInteraction(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	err := recover()
	if err == nil {
		return
	}
	SendInteractionError(session, interaction, panicError(err))
}

// SendInteractionError reports err to sentry and the log and tells the user something went wrong.
// The debug build attaches the stack to the answer.
func SendInteractionError(session *discordgo.Session, interaction *discordgo.InteractionCreate, err error) {
	user := InteractionUser(interaction)
	tags := map[string]string{
		"ChannelID": interaction.ChannelID,
		"GuildID":   interaction.GuildID,
	}
	if interaction.Type == discordgo.InteractionApplicationCommand {
		tags["Command"] = interaction.ApplicationCommandData().Name
	}
	if user != nil {
		raven.SetUserContext(&raven.User{
			ID:       user.ID,
			Username: user.Username,
		})
	}
	raven.CaptureError(err, tags)

	cache.GetLogger().WithField("module", "except").WithField("channelID", interaction.ChannelID).Errorf(
		"handling interaction failed: %s", err.Error())

	content := GetText(InteractionLocale(interaction), "bot.errors.general")
	if DEBUG_MODE {
		buf := make([]byte, 1<<12)
		stackSize := runtime.Stack(buf, false)
		content += "\n```\n" + fmt.Sprintf("%#v\n", err) + string(buf[0:stackSize]) + "\n```"
	}

	// the interaction might have been answered already
	respondErr := RespondEphemeral(session, interaction, content)
	if respondErr != nil {
		_, respondErr = session.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		RelaxLog(respondErr)
	}
}

// Relax is a helper to reduce if-checks if panicking is allowed
// If $err is nil this is a no-op. Panics otherwise.
func Relax(err error) {
	if err != nil {
		if DEBUG_MODE {
			if errD, ok := err.(*discordgo.RESTError); ok && errD.Message != nil {
				cache.GetLogger().WithField("module", "except").Debugf("%d: %s", errD.Message.Code, errD.Message.Message)
			}
		}
		panic(err)
	}
}

// RelaxLog logs $err if it is not nil
func RelaxLog(err error) {
	if err != nil {
		cache.GetLogger().WithField("module", "except").Error(err.Error())
	}
}

// IsDiscordCode reports whether err is a discord REST error with the given JSON error code
func IsDiscordCode(err error, code int) bool {
	if errD, ok := errors.Cause(err).(*discordgo.RESTError); ok && errD.Message != nil {
		return errD.Message.Code == code
	}
	return false
}

func panicError(recovered interface{}) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return fmt.Errorf("%#v", recovered)
}
