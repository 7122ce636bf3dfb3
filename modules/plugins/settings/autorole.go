package settings

import (
	"context"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
)

func (s *Settings) OnGuildMemberAdd(member *discordgo.Member, session *discordgo.Session) {
	if member == nil || member.User == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	settings, err := s.managers.Guilds.Settings(ctx, member.GuildID)
	helpers.Relax(err)

	roleID, ok := autoroleFor(settings, member)
	if !ok {
		return
	}

	err = applyAutorole(ctx, session, member.GuildID, member.User.ID, roleID)
	helpers.RelaxLog(err)
}

// autoroleFor returns the role a joining member gets, false if the guild gives none to this member
func autoroleFor(settings models.GuildSettings, member *discordgo.Member) (string, bool) {
	autorole := settings.Autorole
	if autorole == nil || !autorole.Enabled || autorole.RoleID == "" {
		return "", false
	}
	if member.User != nil && member.User.Bot && !autorole.AllowBots {
		return "", false
	}
	return autorole.RoleID, true
}

// applyAutorole adds the role, a guild that took our permissions or deleted the role is not an error
func applyAutorole(ctx context.Context, session *discordgo.Session, guildID, userID, roleID string) error {
	err := session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}
	if helpers.IsDiscordCode(err, discordgo.ErrCodeMissingPermissions) ||
		helpers.IsDiscordCode(err, discordgo.ErrCodeMissingAccess) ||
		helpers.IsDiscordCode(err, discordgo.ErrCodeUnknownRole) {
		cache.GetLogger().WithField("module", "settings").WithField("guildID", guildID).Warnf(
			"giving autorole %s to %s failed: %s", roleID, userID, err.Error())
		return nil
	}
	return err
}
