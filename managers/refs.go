package managers

import (
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pkg/errors"
)

// resolveID turns a reference into an entity id. Accepted references are
// ids (string or snowflake), discord users, members and guilds and the settings entities.
func resolveID(ref interface{}) (string, error) {
	var id string

	switch value := ref.(type) {
	case string:
		id = value
	case snowflake.ID:
		if value != 0 {
			id = value.String()
		}
	case *discordgo.User:
		if value != nil {
			id = value.ID
		}
	case *discordgo.Member:
		if value != nil && value.User != nil {
			id = value.User.ID
		}
	case *discordgo.Guild:
		if value != nil {
			id = value.ID
		}
	case models.GuildSettings:
		id = value.ID
	case *models.GuildSettings:
		if value != nil {
			id = value.ID
		}
	case models.UserSettings:
		id = value.ID
	case *models.UserSettings:
		if value != nil {
			id = value.ID
		}
	default:
		return "", errors.Wrapf(ErrInvalidReference, "unsupported reference type %T", ref)
	}

	if id == "" {
		return "", errors.Wrapf(ErrInvalidReference, "empty reference of type %T", ref)
	}
	return id, nil
}
