package models

const (
	GuildsTable MongoDbCollection = "guilds"
)

// GuildSettings is keyed by the guild id. A guild without a document uses the defaults,
// which is every optional block being nil.
type GuildSettings struct {
	ID                string             `bson:"_id"`
	AllowNonEphemeral *AllowNonEphemeral `bson:"allowNonEphemeral,omitempty"`
	Autorole          *Autorole          `bson:"autorole,omitempty"`
}

// AllowNonEphemeral lists the channels and roles where responses are public by default
type AllowNonEphemeral struct {
	ChannelIDs []string `bson:"channelIds"`
	RoleIDs    []string `bson:"roleIds"`
}

type Autorole struct {
	Enabled   bool   `bson:"enabled"`
	AllowBots bool   `bson:"allowBots"`
	RoleID    string `bson:"roleId"`
}

// GuildSettingsData is a write payload, nil fields were not supplied
type GuildSettingsData struct {
	AllowNonEphemeral *AllowNonEphemeral
	Autorole          *Autorole
}

// Merge layers the supplied fields of data over a copy of s
func (s GuildSettings) Merge(data GuildSettingsData) GuildSettings {
	if data.AllowNonEphemeral != nil {
		s.AllowNonEphemeral = data.AllowNonEphemeral.Copy()
	}
	if data.Autorole != nil {
		autorole := *data.Autorole
		s.Autorole = &autorole
	}
	return s
}

// Replace builds the settings for id from the supplied fields only
func (data GuildSettingsData) Replace(id string) GuildSettings {
	return GuildSettings{ID: id}.Merge(data)
}

func (a *AllowNonEphemeral) Copy() *AllowNonEphemeral {
	if a == nil {
		return nil
	}
	return &AllowNonEphemeral{
		ChannelIDs: append([]string{}, a.ChannelIDs...),
		RoleIDs:    append([]string{}, a.RoleIDs...),
	}
}

func (a *AllowNonEphemeral) HasChannel(channelID string) bool {
	if a == nil {
		return false
	}
	return containsString(a.ChannelIDs, channelID)
}

func (a *AllowNonEphemeral) HasAnyRole(roleIDs []string) bool {
	if a == nil {
		return false
	}
	for _, roleID := range roleIDs {
		if containsString(a.RoleIDs, roleID) {
			return true
		}
	}
	return false
}

// ToggleString adds value to the set if it is missing and removes it otherwise.
// Returns the new set and whether value is now a member.
func ToggleString(set []string, value string) ([]string, bool) {
	result := make([]string, 0, len(set)+1)
	removed := false
	for _, item := range set {
		if item == value {
			removed = true
			continue
		}
		result = append(result, item)
	}
	if !removed {
		result = append(result, value)
	}
	return result, !removed
}

func containsString(set []string, value string) bool {
	for _, item := range set {
		if item == value {
			return true
		}
	}
	return false
}
