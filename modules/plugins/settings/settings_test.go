package settings

import (
	"testing"

	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
)

func boolOption(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func roleOption(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionRole, Value: id}
}

func TestAutoroleFor(t *testing.T) {
	human := &discordgo.Member{GuildID: "1", User: &discordgo.User{ID: "100"}}
	bot := &discordgo.Member{GuildID: "1", User: &discordgo.User{ID: "101", Bot: true}}

	tests := []struct {
		name     string
		autorole *models.Autorole
		member   *discordgo.Member
		role     string
		ok       bool
	}{
		{"no autorole", nil, human, "", false},
		{"disabled", &models.Autorole{RoleID: "5"}, human, "", false},
		{"enabled", &models.Autorole{Enabled: true, RoleID: "5"}, human, "5", true},
		{"enabled without role", &models.Autorole{Enabled: true}, human, "", false},
		{"bot not allowed", &models.Autorole{Enabled: true, RoleID: "5"}, bot, "", false},
		{"bot allowed", &models.Autorole{Enabled: true, AllowBots: true, RoleID: "5"}, bot, "5", true},
	}

	for _, test := range tests {
		role, ok := autoroleFor(models.GuildSettings{ID: "1", Autorole: test.autorole}, test.member)
		if role != test.role || ok != test.ok {
			t.Fatalf("%s: expected %q %v, got %q %v", test.name, test.role, test.ok, role, ok)
		}
	}
}

func TestMergeAutorole(t *testing.T) {
	autorole, err := mergeAutorole(nil, map[string]*discordgo.ApplicationCommandInteractionDataOption{
		"role": roleOption("role", "5"),
	})
	if err != nil {
		t.Fatalf("merging failed: %s", err.Error())
	}
	if !autorole.Enabled || autorole.RoleID != "5" || autorole.AllowBots {
		t.Fatalf("expected picking a role to enable the autorole, got %#v", autorole)
	}

	autorole, err = mergeAutorole(autorole, map[string]*discordgo.ApplicationCommandInteractionDataOption{
		"enabled": boolOption("enabled", false),
	})
	if err != nil || autorole.Enabled || autorole.RoleID != "5" {
		t.Fatalf("expected disabling to keep the role, got %#v %v", autorole, err)
	}

	_, err = mergeAutorole(nil, map[string]*discordgo.ApplicationCommandInteractionDataOption{
		"enabled": boolOption("enabled", true),
	})
	if err != ErrRoleRequired {
		t.Fatalf("expected enabling without role to fail, got %v", err)
	}
}

func TestToggleVisibility(t *testing.T) {
	current := &models.AllowNonEphemeral{ChannelIDs: []string{"10"}, RoleIDs: []string{"20"}}

	toggled := toggleVisibility(current, "10", "21")
	if len(toggled.ChannelIDs) != 0 {
		t.Fatalf("expected channel 10 to be removed, got %v", toggled.ChannelIDs)
	}
	if len(toggled.RoleIDs) != 2 || toggled.RoleIDs[1] != "21" {
		t.Fatalf("expected role 21 to be added, got %v", toggled.RoleIDs)
	}
	if len(current.ChannelIDs) != 1 || len(current.RoleIDs) != 1 {
		t.Fatalf("expected the current settings to stay untouched")
	}

	toggled = toggleVisibility(nil, "11", "")
	if len(toggled.ChannelIDs) != 1 || toggled.ChannelIDs[0] != "11" || len(toggled.RoleIDs) != 0 {
		t.Fatalf("expected only channel 11, got %#v", toggled)
	}
}

func TestUserSettingsData(t *testing.T) {
	if _, changed := userSettingsData(map[string]*discordgo.ApplicationCommandInteractionDataOption{}); changed {
		t.Fatalf("expected no options to change nothing")
	}

	data, changed := userSettingsData(map[string]*discordgo.ApplicationCommandInteractionDataOption{
		"ephemeral":   boolOption("ephemeral", false),
		"disabled-dm": boolOption("disabled-dm", true),
	})
	if !changed || data.EphemeralResponses == nil || *data.EphemeralResponses || data.DisabledDM == nil || !*data.DisabledDM {
		t.Fatalf("unexpected data %#v", data)
	}
	if data.Locale != nil || data.AutoLocale != nil || data.IgnoreEphemeralRoles != nil {
		t.Fatalf("expected options that were not supplied to stay nil")
	}
}

func TestRequireManager(t *testing.T) {
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "100"}}}
	if err := requireManager(dm); err != ErrGuildOnly {
		t.Fatalf("expected guild only, got %v", err)
	}

	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		GuildID: "1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "100"}, Permissions: discordgo.PermissionSendMessages},
	}}
	if err := requireManager(member); err != ErrMissingPermission {
		t.Fatalf("expected missing permission, got %v", err)
	}

	member.Member.Permissions |= discordgo.PermissionManageGuild
	if err := requireManager(member); err != nil {
		t.Fatalf("expected managers to pass, got %v", err)
	}
}
