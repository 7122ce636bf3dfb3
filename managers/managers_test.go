package managers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/invalidation"
	"github.com/Seklfreak/Lumi/models"
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pkg/errors"
)

// recordingBroadcaster deletes locally like invalidation.Local and remembers what it was asked to invalidate
type recordingBroadcaster struct {
	*invalidation.Local
	mutex         sync.Mutex
	invalidations []string
}

func (b *recordingBroadcaster) Invalidate(ctx context.Context, kind cache.Kind, id string) error {
	b.mutex.Lock()
	b.invalidations = append(b.invalidations, string(kind)+":"+id)
	b.mutex.Unlock()
	return b.Local.Invalidate(ctx, kind, id)
}

func (b *recordingBroadcaster) invalidated(key string) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, recorded := range b.invalidations {
		if recorded == key {
			return true
		}
	}
	return false
}

type fixture struct {
	entities    *cache.Entities
	broadcaster *recordingBroadcaster
	store       *MemoryStore
	managers    *Managers
	now         time.Time
}

func newFixture() *fixture {
	f := &fixture{
		entities: cache.NewEntities(),
		store:    NewMemoryStore(),
		now:      time.UnixMilli(1700000000000),
	}
	f.broadcaster = &recordingBroadcaster{Local: invalidation.NewLocal(f.entities)}
	f.managers = New(f.entities, f.broadcaster, f.store, f.store, func() time.Time { return f.now })
	return f
}

func stringPointer(value string) *string { return &value }
func boolPointer(value bool) *bool       { return &value }
func int64Pointer(value int64) *int64    { return &value }

func TestResolveID(t *testing.T) {
	tests := []struct {
		ref  interface{}
		want string
	}{
		{"1", "1"},
		{snowflake.ID(2), "2"},
		{&discordgo.User{ID: "3"}, "3"},
		{&discordgo.Member{User: &discordgo.User{ID: "4"}}, "4"},
		{&discordgo.Guild{ID: "5"}, "5"},
		{models.GuildSettings{ID: "6"}, "6"},
		{&models.UserSettings{ID: "7"}, "7"},
	}
	for _, test := range tests {
		got, err := resolveID(test.ref)
		if err != nil || got != test.want {
			t.Fatalf("resolveID(%T) = %q, %v; want %q", test.ref, got, err, test.want)
		}
	}

	for _, ref := range []interface{}{"", 42, nil, (*discordgo.User)(nil), &discordgo.Member{}} {
		if _, err := resolveID(ref); errors.Cause(err) != ErrInvalidReference {
			t.Fatalf("resolveID(%#v) error = %v, want ErrInvalidReference", ref, err)
		}
	}
}

func TestInvalidReferenceFailsBeforeStore(t *testing.T) {
	f := newFixture()

	_, err := f.managers.Guilds.Set(context.Background(), 42, models.GuildSettingsData{}, DefaultSetOptions)
	if errors.Cause(err) != ErrInvalidReference {
		t.Fatalf("Guilds.Set() error = %v, want ErrInvalidReference", err)
	}
	if len(f.store.guilds) != 0 || len(f.broadcaster.invalidations) != 0 {
		t.Fatalf("Guilds.Set() touched the store or broadcasted with an invalid reference")
	}
}

func TestGuildWriteIsVisibleLocally(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	settings, err := f.managers.Guilds.Set(ctx, "10", models.GuildSettingsData{
		Autorole: &models.Autorole{Enabled: true, RoleID: "30"},
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Guilds.Set() error: %v", err)
	}
	if !f.broadcaster.invalidated("guild:10") {
		t.Fatalf("Guilds.Set() did not broadcast an invalidation")
	}

	// the cached entity must be served without asking the store
	delete(f.store.guilds, "10")
	fetched, found, err := f.managers.Guilds.Fetch(ctx, "10", DefaultFetchOptions)
	if err != nil || !found {
		t.Fatalf("Guilds.Fetch() = %v, %v; want cached settings", found, err)
	}
	if fetched.Autorole.RoleID != settings.Autorole.RoleID {
		t.Fatalf("Guilds.Fetch() = %+v, want %+v", fetched, settings)
	}

	_, found, _ = f.managers.Guilds.Fetch(ctx, "10", FetchOptions{Cache: true, Force: true})
	if found {
		t.Fatalf("Guilds.Fetch(Force) served the cache")
	}
}

func TestGuildMergeAndReplace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.managers.Guilds.Set(ctx, "10", models.GuildSettingsData{
		AllowNonEphemeral: &models.AllowNonEphemeral{ChannelIDs: []string{"20"}},
		Autorole:          &models.Autorole{Enabled: true, RoleID: "30"},
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Guilds.Set() error: %v", err)
	}

	merged, err := f.managers.Guilds.Set(ctx, "10", models.GuildSettingsData{
		Autorole: &models.Autorole{Enabled: false, RoleID: "31"},
	}, SetOptions{Merge: true})
	if err != nil {
		t.Fatalf("Guilds.Set(merge) error: %v", err)
	}
	if !merged.AllowNonEphemeral.HasChannel("20") || merged.Autorole.RoleID != "31" {
		t.Fatalf("Guilds.Set(merge) = %+v, want channel 20 kept and role 31", merged)
	}

	replaced, err := f.managers.Guilds.Set(ctx, "10", models.GuildSettingsData{
		Autorole: &models.Autorole{Enabled: true, RoleID: "32"},
	}, SetOptions{Merge: false})
	if err != nil {
		t.Fatalf("Guilds.Set(replace) error: %v", err)
	}
	if replaced.AllowNonEphemeral != nil {
		t.Fatalf("Guilds.Set(replace) kept allowNonEphemeral: %+v", replaced.AllowNonEphemeral)
	}

	stored, _, _ := f.store.FindGuild(ctx, "10")
	if stored.AllowNonEphemeral != nil || stored.Autorole.RoleID != "32" {
		t.Fatalf("stored guild after replace = %+v", stored)
	}

	deleted, err := f.managers.Guilds.Delete(ctx, &discordgo.Guild{ID: "10"})
	if err != nil || deleted.Autorole != nil {
		t.Fatalf("Guilds.Delete() = %+v, %v; want defaults", deleted, err)
	}
	if _, found, _ := f.managers.Guilds.Fetch(ctx, "10", DefaultFetchOptions); found {
		t.Fatalf("Guilds.Fetch() found a deleted guild")
	}
}

func TestUserReplaceKeepsReminders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id := snowflake.New(f.now)
	_, err := f.managers.Reminders.Set(ctx, id, "1", models.ReminderData{
		Content:   stringPointer("drink water"),
		Timestamp: int64Pointer(f.now.Add(time.Hour).UnixMilli()),
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Reminders.Set() error: %v", err)
	}

	_, err = f.managers.Users.Set(ctx, "1", models.UserSettingsData{Locale: stringPointer("de")}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Users.Set(merge) error: %v", err)
	}
	replaced, err := f.managers.Users.Set(ctx, "1", models.UserSettingsData{DisabledDM: boolPointer(true)}, SetOptions{Merge: false})
	if err != nil {
		t.Fatalf("Users.Set(replace) error: %v", err)
	}
	if replaced.Locale != "" || !replaced.DisabledDM || replaced.EphemeralResponses != models.DefaultEphemeralResponses {
		t.Fatalf("Users.Set(replace) = %+v", replaced)
	}

	reminders, err := f.managers.Reminders.FetchAll(ctx, "1", FetchOptions{Cache: true, Force: true})
	if err != nil || len(reminders) != 1 || reminders[0].ID != id {
		t.Fatalf("Reminders.FetchAll() after replace = %v, %v; want the reminder kept", reminders, err)
	}
}

func TestSuppressedWarningsArePurged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.managers.Users.SuppressWarning(ctx, "1", "old", f.now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Users.SuppressWarning() error: %v", err)
	}

	f.now = f.now.Add(2 * time.Minute)
	settings, err := f.managers.Users.SuppressWarning(ctx, "1", "new", f.now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Users.SuppressWarning() error: %v", err)
	}
	if settings.WarningSuppressed("old", f.now) || !settings.WarningSuppressed("new", f.now) {
		t.Fatalf("Users.SuppressWarning() = %v", settings.SuppressedWarnings)
	}

	stored, _, _ := f.store.FindUser(ctx, "1")
	if _, ok := stored.SuppressedWarnings["old"]; ok {
		t.Fatalf("expired warning was not removed from the store: %v", stored.SuppressedWarnings)
	}
}

func TestReminderLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := &discordgo.User{ID: "1"}

	if _, err := f.managers.Users.Settings(ctx, user); err != nil {
		t.Fatalf("Users.Settings() error: %v", err)
	}

	id := snowflake.New(f.now)
	reminder, err := f.managers.Reminders.Set(ctx, id, user, models.ReminderData{
		Content:   stringPointer("drink water"),
		Timestamp: int64Pointer(f.now.Add(3 * time.Minute).UnixMilli()),
		ChannelID: stringPointer("50"),
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Reminders.Set() error: %v", err)
	}
	if reminder.UserID != "1" || reminder.Elapsed() != 180000 {
		t.Fatalf("Reminders.Set() = %+v", reminder)
	}
	if !f.broadcaster.invalidated("reminder:"+id.String()) || !f.broadcaster.invalidated("user:1") {
		t.Fatalf("Reminders.Set() did not invalidate the reminder and its owner: %v", f.broadcaster.invalidations)
	}

	edited, err := f.managers.Reminders.Set(ctx, id, user, models.ReminderData{Recursive: boolPointer(true)}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Reminders.Set(merge) error: %v", err)
	}
	if !edited.Recursive || edited.Content != "drink water" || edited.ChannelID != "50" {
		t.Fatalf("Reminders.Set(merge) = %+v", edited)
	}

	fetched, found, err := f.managers.Reminders.Fetch(ctx, user, id, DefaultFetchOptions)
	if err != nil || !found || !fetched.Recursive {
		t.Fatalf("Reminders.Fetch() = %+v, %v, %v", fetched, found, err)
	}
	if _, found, _ := f.managers.Reminders.Fetch(ctx, "2", id, DefaultFetchOptions); found {
		t.Fatalf("Reminders.Fetch() returned the reminder for another user")
	}

	if err := f.managers.Reminders.Delete(ctx, id, user); err != nil {
		t.Fatalf("Reminders.Delete() error: %v", err)
	}
	if _, found, _ := f.managers.Reminders.Fetch(ctx, user, id, DefaultFetchOptions); found {
		t.Fatalf("Reminders.Fetch() found a deleted reminder")
	}
	if err := f.managers.Reminders.Delete(ctx, id, user); errors.Cause(err) != ErrNotFound {
		t.Fatalf("Reminders.Delete() twice error = %v, want ErrNotFound", err)
	}

	stored, _, _ := f.store.FindUser(ctx, "1")
	if stored.Reminders != nil {
		t.Fatalf("empty reminders array was kept: %v", stored.Reminders)
	}
}

func TestFindIsExact(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cutoff := f.now.Add(time.Hour)

	timestamps := map[string]time.Time{
		"1": cutoff.Add(-time.Millisecond),
		"2": cutoff,
		"3": cutoff.Add(time.Millisecond),
	}
	ids := make(map[string]snowflake.ID)
	for userID, due := range timestamps {
		id := snowflake.New(f.now) + snowflake.ID(len(ids)+1)
		ids[userID] = id
		_, err := f.managers.Reminders.Set(ctx, id, userID, models.ReminderData{
			Content:   stringPointer("reminder of " + userID),
			Timestamp: int64Pointer(due.UnixMilli()),
		}, DefaultSetOptions)
		if err != nil {
			t.Fatalf("Reminders.Set() error: %v", err)
		}
	}
	_, err := f.managers.Users.Set(ctx, "1", models.UserSettingsData{DisabledDM: boolPointer(true)}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Users.Set() error: %v", err)
	}

	due, err := f.managers.Reminders.Find(ctx, models.DueBy(cutoff), FindOptions{})
	if err != nil {
		t.Fatalf("Reminders.Find() error: %v", err)
	}
	if len(due) != 2 || due[0].ID != ids["1"] || due[1].ID != ids["2"] {
		t.Fatalf("Reminders.Find(<= cutoff) = %+v, want the reminders of users 1 and 2", due)
	}
	if due[0].UserID != "1" || due[1].UserID != "2" {
		t.Fatalf("Reminders.Find() did not attach the owners: %+v", due)
	}

	reachable, err := f.managers.Reminders.Find(ctx, models.DueBy(cutoff), FindOptions{SkipDisabledDM: true})
	if err != nil || len(reachable) != 1 || reachable[0].UserID != "2" {
		t.Fatalf("Reminders.Find(SkipDisabledDM) = %+v, %v", reachable, err)
	}
}

func TestUserDeleteDropsReminders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id := snowflake.New(f.now)
	_, err := f.managers.Reminders.Set(ctx, id, "1", models.ReminderData{
		Content:   stringPointer("drink water"),
		Timestamp: int64Pointer(f.now.Add(time.Hour).UnixMilli()),
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Reminders.Set() error: %v", err)
	}
	if _, err := f.managers.Reminders.FetchAll(ctx, "1", DefaultFetchOptions); err != nil {
		t.Fatalf("Reminders.FetchAll() error: %v", err)
	}

	if _, err := f.managers.Users.Delete(ctx, "1"); err != nil {
		t.Fatalf("Users.Delete() error: %v", err)
	}
	if f.entities.Len(cache.KindReminder) != 0 {
		t.Fatalf("Users.Delete() left %d reminders cached", f.entities.Len(cache.KindReminder))
	}
	reminders, err := f.managers.Reminders.FetchAll(ctx, "1", DefaultFetchOptions)
	if err != nil || len(reminders) != 0 {
		t.Fatalf("Reminders.FetchAll() after delete = %v, %v", reminders, err)
	}
}

func TestReminderEditNeverAdds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id := snowflake.New(f.now)
	if _, err := f.managers.Reminders.Edit(ctx, id, "1", models.ReminderData{Content: stringPointer("drink tea")}); errors.Cause(err) != ErrNotFound {
		t.Fatalf("Reminders.Edit(missing) error = %v, want ErrNotFound", err)
	}
	if _, found, _ := f.store.FindUser(ctx, "1"); found {
		t.Fatalf("Reminders.Edit(missing) created a user document")
	}

	_, err := f.managers.Reminders.Set(ctx, id, "1", models.ReminderData{
		Content:   stringPointer("drink water"),
		Timestamp: int64Pointer(f.now.Add(time.Hour).UnixMilli()),
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Reminders.Set() error: %v", err)
	}

	edited, err := f.managers.Reminders.Edit(ctx, id, "1", models.ReminderData{Content: stringPointer("drink tea")})
	if err != nil || edited.Content != "drink tea" || edited.Timestamp != f.now.Add(time.Hour).UnixMilli() {
		t.Fatalf("Reminders.Edit() = %+v, %v", edited, err)
	}
	if !f.broadcaster.invalidated("reminder:" + id.String()) {
		t.Fatalf("Reminders.Edit() did not invalidate the reminder")
	}
}

func TestInvocation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	interaction := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		GuildID:   "10",
		ChannelID: "20",
		Locale:    discordgo.Locale("de"),
		Member:    &discordgo.Member{User: &discordgo.User{ID: "1"}, Roles: []string{"30"}},
	}}

	invocation, err := f.managers.Invocation(ctx, interaction)
	if err != nil {
		t.Fatalf("Invocation() error: %v", err)
	}
	if invocation.Locale != "de" || invocation.User.Locale != "de" {
		t.Fatalf("Invocation() did not adopt the client locale: %+v", invocation)
	}
	if invocation.Guild == nil || !invocation.Ephemeral {
		t.Fatalf("Invocation() = %+v, want guild settings and an ephemeral answer", invocation)
	}

	_, err = f.managers.Guilds.Set(ctx, "10", models.GuildSettingsData{
		AllowNonEphemeral: &models.AllowNonEphemeral{RoleIDs: []string{"30"}},
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Guilds.Set() error: %v", err)
	}
	invocation, err = f.managers.Invocation(ctx, interaction)
	if err != nil || invocation.Ephemeral {
		t.Fatalf("Invocation() = %+v, %v, want a public answer for the allowed role", invocation, err)
	}

	_, err = f.managers.Users.Set(ctx, "1", models.UserSettingsData{AutoLocale: boolPointer(false), Locale: stringPointer("en-US")}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Users.Set() error: %v", err)
	}
	invocation, err = f.managers.Invocation(ctx, interaction)
	if err != nil || invocation.Locale != "en-US" {
		t.Fatalf("Invocation() = %+v, %v, want the stored locale to win without autoLocale", invocation, err)
	}
}

// fanOutBroadcaster deletes in the caches of every shard, like the redis and amqp transports do.
// during runs once inside the first invalidation, while the writer waits for the other shards.
type fanOutBroadcaster struct {
	mutex  sync.Mutex
	caches []*cache.Entities
	during func()
}

func (b *fanOutBroadcaster) Invalidate(ctx context.Context, kind cache.Kind, id string) error {
	b.mutex.Lock()
	caches := b.caches
	during := b.during
	b.during = nil
	b.mutex.Unlock()

	for _, entities := range caches {
		entities.Delete(kind, id)
	}
	if during != nil {
		during()
	}
	return nil
}

func (b *fanOutBroadcaster) Close() error {
	return nil
}

func newShards() (*Managers, *Managers, *fanOutBroadcaster) {
	store := NewMemoryStore()
	now := func() time.Time { return time.UnixMilli(1700000000000) }
	first, second := cache.NewEntities(), cache.NewEntities()
	broadcaster := &fanOutBroadcaster{caches: []*cache.Entities{first, second}}
	return New(first, broadcaster, store, store, now), New(second, broadcaster, store, store, now), broadcaster
}

func TestWriteIsVisibleOnOtherShard(t *testing.T) {
	a, b, _ := newShards()
	ctx := context.Background()

	if _, err := a.Users.Set(ctx, "1", models.UserSettingsData{Locale: stringPointer("en-US")}, DefaultSetOptions); err != nil {
		t.Fatalf("Users.Set() error: %v", err)
	}
	if settings, found, err := b.Users.Fetch(ctx, "1", DefaultFetchOptions); err != nil || !found || settings.Locale != "en-US" {
		t.Fatalf("b.Users.Fetch() = %+v, %v, %v", settings, found, err)
	}

	if _, err := a.Users.Set(ctx, "1", models.UserSettingsData{Locale: stringPointer("de")}, DefaultSetOptions); err != nil {
		t.Fatalf("Users.Set() error: %v", err)
	}
	if settings, _, _ := b.Users.Fetch(ctx, "1", DefaultFetchOptions); settings.Locale != "de" {
		t.Fatalf("b.Users.Fetch() served %q after a write on a, expected de", settings.Locale)
	}

	id := snowflake.New(time.UnixMilli(1700000000000))
	_, err := a.Reminders.Set(ctx, id, "1", models.ReminderData{
		Content:   stringPointer("drink water"),
		Timestamp: int64Pointer(1700000180000),
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Reminders.Set() error: %v", err)
	}
	reminders, err := b.Reminders.FetchAll(ctx, "1", DefaultFetchOptions)
	if err != nil || len(reminders) != 1 || reminders[0].ID != id {
		t.Fatalf("b.Reminders.FetchAll() = %+v, %v", reminders, err)
	}
}

func TestReminderWriteKeepsConcurrentUserWrite(t *testing.T) {
	ctx := context.Background()
	id := snowflake.New(time.UnixMilli(1700000000000))
	data := models.ReminderData{
		Content:   stringPointer("drink water"),
		Timestamp: int64Pointer(1700000180000),
	}

	writes := []struct {
		name  string
		write func(m *Managers) error
	}{
		{"set", func(m *Managers) error {
			_, err := m.Reminders.Set(ctx, id, "1", models.ReminderData{Recursive: boolPointer(true)}, DefaultSetOptions)
			return err
		}},
		{"edit", func(m *Managers) error {
			_, err := m.Reminders.Edit(ctx, id, "1", models.ReminderData{Content: stringPointer("stretch")})
			return err
		}},
		{"delete", func(m *Managers) error {
			return m.Reminders.Delete(ctx, id, "1")
		}},
	}

	for _, test := range writes {
		a, b, broadcaster := newShards()
		if _, err := a.Reminders.Set(ctx, id, "1", data, DefaultSetOptions); err != nil {
			t.Fatalf("%s: Reminders.Set() error: %v", test.name, err)
		}
		if _, found, err := a.Users.Fetch(ctx, "1", DefaultFetchOptions); err != nil || !found {
			t.Fatalf("%s: a.Users.Fetch() = %v, %v", test.name, found, err)
		}

		broadcaster.mutex.Lock()
		broadcaster.during = func() {
			if _, err := b.Users.Set(ctx, "1", models.UserSettingsData{Locale: stringPointer("de")}, DefaultSetOptions); err != nil {
				t.Fatalf("%s: b.Users.Set() error: %v", test.name, err)
			}
		}
		broadcaster.mutex.Unlock()

		if err := test.write(a); err != nil {
			t.Fatalf("%s: write error: %v", test.name, err)
		}
		settings, _, err := a.Users.Fetch(ctx, "1", DefaultFetchOptions)
		if err != nil || settings.Locale != "de" {
			t.Fatalf("%s: a.Users.Fetch() served %q, %v, expected the locale written by b", test.name, settings.Locale, err)
		}
	}
}

func TestReminderFetchOfOtherUserIsEmpty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := snowflake.New(f.now)

	if _, err := f.managers.Users.Set(ctx, "2", models.UserSettingsData{Locale: stringPointer("de")}, DefaultSetOptions); err != nil {
		t.Fatalf("Users.Set() error: %v", err)
	}
	_, err := f.managers.Reminders.Set(ctx, id, "1", models.ReminderData{
		Content:   stringPointer("drink water"),
		Timestamp: int64Pointer(f.now.Add(3 * time.Minute).UnixMilli()),
	}, DefaultSetOptions)
	if err != nil {
		t.Fatalf("Reminders.Set() error: %v", err)
	}

	reminder, found, err := f.managers.Reminders.Fetch(ctx, "2", id, DefaultFetchOptions)
	if err != nil || found || reminder.ID != 0 || reminder.Content != "" {
		t.Fatalf("Reminders.Fetch() for another user = %+v, %v, %v", reminder, found, err)
	}
}
