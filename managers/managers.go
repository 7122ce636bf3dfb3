// Package managers is the data access layer: it resolves references, talks to the document store
// and keeps the entity cache of every shard process coherent.
package managers

import (
	"context"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/invalidation"
)

// Managers bundles the data managers sharing one entity cache and broadcaster
type Managers struct {
	Guilds    *Guilds
	Users     *Users
	Reminders *Reminders
}

// New wires the managers, now is the clock used for warning expiry
func New(entities *cache.Entities, broadcaster invalidation.Broadcaster, guildStore GuildStore, userStore UserStore, now func() time.Time) *Managers {
	if now == nil {
		now = time.Now
	}
	users := NewUsers(entities, broadcaster, userStore, now)
	return &Managers{
		Guilds:    NewGuilds(entities, broadcaster, guildStore),
		Users:     users,
		Reminders: NewReminders(entities, broadcaster, userStore, users),
	}
}

// invalidate broadcasts the delete, a failed broadcast does not fail the write
func invalidate(ctx context.Context, broadcaster invalidation.Broadcaster, kind cache.Kind, id string) {
	err := broadcaster.Invalidate(ctx, kind, id)
	if err != nil {
		cache.GetLogger().WithField("module", "managers").Warnf(
			"invalidating %s %s on other shards failed: %s", kind, id, err.Error())
	}
}
