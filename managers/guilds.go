package managers

import (
	"context"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/invalidation"
	"github.com/Seklfreak/Lumi/models"
)

// Guilds manages guild settings
type Guilds struct {
	entities    *cache.Entities
	broadcaster invalidation.Broadcaster
	store       GuildStore
}

func NewGuilds(entities *cache.Entities, broadcaster invalidation.Broadcaster, store GuildStore) *Guilds {
	return &Guilds{
		entities:    entities,
		broadcaster: broadcaster,
		store:       store,
	}
}

// Fetch returns the settings of the guild, false if the guild has no document
func (g *Guilds) Fetch(ctx context.Context, ref interface{}, options FetchOptions) (models.GuildSettings, bool, error) {
	id, err := resolveID(ref)
	if err != nil {
		return models.GuildSettings{}, false, err
	}

	if options.Cache && !options.Force {
		if cached, ok := g.entities.Get(cache.KindGuild, id); ok {
			return cached.(models.GuildSettings), true, nil
		}
	}

	settings, found, err := g.store.FindGuild(ctx, id)
	if err != nil || !found {
		return models.GuildSettings{}, false, err
	}
	settings.ID = id

	if options.Cache {
		g.entities.Delete(cache.KindGuild, id)
		g.entities.Set(cache.KindGuild, id, settings)
	}
	return settings, true, nil
}

// Settings returns the settings of the guild with the defaults for a guild without document
func (g *Guilds) Settings(ctx context.Context, ref interface{}) (models.GuildSettings, error) {
	settings, found, err := g.Fetch(ctx, ref, DefaultFetchOptions)
	if err != nil {
		return settings, err
	}
	if !found {
		id, _ := resolveID(ref)
		return models.GuildSettings{ID: id}, nil
	}
	return settings, nil
}

// Set writes the supplied fields (merge) or the whole document (replace) and returns the new settings
func (g *Guilds) Set(ctx context.Context, ref interface{}, data models.GuildSettingsData, options SetOptions) (models.GuildSettings, error) {
	id, err := resolveID(ref)
	if err != nil {
		return models.GuildSettings{}, err
	}

	old := models.GuildSettings{ID: id}
	if options.Merge {
		old, err = g.Settings(ctx, id)
		if err != nil {
			return models.GuildSettings{}, err
		}
	}

	err = g.store.UpdateGuild(ctx, id, data, options.Merge)
	if err != nil {
		return models.GuildSettings{}, err
	}
	invalidate(ctx, g.broadcaster, cache.KindGuild, id)

	var settings models.GuildSettings
	if options.Merge {
		settings = old.Merge(data)
	} else {
		settings = data.Replace(id)
	}
	g.entities.Set(cache.KindGuild, id, settings)

	return settings, nil
}

// Delete removes the document of the guild and returns the default settings
func (g *Guilds) Delete(ctx context.Context, ref interface{}) (models.GuildSettings, error) {
	id, err := resolveID(ref)
	if err != nil {
		return models.GuildSettings{}, err
	}

	err = g.store.DeleteGuild(ctx, id)
	if err != nil {
		return models.GuildSettings{}, err
	}
	invalidate(ctx, g.broadcaster, cache.KindGuild, id)

	return models.GuildSettings{ID: id}, nil
}
