package main

import (
	"github.com/Seklfreak/Lumi/helpers"
)

// shardConfig is the place of this process in the deployment.
// Exactly one process is the main shard, it registers the commands and runs the reminders.
type shardConfig struct {
	ID    int
	Count int
	Main  bool
}

func loadShardConfig() shardConfig {
	shard := shardConfig{
		ID:    helpers.ConfigInt("sharding.id", 0),
		Count: helpers.ConfigInt("sharding.count", 1),
	}
	if shard.Count < 1 {
		shard.Count = 1
	}
	shard.Main = helpers.ConfigBool("sharding.main", shard.ID == 0)
	return shard
}

func (s shardConfig) IsMain() bool {
	return s.Main
}
