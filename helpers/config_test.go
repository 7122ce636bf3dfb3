package helpers

import (
	"os"
	"testing"
	"time"

	"github.com/Jeffail/gabs"
)

func TestConfigAccessors(t *testing.T) {
	json, err := gabs.ParseJSON([]byte(`{
		"discord": {"token": "secret", "id": ""},
		"sharding": {"id": 2, "count": "4", "main": true},
		"reminders": {"interval": "10s", "retry_ttl": 3600, "dm_rate": 2.5}
	}`))
	if err != nil {
		t.Fatalf("parsing config failed: %s", err.Error())
	}
	SetConfig(json)
	defer SetConfig(nil)

	if value := ConfigString("discord.token", "fallback"); value != "secret" {
		t.Fatalf("expected secret, got %s", value)
	}
	if value := ConfigString("discord.id", "fallback"); value != "fallback" {
		t.Fatalf("expected empty strings to use the fallback, got %s", value)
	}
	if value := ConfigInt("sharding.id", 0); value != 2 {
		t.Fatalf("expected 2, got %d", value)
	}
	if value := ConfigInt("sharding.count", 1); value != 4 {
		t.Fatalf("expected numeric strings to be accepted, got %d", value)
	}
	if value := ConfigBool("sharding.main", false); !value {
		t.Fatalf("expected true")
	}
	if value := ConfigFloat("reminders.dm_rate", 1); value != 2.5 {
		t.Fatalf("expected 2.5, got %f", value)
	}
	if value := ConfigDuration("reminders.interval", time.Second); value != 10*time.Second {
		t.Fatalf("expected 10s, got %s", value)
	}
	if value := ConfigDuration("reminders.retry_ttl", time.Second); value != time.Hour {
		t.Fatalf("expected numbers to be seconds, got %s", value)
	}
	if value := ConfigDuration("missing.path", time.Minute); value != time.Minute {
		t.Fatalf("expected the fallback, got %s", value)
	}
}

func TestConfigEnvironmentOverrides(t *testing.T) {
	json, err := gabs.ParseJSON([]byte(`{"mongodb": {"url": "mongodb://file"}}`))
	if err != nil {
		t.Fatalf("parsing config failed: %s", err.Error())
	}

	os.Setenv("LUMI_MONGODB_URL", "mongodb://environment")
	defer os.Unsetenv("LUMI_MONGODB_URL")

	applyEnvironment(json)
	if value, _ := json.Path("mongodb.url").Data().(string); value != "mongodb://environment" {
		t.Fatalf("expected the environment to win, got %s", value)
	}
}
