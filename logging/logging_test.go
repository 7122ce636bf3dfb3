package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func TestDiscordgoLogger(t *testing.T) {
	var out bytes.Buffer
	log := New(&out, false)
	log.Formatter = &logrus.JSONFormatter{}

	logger := DiscordgoLogger(log)
	logger(discordgo.LogWarning, 1, "heartbeat ack for shard %d missed", 3)

	line := out.String()
	if !strings.Contains(line, `"level":"warning"`) || !strings.Contains(line, `"module":"discordgo"`) {
		t.Fatalf("unexpected entry %s", line)
	}
	if !strings.Contains(line, "logging_test.go") || !strings.Contains(line, "TestDiscordgoLogger() heartbeat ack for shard 3 missed") {
		t.Fatalf("expected caller prefix and formatted message, got %s", line)
	}

	out.Reset()
	logger(discordgo.LogInformational, 1, "100% ready")
	if !strings.Contains(out.String(), "100% ready") {
		t.Fatalf("expected message without arguments to stay as is, got %s", out.String())
	}

	out.Reset()
	logger(discordgo.LogDebug, 1, "sending identify")
	if out.Len() != 0 {
		t.Fatalf("expected debug to be dropped outside debug mode, got %s", out.String())
	}
}

func TestNewDebug(t *testing.T) {
	if level := New(&bytes.Buffer{}, true).Level; level != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", level)
	}
}
