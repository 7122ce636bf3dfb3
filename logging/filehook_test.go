package logging

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestFileHookWritesJSONLines(t *testing.T) {
	dir, err := ioutil.TempDir("", "lumi-filehook")
	if err != nil {
		t.Fatalf("creating temp dir failed: %s", err.Error())
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "lumi.log")

	hook, err := NewLogrusFileHook(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		t.Fatalf("creating hook failed: %s", err.Error())
	}

	log := logrus.New()
	log.Out = ioutil.Discard
	log.Hooks.Add(hook)
	log.WithField("module", "reminders").Warn("reminder could not be delivered")
	log.WithField("module", "managers").Info("second line")
	hook.Close()

	content, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log failed: %s", err.Error())
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}

	var entry map[string]interface{}
	if err = json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json, got %s", lines[0])
	}
	if entry["module"] != "reminders" || entry["level"] != "warning" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
