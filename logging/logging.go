package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kz/discordrus"
	"github.com/sirupsen/logrus"
)

// webhookColor is used for every level shipped to the operator webhook
const webhookColor = 13631488

// New creates the process logger writing colored text to out
func New(out io.Writer, debug bool) *logrus.Logger {
	log := logrus.New()
	log.Out = out
	log.Level = logrus.InfoLevel
	if debug {
		log.Level = logrus.DebugLevel
	}
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339}
	log.Hooks = make(logrus.LevelHooks)
	return log
}

// AddFileHook appends every entry as JSON to the file at path
func AddFileHook(log *logrus.Logger, path string) (*LogrusFileHook, error) {
	hook, err := NewLogrusFileHook(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	log.Hooks.Add(hook)
	return hook, nil
}

// AddWebhook ships errors and worse to a discord webhook
func AddWebhook(log *logrus.Logger, webhookURL string) {
	log.Hooks.Add(discordrus.NewHook(
		webhookURL,
		logrus.ErrorLevel,
		&discordrus.Opts{
			Username:           "Lumi",
			TimestampFormat:    "Jan 2 15:04:05.00000",
			EnableCustomColors: true,
			CustomLevelColors: &discordrus.LevelColors{
				Error: webhookColor,
				Panic: webhookColor,
				Fatal: webhookColor,
			},
		},
	))
}

// DiscordgoLogger routes discordgo's log output into log, prefixed with the calling function
func DiscordgoLogger(log *logrus.Logger) func(msgL, caller int, format string, a ...interface{}) {
	entry := log.WithField("module", "discordgo")

	return func(msgL, caller int, format string, a ...interface{}) {
		pc, file, line, _ := runtime.Caller(caller)
		function := "unknown"
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()[strings.LastIndex(fn.Name(), ".")+1:]
		}

		message := format
		if len(a) > 0 {
			message = fmt.Sprintf(format, a...)
		}
		message = fmt.Sprintf("%s:%d:%s() %s", path.Base(file), line, function, message)

		switch msgL {
		case discordgo.LogError:
			entry.Error(message)
		case discordgo.LogWarning:
			entry.Warn(message)
		case discordgo.LogInformational:
			entry.Info(message)
		default:
			entry.Debug(message)
		}
	}
}
