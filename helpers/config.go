package helpers

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/joho/godotenv"
)

// config Saves the bot-config
var (
	config      *gabs.Container
	configMutex sync.RWMutex
)

// environment variables overriding secrets of the config file
var configEnvironment = map[string]string{
	"LUMI_DISCORD_TOKEN": "discord.token",
	"LUMI_MONGODB_URL":   "mongodb.url",
	"LUMI_REDIS_ADDRESS": "redis.address",
	"LUMI_AMQP_URL":      "amqp.url",
}

// LoadConfig loads the config from $path into $config.
// A .env file next to the binary is loaded first, LUMI_* variables override the file.
func LoadConfig(path string) {
	json, err := gabs.ParseJSONFile(path)
	Relax(err)

	// a missing .env is fine, the variables may be set by the environment directly
	_ = godotenv.Load()
	applyEnvironment(json)

	SetConfig(json)
}

// SetConfig replaces the config, used by LoadConfig and by tests
func SetConfig(json *gabs.Container) {
	configMutex.Lock()
	config = json
	configMutex.Unlock()
}

// GetConfig is a config getter
func GetConfig() *gabs.Container {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if config == nil {
		return gabs.New()
	}
	return config
}

func applyEnvironment(json *gabs.Container) {
	for variable, path := range configEnvironment {
		value := os.Getenv(variable)
		if value == "" {
			continue
		}
		_, err := json.SetP(value, path)
		Relax(err)
	}
}

// ConfigString returns the string at path or fallback
func ConfigString(path, fallback string) string {
	value, ok := GetConfig().Path(path).Data().(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// ConfigInt returns the number at path or fallback, numeric strings are accepted
func ConfigInt(path string, fallback int) int {
	switch value := GetConfig().Path(path).Data().(type) {
	case float64:
		return int(value)
	case string:
		number, err := strconv.Atoi(value)
		if err == nil {
			return number
		}
	}
	return fallback
}

// ConfigFloat returns the number at path or fallback
func ConfigFloat(path string, fallback float64) float64 {
	value, ok := GetConfig().Path(path).Data().(float64)
	if !ok {
		return fallback
	}
	return value
}

// ConfigBool returns the boolean at path or fallback
func ConfigBool(path string, fallback bool) bool {
	value, ok := GetConfig().Path(path).Data().(bool)
	if !ok {
		return fallback
	}
	return value
}

// ConfigDuration parses a duration string ("5s", "24h") at path, plain numbers are seconds
func ConfigDuration(path string, fallback time.Duration) time.Duration {
	switch value := GetConfig().Path(path).Data().(type) {
	case string:
		duration, err := time.ParseDuration(value)
		if err == nil {
			return duration
		}
	case float64:
		return time.Duration(value * float64(time.Second))
	}
	return fallback
}
