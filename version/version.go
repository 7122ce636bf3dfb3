package version

import (
	"github.com/Seklfreak/Lumi/cache"
	"github.com/sirupsen/logrus"
)

// Set at build time with -ldflags "-X github.com/Seklfreak/Lumi/version.BOT_VERSION=..."
var (
	// BOT_VERSION example: 1.2.0-4-g205bbb8
	BOT_VERSION = "DEV_SNAPSHOT"
	BUILD_TIME  = "UNSET"
	BUILD_USER  = "UNSET"
	BUILD_HOST  = "UNSET"
)

// DumpInfo logs the build the process runs
func DumpInfo() {
	cache.GetLogger().WithFields(logrus.Fields{
		"module":     "version",
		"build_time": BUILD_TIME,
		"build_user": BUILD_USER,
		"build_host": BUILD_HOST,
	}).Info("Lumi " + BOT_VERSION)
}
