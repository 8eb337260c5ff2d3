package vtx

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// log is the package-wide structured logger. It currently records two
// events: a successful CreateHost (Info, with the CPU set) and a failed
// VMXOFF teardown in VmxRoot.Close (Warn, with the CPU). VM-exits and
// VMLAUNCH/VMRESUME failures are not logged; they are counted in
// metrics.go instead.
var log = logrus.New()

func init() {
	log.SetLevel(logrus.WarnLevel)
	if debug := os.Getenv("VTX_LOG_LEVEL"); debug != "" {
		if lvl, err := logrus.ParseLevel(debug); err == nil {
			log.SetLevel(lvl)
		}
	}
	if v, err := strconv.ParseBool(os.Getenv("VTX_LOG_JSON")); err == nil && v {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// SetLogLevel overrides the package logger's level without setting
// VTX_LOG_LEVEL.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
