package comm

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// Prefixes of log lines printed by the camera module.
const (
	DebugHeadError = "[CAM_E]"
	DebugHeadInfo  = "[CAM_I]"
	DebugHeadDebug = "[CAM_D]"
)

// DebugLevel decides which lines from the camera module are logged.
type DebugLevel int

// Debug levels.
const (
	DebugNone DebugLevel = iota
	DebugError
	DebugInfo
	DebugDebug
	DebugAll
)

var debugLevelNames = []string{"none", "error", "info", "debug", "all"}

// String implements flag.Value.
func (l DebugLevel) String() string {
	if l >= DebugNone && int(l) < len(debugLevelNames) {
		return debugLevelNames[l]
	}
	return fmt.Sprintf("DebugLevel(%d)", int(l))
}

// Set implements flag.Value.
func (l *DebugLevel) Set(s string) error {
	for n, name := range debugLevelNames {
		if strings.EqualFold(name, s) {
			*l = DebugLevel(n)
			return nil
		}
	}
	return fmt.Errorf("invalid debug level %q, expect one of %s", s, strings.Join(debugLevelNames, ","))
}

// logLine logs a completed text line according to the level. It returns
// true if the line is a debug line which must not be processed further.
func (l DebugLevel) logLine(line []byte) bool {
	isDebug := bytes.HasPrefix(line, []byte(DebugHeadDebug))
	switch {
	case bytes.HasPrefix(line, []byte(DebugHeadError)):
		if l >= DebugError {
			glog.Errorf("CAM: %s", line)
		}
	case bytes.HasPrefix(line, []byte(DebugHeadInfo)):
		if l >= DebugInfo {
			glog.Infof("CAM: %s", line)
		}
	case isDebug:
		if l >= DebugDebug {
			glog.Infof("CAM: %s", line)
		}
	default:
		if l >= DebugAll {
			glog.Infof("CAM: %s", line)
		}
	}
	return isDebug
}
