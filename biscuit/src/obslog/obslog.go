// Package obslog gives each subsystem its own structured logger, grounded
// on the virtcontainers hypervisor package's hvLogger =
// logrus.WithField(...) pattern: one *logrus.Entry per subsystem, tagged
// with a "source" field, rather than a single undifferentiated logger.
package obslog

import (
	"io"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

// Boot, TEM, and ULT are the per-subsystem structured loggers the rest of
// the toolkit logs through.
var (
	Boot = base.WithField("source", "boot")
	TEM  = base.WithField("source", "tem")
	ULT  = base.WithField("source", "ult")
)

// SetOutput redirects every subsystem logger's output, used by cmd/
// tools that want the toolkit's own logs interleaved with their own
// (e.g. vmshell writing through a liner-managed terminal).
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetLevel adjusts verbosity across every subsystem logger at once.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

// AddHook registers hook against every subsystem logger, since they all
// share the one underlying *logrus.Logger. Used by cmd/vmshell to mirror
// output into an obslog/replay.Pane.
func AddHook(hook logrus.Hook) {
	base.AddHook(hook)
}
