package testutil

import (
	"io"
	"os"
	"slices"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Tests log at trace, but output is only kept for verbose runs.
func init() {
	logrus.SetLevel(logrus.TraceLevel)
	if !slices.Contains(os.Args, "-test.v=true") {
		logrus.SetOutput(io.Discard)
	}
}

// CaptureLogs records every entry written to the standard logger until the
// test ends.
func CaptureLogs(t testing.TB) *test.Hook {
	hook := test.NewLocal(logrus.StandardLogger())
	t.Cleanup(func() {
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})
	return hook
}

// FindLog returns the last captured entry with msg, or nil.
func FindLog(hook *test.Hook, msg string) *logrus.Entry {
	entries := hook.AllEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Message == msg {
			return entries[i]
		}
	}
	return nil
}
