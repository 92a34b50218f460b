package capture

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/logtrap/logtrap/internal/model"
)

// consoleHook mirrors ambient zerolog output into the capture funnel.
// Hooks run in addition to the logger's normal write, so calling code
// keeps its visible output unchanged. Debug and trace events are below
// the capture floor and pass through untouched.
type consoleHook struct {
	capturer *Capturer
}

func (h consoleHook) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	switch level {
	case zerolog.InfoLevel:
		h.capturer.Capture(model.LevelInfo, message)
	case zerolog.WarnLevel:
		h.capturer.Capture(model.LevelWarn, message)
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		h.capturer.Capture(model.LevelError, message)
	}
}

var (
	installMu     sync.Mutex
	installed     bool
	beforeInstall zerolog.Logger
)

// InstallConsoleHook swaps the process-global zerolog logger for one that
// mirrors info, warning and error events into the capturer. Installing a
// second time is rejected rather than silently stacking hooks, since
// double-wrapping would duplicate every captured event.
//
// The capturer's own diagnostics must use a separate logger: events
// emitted through the global logger from inside the capture path would
// re-enter the hook and recurse.
func InstallConsoleHook(c *Capturer) error {
	installMu.Lock()
	defer installMu.Unlock()
	if installed {
		return errors.New("capture: console hook already installed")
	}
	beforeInstall = zlog.Logger
	zlog.Logger = zlog.Logger.Hook(consoleHook{capturer: c})
	installed = true
	return nil
}

// UninstallConsoleHook restores the logger that was in place before
// installation. No-op when the hook is not installed.
func UninstallConsoleHook() {
	installMu.Lock()
	defer installMu.Unlock()
	if !installed {
		return
	}
	zlog.Logger = beforeInstall
	installed = false
}
