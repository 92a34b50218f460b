package capture

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/logtrap/logtrap/internal/hub"
	"github.com/logtrap/logtrap/internal/model"
	"github.com/logtrap/logtrap/internal/store"
)

// Capturer is the single write path shared by all three interception
// adapters: normalize the event, persist it, then fan the refreshed log
// set out to observers. Nothing else in the process inserts LogRecords,
// which keeps the write path auditable.
type Capturer struct {
	store *store.Store
	hub   *hub.Hub

	// diag is the pre-interception side channel for failures inside the
	// capture path itself. It must never be the hooked ambient logger,
	// or a capture failure could re-enter interception and recurse.
	diag zerolog.Logger
}

// New returns a Capturer writing through st and notifying observers via h.
// diag receives capture-path failures; give it a logger that bypasses the
// ambient hook.
func New(st *store.Store, h *hub.Hub, diag zerolog.Logger) *Capturer {
	return &Capturer{store: st, hub: h, diag: diag}
}

// Info, Warn and Error are the manual API: typed level control for
// producers that do not rely on ambient interception. The primary value
// may be a plain value or an error; auxiliary values become metadata.
func (c *Capturer) Info(primary any, aux ...any) { c.Capture(model.LevelInfo, primary, aux...) }

// Warn captures at WARN level. See Info.
func (c *Capturer) Warn(primary any, aux ...any) { c.Capture(model.LevelWarn, primary, aux...) }

// Error captures at ERROR level. See Info.
func (c *Capturer) Error(primary any, aux ...any) { c.Capture(model.LevelError, primary, aux...) }

// Capture runs the persist-and-notify sequence for one event. A persist
// failure is reported on the side channel and the event is dropped rather
// than propagated: logging must never crash the system it observes, so
// the producer's control flow is never interrupted.
func (c *Capturer) Capture(level model.Level, primary any, aux ...any) {
	record := Normalize(level, primary, aux...)
	if _, err := c.store.Insert(context.Background(), record); err != nil {
		c.diag.Error().Err(err).Str("event", record.Message).Msg("dropping captured event: persist failed")
		return
	}
	c.notify()
}

// Clear removes every persisted record and resynchronizes observers.
// Unlike the capture paths this returns the store error: clearing is an
// explicit request from a collaborator, not event handling.
func (c *Capturer) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.notify()
	return nil
}

// notify fans the current log set out to observers. Fire-and-forget with
// respect to the mutation that triggered it: persistence succeeding is
// the operation's contract, observer sync is best-effort.
func (c *Capturer) notify() {
	go func() {
		if err := c.hub.NotifyAll(context.Background()); err != nil {
			c.diag.Error().Err(err).Msg("observer notification failed after mutation")
		}
	}()
}
