package capture

import (
	"fmt"
	"runtime/debug"

	"github.com/logtrap/logtrap/internal/model"
)

// Fallback is the degraded presentation substituted when a unit of
// user-interface work fails. It receives the component name and the
// recovered value.
type Fallback func(component string, recovered any)

// Boundary catches failures escaping a unit of user-interface work,
// reports them through the error-level capture path, and hands off to the
// fallback so the surrounding system keeps running in a degraded state
// instead of crashing. Recovery policy is deliberately plain: report,
// substitute the fallback, keep going.
type Boundary struct {
	capturer *Capturer
	fallback Fallback
}

// NewBoundary returns a Boundary reporting through c. fallback may be nil,
// in which case a recovered failure is reported and otherwise swallowed.
func NewBoundary(c *Capturer, fallback Fallback) *Boundary {
	return &Boundary{capturer: c, fallback: fallback}
}

// Run executes fn. A panic escaping fn is captured at ERROR level with
// metadata carrying the component name, the original failure text and the
// call-site trace, then the fallback runs. Run never re-panics.
func (b *Boundary) Run(component string, fn func()) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		b.capturer.Capture(model.LevelError,
			fmt.Sprintf("recovered panic in %s", component),
			map[string]any{
				"component": component,
				"error":     fmt.Sprint(recovered),
				"stack":     string(debug.Stack()),
			})
		if b.fallback != nil {
			b.fallback(component, recovered)
		}
	}()
	fn()
}
