package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/logtrap/logtrap/internal/model"
)

// Normalize converts an arbitrary captured event into a LogRecord draft
// (no id yet). It is pure apart from the clock read, performs no I/O and
// cannot fail: malformed inputs degrade to a best-effort string form,
// because capture must never itself be a source of failure.
//
// An error-like primary contributes its message text, and its captured
// call stack when it carries one. Anything else is coerced to a string.
// Auxiliary values are attached verbatim as metadata.
func Normalize(level model.Level, primary any, aux ...any) model.LogRecord {
	record := model.LogRecord{
		Timestamp: time.Now().UnixMilli(),
		Level:     level,
	}

	if err, ok := primary.(error); ok && err != nil {
		record.Message = err.Error()
		if stack := stackOf(err); stack != "" {
			record.StackTrace = &stack
		}
	} else {
		record.Message = stringify(primary)
	}

	if len(aux) > 0 {
		record.Metadata = aux
	}
	return record
}

// stackTracer is the stack-carrying convention of github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// stackOf returns the deepest captured call stack in err's unwrap chain,
// or "" when no error in the chain carries one. Deepest wins because it
// is closest to the original failure site.
func stackOf(err error) string {
	var stack string
	for err != nil {
		if tracer, ok := err.(stackTracer); ok {
			stack = fmt.Sprintf("%+v", tracer.StackTrace())
		}
		err = errors.Unwrap(err)
	}
	return strings.TrimSpace(stack)
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
