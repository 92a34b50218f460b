package capture

import (
	"context"
	"strings"
	"testing"

	"github.com/logtrap/logtrap/internal/model"
)

func TestBoundaryRecoversAndCapturesFailure(t *testing.T) {
	c, s, _ := newTestCapturer(t)

	var fallbackComponent string
	boundary := NewBoundary(c, func(component string, recovered any) {
		fallbackComponent = component
	})

	boundary.Run("sidebar", func() {
		panic("render failed")
	})

	if fallbackComponent != "sidebar" {
		t.Fatalf("fallback component = %q, want sidebar", fallbackComponent)
	}

	records, err := s.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	record := records[0]
	if record.Level != model.LevelError {
		t.Fatalf("level = %s, want ERROR", record.Level)
	}
	if !strings.Contains(record.Message, "sidebar") {
		t.Fatalf("message %q does not name the failed component", record.Message)
	}

	if len(record.Metadata) != 1 {
		t.Fatalf("metadata = %v, want the failure context", record.Metadata)
	}
	details, ok := record.Metadata[0].(map[string]any)
	if !ok {
		t.Fatalf("metadata[0] = %T, want map", record.Metadata[0])
	}
	if details["error"] != "render failed" {
		t.Fatalf("metadata error = %v, want the original failure text", details["error"])
	}
	stack, _ := details["stack"].(string)
	if !strings.Contains(stack, "boundary") {
		t.Fatalf("metadata stack does not locate the failure:\n%s", stack)
	}
}

func TestBoundaryWithoutFallbackStillRecovers(t *testing.T) {
	c, _, _ := newTestCapturer(t)
	boundary := NewBoundary(c, nil)

	boundary.Run("widget", func() {
		panic("boom")
	}) // must not re-panic
}

func TestBoundaryLeavesHealthyWorkAlone(t *testing.T) {
	c, s, _ := newTestCapturer(t)

	fallbackRan := false
	boundary := NewBoundary(c, func(string, any) { fallbackRan = true })

	ran := false
	boundary.Run("widget", func() { ran = true })

	if !ran {
		t.Fatal("boundary did not run the unit of work")
	}
	if fallbackRan {
		t.Fatal("fallback ran without a failure")
	}
	records, err := s.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("healthy work produced %d captures", len(records))
	}
}
