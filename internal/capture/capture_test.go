package capture

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/logtrap/logtrap/internal/hub"
	"github.com/logtrap/logtrap/internal/model"
	"github.com/logtrap/logtrap/internal/store"
)

func newTestCapturer(t *testing.T) (*Capturer, *store.Store, *hub.Hub) {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "logs.db"), zerolog.Nop())
	t.Cleanup(func() { s.Close() })
	h := hub.New(s, zerolog.Nop())
	return New(s, h, zerolog.Nop()), s, h
}

func awaitRecords(t *testing.T, deliveries chan []model.LogRecord) []model.LogRecord {
	t.Helper()
	select {
	case records := <-deliveries:
		return records
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery within 2s")
		return nil
	}
}

func TestCapturePersistsAndNotifies(t *testing.T) {
	c, _, h := newTestCapturer(t)

	deliveries := make(chan []model.LogRecord, 8)
	subscription := h.Subscribe(func(records []model.LogRecord) { deliveries <- records })
	defer subscription.Unsubscribe()
	awaitRecords(t, deliveries) // initial delivery

	c.Error(pkgerrors.New("boom"))

	records := awaitRecords(t, deliveries)
	if len(records) != 1 {
		t.Fatalf("delivery = %+v, want one record", records)
	}
	record := records[0]
	if record.ID == 0 || record.Level != model.LevelError || record.Message != "boom" {
		t.Fatalf("record = %+v", record)
	}
	if record.StackTrace == nil {
		t.Fatal("error-like capture lost its stack trace")
	}
}

func TestManualAPIMapsLevels(t *testing.T) {
	c, s, _ := newTestCapturer(t)

	c.Info("i")
	c.Warn("w")
	c.Error("e")

	records, err := s.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	seen := map[model.Level]string{}
	for _, record := range records {
		seen[record.Level] = record.Message
	}
	if seen[model.LevelInfo] != "i" || seen[model.LevelWarn] != "w" || seen[model.LevelError] != "e" {
		t.Fatalf("levels mismapped: %v", seen)
	}
}

func TestCaptureNeverPropagatesPersistFailure(t *testing.T) {
	// Store in a nonexistent directory: every insert fails. The producer
	// must not notice; the event is dropped.
	s := store.New(filepath.Join(t.TempDir(), "missing", "logs.db"), zerolog.Nop())
	h := hub.New(s, zerolog.Nop())
	c := New(s, h, zerolog.Nop())

	c.Info("dropped on the floor") // must not panic
}

func TestClearResynchronizesObservers(t *testing.T) {
	c, _, h := newTestCapturer(t)
	ctx := context.Background()

	c.Info("one")
	c.Warn("two")

	deliveries := make(chan []model.LogRecord, 8)
	subscription := h.Subscribe(func(records []model.LogRecord) { deliveries <- records })
	defer subscription.Unsubscribe()
	if got := awaitRecords(t, deliveries); len(got) != 2 {
		t.Fatalf("initial delivery = %d records, want 2", len(got))
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	// Capture deliveries may interleave; wait for the empty set.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case records := <-deliveries:
			if len(records) == 0 {
				return
			}
		case <-deadline:
			t.Fatal("observers never saw the cleared set")
		}
	}
}
