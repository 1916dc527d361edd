package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoggerAttachesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})

	l.Info("request served", "status", 200)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec[FieldComponent] != ComponentHTTP {
		t.Errorf("component = %v, want %v", rec[FieldComponent], ComponentHTTP)
	}
	if rec["status"] != float64(200) {
		t.Errorf("status = %v, want 200", rec["status"])
	}
}

func TestWithComponentDoesNotStack(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Component: ComponentApp,
		Handler:   slog.NewJSONHandler(&buf, nil),
	})

	l.WithComponent(ComponentWorker).Warn("sweep skipped")

	if got := bytes.Count(buf.Bytes(), []byte(`"component"`)); got != 1 {
		t.Errorf("component attribute appears %d times, want 1", got)
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v, want %v", rec[FieldComponent], ComponentWorker)
	}
}
