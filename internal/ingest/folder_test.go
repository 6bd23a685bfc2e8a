package ingest

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/arvosec/skywatch/internal/incident"
)

func newTestWatcher(t *testing.T, handler Handler) (*FolderWatcher, string) {
	t.Helper()
	dir := t.TempDir()
	fw := NewFolderWatcher(handler, FolderOptions{
		Dir:    dir,
		Logger: log.New(io.Discard, "", 0),
	})
	if err := os.MkdirAll(fw.processedDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	return fw, dir
}

func writeDrop(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessFileDispatchesAndMoves(t *testing.T) {
	var got []AlertDrop
	fw, dir := newTestWatcher(t, func(ctx context.Context, drop AlertDrop) error {
		got = append(got, drop)
		return nil
	})

	path := writeDrop(t, dir, "alert.json", `{
		"alert": {
			"id": "INC-555001", "type": "Perimeter Warning", "site": "Site B",
			"severity": "Medium", "timestamp": 1700000000000,
			"confidence": 0.7, "status": "Unreviewed"
		}
	}`)

	if err := fw.processFile(context.Background(), path); err != nil {
		t.Fatalf("processFile: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 drop, got %d", len(got))
	}
	if got[0].Alert.ID != "INC-555001" {
		t.Errorf("alert id = %q", got[0].Alert.ID)
	}
	if got[0].Alert.Severity != incident.SeverityMedium {
		t.Errorf("severity = %q", got[0].Alert.Severity)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("drop file should move out of the watch directory")
	}
	if _, err := os.Stat(filepath.Join(fw.processedDir(), "alert.json")); err != nil {
		t.Errorf("processed copy missing: %v", err)
	}

	ingested, errs := fw.Stats()
	if ingested != 1 || errs != 0 {
		t.Errorf("stats = %d/%d", ingested, errs)
	}
}

func TestProcessFileAcceptsArray(t *testing.T) {
	var got []AlertDrop
	fw, dir := newTestWatcher(t, func(ctx context.Context, drop AlertDrop) error {
		got = append(got, drop)
		return nil
	})

	path := writeDrop(t, dir, "batch.json", `[
		{"alert": {"id": "INC-555002", "type": "Motion Detected", "site": "Site A", "severity": "Low", "timestamp": 1700000000000, "confidence": 0.4, "status": "Unreviewed"}},
		{"alert": {"id": "INC-555003", "type": "Motion Detected", "site": "Site A", "severity": "Low", "timestamp": 1700000001000, "confidence": 0.4, "status": "Unreviewed"}}
	]`)

	if err := fw.processFile(context.Background(), path); err != nil {
		t.Fatalf("processFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 drops, got %d", len(got))
	}
}

func TestProcessFileRejectsMissingID(t *testing.T) {
	fw, dir := newTestWatcher(t, func(ctx context.Context, drop AlertDrop) error {
		t.Fatal("handler should not run for invalid drops")
		return nil
	})

	path := writeDrop(t, dir, "bad.json", `{"alert": {"type": "Motion Detected"}}`)
	if err := fw.processFile(context.Background(), path); err == nil {
		t.Fatal("expected error for drop without an id")
	}

	// Invalid drops stay in place for inspection
	if _, err := os.Stat(path); err != nil {
		t.Errorf("invalid drop should remain in watch dir: %v", err)
	}
}

func TestScanOnceProcessesExistingFiles(t *testing.T) {
	var count int
	fw, dir := newTestWatcher(t, func(ctx context.Context, drop AlertDrop) error {
		count++
		return nil
	})

	writeDrop(t, dir, "one.json", `{"alert": {"id": "INC-555004", "type": "Motion Detected", "site": "Site A", "severity": "Low", "timestamp": 1, "confidence": 0.4, "status": "Unreviewed"}}`)
	writeDrop(t, dir, "ignored.txt", "not json")

	if err := fw.scanOnce(context.Background()); err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 processed drop, got %d", count)
	}
}
