// Package ingest watches a drop directory for alert JSON files and
// hands parsed alerts to the console. Processed files move to a
// processed/ subdirectory so a restart never replays them.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arvosec/skywatch/internal/incident"
)

// AlertDrop is the JSON shape of a dropped alert file. LogEntries is
// optional; when absent the handler decides what trail to record.
type AlertDrop struct {
	Alert      incident.Alert      `json:"alert"`
	LogEntries []incident.LogEntry `json:"log_entries,omitempty"`
}

// Handler receives each parsed alert drop
type Handler func(ctx context.Context, drop AlertDrop) error

// FolderOptions controls watcher behavior
type FolderOptions struct {
	Dir      string
	Patterns []string // e.g. []string{"*.json"}
	Logger   *log.Logger
	// ScanExisting processes files already present in Dir on startup
	// before the watch loop begins
	ScanExisting bool
}

// FolderWatcher ingests alert drops from a directory
type FolderWatcher struct {
	handler Handler
	opts    FolderOptions

	mu       sync.Mutex
	ingested int
	errors   int
}

// NewFolderWatcher constructs a folder watcher
func NewFolderWatcher(handler Handler, opts FolderOptions) *FolderWatcher {
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{"*.json"}
	}
	return &FolderWatcher{
		handler: handler,
		opts:    opts,
	}
}

// Stats returns how many drops were ingested and how many failed
func (fw *FolderWatcher) Stats() (ingested, errors int) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.ingested, fw.errors
}

// Run watches the drop directory until the context is cancelled
func (fw *FolderWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(fw.processedDir(), 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	if fw.opts.ScanExisting {
		if err := fw.scanOnce(ctx); err != nil {
			return err
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer w.Close()

	if err := w.Add(fw.opts.Dir); err != nil {
		return fmt.Errorf("watch add: %w", err)
	}

	fw.opts.Logger.Printf("Watching directory: %s (patterns: %s)", fw.opts.Dir, strings.Join(fw.opts.Patterns, ","))

	// Writers may still be mid-copy when the Create event arrives, so
	// debounce each file briefly before processing it.
	pending := make(map[string]*time.Timer)
	done := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			ingested, errs := fw.Stats()
			fw.opts.Logger.Printf("Watch stopping: ingested=%d errors=%d", ingested, errs)
			return ctx.Err()
		case ev := <-w.Events:
			name := filepath.Base(ev.Name)
			if !fw.matches(name) {
				continue
			}
			if (ev.Op&fsnotify.Create) != 0 || (ev.Op&fsnotify.Write) != 0 {
				path := ev.Name
				if t, ok := pending[path]; ok {
					t.Stop()
				}
				pending[path] = time.AfterFunc(200*time.Millisecond, func() {
					done <- path
				})
			}
		case path := <-done:
			delete(pending, path)
			if err := fw.processFile(ctx, path); err != nil {
				fw.opts.Logger.Printf("error processing %s: %v", path, err)
				fw.mu.Lock()
				fw.errors++
				fw.mu.Unlock()
			}
		case err := <-w.Errors:
			if err != nil {
				fw.opts.Logger.Printf("watch error: %v", err)
			}
		}
	}
}

func (fw *FolderWatcher) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range fw.opts.Patterns {
		p := strings.TrimSpace(strings.ToLower(pat))
		ok, _ := filepath.Match(p, lower)
		if ok {
			return true
		}
	}
	return false
}

func (fw *FolderWatcher) processedDir() string {
	return filepath.Join(fw.opts.Dir, "processed")
}

func (fw *FolderWatcher) scanOnce(ctx context.Context) error {
	entries, err := os.ReadDir(fw.opts.Dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !fw.matches(e.Name()) {
			continue
		}
		path := filepath.Join(fw.opts.Dir, e.Name())
		if err := fw.processFile(ctx, path); err != nil {
			fw.opts.Logger.Printf("error processing %s: %v", path, err)
			fw.mu.Lock()
			fw.errors++
			fw.mu.Unlock()
		}
	}
	return nil
}

func (fw *FolderWatcher) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		// File might be transiently missing (rename/rotate)
		return err
	}
	trim := strings.TrimSpace(string(data))
	if trim == "" {
		return nil
	}

	// Accept both a single drop object and an array of drops
	if strings.HasPrefix(trim, "[") {
		var drops []AlertDrop
		if err := json.Unmarshal([]byte(trim), &drops); err != nil {
			return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		for i := range drops {
			if err := fw.dispatch(ctx, drops[i]); err != nil {
				return err
			}
		}
	} else {
		var drop AlertDrop
		if err := json.Unmarshal([]byte(trim), &drop); err != nil {
			return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		if err := fw.dispatch(ctx, drop); err != nil {
			return err
		}
	}

	return fw.moveProcessed(path)
}

func (fw *FolderWatcher) dispatch(ctx context.Context, drop AlertDrop) error {
	if drop.Alert.ID == "" {
		return fmt.Errorf("alert drop missing id")
	}
	if drop.Alert.Timestamp == 0 {
		drop.Alert.Timestamp = time.Now().UnixMilli()
	}
	if err := fw.handler(ctx, drop); err != nil {
		return fmt.Errorf("handle alert %s: %w", drop.Alert.ID, err)
	}
	fw.mu.Lock()
	fw.ingested++
	fw.mu.Unlock()
	fw.opts.Logger.Printf("Ingested alert %s (%s)", drop.Alert.ID, drop.Alert.Type)
	return nil
}

func (fw *FolderWatcher) moveProcessed(path string) error {
	dest := filepath.Join(fw.processedDir(), filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move processed: %w", err)
	}
	return nil
}
