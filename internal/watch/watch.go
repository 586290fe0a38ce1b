// Package watch reloads campaign documents when they change on disk.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/fsnotify/fsnotify"
)

// Ext is the extension of campaign documents
const Ext = ".json"

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 100 * time.Millisecond

// Document is a campaign stored as a JSON file named after its id
type Document struct {
	Name     string          `json:"name,omitempty"`
	Device   device.Device   `json:"device,omitempty"`
	Elements canvas.Elements `json:"elements"`
}

// ReadDocument reads and validates a campaign document
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Device == "" {
		doc.Device = device.Reference
	}
	if _, err := device.Parse(string(doc.Device)); err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := doc.Elements.Validate(); err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteDocument writes a campaign document
func WriteDocument(path string, doc Document) error {
	if doc.Elements == nil {
		doc.Elements = canvas.Elements{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DocumentID returns the campaign id of a document path, or "" when the
// path is not a campaign document
func DocumentID(path string) string {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), Ext) || strings.HasPrefix(base, ".") {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Watcher reports campaign documents in a directory that changed
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func(id string, doc Document)
	watcher  *fsnotify.Watcher
}

// New watches dir. onChange runs on the watcher goroutine once per changed
// document after writes settle; documents that fail to parse are logged and
// skipped. A non-positive debounce selects DefaultDebounce.
func New(dir string, debounce time.Duration, onChange func(id string, doc Document)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, debounce: debounce, onChange: onChange, watcher: fw}, nil
}

// Run delivers changes until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	defer debounce.Stop()

	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			id := DocumentID(event.Name)
			if id == "" {
				continue
			}
			pending[id] = true
			debounce.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("[Watch] Watcher error:", err)

		case <-debounce.C:
			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			pending = make(map[string]bool)
			sort.Strings(ids)
			for _, id := range ids {
				w.reload(id)
			}
		}
	}
}

func (w *Watcher) reload(id string) {
	path := filepath.Join(w.dir, id+Ext)
	doc, err := ReadDocument(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Watch] Skipping %s: %v", id, err)
		}
		return
	}
	log.Printf("[Watch] 🔄 Reloaded %s (%d elements)", id, len(doc.Elements))
	w.onChange(id, doc)
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
