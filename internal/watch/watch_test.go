package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
)

type change struct {
	id  string
	doc Document
}

func startWatcher(t *testing.T, dir string) <-chan change {
	t.Helper()
	changes := make(chan change, 16)
	w, err := New(dir, 30*time.Millisecond, func(id string, doc Document) {
		changes <- change{id, doc}
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return changes
}

func waitChange(t *testing.T, changes <-chan change, match func(change) bool) change {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if match(c) {
				return c
			}
		case <-timeout:
			t.Fatal("Timed out waiting for change")
		}
	}
}

func TestWatcher_ReloadsChangedDocument(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir)

	doc := Document{Device: device.Mobile, Elements: canvas.Elements{
		{ID: "a", Type: canvas.TypeShape, X: 1, Y: 2},
	}}
	if err := WriteDocument(filepath.Join(dir, "spring.json"), doc); err != nil {
		t.Fatal(err)
	}
	c := waitChange(t, changes, func(change) bool { return true })
	if c.id != "spring" || c.doc.Device != device.Mobile || len(c.doc.Elements) != 1 {
		t.Errorf("Unexpected change %+v", c)
	}

	// rapid rewrites settle on the latest content
	for i := 0; i < 3; i++ {
		doc.Elements[0].X = float64(10 + i)
		WriteDocument(filepath.Join(dir, "spring.json"), doc)
	}
	waitChange(t, changes, func(c change) bool {
		return len(c.doc.Elements) == 1 && c.doc.Elements[0].X == 12
	})
}

func TestWatcher_IgnoresOtherAndInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, dir)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644)
	os.WriteFile(filepath.Join(dir, "orphan.json"),
		[]byte(`{"elements":[{"id":"a","type":"shape","x":0,"y":0,"parentGroupId":"g"}]}`), 0644)
	WriteDocument(filepath.Join(dir, "good.json"), Document{})

	c := waitChange(t, changes, func(change) bool { return true })
	if c.id != "good" {
		t.Errorf("Expected only the valid document, got %s", c.id)
	}
	if c.doc.Device != device.Reference {
		t.Errorf("Expected default device, got %s", c.doc.Device)
	}
}

func TestDocumentID(t *testing.T) {
	tests := map[string]string{
		"/tmp/campaigns/spring.json": "spring",
		"summer.JSON":                "summer",
		"notes.txt":                  "",
		".hidden.json":               "",
	}
	for path, want := range tests {
		if got := DocumentID(path); got != want {
			t.Errorf("DocumentID(%q) = %q, want %q", path, got, want)
		}
	}
}
