package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/config"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/store"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/watch"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
)

func loadConfig() *config.Config {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		log.Printf("⚠️  Failed to load %s: %v (using defaults)", configPath, err)
		cfg = config.DefaultConfig()
	}
	return cfg
}

// source is a campaign read from a document file or the campaign store
type source struct {
	ID       string
	Name     string
	Device   device.Device
	Elements canvas.Elements

	path string
	db   *store.Store
}

// openSource resolves ref as a document path when it names an existing file,
// otherwise as a store id. The caller closes the source.
func openSource(ctx context.Context, cfg *config.Config, ref string) (*source, error) {
	if ref == "" {
		return nil, errors.New("campaign file or id required")
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		doc, err := watch.ReadDocument(ref)
		if err != nil {
			return nil, err
		}
		id := watch.DocumentID(ref)
		if id == "" {
			id = filepath.Base(ref)
		}
		return &source{ID: id, Name: doc.Name, Device: doc.Device, Elements: doc.Elements, path: ref}, nil
	}

	db, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open campaign store: %w", err)
	}
	c, err := db.Load(ctx, ref)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &source{ID: c.ID, Name: c.Name, Device: c.Device, Elements: c.Elements, db: db}, nil
}

// Save writes the layout back to where it was read from
func (s *source) Save(ctx context.Context, d device.Device, els canvas.Elements) error {
	if s.db != nil {
		return s.db.Save(ctx, s.ID, s.Name, d, els)
	}
	return watch.WriteDocument(s.path, watch.Document{Name: s.Name, Device: d, Elements: els})
}

func (s *source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
