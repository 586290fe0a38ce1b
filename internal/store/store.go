// Package store persists campaign layouts in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a campaign id is unknown
var ErrNotFound = errors.New("campaign not found")

const schema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	device     TEXT NOT NULL,
	elements   TEXT NOT NULL,
	revision   INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL
);`

// Campaign is a stored layout
type Campaign struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Device    device.Device   `json:"device"`
	Elements  canvas.Elements `json:"elements"`
	Revision  int             `json:"revision"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Summary describes a stored layout without its elements
type Summary struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Device    device.Device `json:"device"`
	Revision  int           `json:"revision"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store is a campaign repository backed by SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a campaign and bumps its revision. The layout is
// validated first so the store never holds a broken group tree.
func (s *Store) Save(ctx context.Context, id, name string, d device.Device, els canvas.Elements) error {
	if id == "" {
		return errors.New("campaign id required")
	}
	if _, err := device.Parse(string(d)); err != nil {
		return err
	}
	if err := els.Validate(); err != nil {
		return fmt.Errorf("campaign %s: %w", id, err)
	}
	if els == nil {
		els = canvas.Elements{}
	}
	doc, err := json.Marshal(els)
	if err != nil {
		return fmt.Errorf("encode elements: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, device, elements, revision, updated_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN campaigns.name ELSE excluded.name END,
			device = excluded.device,
			elements = excluded.elements,
			revision = campaigns.revision + 1,
			updated_at = excluded.updated_at
	`, id, name, string(d), string(doc), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save campaign %s: %w", id, err)
	}
	return nil
}

// Load returns a stored campaign
func (s *Store) Load(ctx context.Context, id string) (*Campaign, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, device, elements, revision, updated_at
		FROM campaigns
		WHERE id = ?
	`, id)

	var (
		c       Campaign
		dev     string
		doc     string
		updated string
	)
	if err := row.Scan(&c.ID, &c.Name, &dev, &doc, &c.Revision, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	c.Device = device.Device(dev)
	if err := json.Unmarshal([]byte(doc), &c.Elements); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &c, nil
}

// List returns every campaign, most recently updated first
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, device, revision, updated_at
		FROM campaigns
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			dev     string
			updated string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &dev, &sum.Revision, &updated); err != nil {
			return nil, err
		}
		sum.Device = device.Device(dev)
		sum.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a campaign
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
