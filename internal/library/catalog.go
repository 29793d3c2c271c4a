package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/cutstudio/internal/system"
	"github.com/ivlev/cutstudio/internal/timeline"
)

var (
	ErrNotFound  = errors.New("library item not found")
	ErrDuplicate = errors.New("library item already exists")
)

// DurationProbe measures a media file in seconds.
type DurationProbe func(ctx context.Context, path string) (float64, error)

// Catalog stores library items in dir/library.db. Generated assets (deck pages, QR codes)
// are written to dir/assets.
type Catalog struct {
	db  *sql.DB
	dir string

	Probe DurationProbe
	DPI   int
}

// Init opens or creates the catalog under dir.
func Init(dir string) (*Catalog, error) {
	db, err := openDB(dir)
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db, dir: dir, Probe: system.ProbeDuration, DPI: 150}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// AssetDir is where generated assets are stored.
func (c *Catalog) AssetDir() string { return filepath.Join(c.dir, "assets") }

// Add stores item, assigning a UUID when ID is empty. It returns the stored item.
func (c *Catalog) Add(item timeline.LibraryItem) (timeline.LibraryItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Kind == "" {
		return item, fmt.Errorf("item %s: missing kind", item.ID)
	}
	if item.Src == "" && !srcOptional(item) {
		return item, fmt.Errorf("item %s: missing src", item.ID)
	}
	if item.Name == "" {
		item.Name = strings.TrimSuffix(filepath.Base(item.Src), filepath.Ext(item.Src))
	}

	var duration sql.NullFloat64
	if item.Duration != nil {
		duration = sql.NullFloat64{Float64: *item.Duration, Valid: true}
	}
	_, err := c.db.Exec(`
		INSERT INTO items (id, kind, src, name, category, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Kind), item.Src, item.Name, item.Category, duration, time.Now().UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return item, fmt.Errorf("%s: %w", item.Src, ErrDuplicate)
		}
		return item, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

const selectItem = `SELECT id, kind, src, name, category, duration FROM items`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (timeline.LibraryItem, error) {
	var (
		item     timeline.LibraryItem
		kind     string
		duration sql.NullFloat64
	)
	if err := row.Scan(&item.ID, &kind, &item.Src, &item.Name, &item.Category, &duration); err != nil {
		return item, err
	}
	item.Kind = timeline.Kind(kind)
	if duration.Valid {
		d := duration.Float64
		item.Duration = &d
	}
	return item, nil
}

func (c *Catalog) Get(id string) (timeline.LibraryItem, error) {
	item, err := scanItem(c.db.QueryRow(selectItem+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return item, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return item, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns the items of a category in insertion order; an empty category lists all.
func (c *Catalog) List(category string) ([]timeline.LibraryItem, error) {
	query := selectItem + ` ORDER BY rowid`
	var args []any
	if category != "" {
		query = selectItem + ` WHERE category = ? ORDER BY rowid`
		args = append(args, category)
	}
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []timeline.LibraryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (c *Catalog) Delete(id string) error {
	res, err := c.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// SetDuration records a measured source duration.
func (c *Catalog) SetDuration(id string, seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("invalid duration %f", seconds)
	}
	res, err := c.db.Exec(`UPDATE items SET duration = ? WHERE id = ?`, seconds, id)
	if err != nil {
		return fmt.Errorf("update duration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// SeedTransitions adds one item per built-in transition unless the category already
// holds them.
func (c *Catalog) SeedTransitions() error {
	existing, err := c.List(CategoryTransitions)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, it := range existing {
		have[it.Name] = true
	}
	for _, tr := range timeline.Transitions() {
		if have[tr.DisplayName()] {
			continue
		}
		item := timeline.LibraryItem{
			Kind:     timeline.KindImage,
			Name:     tr.DisplayName(),
			Category: CategoryTransitions,
		}
		if _, err := c.Add(item); err != nil {
			return err
		}
	}
	return nil
}

// srcOptional reports whether item renders without a source file: text and procedural
// transitions.
func srcOptional(item timeline.LibraryItem) bool {
	if item.Kind == timeline.KindText {
		return true
	}
	_, ok := timeline.ParseTransition(item.Name)
	return item.Kind == timeline.KindImage && ok
}
