package raster

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	_ "modernc.org/sqlite"
)

var (
	// ErrProfileMismatch means a layer's shape or georeferencing disagrees
	// with its store's profile.
	ErrProfileMismatch = errors.New("profile mismatch")
	// ErrNoSuchLayer means the named layer is not in the store.
	ErrNoSuchLayer = errors.New("no such layer")
)

// Store is a cost-layer database: named float64 grids sharing one profile,
// in a single SQLite file.
type Store struct {
	db      *sql.DB
	profile Profile
}

const schema = `
CREATE TABLE IF NOT EXISTS profile (
	id      INTEGER PRIMARY KEY CHECK (id = 0),
	content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS layers (
	name    TEXT PRIMARY KEY,
	content BLOB NOT NULL
);
`

// Create makes a new store at filename with the given profile.
func Create(ctx context.Context, filename string, profile Profile) (_ *Store, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("raster.Create: %w", err)
		}
	}()
	if profile.Width <= 0 || profile.Height <= 0 {
		return nil, fmt.Errorf("invalid profile shape %dx%d", profile.Height, profile.Width)
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO profile (id, content) VALUES (0, ?)`, string(profileJSON)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, profile: profile}, nil
}

// Open opens an existing store.
func Open(ctx context.Context, filename string) (_ *Store, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("raster.Open: %q: %w", filename, err)
		}
	}()
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	var profileJSON string
	if err := db.QueryRowContext(ctx,
		`SELECT content FROM profile WHERE id = 0`).Scan(&profileJSON); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("not a layer store: %w", err)
	}
	var profile Profile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, profile: profile}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Profile() Profile {
	return s.profile
}

// Layers lists the stored layer names, sorted.
func (s *Store) Layers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM layers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("raster.Layers: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("raster.Layers: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("raster.Layers: %w", err)
	}
	return names, nil
}

// WriteLayer stores grid under name, replacing any existing layer.  The
// grid's profile must match the store's.
func (s *Store) WriteLayer(ctx context.Context, name string, grid *Grid) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("raster.WriteLayer: %q: %w", name, err)
		}
	}()
	if !grid.Profile.Equal(s.profile) {
		return fmt.Errorf("%w: layer %+v != store %+v",
			ErrProfileMismatch, grid.Profile, s.profile)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	raw := make([]byte, 8*len(grid.Data))
	for i, val := range grid.Data {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(val))
	}
	if _, err := gz.Write(raw); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO layers (name, content) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET content = excluded.content`,
		name, buf.Bytes())
	return err
}

// ReadLayer loads the named layer.
func (s *Store) ReadLayer(ctx context.Context, name string) (_ *Grid, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("raster.ReadLayer: %q: %w", name, err)
		}
	}()
	var content []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT content FROM layers WHERE name = ?`, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSuchLayer
	}
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	want := 8 * s.profile.Width * s.profile.Height
	if len(raw) != want {
		return nil, fmt.Errorf("%w: payload is %d bytes, profile wants %d",
			ErrProfileMismatch, len(raw), want)
	}
	grid := NewGrid(s.profile)
	for i := range grid.Data {
		grid.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return grid, nil
}
