// Package mbtiles implements the tile archive storage engine: a single-file
// SQLite database holding a rendered tile set plus its metadata, per the
// MBTiles interchange format.
//
// An archive is opened in one of three modes (in-memory, write-optimized
// file, read-only file) and driven by a single logical writer or reader at a
// time; the package adds no internal locking.
package mbtiles

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cartovault/mbtiles-db/pkg/logging"
	"github.com/cartovault/mbtiles-db/pkg/tile"
)

// applicationID is the SQLite application_id stamped into the file header
// so the archive is identifiable as MBTiles ("MPBX").
// https://www.sqlite.org/src/artifact?ci=trunk&filename=magic.txt
const applicationID = 0x4d504258

// WriteConfig holds tuning knobs for the write-optimized open mode.
type WriteConfig struct {
	// Path is the archive file to create.
	Path string
	// Compact selects the deduplicated physical layout.
	Compact bool
	// Synchronous sets the SQLite synchronous pragma.
	// "OFF" is the default: a one-shot bulk build trades crash durability
	// for insert throughput.
	Synchronous string
	// CacheSizePages is the SQLite page cache size in pages (default 1M).
	CacheSizePages int
}

// DefaultWriteConfig returns a write configuration tuned for bulk loading.
func DefaultWriteConfig(path string, compact bool) WriteConfig {
	return WriteConfig{
		Path:           path,
		Compact:        compact,
		Synchronous:    "OFF",
		CacheSizePages: 1_000_000,
	}
}

// Validate checks configuration values and returns an error for invalid settings.
func (c *WriteConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("Path is required")
	}
	switch c.Synchronous {
	case "", "OFF", "NORMAL", "FULL":
		// Valid values
	default:
		return fmt.Errorf("invalid Synchronous value %q: must be OFF, NORMAL, or FULL", c.Synchronous)
	}
	if c.CacheSizePages < 0 {
		return fmt.Errorf("CacheSizePages must be non-negative, got %d", c.CacheSizePages)
	}
	return nil
}

// DB is a handle to one archive. It owns the underlying connection and a
// lazily prepared point-lookup statement; both are released by Close.
//
// A DB must be driven from a single goroutine.
type DB struct {
	db      *sql.DB
	compact bool

	// Prepared on first GetTile, reused afterwards.
	getTileStmt *sql.Stmt
}

// OpenInMemory returns an archive that never touches disk. Useful for
// short-lived sessions and tests.
func OpenInMemory(compact bool) (*DB, error) {
	return open(":memory:", compact, []string{
		fmt.Sprintf("PRAGMA application_id = %d", applicationID),
	})
}

// OpenForWriting returns an archive file optimized for fast bulk writes:
// journaling and fsync-on-commit off, large page cache, exclusive locking,
// temp storage in memory.
func OpenForWriting(cfg WriteConfig) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	sync := cfg.Synchronous
	if sync == "" {
		sync = "OFF"
	}
	return open(cfg.Path, cfg.Compact, []string{
		"PRAGMA journal_mode = OFF",
		fmt.Sprintf("PRAGMA synchronous = %s", sync),
		fmt.Sprintf("PRAGMA cache_size = %d", cfg.CacheSizePages),
		"PRAGMA locking_mode = EXCLUSIVE",
		"PRAGMA temp_store = MEMORY",
		fmt.Sprintf("PRAGMA application_id = %d", applicationID),
	})
}

// OpenReadOnly returns an archive file tuned for point-lookup latency.
func OpenReadOnly(path string) (*DB, error) {
	// Physical layout is irrelevant for reads: the tiles view hides it.
	return open("file:"+path+"?mode=ro", false, []string{
		"PRAGMA cache_size = 100000",
		"PRAGMA locking_mode = EXCLUSIVE",
		"PRAGMA page_size = 32768",
	})
}

func open(dsn string, compact bool, pragmas []string) (*DB, error) {
	log := logging.WithPhase("mbtiles_open")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", dsn, err)
	}
	// One connection for the lifetime of the handle: the engine assumes a
	// single logical writer/reader, and an in-memory database would be lost
	// across pooled connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	log.Debug().Str("dsn", dsn).Bool("compact", compact).Msg("opened archive")

	return &DB{db: db, compact: compact}, nil
}

// Compact reports whether the handle was opened for the deduplicated layout.
func (d *DB) Compact() bool {
	return d.compact
}

// SQL exposes the underlying connection for callers that need raw statements.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Close releases the prepared point-lookup statement and the connection.
// A statement close failure is logged and swallowed; a connection close
// failure is surfaced.
func (d *DB) Close() error {
	if d.getTileStmt != nil {
		if err := d.getTileStmt.Close(); err != nil {
			logging.L().Warn().Err(err).Msg("error closing tile lookup statement")
		}
		d.getTileStmt = nil
	}
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// GetTile returns the stored payload for a tile, or ok=false when the tile
// was never written. An absent tile is not an error and is never conflated
// with an empty payload.
func (d *DB) GetTile(x, y, z int) (data []byte, ok bool, err error) {
	if d.getTileStmt == nil {
		stmt, err := d.db.Prepare(
			"SELECT tile_data FROM tiles WHERE tile_column = ? AND tile_row = ? AND zoom_level = ?")
		if err != nil {
			return nil, false, fmt.Errorf("prepare tile lookup: %w", err)
		}
		d.getTileStmt = stmt
	}

	err = d.getTileStmt.QueryRow(x, tile.FlipY(y, z), z).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get tile %d/%d/%d: %w", z, x, y, err)
	}
	return data, true, nil
}

// GetTileCoord is GetTile for a Coord.
func (d *DB) GetTileCoord(c tile.Coord) ([]byte, bool, error) {
	return d.GetTile(c.X, c.Y, c.Z)
}

// GetAllTileCoords scans the logical tiles table and returns every tile
// coordinate, converted back from archive rows to top-origin Y.
func (d *DB) GetAllTileCoords() ([]tile.Coord, error) {
	rows, err := d.db.Query("SELECT zoom_level, tile_column, tile_row FROM tiles")
	if err != nil {
		return nil, fmt.Errorf("scan tile coords: %w", err)
	}
	defer rows.Close()

	var coords []tile.Coord
	for rows.Next() {
		var z, x, rawY int
		if err := rows.Scan(&z, &x, &rawY); err != nil {
			return nil, fmt.Errorf("scan tile coord row: %w", err)
		}
		coords = append(coords, tile.Coord{X: x, Y: tile.FlipY(rawY, z), Z: z})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan tile coords: %w", err)
	}
	return coords, nil
}

// VacuumAnalyze reclaims free space and refreshes query planner statistics.
// Advisory post-write maintenance, not required for correctness.
func (d *DB) VacuumAnalyze() error {
	return d.execAll("VACUUM", "ANALYZE")
}

// NewTileWriter returns the batched writer variant matching the archive's
// physical layout.
func (d *DB) NewTileWriter() (TileWriter, error) {
	if d.compact {
		return newCompactTileWriter(d.db)
	}
	return newDirectTileWriter(d.db)
}

// Metadata returns an accessor for the metadata table.
func (d *DB) Metadata() *Metadata {
	return &Metadata{db: d.db, log: logging.WithPhase("mbtiles_metadata")}
}

func (d *DB) execAll(statements ...string) error {
	log := logging.WithPhase("mbtiles_exec")
	for _, stmt := range statements {
		log.Debug().Str("sql", stmt).Msg("execute")
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute %q: %w", stmt, err)
		}
	}
	return nil
}
