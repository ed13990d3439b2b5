package mbtiles

import (
	"database/sql"

	"github.com/cartovault/mbtiles-db/pkg/logging"
	"github.com/cartovault/mbtiles-db/pkg/sysmem"
	"github.com/cartovault/mbtiles-db/pkg/tile"
)

// TileWriter accepts encoded tiles and queues the inserts into large
// batches. A writer must be driven from a single goroutine and must be
// closed before the archive is read; after a Write or Close error the
// write session is failed and the writer must not be used again.
type TileWriter interface {
	Write(result tile.EncodingResult) error
	Close() error
}

// Row shapes for the two physical layouts.
type tileEntry struct {
	coord tile.Coord
	data  []byte
}

type tileShallowEntry struct {
	coord  tile.Coord
	dataID int64
}

type tileDataEntry struct {
	dataID int64
	data   []byte
}

// directTileWriter inserts the full row for every tile.
type directTileWriter struct {
	tiles *batchWriter[tileEntry]
}

func newDirectTileWriter(db *sql.DB) (*directTileWriter, error) {
	tiles, err := newBatchWriter(db, tilesTable,
		[]string{tilesColZ, tilesColX, tilesColY, tilesColData}, false,
		func(args []any, e tileEntry) []any {
			return append(args, e.coord.Z, e.coord.X, tile.FlipY(e.coord.Y, e.coord.Z), e.data)
		})
	if err != nil {
		return nil, err
	}
	return &directTileWriter{tiles: tiles}, nil
}

func (w *directTileWriter) Write(result tile.EncodingResult) error {
	return w.tiles.write(tileEntry{coord: result.Coord, data: result.Data})
}

func (w *directTileWriter) Close() error {
	return w.tiles.close()
}

// dedupCacheEntryBytes estimates the in-memory footprint of one hash to
// content-id mapping, map overhead included.
const dedupCacheEntryBytes = 64

// compactTileWriter splits coordinates from payloads and stores each
// distinct payload once. Content ids are assigned monotonically starting at
// 1; the hash to content-id cache is unbounded and lives for the writer's
// lifetime. Hash collisions are trusted without comparing bytes: two
// payloads with the same fingerprint collapse to one stored payload.
type compactTileWriter struct {
	shallow *batchWriter[tileShallowEntry]
	data    *batchWriter[tileDataEntry]

	dataIDByHash map[uint32]int64
	nextDataID   int64

	// Soft memory advisory for the unbounded cache.
	cacheWarnEntries int
	cacheWarned      bool
}

func newCompactTileWriter(db *sql.DB) (*compactTileWriter, error) {
	shallow, err := newBatchWriter(db, tilesShallowTable,
		[]string{tilesColZ, tilesColX, tilesColY, tilesDataColID}, false,
		func(args []any, e tileShallowEntry) []any {
			return append(args, e.coord.Z, e.coord.X, tile.FlipY(e.coord.Y, e.coord.Z), e.dataID)
		})
	if err != nil {
		return nil, err
	}
	// The data table enforces a primary key; re-inserting an id that made it
	// into an earlier batch must be a silent no-op, not a constraint fault.
	data, err := newBatchWriter(db, tilesDataTable,
		[]string{tilesDataColID, tilesColData}, true,
		func(args []any, e tileDataEntry) []any {
			return append(args, e.dataID, e.data)
		})
	if err != nil {
		if cerr := shallow.close(); cerr != nil {
			logging.L().Warn().Err(cerr).Msg("error releasing shallow writer")
		}
		return nil, err
	}

	return &compactTileWriter{
		shallow:          shallow,
		data:             data,
		dataIDByHash:     make(map[uint32]int64, 1_000),
		nextDataID:       1,
		cacheWarnEntries: int(sysmem.TotalBytes() / 4 / dedupCacheEntryBytes),
	}, nil
}

func (w *compactTileWriter) Write(result tile.EncodingResult) error {
	var dataID int64
	writeData := true

	if result.HasHash {
		if id, ok := w.dataIDByHash[result.DataHash]; ok {
			dataID = id
			writeData = false
		} else {
			dataID = w.nextDataID
			w.nextDataID++
			w.dataIDByHash[result.DataHash] = dataID
			w.checkCacheSize()
		}
	} else {
		// No fingerprint: store under a fresh id, no dedup attempted.
		dataID = w.nextDataID
		w.nextDataID++
	}

	if writeData {
		if err := w.data.write(tileDataEntry{dataID: dataID, data: result.Data}); err != nil {
			return err
		}
	}
	return w.shallow.write(tileShallowEntry{coord: result.Coord, dataID: dataID})
}

// checkCacheSize warns once when the dedup cache's estimated footprint
// crosses a quarter of system RAM. The cache is never evicted: eviction
// would change content-id assignment and therefore the archive's bytes.
func (w *compactTileWriter) checkCacheSize() {
	if w.cacheWarned || len(w.dataIDByHash) < w.cacheWarnEntries {
		return
	}
	w.cacheWarned = true
	log := logging.WithPhase("mbtiles_write")
	log.Warn().
		Int("distinct_payloads", len(w.dataIDByHash)).
		Msg("dedup cache exceeds a quarter of system memory; consider the direct layout for this tileset")
}

// Close flushes the shallow writer first, then the data writer. Both are
// always attempted; the first error is returned.
func (w *compactTileWriter) Close() error {
	shallowErr := w.shallow.close()
	dataErr := w.data.close()
	if shallowErr != nil {
		return shallowErr
	}
	return dataErr
}
