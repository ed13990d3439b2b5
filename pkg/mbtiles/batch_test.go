package mbtiles

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cartovault/mbtiles-db/pkg/tile"
)

func TestBatchLimitFromParameterCeiling(t *testing.T) {
	tests := []struct {
		columns int
		want    int
	}{
		{4, 249}, // tiles / tiles_shallow
		{2, 499}, // tiles_data
	}
	for _, tt := range tests {
		if got := maxSQLParameters / tt.columns; got != tt.want {
			t.Errorf("batch limit for %d columns = %d, want %d", tt.columns, got, tt.want)
		}
	}
}

func TestInsertSQLShape(t *testing.T) {
	w := &batchWriter[int]{table: "t", columns: []string{"a", "b"}}
	got := w.insertSQL(2)
	if want := "INSERT INTO t (a,b) VALUES (?,?), (?,?)"; got != want {
		t.Errorf("insertSQL(2) = %q, want %q", got, want)
	}

	w.insertIgnore = true
	if got := w.insertSQL(1); !strings.HasPrefix(got, "INSERT OR IGNORE INTO t ") {
		t.Errorf("insertSQL with ignore = %q", got)
	}
}

func TestBatchBoundaryFlushes(t *testing.T) {
	db := newTestArchive(t, false)
	w, err := newDirectTileWriter(db.SQL())
	if err != nil {
		t.Fatalf("newDirectTileWriter failed: %v", err)
	}
	limit := w.tiles.batchLimit

	write := func(n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			coord := tile.Coord{X: i % 256, Y: i / 256, Z: 10}
			if err := w.Write(tile.NewEncodingResult(coord, []byte{byte(i)})); err != nil {
				t.Fatalf("Write %d failed: %v", i, err)
			}
		}
	}

	// Exactly batchLimit rows: one flush at threshold, close flushes nothing.
	write(limit)
	if w.tiles.flushes != 1 {
		t.Fatalf("flushes after %d writes = %d, want 1", limit, w.tiles.flushes)
	}
	if len(w.tiles.batch) != 0 {
		t.Fatalf("buffer not empty at threshold: %d rows", len(w.tiles.batch))
	}

	// One more row: second flush happens at close, sized exactly 1.
	write(1)
	if w.tiles.flushes != 1 {
		t.Fatalf("flushes after %d writes = %d, want 1", limit+1, w.tiles.flushes)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.tiles.flushes != 2 {
		t.Errorf("flushes after close = %d, want 2", w.tiles.flushes)
	}

	var rows int
	if err := db.SQL().QueryRow("SELECT COUNT(*) FROM tiles").Scan(&rows); err != nil {
		t.Fatalf("count tiles: %v", err)
	}
	if rows != limit+1 {
		t.Errorf("tiles rows = %d, want %d", rows, limit+1)
	}
}

func TestBatchCloseFlushesPartialBatch(t *testing.T) {
	db := newTestArchive(t, false)
	w, err := newDirectTileWriter(db.SQL())
	if err != nil {
		t.Fatalf("newDirectTileWriter failed: %v", err)
	}

	const n = 10
	for i := 0; i < n; i++ {
		coord := tile.Coord{X: i, Y: 0, Z: 5}
		if err := w.Write(tile.NewEncodingResult(coord, []byte(fmt.Sprintf("tile-%d", i)))); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if w.tiles.flushes != 0 {
		t.Fatalf("premature flush: %d", w.tiles.flushes)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var rows int
	if err := db.SQL().QueryRow("SELECT COUNT(*) FROM tiles").Scan(&rows); err != nil {
		t.Fatalf("count tiles: %v", err)
	}
	if rows != n {
		t.Errorf("tiles rows = %d, want %d", rows, n)
	}
}
