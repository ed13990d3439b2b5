package mbtiles

import (
	"bytes"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cartovault/mbtiles-db/pkg/tile"
)

func newTestArchive(t *testing.T, compact bool) *DB {
	t.Helper()
	db, err := OpenInMemory(compact)
	if err != nil {
		t.Fatalf("OpenInMemory failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateTables(); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	return db
}

func writeTiles(t *testing.T, db *DB, results ...tile.EncodingResult) {
	t.Helper()
	w, err := db.NewTileWriter()
	if err != nil {
		t.Fatalf("NewTileWriter failed: %v", err)
	}
	for _, r := range results {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write(%v) failed: %v", r.Coord, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestWriteConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WriteConfig
		wantErr bool
	}{
		{"valid default", DefaultWriteConfig("/tmp/test.mbtiles", true), false},
		{"empty path", WriteConfig{}, true},
		{"bad synchronous", WriteConfig{Path: "x", Synchronous: "MAYBE"}, true},
		{"negative cache", WriteConfig{Path: "x", CacheSizePages: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoundTripBothLayouts(t *testing.T) {
	for _, compact := range []bool{false, true} {
		name := "direct"
		if compact {
			name = "compact"
		}
		t.Run(name, func(t *testing.T) {
			db := newTestArchive(t, compact)
			coord := tile.Coord{X: 2, Y: 3, Z: 4}
			payload := []byte{0x1f, 0x8b, 0x00, 0xff}

			writeTiles(t, db, tile.NewEncodingResult(coord, payload).WithHash(99))
			if err := db.AddTileIndex(); err != nil {
				t.Fatalf("AddTileIndex failed: %v", err)
			}

			got, ok, err := db.GetTileCoord(coord)
			if err != nil {
				t.Fatalf("GetTileCoord failed: %v", err)
			}
			if !ok {
				t.Fatal("tile not found after write")
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("got %v, want %v", got, payload)
			}
		})
	}
}

func TestGetTileAbsent(t *testing.T) {
	db := newTestArchive(t, true)
	data, ok, err := db.GetTile(0, 0, 0)
	if err != nil {
		t.Fatalf("GetTile on empty archive errored: %v", err)
	}
	if ok {
		t.Error("ok = true for a tile never written")
	}
	if data != nil {
		t.Errorf("data = %v, want nil", data)
	}
}

func TestCompactScenario(t *testing.T) {
	// Write three tiles, two sharing a payload; expect three coordinates,
	// two stored payloads, and the shared payload readable at both coords.
	db := newTestArchive(t, true)
	writeTiles(t, db,
		tile.NewEncodingResult(tile.Coord{X: 0, Y: 0, Z: 0}, []byte("A")).WithHash(1),
		tile.NewEncodingResult(tile.Coord{X: 0, Y: 0, Z: 1}, []byte("A")).WithHash(1),
		tile.NewEncodingResult(tile.Coord{X: 0, Y: 1, Z: 1}, []byte("B")).WithHash(2),
	)
	if err := db.AddTileIndex(); err != nil {
		t.Fatalf("AddTileIndex failed: %v", err)
	}

	coords, err := db.GetAllTileCoords()
	if err != nil {
		t.Fatalf("GetAllTileCoords failed: %v", err)
	}
	want := []tile.Coord{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Compare(coords[j]) < 0 })
	if len(coords) != len(want) {
		t.Fatalf("got %d coords %v, want %d", len(coords), coords, len(want))
	}
	for i := range want {
		if coords[i] != want[i] {
			t.Errorf("coords[%d] = %v, want %v", i, coords[i], want[i])
		}
	}

	data, ok, err := db.GetTile(0, 0, 0)
	if err != nil || !ok {
		t.Fatalf("GetTile(0,0,0) = %v, %v, %v", data, ok, err)
	}
	if !bytes.Equal(data, []byte("A")) {
		t.Errorf("GetTile(0,0,0) = %q, want %q", data, "A")
	}

	var contentRows int
	if err := db.SQL().QueryRow("SELECT COUNT(*) FROM tiles_data").Scan(&contentRows); err != nil {
		t.Fatalf("count tiles_data: %v", err)
	}
	if contentRows != 2 {
		t.Errorf("tiles_data rows = %d, want 2", contentRows)
	}
}

func TestGetAllTileCoordsFlipsRows(t *testing.T) {
	db := newTestArchive(t, false)
	coord := tile.Coord{X: 5, Y: 1, Z: 3}
	writeTiles(t, db, tile.NewEncodingResult(coord, []byte("x")))

	// The raw archive row is bottom-origin.
	var rawY int
	if err := db.SQL().QueryRow("SELECT tile_row FROM tiles").Scan(&rawY); err != nil {
		t.Fatalf("read raw row: %v", err)
	}
	if want := tile.FlipY(coord.Y, coord.Z); rawY != want {
		t.Errorf("stored tile_row = %d, want %d", rawY, want)
	}

	coords, err := db.GetAllTileCoords()
	if err != nil {
		t.Fatalf("GetAllTileCoords failed: %v", err)
	}
	if len(coords) != 1 || coords[0] != coord {
		t.Errorf("GetAllTileCoords = %v, want [%v]", coords, coord)
	}
}

func TestWriteToFileAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mbtiles")

	db, err := OpenForWriting(DefaultWriteConfig(path, true))
	if err != nil {
		t.Fatalf("OpenForWriting failed: %v", err)
	}
	if err := db.CreateTables(); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	coord := tile.Coord{X: 1, Y: 2, Z: 3}
	writeTiles(t, db, tile.NewEncodingResult(coord, []byte("payload")).WithHash(7))
	if err := db.AddTileIndex(); err != nil {
		t.Fatalf("AddTileIndex failed: %v", err)
	}
	if err := db.VacuumAnalyze(); err != nil {
		t.Fatalf("VacuumAnalyze failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer reader.Close()

	data, ok, err := reader.GetTileCoord(coord)
	if err != nil || !ok {
		t.Fatalf("GetTileCoord = %v, %v, %v", data, ok, err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("read back %q, want %q", data, "payload")
	}

	var appID int
	if err := reader.SQL().QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		t.Fatalf("read application_id: %v", err)
	}
	if appID != applicationID {
		t.Errorf("application_id = %#x, want %#x", appID, applicationID)
	}
}

func TestCreateTablesTwiceFails(t *testing.T) {
	db := newTestArchive(t, false)
	if err := db.CreateTables(); err == nil {
		t.Error("re-creating existing tables should fail")
	}
}
