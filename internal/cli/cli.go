// Package cli implements the command-line interface for mbtiles-db.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cartovault/mbtiles-db/pkg/humanfmt"
	"github.com/cartovault/mbtiles-db/pkg/logging"
	"github.com/cartovault/mbtiles-db/pkg/mbtiles"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: mbtiles-db <command> [options] <archive>\ncommands: inspect, coords, vacuum")
	}

	switch args[0] {
	case "inspect":
		return runInspect(args[1:])
	case "coords":
		return runCoords(args[1:])
	case "vacuum":
		return runVacuum(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func parseArchiveArg(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", true, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return "", err
	}
	logging.Init(*debug, *human)

	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s requires exactly one archive path", name)
	}
	return fs.Arg(0), nil
}

func runInspect(args []string) error {
	path, err := parseArchiveArg("inspect", args)
	if err != nil {
		return err
	}

	db, err := mbtiles.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer db.Close()

	var tileCount int64
	if err := db.SQL().QueryRow("SELECT COUNT(*) FROM tiles").Scan(&tileCount); err != nil {
		return fmt.Errorf("count tiles: %w", err)
	}

	fmt.Printf("archive: %s\n", path)
	if info, err := os.Stat(path); err == nil {
		fmt.Printf("size: %s\n", humanfmt.Bytes(info.Size()))
	}
	fmt.Printf("tiles: %s\n", humanfmt.Count(tileCount))

	// The deduplicated layout stores payloads separately; report how well
	// dedup worked when the table is present.
	var shallowTables int
	if err := db.SQL().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'tiles_data'").
		Scan(&shallowTables); err != nil {
		return fmt.Errorf("detect layout: %w", err)
	}
	if shallowTables > 0 {
		var payloadCount int64
		if err := db.SQL().QueryRow("SELECT COUNT(*) FROM tiles_data").Scan(&payloadCount); err != nil {
			return fmt.Errorf("count payloads: %w", err)
		}
		fmt.Printf("layout: compact (%s distinct payloads)\n", humanfmt.Count(payloadCount))
	} else {
		fmt.Println("layout: direct")
	}

	meta := db.Metadata().GetAll()
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("metadata %s: %s\n", k, meta[k])
	}
	return nil
}

func runCoords(args []string) error {
	path, err := parseArchiveArg("coords", args)
	if err != nil {
		return err
	}

	db, err := mbtiles.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer db.Close()

	coords, err := db.GetAllTileCoords()
	if err != nil {
		return err
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Compare(coords[j]) < 0 })
	for _, c := range coords {
		fmt.Println(c)
	}
	return nil
}

func runVacuum(args []string) error {
	path, err := parseArchiveArg("vacuum", args)
	if err != nil {
		return err
	}

	db, err := mbtiles.OpenForWriting(mbtiles.DefaultWriteConfig(path, false))
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	if err := db.VacuumAnalyze(); err != nil {
		return err
	}
	log := logging.WithPhase("vacuum")
	log.Info().
		Str("archive", path).
		Str("elapsed", humanfmt.Duration(time.Since(start))).
		Msg("vacuum and analyze complete")
	return nil
}
