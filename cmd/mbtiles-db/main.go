// Command mbtiles-db inspects and maintains MBTiles tile archives.
package main

import (
	"fmt"
	"os"

	"github.com/cartovault/mbtiles-db/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
