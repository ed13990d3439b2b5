package mbtiles

// Table and column names are part of the archive format: readers always see
// a logical tiles table exposing zoom_level, tile_column, tile_row and
// tile_data regardless of the physical layout.
const (
	tilesTable   = "tiles"
	tilesColZ    = "zoom_level"
	tilesColX    = "tile_column"
	tilesColY    = "tile_row"
	tilesColData = "tile_data"

	tilesShallowTable = "tiles_shallow"
	tilesDataTable    = "tiles_data"
	tilesDataColID    = "tile_data_id"

	metadataTable    = "metadata"
	metadataColName  = "name"
	metadataColValue = "value"
)

// CreateTables creates the schema for the archive's physical layout: the
// metadata table always, then either the direct tiles table or the
// shallow/data split with a read-compatibility view named tiles.
func (d *DB) CreateTables() error {
	ddl := []string{
		"create table " + metadataTable + " (" + metadataColName + " text, " + metadataColValue + " text)",
		"create unique index name on " + metadataTable + " (" + metadataColName + ")",
	}

	if d.compact {
		ddl = append(ddl,
			`create table `+tilesShallowTable+` (
				`+tilesColZ+` integer,
				`+tilesColX+` integer,
				`+tilesColY+` integer,
				`+tilesDataColID+` integer
			)`,
			`create table `+tilesDataTable+` (
				`+tilesDataColID+` integer primary key,
				`+tilesColData+` blob
			)`,
			`create view `+tilesTable+` as
			select
				`+tilesShallowTable+`.`+tilesColZ+` as `+tilesColZ+`,
				`+tilesShallowTable+`.`+tilesColX+` as `+tilesColX+`,
				`+tilesShallowTable+`.`+tilesColY+` as `+tilesColY+`,
				`+tilesDataTable+`.`+tilesColData+` as `+tilesColData+`
			from `+tilesShallowTable+`
			join `+tilesDataTable+` on `+tilesShallowTable+`.`+tilesDataColID+` = `+tilesDataTable+`.`+tilesDataColID,
		)
	} else {
		ddl = append(ddl,
			"create table "+tilesTable+" ("+tilesColZ+" integer, "+tilesColX+" integer, "+
				tilesColY+" integer, "+tilesColData+" blob)",
		)
	}

	return d.execAll(ddl...)
}

// AddTileIndex creates the unique coordinate index on whichever physical
// table holds the coordinate columns. Building the index during bulk insert
// is far slower, so callers invoke this after the load completes.
func (d *DB) AddTileIndex() error {
	if d.compact {
		return d.execAll("create unique index tiles_shallow_index on " + tilesShallowTable +
			" (" + tilesColZ + ", " + tilesColX + ", " + tilesColY + ")")
	}
	return d.execAll("create unique index tile_index on " + tilesTable +
		" (" + tilesColZ + ", " + tilesColX + ", " + tilesColY + ")")
}
