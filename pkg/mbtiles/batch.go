package mbtiles

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cartovault/mbtiles-db/pkg/logging"
)

// maxSQLParameters is the bound-parameter ceiling of a single SQLite
// statement. It is imposed by the storage engine, not tunable.
const maxSQLParameters = 999

// batchWriter accumulates typed rows and flushes them as one multi-row
// INSERT once the batch limit is reached. It has no knowledge of tile
// semantics; bind appends one item's column values to the args slice in
// construction column order.
type batchWriter[T any] struct {
	db           *sql.DB
	table        string
	columns      []string
	insertIgnore bool
	bind         func(args []any, item T) []any

	batchLimit int
	batch      []T
	args       []any
	stmt       *sql.Stmt
	log        zerolog.Logger

	// Number of executed flushes, for tests.
	flushes int
}

func newBatchWriter[T any](
	db *sql.DB,
	table string,
	columns []string,
	insertIgnore bool,
	bind func(args []any, item T) []any,
) (*batchWriter[T], error) {
	w := &batchWriter[T]{
		db:           db,
		table:        table,
		columns:      columns,
		insertIgnore: insertIgnore,
		bind:         bind,
		batchLimit:   maxSQLParameters / len(columns),
		log:          logging.WithPhase("mbtiles_write"),
	}
	w.batch = make([]T, 0, w.batchLimit)
	w.args = make([]any, 0, w.batchLimit*len(columns))

	stmt, err := db.Prepare(w.insertSQL(w.batchLimit))
	if err != nil {
		return nil, fmt.Errorf("prepare batch insert for %s: %w", table, err)
	}
	w.stmt = stmt
	return w, nil
}

// insertSQL builds the multi-row INSERT statement for the given row count.
func (w *batchWriter[T]) insertSQL(rows int) string {
	verb := "INSERT"
	if w.insertIgnore {
		verb = "INSERT OR IGNORE"
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(w.columns)), ",") + ")"
	var sb strings.Builder
	sb.WriteString(verb)
	sb.WriteString(" INTO ")
	sb.WriteString(w.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(w.columns, ","))
	sb.WriteString(") VALUES ")
	for i := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholder)
	}
	return sb.String()
}

// write queues one row and flushes if the batch is full. A flush failure is
// unrecoverable for the write session.
func (w *batchWriter[T]) write(item T) error {
	w.batch = append(w.batch, item)
	if len(w.batch) >= w.batchLimit {
		return w.flush(w.stmt)
	}
	return nil
}

// flush binds every buffered row positionally (row-major) into stmt,
// executes it as one statement and clears the buffer.
func (w *batchWriter[T]) flush(stmt *sql.Stmt) error {
	w.args = w.args[:0]
	for _, item := range w.batch {
		w.args = w.bind(w.args, item)
	}
	if _, err := stmt.Exec(w.args...); err != nil {
		return fmt.Errorf("flush %d rows into %s: %w", len(w.batch), w.table, err)
	}
	w.flushes++
	w.batch = w.batch[:0]
	return nil
}

// close flushes a non-empty remainder through a statement sized exactly to
// it, then releases the main prepared statement. Statement close failures
// are logged and swallowed; flush failures are surfaced.
func (w *batchWriter[T]) close() error {
	if len(w.batch) > 0 {
		last, err := w.db.Prepare(w.insertSQL(len(w.batch)))
		if err != nil {
			return fmt.Errorf("prepare final batch insert for %s: %w", w.table, err)
		}
		flushErr := w.flush(last)
		if err := last.Close(); err != nil {
			w.log.Warn().Err(err).Str("table", w.table).Msg("error closing final batch statement")
		}
		if flushErr != nil {
			return flushErr
		}
	}
	if err := w.stmt.Close(); err != nil {
		w.log.Warn().Err(err).Str("table", w.table).Msg("error closing batch statement")
	}
	return nil
}
