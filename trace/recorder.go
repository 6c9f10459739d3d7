package trace

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	// SQLite driver for the recording database.
	_ "github.com/mattn/go-sqlite3"
)

// AccessEntry is one recorded cache access.
type AccessEntry struct {
	Seq     uint64
	Op      string
	Addr    uint64
	SetID   int
	WayID   int
	Hit     bool
	Evicted bool
}

// A Recorder persists simulation events. Entries are flat structs of scalar
// fields; column names follow the field names.
type Recorder interface {
	// CreateTable creates a table shaped after the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers one entry for the named table.
	InsertData(tableName string, entry any)

	// Flush writes all buffered entries to the database.
	Flush()
}

// NewRecorder creates a SQLite-backed Recorder. With an empty path a unique
// database name is generated. The ".sqlite3" suffix is appended, the file
// must not already exist, and buffered entries are flushed at process exit.
func NewRecorder(path string) Recorder {
	if path == "" {
		path = "rvsim_trace_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("recording file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Recording cache trace to: %s\n", filename)

	r := &sqliteRecorder{
		db:        db,
		batchSize: 100000,
		buffered:  make(map[string][]any),
	}

	atexit.Register(func() { r.Flush() })

	return r
}

type sqliteRecorder struct {
	db        *sql.DB
	batchSize int
	buffered  map[string][]any
	count     int
}

func (r *sqliteRecorder) CreateTable(tableName string, sampleEntry any) {
	columns := strings.Join(structs.Names(sampleEntry), ",\n\t")
	r.mustExecute("CREATE TABLE " + tableName + " (\n\t" + columns + "\n);")

	r.buffered[tableName] = []any{}
}

func (r *sqliteRecorder) InsertData(tableName string, entry any) {
	entries, ok := r.buffered[tableName]
	if !ok {
		panic(fmt.Sprintf("recording table %s does not exist", tableName))
	}

	r.buffered[tableName] = append(entries, entry)

	r.count++
	if r.count >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) Flush() {
	if r.count == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for tableName, entries := range r.buffered {
		if len(entries) == 0 {
			continue
		}

		stmt := r.prepareInsert(tableName, entries[0])
		for _, entry := range entries {
			if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
				panic(err)
			}
		}
		stmt.Close()

		r.buffered[tableName] = nil
	}

	r.count = 0
}

func (r *sqliteRecorder) prepareInsert(
	tableName string,
	sampleEntry any,
) *sql.Stmt {
	placeholders := make([]string, len(structs.Names(sampleEntry)))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := r.db.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}

func (r *sqliteRecorder) mustExecute(query string) {
	if _, err := r.db.Exec(query); err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", query, err))
	}
}
