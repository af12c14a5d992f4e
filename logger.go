package maple

import (
	"database/sql"
	"fmt"
	"os"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// RunLogger is the channel-fed diagnostics sink the orchestrator writes
// to, mirroring the teacher's DataLogger interface but shaped around
// placement/topology/model events instead of simulation events.
type RunLogger interface {
	// SetBasePath sets the path (or path prefix) the logger writes to.
	SetBasePath(path string)
	// Init prepares the destination (creates files/tables, writes
	// headers) before any Write* call.
	Init() error
	// WritePlacements records one row per sample placement decision.
	WritePlacements(c <-chan PlacementEvent)
	// WriteTopologyRounds records one row per SPR improvement round.
	WriteTopologyRounds(c <-chan TopologyEvent)
	// WriteRateMatrix records the current substitution rate matrix.
	WriteRateMatrix(q [][]float64) error
	// WriteCountMatrix records the accumulated pseudocount matrix.
	WriteCountMatrix(counts [][]float64) error
}

// PlacementEvent captures one placement decision for diagnostics
// (spec.md §6's run log).
type PlacementEvent struct {
	SampleName   string
	TargetNodeID int
	LogLHDelta   float64
	Attempts     int
}

// TopologyEvent captures one SPR improvement round's summary.
type TopologyEvent struct {
	Round      int
	NumApplied int
	LogLHDelta float64
}

// NewRunLogger selects a RunLogger implementation by driver name, per
// Config.Logging.Driver ("csv" or "sqlite").
func NewRunLogger(cfg *Config) RunLogger {
	if cfg.Logging.Driver == "sqlite" {
		return NewSQLiteRunLogger(cfg.Logging.Prefix)
	}
	return NewCSVRunLogger(cfg.Logging.Prefix)
}

// NewFile creates a new file on the given path if it does not exist.
func NewFile(path string, b []byte) error {
	if exists, _ := fileExists(path); exists {
		return fmt.Errorf("%s already exists", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	return f.Sync()
}

// AppendToFile creates a new file on the given path if needed, or
// appends to the end of the existing file.
func AppendToFile(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	return f.Sync()
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// OpenSQLiteDBOptimized establishes a database connection using WAL
// and exclusive locking.
func OpenSQLiteDBOptimized(path string) (*sql.DB, error) {
	return OpenSQLiteDB(path, "?_journal=WAL&_locking=EXCLUSIVE&_sync=NORMAL")
}

// OpenSQLiteDB establishes a database connection using the given
// connection string.
func OpenSQLiteDB(path, connectionString string) (*sql.DB, error) {
	dsn := "file:%s%s"
	db, err := sql.Open("sqlite3", fmt.Sprintf(dsn, path, connectionString))
	if err != nil {
		return nil, err
	}
	return db, nil
}
