package maple

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SQLiteRunLogger is a RunLogger that writes placement/topology
// diagnostics to a SQLite database, adapted from the teacher's
// SQLiteLogger (sqlite_logger.go).
type SQLiteRunLogger struct {
	path string
}

// NewSQLiteRunLogger creates a logger backed by a SQLite database file
// derived from prefix.
func NewSQLiteRunLogger(prefix string) *SQLiteRunLogger {
	l := new(SQLiteRunLogger)
	l.SetBasePath(prefix)
	return l
}

// SetBasePath sets the database file path.
func (l *SQLiteRunLogger) SetBasePath(prefix string) {
	l.path = strings.TrimSuffix(prefix, ".") + ".run.db"
}

// Init creates the Placements, TopologyRounds, RateMatrix, and
// CountMatrix tables.
func (l *SQLiteRunLogger) Init() error {
	db, err := OpenSQLiteDBOptimized(l.path)
	if err != nil {
		return err
	}
	defer db.Close()
	stmts := []string{
		"create table if not exists Placements (id integer not null primary key, sample text, targetNode integer, loglhDelta real, attempts integer)",
		"create table if not exists TopologyRounds (id integer not null primary key, round integer, numApplied integer, loglhDelta real)",
		"create table if not exists RateMatrix (id integer not null primary key, row integer, col integer, value real)",
		"create table if not exists CountMatrix (id integer not null primary key, row integer, col integer, value real)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "creating run-log table: %s", stmt)
		}
	}
	return nil
}

// WritePlacements records one row per placement event.
func (l *SQLiteRunLogger) WritePlacements(c <-chan PlacementEvent) {
	db, err := OpenSQLiteDBOptimized(l.path)
	if err != nil {
		return
	}
	defer db.Close()
	tx, err := db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare("insert into Placements(sample, targetNode, loglhDelta, attempts) values(?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return
	}
	defer stmt.Close()
	for ev := range c {
		if _, err := stmt.Exec(ev.SampleName, ev.TargetNodeID, ev.LogLHDelta, ev.Attempts); err != nil {
			break
		}
	}
	tx.Commit()
}

// WriteTopologyRounds records one row per SPR improvement round.
func (l *SQLiteRunLogger) WriteTopologyRounds(c <-chan TopologyEvent) {
	db, err := OpenSQLiteDBOptimized(l.path)
	if err != nil {
		return
	}
	defer db.Close()
	tx, err := db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare("insert into TopologyRounds(round, numApplied, loglhDelta) values(?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return
	}
	defer stmt.Close()
	for ev := range c {
		if _, err := stmt.Exec(ev.Round, ev.NumApplied, ev.LogLHDelta); err != nil {
			break
		}
	}
	tx.Commit()
}

// WriteRateMatrix records the current substitution rate matrix.
func (l *SQLiteRunLogger) WriteRateMatrix(q [][]float64) error {
	return l.writeMatrix("RateMatrix", q)
}

// WriteCountMatrix records the accumulated pseudocount matrix.
func (l *SQLiteRunLogger) WriteCountMatrix(counts [][]float64) error {
	return l.writeMatrix("CountMatrix", counts)
}

func (l *SQLiteRunLogger) writeMatrix(table string, m [][]float64) error {
	db, err := OpenSQLiteDBOptimized(l.path)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf("insert into %s(row, col, value) values(?, ?, ?)", table))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i, row := range m {
		for j, v := range row {
			if _, err := stmt.Exec(i, j, v); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}
