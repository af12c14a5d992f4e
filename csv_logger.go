package maple

import (
	"bytes"
	"fmt"
	"strings"
)

// CSVRunLogger is a RunLogger that writes placement/topology
// diagnostics as comma-delimited files, adapted from the teacher's
// CSVLogger (csv_logger.go).
type CSVRunLogger struct {
	placementPath   string
	topologyPath    string
	rateMatrixPath  string
	countMatrixPath string
}

// NewCSVRunLogger creates a logger that writes CSV files under prefix.
func NewCSVRunLogger(prefix string) *CSVRunLogger {
	l := new(CSVRunLogger)
	l.SetBasePath(prefix)
	return l
}

// SetBasePath sets the file-name prefix every output file derives from.
func (l *CSVRunLogger) SetBasePath(prefix string) {
	prefix = strings.TrimSuffix(prefix, ".")
	l.placementPath = prefix + ".placements.csv"
	l.topologyPath = prefix + ".topology.csv"
	l.rateMatrixPath = prefix + ".rateMatrices.txt"
	l.countMatrixPath = prefix + ".countMatrices.txt"
}

// Init writes header rows to each output file.
func (l *CSVRunLogger) Init() error {
	if err := NewFile(l.placementPath, []byte("sample,targetNode,loglhDelta,attempts\n")); err != nil {
		return err
	}
	if err := NewFile(l.topologyPath, []byte("round,numApplied,loglhDelta\n")); err != nil {
		return err
	}
	return nil
}

// WritePlacements records one row per placement event (spec.md §6).
func (l *CSVRunLogger) WritePlacements(c <-chan PlacementEvent) {
	const template = "%s,%d,%g,%d\n"
	var b bytes.Buffer
	for ev := range c {
		b.WriteString(fmt.Sprintf(template, ev.SampleName, ev.TargetNodeID, ev.LogLHDelta, ev.Attempts))
	}
	AppendToFile(l.placementPath, b.Bytes())
}

// WriteTopologyRounds records one row per SPR improvement round.
func (l *CSVRunLogger) WriteTopologyRounds(c <-chan TopologyEvent) {
	const template = "%d,%d,%g\n"
	var b bytes.Buffer
	for ev := range c {
		b.WriteString(fmt.Sprintf(template, ev.Round, ev.NumApplied, ev.LogLHDelta))
	}
	AppendToFile(l.topologyPath, b.Bytes())
}

// WriteRateMatrix appends the current Q matrix to the rate-matrix trace
// file (spec.md §6's optional .rateMatrices.txt output).
func (l *CSVRunLogger) WriteRateMatrix(q [][]float64) error {
	var b bytes.Buffer
	for _, row := range q {
		for j, v := range row {
			if j > 0 {
				b.WriteString("\t")
			}
			b.WriteString(fmt.Sprintf("%g", v))
		}
		b.WriteString("\n")
	}
	return AppendToFile(l.rateMatrixPath, b.Bytes())
}

// WriteCountMatrix appends the current pseudocount matrix (spec.md §6's
// optional .countMatrices.txt output).
func (l *CSVRunLogger) WriteCountMatrix(counts [][]float64) error {
	var b bytes.Buffer
	for _, row := range counts {
		for j, v := range row {
			if j > 0 {
				b.WriteString("\t")
			}
			b.WriteString(fmt.Sprintf("%g", v))
		}
		b.WriteString("\n")
	}
	return AppendToFile(l.countMatrixPath, b.Bytes())
}
