package maple

import (
	"os"
	"strings"
	"testing"
)

func TestCSVRunLoggerSetBasePath(t *testing.T) {
	l := NewCSVRunLogger("/tmp/run1")
	if l.placementPath != "/tmp/run1.placements.csv" {
		t.Errorf("placementPath = %q, want /tmp/run1.placements.csv", l.placementPath)
	}
	if l.rateMatrixPath != "/tmp/run1.rateMatrices.txt" {
		t.Errorf("rateMatrixPath = %q, want /tmp/run1.rateMatrices.txt", l.rateMatrixPath)
	}
}

func TestCSVRunLoggerInitAndWrite(t *testing.T) {
	dir := t.TempDir()
	l := NewCSVRunLogger(dir + "/run")
	if err := l.Init(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := make(chan PlacementEvent, 1)
	events <- PlacementEvent{SampleName: "s1", TargetNodeID: 2, LogLHDelta: -1.5, Attempts: 1}
	close(events)
	l.WritePlacements(events)

	data, err := os.ReadFile(l.placementPath)
	if err != nil {
		t.Fatalf("unexpected error reading placements file: %v", err)
	}
	if !strings.Contains(string(data), "s1,2") {
		t.Errorf("expected placement row in output, got %q", string(data))
	}

	if err := l.WriteRateMatrix([][]float64{{-1, 1}, {1, -1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rateData, err := os.ReadFile(l.rateMatrixPath)
	if err != nil {
		t.Fatalf("unexpected error reading rate matrix file: %v", err)
	}
	if !strings.Contains(string(rateData), "-1") {
		t.Errorf("expected rate matrix content, got %q", string(rateData))
	}
}
