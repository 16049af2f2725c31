package gallery

import (
	"os"
	"strings"
	"testing"
)

func TestRenderSeverityChart(t *testing.T) {
	g := New(t.TempDir())

	path, err := g.RenderSeverityChart(sampleReports())
	if err != nil {
		t.Fatalf("RenderSeverityChart() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read chart file: %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"Flagged moves by severity",
		"2 games scanned",
		"inaccuracy",
		"mistake",
		"blunder",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("severity chart missing %s", want)
		}
	}
}

func TestRenderLossChart(t *testing.T) {
	g := New(t.TempDir())

	path, err := g.RenderLossChart(sampleReports())
	if err != nil {
		t.Fatalf("RenderLossChart() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read chart file: %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"Centipawn loss per flagged move",
		"abcd1234 #9",
		"abcd1234 #12",
		"320",
		"CP loss",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("loss chart missing %s", want)
		}
	}
}

func TestRenderChartsIntoMissingDirectory(t *testing.T) {
	g := New(t.TempDir() + "/charts/out")

	if _, err := g.RenderSeverityChart(nil); err != nil {
		t.Fatalf("RenderSeverityChart() error = %v", err)
	}
	if _, err := g.RenderLossChart(nil); err != nil {
		t.Fatalf("RenderLossChart() error = %v", err)
	}
}
