package stats

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Learning Curves", []Series{
		{Name: "wpm", Values: []float64{40, 48, 55, 52, 61}},
		{Name: "accuracy", Values: []float64{91, 94, 96, 95, 97}},
	}, 20, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Learning Curves") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "wpm: min 40.0, max 61.0") {
		t.Fatalf("expected per-series range in output: %s", out)
	}
	if !strings.Contains(out, "max │") || !strings.Contains(out, "min │") {
		t.Fatalf("expected axis labels in output: %s", out)
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Empty", []Series{{Name: "wpm"}}, 20, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", buf.String())
	}
}

func TestResample(t *testing.T) {
	shrunk := resample([]float64{1, 1, 3, 3}, 2)
	if len(shrunk) != 2 || shrunk[0] != 1 || shrunk[1] != 3 {
		t.Fatalf("unexpected shrink result: %v", shrunk)
	}
	stretched := resample([]float64{0, 2}, 3)
	if len(stretched) != 3 || stretched[1] != 1 {
		t.Fatalf("unexpected stretch result: %v", stretched)
	}
}

func TestPlotWidthFor(t *testing.T) {
	axis := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	if got := PlotWidthFor(80); got != 80-axis {
		t.Fatalf("expected width %d, got %d", 80-axis, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}
