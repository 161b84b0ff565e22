package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is a named run of values to plot, one point per test.
type Series struct {
	Name   string
	Values []float64
}

type valueRange struct {
	lo float64
	hi float64
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	axisLabelTop      = "max"
	axisLabelMid      = "mid"
	axisLabelBottom   = "min"
	axisSeparator     = " │ "
	scaleNote         = "Each series is scaled to its own range:"
	colorReset        = "\x1b[0m"
	fallbackTermWidth = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var plotColors = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// PlotSeries renders a braille line plot of the series.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return plotSeries(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders a braille line plot, optionally forcing
// ANSI colors even when w is not a terminal.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	return plotSeries(w, title, series, width, height, forceColor)
}

func plotSeries(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	series = nonEmpty(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	ranges := make([]valueRange, len(series))
	grids := make([][][]uint8, len(series))
	for i, s := range series {
		values := resample(s.Values, width)
		ranges[i] = rangeOf(values)
		grids[i] = rasterize(values, ranges[i], width, height, lineStyles[i%len(lineStyles)])
	}

	useColor := shouldUseColor(w, forceColor)
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, scaleNote); err != nil {
		return err
	}
	for i, s := range series {
		if _, err := fmt.Fprintf(w, "  %s: min %.1f, max %.1f\n", s.Name, ranges[i].lo, ranges[i].hi); err != nil {
			return err
		}
	}

	labels := axisLabels(height)
	labelWidth := utf8.RuneCountInString(axisLabelTop)
	for y := 0; y < height; y++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", labelWidth, labels[y], axisSeparator)
		for x := 0; x < width; x++ {
			mask, owner := mergeCell(grids, x, y)
			ch := brailleRune(mask)
			if useColor && owner >= 0 {
				row.WriteString(plotColors[owner%len(plotColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, legend(series, useColor)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// rasterize draws one series onto a fresh braille dot grid. Each text
// cell holds 2x4 dots, so the grid resolution is width*2 by height*4.
func rasterize(values []float64, r valueRange, width, height int, style lineStyle) [][]uint8 {
	grid := make([][]uint8, height)
	for y := range grid {
		grid[y] = make([]uint8, width)
	}
	dotRows := height * 4
	prevX, prevY := -1, -1
	for x, v := range values {
		px := x * 2
		py := dotRow(v, r, dotRows)
		if prevX >= 0 {
			bresenham(prevX, prevY, px, py, func(dx, dy int) {
				if style.visibleAt(dx) {
					plotDot(grid, dx, dy)
				}
			})
		} else if style.visibleAt(px) {
			plotDot(grid, px, py)
		}
		prevX, prevY = px, py
	}
	return grid
}

func nonEmpty(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// PlotWidthFor returns the plot width that fits alongside the axis
// labels in a terminal of totalWidth columns.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axis := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	width := totalWidth - axis
	if width < minPlotWidth {
		width = minPlotWidth
	}
	return width
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	if height == 0 {
		return labels
	}
	labels[0] = axisLabelTop
	if height > 2 {
		labels[height/2] = axisLabelMid
	}
	if height > 1 {
		labels[height-1] = axisLabelBottom
	}
	return labels
}

// mergeCell overlays every series grid at one cell. The owner is the
// first series with a dot there and decides the cell's color.
func mergeCell(grids [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, grid := range grids {
		if y >= len(grid) || x >= len(grid[y]) {
			continue
		}
		if grid[y][x] == 0 {
			continue
		}
		if owner == -1 {
			owner = i
		}
		mask |= grid[y][x]
	}
	return mask, owner
}

func (ls lineStyle) visibleAt(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

// resample stretches or shrinks values to exactly width points, by
// bucket averaging when shrinking and linear interpolation when
// stretching.
func resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := 0; i < width; i++ {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(math.Floor(pos))
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func rangeOf(values []float64) valueRange {
	r := valueRange{lo: math.Inf(1), hi: math.Inf(-1)}
	for _, v := range values {
		r.lo = math.Min(r.lo, v)
		r.hi = math.Max(r.hi, v)
	}
	if math.IsInf(r.lo, 1) {
		r.lo, r.hi = 0, 0
	}
	// A flat series still needs a non-zero span to land mid-plot.
	if math.Abs(r.hi-r.lo) < 1e-9 {
		r.lo--
		r.hi++
	}
	return r
}

func dotRow(v float64, r valueRange, dotRows int) int {
	if dotRows <= 1 {
		return 0
	}
	pos := (v - r.lo) / (r.hi - r.lo)
	row := int(math.Round((1 - pos) * float64(dotRows-1)))
	if row < 0 {
		row = 0
	}
	if row >= dotRows {
		row = dotRows - 1
	}
	return row
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	marker := brailleRune(0x01)
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s)", marker, s.Name, lineStyles[i%len(lineStyles)].name)
		if useColor {
			label = plotColors[i%len(plotColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// bresenham walks the integer line from (x0,y0) to (x1,y1).
func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				return
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				return
			}
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func plotDot(grid [][]uint8, x, y int) {
	if x < 0 || y < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(grid) || cellX >= len(grid[cellY]) {
		return
	}
	grid[cellY][cellX] |= dotMask(x%2, y%4)
}

// dotMask maps a dot position inside a braille cell to its bit in the
// U+2800 block encoding.
func dotMask(x, y int) uint8 {
	masks := [4][2]uint8{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	if y < 0 || y > 3 || x < 0 || x > 1 {
		return 0
	}
	return masks[y][x]
}

func brailleRune(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
