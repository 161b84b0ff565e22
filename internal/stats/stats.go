// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"keyduel/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints an aggregate summary for the attempts.
func RenderSummary(w io.Writer, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No tests found.")
		return err
	}
	var totalWPM, totalAcc float64
	bestWPM := 0
	for _, e := range entries {
		totalWPM += float64(e.WPM)
		totalAcc += float64(e.Accuracy)
		if e.WPM > bestWPM {
			bestWPM = e.WPM
		}
	}
	count := float64(len(entries))
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Tests: %d\n", len(entries)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg WPM: %.1f\n", totalWPM/count); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best WPM: %d\n", bestWPM); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Accuracy: %.1f%%\n", totalAcc/count); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCurves prints learning curves for WPM and accuracy.
func RenderCurves(w io.Writer, entries []model.HistoryEntry, window int) error {
	return RenderCurvesWithSize(w, entries, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, entries []model.HistoryEntry, window, totalWidth, height int, useColor bool) error {
	if len(entries) == 0 {
		return nil
	}
	wpms := make([]float64, len(entries))
	accs := make([]float64, len(entries))
	for i, e := range entries {
		wpms[i] = float64(e.WPM)
		accs[i] = float64(e.Accuracy)
	}
	wpms = MovingAverage(wpms, window)
	accs = MovingAverage(accs, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "WPM", Values: wpms},
		{Name: "Accuracy", Values: accs},
	}, width, height, useColor)
}

// RenderHistoryTable prints one row per attempt, newest last.
func RenderHistoryTable(w io.Writer, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No tests found.")
		return err
	}
	tbl := newTable([]string{"Date", "Level", "Lang", "WPM", "Accuracy", "Length"}, 3, 4, 5)
	for _, e := range entries {
		tbl.add(
			e.CreatedAt.Format("2006-01-02 15:04"),
			string(e.Level),
			e.Language,
			fmt.Sprintf("%d", e.WPM),
			fmt.Sprintf("%d%%", e.Accuracy),
			lengthLabel(e.Level, e.WordCount, e.Seconds),
		)
	}
	for _, line := range tbl.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderLeaderboard prints the top scores table.
func RenderLeaderboard(w io.Writer, entries []model.LeaderboardEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Leaderboard is empty.")
		return err
	}
	tbl := newTable([]string{"#", "Name", "WPM", "Accuracy", "Level", "Lang", "Date"}, 0, 2, 3)
	for i, e := range entries {
		tbl.add(
			fmt.Sprintf("%d", i+1),
			e.Name,
			fmt.Sprintf("%d", e.WPM),
			fmt.Sprintf("%d%%", e.Accuracy),
			string(e.Level),
			e.Language,
			e.CreatedAt.Format("2006-01-02"),
		)
	}
	for _, line := range tbl.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderWrongWords prints the most frequently missed words.
func RenderWrongWords(w io.Writer, ranked []MissedWord) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No missed words yet.")
		return err
	}
	tbl := newTable([]string{"Word", "Misses"}, 1)
	for _, mw := range ranked {
		tbl.add(mw.Word, fmt.Sprintf("%d", mw.Count))
	}
	for _, line := range tbl.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func lengthLabel(level model.DifficultyLevel, wordCount, seconds *int) string {
	if level == model.LevelTime {
		if seconds != nil {
			return fmt.Sprintf("%ds", *seconds)
		}
		return "-"
	}
	if wordCount != nil {
		return fmt.Sprintf("%dw", *wordCount)
	}
	return "-"
}

// SinceDays converts a day count into a history filter cutoff.
func SinceDays(now time.Time, days int) *time.Time {
	if days <= 0 {
		return nil
	}
	cutoff := now.AddDate(0, 0, -days)
	return &cutoff
}
