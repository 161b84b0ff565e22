package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// cell is one rendered position of the target text: the styled glyph,
// its display width, and whether the target rune is a space.
type cell struct {
	text  string
	width int
	space bool
}

// styleCells classifies every target rune against the typed input.
// Typed runes render correct or incorrect (a mistyped space becomes a
// red bullet so the error stays visible); untyped runes in the word
// under the cursor get the current-word highlight; the cursor position
// is underlined.
func styleCells(target, input []rune, cursor int) []cell {
	wordStart, wordEnd := currentWordBounds(target, cursor)
	cells := make([]cell, 0, len(target))
	for i, r := range target {
		shown := r
		var style lipgloss.Style
		switch {
		case i < len(input) && r == ' ' && input[i] != ' ':
			shown = '•'
			style = incorrectStyle
		case i < len(input) && input[i] == r:
			style = correctStyle
		case i < len(input):
			style = incorrectStyle
		case r != ' ' && i >= wordStart && i < wordEnd:
			style = currentWordStyle
		default:
			style = pendingStyle
		}
		if i == cursor && i >= len(input) {
			style = style.Underline(true)
		}
		cells = append(cells, cell{
			text:  style.Render(string(shown)),
			width: runewidth.RuneWidth(shown),
			space: r == ' ',
		})
	}
	return cells
}

// currentWordBounds finds the word the cursor is in, or the next word
// when the cursor sits on a space. Returns (-1, -1) when the cursor is
// outside the text.
func currentWordBounds(target []rune, cursor int) (int, int) {
	if cursor < 0 || cursor >= len(target) {
		return -1, -1
	}
	start := cursor
	if target[start] == ' ' {
		for start < len(target) && target[start] == ' ' {
			start++
		}
		if start == len(target) {
			return -1, -1
		}
	} else {
		for start > 0 && target[start-1] != ' ' {
			start--
		}
	}
	end := start
	for end < len(target) && target[end] != ' ' {
		end++
	}
	return start, end
}

func renderCells(cells []cell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteString(c.text)
	}
	return b.String()
}

// wrapCells word-wraps the styled text to width columns. Words wider
// than a full line are hard-broken; a space falling on a line break is
// dropped.
func wrapCells(cells []cell, width int) string {
	if width <= 0 {
		return renderCells(cells)
	}
	var lines []string
	var line []cell
	lineWidth := 0
	flush := func() {
		lines = append(lines, renderCells(line))
		line = nil
		lineWidth = 0
	}

	for i := 0; i < len(cells); {
		j := i + 1
		tokenWidth := cells[i].width
		if !cells[i].space {
			for j < len(cells) && !cells[j].space {
				tokenWidth += cells[j].width
				j++
			}
		}
		switch {
		case lineWidth+tokenWidth <= width:
			line = append(line, cells[i:j]...)
			lineWidth += tokenWidth
		case cells[i].space:
			flush()
		case tokenWidth <= width:
			flush()
			line = append(line, cells[i:j]...)
			lineWidth = tokenWidth
		default:
			for _, c := range cells[i:j] {
				if lineWidth+c.width > width && lineWidth > 0 {
					flush()
				}
				line = append(line, c)
				lineWidth += c.width
			}
		}
		i = j
	}
	lines = append(lines, renderCells(line))
	return strings.Join(lines, "\n")
}

// RenderTyping renders target text against typed input, styled and
// wrapped to width. A non-negative cursorIndex underlines that
// position; width <= 0 disables wrapping.
func RenderTyping(target, input []rune, cursorIndex, width int) string {
	return wrapCells(styleCells(target, input, cursorIndex), width)
}
