package overlay

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/ansi"
	"github.com/muesli/reflow/truncate"
)

// PlaceOverlay draws fg on top of bg with its top-left corner at (x, y).
// With center set, x and y are ignored and fg is centered. Both strings may
// contain ANSI escape sequences; widths are measured in terminal cells.
func PlaceOverlay(x, y int, fg, bg string, center bool) string {
	fgLines, fgWidth := getLines(fg)
	bgLines, bgWidth := getLines(bg)
	fgHeight := len(fgLines)
	bgHeight := len(bgLines)

	if fgWidth >= bgWidth && fgHeight >= bgHeight {
		return fg
	}

	// A taller foreground extends the background downwards.
	for len(bgLines) < fgHeight {
		bgLines = append(bgLines, "")
	}
	bgHeight = len(bgLines)

	if center {
		x = (bgWidth - fgWidth) / 2
		y = (bgHeight - fgHeight) / 2
	}
	x = clamp(x, 0, max(bgWidth-fgWidth, 0))
	y = clamp(y, 0, max(bgHeight-fgHeight, 0))

	var b strings.Builder
	for i, bgLine := range bgLines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i < y || i >= y+fgHeight {
			b.WriteString(bgLine)
			continue
		}

		pos := 0
		if x > 0 {
			left := truncate.String(bgLine, uint(x))
			pos = ansi.PrintableRuneWidth(left)
			b.WriteString(left)
			if pos < x {
				b.WriteString(strings.Repeat(" ", x-pos))
				pos = x
			}
		}

		fgLine := fgLines[i-y]
		b.WriteString(fgLine)
		pos += ansi.PrintableRuneWidth(fgLine)

		right := cutLeft(bgLine, pos)
		bgLineWidth := ansi.PrintableRuneWidth(bgLine)
		rightWidth := ansi.PrintableRuneWidth(right)
		if rightWidth <= bgLineWidth-pos {
			b.WriteString(strings.Repeat(" ", bgLineWidth-rightWidth-pos))
		}
		b.WriteString(right)
	}
	return b.String()
}

// cutLeft drops the first cutWidth cells of s. Escape sequences that are
// still in effect at the cut are kept.
func cutLeft(s string, cutWidth int) string {
	var (
		pos     int
		inAnsi  bool
		started bool
		seq     strings.Builder
		b       strings.Builder
	)
	start := func() {
		if started {
			return
		}
		started = true
		b.WriteString(seq.String())
		// A wide rune straddled the cut.
		if pos > cutWidth {
			b.WriteString(strings.Repeat(" ", pos-cutWidth))
		}
	}
	for _, c := range s {
		if c == ansi.Marker || inAnsi {
			inAnsi = !ansi.IsTerminator(c)
			if pos >= cutWidth {
				start()
				b.WriteRune(c)
				continue
			}
			seq.WriteRune(c)
			// A reset cancels everything collected so far.
			if !inAnsi && strings.HasSuffix(seq.String(), "[0m") {
				seq.Reset()
			}
			continue
		}
		if pos >= cutWidth {
			start()
			b.WriteRune(c)
		}
		pos += runewidth.RuneWidth(c)
	}
	return b.String()
}

func getLines(s string) (lines []string, widest int) {
	lines = strings.Split(s, "\n")
	for _, l := range lines {
		if w := ansi.PrintableRuneWidth(l); w > widest {
			widest = w
		}
	}
	return lines, widest
}

func clamp(v, lower, upper int) int {
	return min(max(v, lower), upper)
}
