package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/gridmux/schema"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiReverse = "\x1b[7m"
)

// renderGrid lays the workspace out as bordered cells and returns the screen
// lines plus the cursor placement for the focused pane. Row and column are
// 1-based; showCursor is false unless a focused pane wants its cursor shown.
func renderGrid(snap schema.WorkspaceSnapshot, views map[schema.SessionID]schema.PaneViewResponse, width, height int) (lines []string, cursorRow, cursorCol int, showCursor bool) {
	if width < 4 {
		width = 4
	}
	if height < 3 {
		height = 3
	}
	gridHeight := height - 1

	lines = make([]string, 0, height)
	if len(snap.Sessions) == 0 {
		for i := 0; i < gridHeight; i++ {
			if i == gridHeight/2 {
				lines = append(lines, centerLine("no panes. press n to open one.", width))
				continue
			}
			lines = append(lines, strings.Repeat(" ", width))
		}
		lines = append(lines, statusBar(snap, width))
		return lines, 1, 1, false
	}

	cols := snap.Layout.Cols
	rows := snap.Layout.Rows
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	cellW := width / cols
	cellH := gridHeight / rows
	if cellW < 4 {
		cellW = 4
	}
	if cellH < 3 {
		cellH = 3
	}

	cells := make([][]string, cols*rows)
	for i := range cells {
		cells[i] = blankCell(cellW, cellH)
	}
	for _, sess := range snap.Sessions {
		idx := sess.Session.PaneIndex
		if idx < 0 || idx >= len(cells) {
			continue
		}
		cells[idx] = renderCell(sess, views[sess.Session.ID], cellW, cellH, snap.Mode)
	}

	for row := 0; row < rows; row++ {
		for line := 0; line < cellH; line++ {
			var b strings.Builder
			for col := 0; col < cols; col++ {
				b.WriteString(cells[row*cols+col][line])
			}
			out := b.String()
			if pad := width - cols*cellW; pad > 0 {
				out += strings.Repeat(" ", pad)
			}
			lines = append(lines, out)
		}
	}
	for len(lines) < gridHeight {
		lines = append(lines, strings.Repeat(" ", width))
	}
	lines = lines[:gridHeight]
	lines = append(lines, statusBar(snap, width))

	if snap.Mode == schema.ModeTerminal && snap.Active != "" {
		if view, ok := views[snap.Active]; ok && view.CursorVisible {
			for _, sess := range snap.Sessions {
				if sess.Session.ID != snap.Active {
					continue
				}
				idx := sess.Session.PaneIndex
				cellRow := idx / cols
				cellCol := idx % cols
				cursorRow = cellRow*cellH + 1 + view.CursorY + 1
				cursorCol = cellCol*cellW + 1 + view.CursorX + 1
				showCursor = cursorRow <= gridHeight && cursorCol <= width
			}
		}
	}
	if !showCursor {
		cursorRow, cursorCol = 1, 1
	}
	return lines, cursorRow, cursorCol, showCursor
}

func renderCell(sess schema.SessionSnapshot, view schema.PaneViewResponse, cellW, cellH int, mode schema.Mode) []string {
	inner := cellW - 2
	out := make([]string, 0, cellH)
	out = append(out, cellTop(sess, cellW, mode))
	for y := 0; y < cellH-2; y++ {
		content := ""
		if y < len(view.Lines) {
			content = view.Lines[y]
		}
		content = runewidth.Truncate(content, inner, "")
		content = runewidth.FillRight(content, inner)
		out = append(out, "│"+content+"│")
	}
	out = append(out, "└"+strings.Repeat("─", inner)+"┘")
	return out
}

func cellTop(sess schema.SessionSnapshot, cellW int, mode schema.Mode) string {
	label := fmt.Sprintf("[%d] %s", sess.Session.PaneIndex+1, sess.Session.Agent.Label())
	if sess.Session.Branch != "" {
		label += " (" + sess.Session.Branch + ")"
	}
	inner := cellW - 2
	label = runewidth.Truncate(label, inner, "…")
	style := ""
	switch {
	case sess.Active && mode == schema.ModeTerminal:
		style = ansiBold
	case sess.Selected:
		style = ansiReverse
	}
	header := label
	if style != "" {
		header = style + label + ansiReset
	}
	fill := inner - runewidth.StringWidth(label)
	if fill < 0 {
		fill = 0
	}
	return "┌" + header + strings.Repeat("─", fill) + "┐"
}

func blankCell(cellW, cellH int) []string {
	out := make([]string, 0, cellH)
	for i := 0; i < cellH; i++ {
		out = append(out, strings.Repeat(" ", cellW))
	}
	return out
}

func statusBar(snap schema.WorkspaceSnapshot, width int) string {
	mode := " NAV "
	hint := "arrows/hjkl move · 1-9 jump · enter focus · n new · x close · q quit"
	if snap.Mode == schema.ModeTerminal {
		mode = " TERM "
		hint = "esc esc to leave"
	}
	text := mode + "· " + fmt.Sprintf("%d pane(s) ", len(snap.Sessions)) + ansiDim + hint + ansiReset
	plain := mode + "· " + fmt.Sprintf("%d pane(s) ", len(snap.Sessions)) + hint
	fill := width - runewidth.StringWidth(plain)
	if fill < 0 {
		return runewidth.Truncate(plain, width, "")
	}
	return text + strings.Repeat(" ", fill)
}

func centerLine(text string, width int) string {
	w := runewidth.StringWidth(text)
	if w >= width {
		return runewidth.Truncate(text, width, "")
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", width-w-left)
}
