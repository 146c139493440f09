package tui

import (
	"strings"
	"testing"

	"pkt.systems/gridmux/schema"
)

func twoPaneSnapshot() schema.WorkspaceSnapshot {
	return schema.WorkspaceSnapshot{
		Sessions: []schema.SessionSnapshot{
			{
				Session:  schema.Session{ID: "s1", PaneIndex: 0, Agent: schema.AgentShell},
				Selected: true,
			},
			{
				Session: schema.Session{ID: "s2", PaneIndex: 1, Agent: schema.AgentClaude, Branch: "main"},
			},
		},
		Mode:     schema.ModeNavigation,
		Selected: "s1",
		Layout:   schema.GridLayout{Cols: 2, Rows: 1},
	}
}

func TestRenderGridShapesLines(t *testing.T) {
	views := map[schema.SessionID]schema.PaneViewResponse{
		"s1": {Lines: []string{"$ ls"}},
		"s2": {Lines: []string{"hi"}},
	}
	lines, _, _, showCursor := renderGrid(twoPaneSnapshot(), views, 40, 12)
	if len(lines) != 12 {
		t.Fatalf("lines = %d, want 12", len(lines))
	}
	if showCursor {
		t.Fatalf("cursor shown in navigation mode")
	}
	if !strings.Contains(lines[0], "┌") {
		t.Fatalf("missing top border: %q", lines[0])
	}
	if !strings.Contains(lines[0], "[1] shell") {
		t.Fatalf("missing first header: %q", lines[0])
	}
	if !strings.Contains(lines[0], "[2] claude (main)") {
		t.Fatalf("missing second header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "$ ls") {
		t.Fatalf("missing pane content: %q", lines[1])
	}
	status := lines[len(lines)-1]
	if !strings.Contains(status, "NAV") || !strings.Contains(status, "2 pane(s)") {
		t.Fatalf("status bar = %q", status)
	}
}

func TestRenderGridMarksSelection(t *testing.T) {
	lines, _, _, _ := renderGrid(twoPaneSnapshot(), nil, 40, 12)
	if !strings.Contains(lines[0], ansiReverse+"[1] shell") {
		t.Fatalf("selected header not reverse-video: %q", lines[0])
	}
}

func TestRenderGridPlacesCursorInActivePane(t *testing.T) {
	snap := twoPaneSnapshot()
	snap.Mode = schema.ModeTerminal
	snap.Active = "s2"
	snap.Sessions[1].Active = true
	views := map[schema.SessionID]schema.PaneViewResponse{
		"s2": {Lines: []string{""}, CursorX: 3, CursorY: 2, CursorVisible: true},
	}
	_, cursorRow, cursorCol, showCursor := renderGrid(snap, views, 40, 12)
	if !showCursor {
		t.Fatalf("cursor hidden for active pane")
	}
	// Pane 1 occupies the right half: cell starts at column 21, row 1.
	// Interior offset adds the border, then the cursor position.
	if cursorRow != 4 {
		t.Fatalf("cursorRow = %d, want 4", cursorRow)
	}
	if cursorCol != 25 {
		t.Fatalf("cursorCol = %d, want 25", cursorCol)
	}
}

func TestRenderGridEmptyWorkspace(t *testing.T) {
	snap := schema.WorkspaceSnapshot{Layout: schema.GridLayout{Cols: 1, Rows: 1}}
	lines, _, _, showCursor := renderGrid(snap, nil, 30, 6)
	if len(lines) != 6 {
		t.Fatalf("lines = %d, want 6", len(lines))
	}
	if showCursor {
		t.Fatalf("cursor shown with no panes")
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "no panes") {
		t.Fatalf("hint missing: %q", joined)
	}
}

func TestStatusBarTerminalMode(t *testing.T) {
	snap := twoPaneSnapshot()
	snap.Mode = schema.ModeTerminal
	bar := statusBar(snap, 60)
	if !strings.Contains(bar, "TERM") || !strings.Contains(bar, "esc esc") {
		t.Fatalf("status bar = %q", bar)
	}
}
