package schema

// GridLayout is the derived pane arrangement for the current session count.
type GridLayout struct {
	Cols int
	Rows int
}

// SessionSnapshot is a read-only view of one pane for transports.
type SessionSnapshot struct {
	Session
	Selected bool
	Active   bool
}

// WorkspaceSnapshot is a read-only view of workspace state. Active is
// non-empty if and only if Mode is ModeTerminal; Selected is empty only
// when there are zero sessions.
type WorkspaceSnapshot struct {
	Sessions []SessionSnapshot
	Mode     Mode
	Selected SessionID
	Active   SessionID
	Layout   GridLayout
}

// PaneGeometry is one pane's terminal size in cells.
type PaneGeometry struct {
	Cols int
	Rows int
}
