package schema

// SessionID identifies one terminal-backed process. IDs are stable for the
// process lifetime and never reused while any reference to them is held.
type SessionID string

// AgentType is a categorical tag for the program running in a session. It
// affects badges and the spawn command table, never the multiplexing logic.
type AgentType string

const (
	// AgentShell runs a plain interactive shell.
	AgentShell AgentType = "shell"
	// AgentClaude runs the claude CLI.
	AgentClaude AgentType = "claude"
	// AgentCodex runs the codex CLI.
	AgentCodex AgentType = "codex"
	// AgentGemini runs the gemini CLI.
	AgentGemini AgentType = "gemini"
)

var agentLabels = map[AgentType]string{
	AgentShell:  "shell",
	AgentClaude: "claude",
	AgentCodex:  "codex",
	AgentGemini: "gemini",
}

// Label returns the display label for the agent type.
func (a AgentType) Label() string {
	if label, ok := agentLabels[a]; ok {
		return label
	}
	return string(a)
}

// Mode is the workspace input mode.
type Mode string

const (
	// ModeNavigation selects panes; no keystrokes are forwarded.
	ModeNavigation Mode = "navigation"
	// ModeTerminal forwards keystrokes to the focused session.
	ModeTerminal Mode = "terminal"
)

// Direction is a pane-selection move in grid geometry.
type Direction string

const (
	// DirLeft moves the selection one column left.
	DirLeft Direction = "left"
	// DirRight moves the selection one column right.
	DirRight Direction = "right"
	// DirUp moves the selection one row up.
	DirUp Direction = "up"
	// DirDown moves the selection one row down.
	DirDown Direction = "down"
)

// Session describes one running terminal-backed process.
type Session struct {
	ID         SessionID
	PaneIndex  int
	Agent      AgentType
	Branch     string
	WorkingDir string
}
