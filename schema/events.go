package schema

// BackendEventType identifies the payload of a backend push event.
type BackendEventType string

const (
	// BackendOutput carries raw output bytes for a session.
	BackendOutput BackendEventType = "output"
	// BackendExit reports that a session's process exited.
	BackendExit BackendEventType = "exit"
)

// BackendEvent is one entry on the backend's single multiplexed push stream.
// Output events for one session arrive in emission order; no ordering holds
// between different sessions.
type BackendEvent struct {
	Type      BackendEventType
	SessionID SessionID
	Data      []byte
	// Offset is the session's cumulative output stream position after Data,
	// in bytes since the session started. Scrollback snapshots report the
	// same coordinate so a consumer can line the two up.
	Offset   int64
	ExitCode int
}

// WorkspaceEventType identifies a workspace-level change.
type WorkspaceEventType string

const (
	// WorkspaceSessions reports that the session list changed.
	WorkspaceSessions WorkspaceEventType = "sessions"
	// WorkspaceMode reports a mode or focus change.
	WorkspaceMode WorkspaceEventType = "mode"
	// WorkspaceOutput reports new output rendered into a pane buffer.
	WorkspaceOutput WorkspaceEventType = "output"
)

// WorkspaceEvent is emitted to UI subscribers after workspace state changes.
type WorkspaceEvent struct {
	Type      WorkspaceEventType
	SessionID SessionID
}
