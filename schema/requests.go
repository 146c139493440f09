package schema

// Backend session lifecycle.

// CreateSessionRequest asks the backend to spawn a new session.
type CreateSessionRequest struct {
	Agent      AgentType
	WorkingDir string
	Branch     string
}

// CreateSessionResponse reports the spawned session.
type CreateSessionResponse struct {
	Session Session
}

// Workspace pane lifecycle.

// CreatePaneRequest describes a request to open a new pane.
type CreatePaneRequest struct {
	Agent      AgentType
	WorkingDir string
	Branch     string
}

// CreatePaneResponse reports the created session.
type CreatePaneResponse struct {
	Session Session
}

// ClosePaneRequest describes a request to close a pane.
type ClosePaneRequest struct {
	SessionID SessionID
}

// ClosePaneResponse reports the closed session.
type ClosePaneResponse struct {
	Session Session
}

// SnapshotRequest asks for the current workspace state.
type SnapshotRequest struct{}

// SnapshotResponse reports the workspace state.
type SnapshotResponse struct {
	Workspace WorkspaceSnapshot
}

// Selection and focus.

// SelectDirectionRequest moves the navigation selection.
type SelectDirectionRequest struct {
	Dir Direction
}

// SelectDirectionResponse reports the selection after the move.
type SelectDirectionResponse struct {
	Selected SessionID
}

// SelectIndexRequest jumps the selection to the Nth pane (zero-based).
type SelectIndexRequest struct {
	Index int
}

// SelectIndexResponse reports the selection after the jump.
type SelectIndexResponse struct {
	Selected SessionID
}

// ActivateRequest enters terminal mode on the selected pane.
type ActivateRequest struct{}

// ActivateResponse reports the focused session.
type ActivateResponse struct {
	Active SessionID
}

// ExitToNavigationRequest leaves terminal mode.
type ExitToNavigationRequest struct{}

// ExitToNavigationResponse reports the selection after the exit.
type ExitToNavigationResponse struct {
	Selected SessionID
}

// Input and geometry.

// SendKeyRequest forwards one key to the focused session. Escape marks a
// lone ESC press so the double-escape window applies; Data carries the raw
// bytes for every other key.
type SendKeyRequest struct {
	Data   []byte
	Escape bool
}

// SendKeyResponse reports whether the workspace stayed in terminal mode.
type SendKeyResponse struct {
	Mode Mode
}

// SetViewportRequest applies the attached client's usable cell area.
type SetViewportRequest struct {
	Width  int
	Height int
}

// SetViewportResponse reports the per-pane geometry that was applied.
type SetViewportResponse struct {
	Pane PaneGeometry
}

// PaneViewRequest asks for one pane's rendered content.
type PaneViewRequest struct {
	SessionID SessionID
}

// PaneViewResponse reports rendered lines and cursor position.
type PaneViewResponse struct {
	Lines         []string
	CursorX       int
	CursorY       int
	CursorVisible bool
	Cols          int
	Rows          int
}
