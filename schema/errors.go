package schema

import "errors"

var (
	// ErrSessionNotFound indicates the session is no longer in the workspace.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoSessions indicates the workspace has no sessions.
	ErrNoSessions = errors.New("no sessions")
	// ErrNoSelection indicates no pane is selected.
	ErrNoSelection = errors.New("no pane selected")
	// ErrTooManyPanes indicates the pane limit has been reached.
	ErrTooManyPanes = errors.New("pane limit reached")
	// ErrInvalidAgent indicates an unknown agent type.
	ErrInvalidAgent = errors.New("invalid agent type")
	// ErrBackendUnavailable indicates a backend request failed.
	ErrBackendUnavailable = errors.New("session backend unavailable")
	// ErrNotInTerminalMode indicates a key was forwarded outside terminal mode.
	ErrNotInTerminalMode = errors.New("not in terminal mode")
)
