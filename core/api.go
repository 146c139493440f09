package core

import (
	"context"

	"pkt.systems/gridmux/schema"
)

// Workspace is the session-multiplexing core exposed to transports. It owns
// the ordered session list, the per-session terminal buffers, and all
// focus/mode state; it is the sole writer of that state.
type Workspace interface {
	// Start opens the backend subscription, adopts any sessions the backend
	// already knows about, and returns. Events are dispatched until the
	// context is cancelled or Close is called.
	Start(ctx context.Context) error
	// Close detaches from the backend stream and disposes all pane buffers.
	// Backend sessions keep running; killing them is the compositor's job.
	Close(ctx context.Context) error

	CreatePane(ctx context.Context, req schema.CreatePaneRequest) (schema.CreatePaneResponse, error)
	ClosePane(ctx context.Context, req schema.ClosePaneRequest) (schema.ClosePaneResponse, error)
	Snapshot(ctx context.Context, req schema.SnapshotRequest) (schema.SnapshotResponse, error)

	SelectDirection(ctx context.Context, req schema.SelectDirectionRequest) (schema.SelectDirectionResponse, error)
	SelectIndex(ctx context.Context, req schema.SelectIndexRequest) (schema.SelectIndexResponse, error)
	Activate(ctx context.Context, req schema.ActivateRequest) (schema.ActivateResponse, error)
	ExitToNavigation(ctx context.Context, req schema.ExitToNavigationRequest) (schema.ExitToNavigationResponse, error)
	SendKey(ctx context.Context, req schema.SendKeyRequest) (schema.SendKeyResponse, error)

	SetViewport(ctx context.Context, req schema.SetViewportRequest) (schema.SetViewportResponse, error)
	PaneView(ctx context.Context, req schema.PaneViewRequest) (schema.PaneViewResponse, error)
}
