package core

import (
	"context"

	"pkt.systems/gridmux/schema"
)

// Backend is the session backend the workspace drives. Lifecycle calls are
// request/response; Subscribe exposes the single multiplexed push stream of
// output and exit events. Output events for one session are emitted in
// order; nothing is guaranteed between different sessions.
//
// FetchScrollback returns the retained output plus the stream offset the
// snapshot ends at, in the same coordinate output events are stamped with.
// An output event whose Offset is at or below a snapshot's end offset is
// already contained in that snapshot.
type Backend interface {
	Create(ctx context.Context, req schema.CreateSessionRequest) (schema.CreateSessionResponse, error)
	Destroy(ctx context.Context, id schema.SessionID) error
	Write(ctx context.Context, id schema.SessionID, data []byte) error
	Resize(ctx context.Context, id schema.SessionID, cols, rows int) error
	FetchScrollback(ctx context.Context, id schema.SessionID) ([]byte, int64, error)
	List(ctx context.Context) ([]schema.Session, error)
	Subscribe() (<-chan schema.BackendEvent, func())
}
