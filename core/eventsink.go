package core

import "pkt.systems/gridmux/schema"

// EventSink receives workspace events after state changes.
type EventSink interface {
	OnWorkspaceEvent(event schema.WorkspaceEvent)
}
