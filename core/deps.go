package core

import "pkt.systems/pslog"

// ServiceDeps captures dependencies for the workspace service.
type ServiceDeps struct {
	Backend   Backend
	EventSink EventSink
	Logger    pslog.Logger
}
