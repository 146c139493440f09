// Package gridmux composes the workspace core, session backend, and attach
// transports into a runnable server.
package gridmux

import (
	"context"
	"errors"
	"io"
	"sync"

	"pkt.systems/gridmux/core"
	"pkt.systems/gridmux/internal/eventbus"
	"pkt.systems/gridmux/schema"
	"pkt.systems/gridmux/sshserver"
	"pkt.systems/pslog"
)

// Server composes the workspace and its attach transports.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service schema.ServiceConfig
	SSH     sshserver.Config
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableSSH bool
}

// WithSSH enables the SSH attach server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable gridmux server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	if deps.ServiceDeps.Backend == nil {
		return nil, errors.New("backend dependency is required")
	}

	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	serviceDeps := deps.ServiceDeps
	bus := eventbus.New(serviceDeps.Logger)
	if serviceDeps.EventSink == nil {
		serviceDeps.EventSink = bus
	} else {
		serviceDeps.EventSink = eventFanout{sinks: []core.EventSink{serviceDeps.EventSink, bus}}
	}

	workspace, err := core.NewWorkspace(cfg.Service, serviceDeps)
	if err != nil {
		return nil, err
	}

	sshSrv := &sshserver.Server{
		Addr:               cfg.SSH.Addr,
		HostKeyPath:        cfg.SSH.HostKeyPath,
		AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
		Workspace:          workspace,
		EventBus:           bus,
	}

	return &compositeServer{
		cfg:       cfg,
		options:   options,
		workspace: workspace,
		backend:   deps.ServiceDeps.Backend,
		sshSrv:    sshSrv,
	}, nil
}

type compositeServer struct {
	cfg       ServerConfig
	options   serverOptions
	workspace core.Workspace
	backend   core.Backend
	sshSrv    *sshserver.Server
	logger    pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info("server start", "ssh", s.options.enableSSH, "ssh_addr", s.cfg.SSH.Addr)

	if err := s.workspace.Start(s.ctx); err != nil {
		s.cancel()
		return err
	}
	if s.options.enableSSH && s.sshSrv != nil {
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if err := s.workspace.Close(context.Background()); err != nil {
		log.Warn("server workspace close failed", "err", err)
	}
	if closer, ok := s.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn("server backend close failed", "err", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	log.Info("server stopped")
	return nil
}
