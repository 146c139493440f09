// Package sshserver exposes the workspace over SSH. Authenticated clients
// attach the grid UI to their terminal; window changes flow through to the
// workspace viewport.
package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/gridmux/core"
	"pkt.systems/gridmux/internal/eventbus"
	"pkt.systems/gridmux/tui"
	"pkt.systems/pslog"
)

// Server exposes gridmux over SSH.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Listener           net.Listener
	Workspace          core.Workspace
	EventBus           *eventbus.Bus
	logger             pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Workspace == nil {
		return errors.New("workspace is required for SSH")
	}
	if s.AuthorizedKeysPath == "" {
		return errors.New("authorized keys path is required for SSH")
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	fingerprint := ssh.FingerprintSHA256(key)
	log = log.With("remote", remoteAddr(ctx), "fingerprint", fingerprint)

	allowed, err := loadAuthorizedKeys(s.AuthorizedKeysPath)
	if err != nil {
		log.Warn("ssh pubkey rejected", "err", err)
		return false
	}
	for _, candidate := range allowed {
		if gliderssh.KeysEqual(candidate, key) {
			log.Info("ssh pubkey accepted")
			return true
		}
	}
	log.Warn("ssh pubkey rejected", "reason", "no matching key")
	return false
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	remote := sess.RemoteAddr().String()
	log = log.With("remote", remote)

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		return
	}

	log.Info("ssh session opened", "term", pty.Term)
	ctx := pslog.ContextWithLogger(sess.Context(), log)

	resize := make(chan tui.Window, 4)
	go func() {
		defer close(resize)
		for win := range winCh {
			tui.PushWindow(resize, tui.Window{Width: win.Width, Height: win.Height})
		}
	}()

	client := tui.NewClient(s.Workspace, s.EventBus, sess, sess)
	if err := client.Run(ctx, pty.Window.Width, pty.Window.Height, resize); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("ssh session failed", "err", err)
	}
	log.Info("ssh session closed")
}
