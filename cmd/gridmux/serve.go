package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/gridmux"
	"pkt.systems/gridmux/core"
	"pkt.systems/gridmux/internal/appconfig"
	"pkt.systems/gridmux/internal/ptybackend"
	"pkt.systems/gridmux/sshserver"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace over SSH",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			backend := ptybackend.New(ptybackend.Config{
				Agents:        buildAgents(cfg),
				ScrollbackMax: cfg.Workspace.ScrollbackMaxBytes,
				WorkingDir:    cfg.Workspace.WorkingDir,
			}, logger)

			serverCfg := gridmux.ServerConfig{
				Service: cfg.ServiceConfig(),
				SSH: sshserver.Config{
					Addr:               cfg.SSH.Addr,
					HostKeyPath:        cfg.SSH.HostKeyPath,
					AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
				},
			}
			server, err := gridmux.New(serverCfg, gridmux.ServerDeps{
				ServiceDeps: core.ServiceDeps{
					Backend: backend,
					Logger:  logger,
				},
			}, gridmux.WithSSH())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("ssh server listening", "addr", serverCfg.SSH.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
