package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"pkt.systems/gridmux/core"
	"pkt.systems/gridmux/internal/appconfig"
	"pkt.systems/gridmux/internal/eventbus"
	"pkt.systems/gridmux/internal/ptybackend"
	"pkt.systems/gridmux/schema"
	"pkt.systems/gridmux/tui"
	"pkt.systems/pslog"
)

func newRunCmd() *cobra.Command {
	var cfgPath string
	var agent string
	var workDir string
	var logPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach a grid workspace to this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if agent != "" {
				cfg.Workspace.DefaultAgent = agent
			}
			if workDir != "" {
				cfg.Workspace.WorkingDir = workDir
			}

			// The grid owns the terminal while attached; keep log output off
			// it unless the user routes it to a file.
			logWriter := io.Writer(io.Discard)
			if logPath != "" {
				f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				logWriter = f
			}
			logger := pslog.LoggerFromEnv(
				pslog.WithEnvWriter(logWriter),
				pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
			)
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)

			stdinFd := int(os.Stdin.Fd())
			if !term.IsTerminal(stdinFd) {
				return fmt.Errorf("stdin is not a terminal")
			}

			backend := ptybackend.New(ptybackend.Config{
				Agents:        buildAgents(cfg),
				ScrollbackMax: cfg.Workspace.ScrollbackMaxBytes,
				WorkingDir:    cfg.Workspace.WorkingDir,
			}, logger)
			defer func() { _ = backend.Close() }()

			bus := eventbus.New(logger)
			ws, err := core.NewWorkspace(cfg.ServiceConfig(), core.ServiceDeps{
				Backend:   backend,
				EventSink: bus,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			if err := ws.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = ws.Close(context.Background()) }()

			if _, err := ws.CreatePane(ctx, schema.CreatePaneRequest{}); err != nil {
				return err
			}

			oldState, err := term.MakeRaw(stdinFd)
			if err != nil {
				return fmt.Errorf("raw mode: %w", err)
			}
			defer func() { _ = term.Restore(stdinFd, oldState) }()

			width, height, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width, height = 80, 24
			}

			winCh := make(chan tui.Window, 4)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, unix.SIGWINCH)
			defer signal.Stop(sigCh)
			go func() {
				for range sigCh {
					w, h, err := term.GetSize(int(os.Stdout.Fd()))
					if err != nil {
						continue
					}
					tui.PushWindow(winCh, tui.Window{Width: w, Height: h})
				}
			}()

			client := tui.NewClient(ws, bus, os.Stdin, os.Stdout)
			if err := client.Run(ctx, width, height, winCh); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&agent, "agent", "", "agent for the initial pane")
	cmd.Flags().StringVar(&workDir, "workdir", "", "working directory for new sessions")
	cmd.Flags().StringVar(&logPath, "log-file", "", "append logs to this file")
	return cmd
}
