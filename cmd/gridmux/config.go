package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/gridmux/internal/appconfig"
	"pkt.systems/gridmux/internal/ptybackend"
	"pkt.systems/gridmux/schema"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gridmux configuration",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var cfgPath string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := appconfig.WriteDefault(cfgPath, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", written)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

// buildAgents merges configured agent commands over the built-in table.
func buildAgents(cfg appconfig.Config) map[schema.AgentType]ptybackend.AgentCommand {
	agents := ptybackend.DefaultAgents()
	for name, agent := range cfg.Agents {
		if agent.Command == "" {
			continue
		}
		agents[schema.AgentType(name)] = ptybackend.AgentCommand{
			Command: agent.Command,
			Args:    agent.Args,
		}
	}
	return agents
}
