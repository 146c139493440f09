package ptybackend

import (
	"os"

	"pkt.systems/gridmux/schema"
)

// AgentCommand is the program spawned for one agent type.
type AgentCommand struct {
	Command string
	Args    []string
}

// DefaultAgents returns the built-in agent command table. Behavior does not
// vary by agent type beyond the spawned program; the type is otherwise a
// display tag.
func DefaultAgents() map[schema.AgentType]AgentCommand {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return map[schema.AgentType]AgentCommand{
		schema.AgentShell:  {Command: shell},
		schema.AgentClaude: {Command: "claude"},
		schema.AgentCodex:  {Command: "codex"},
		schema.AgentGemini: {Command: "gemini"},
	}
}
