package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/gridmux/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	Workspace     WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Agents        AgentsConfig    `mapstructure:"agents" yaml:"agents"`
	SSH           SSHConfig       `mapstructure:"ssh" yaml:"ssh"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// WorkspaceConfig controls pane and input behavior.
type WorkspaceConfig struct {
	MaxPanes           int    `mapstructure:"max_panes" yaml:"max_panes"`
	EscapeTimeoutMS    int    `mapstructure:"escape_timeout_ms" yaml:"escape_timeout_ms"`
	ResizeDebounceMS   int    `mapstructure:"resize_debounce_ms" yaml:"resize_debounce_ms"`
	DefaultAgent       string `mapstructure:"default_agent" yaml:"default_agent"`
	WorkingDir         string `mapstructure:"working_dir" yaml:"working_dir"`
	ScrollbackMaxBytes int    `mapstructure:"scrollback_max_bytes" yaml:"scrollback_max_bytes"`
}

// AgentsConfig maps agent names to spawn commands. Entries override the
// built-in table; unknown names add new agent types.
type AgentsConfig map[string]AgentCommandConfig

// AgentCommandConfig is one agent's spawn command.
type AgentCommandConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
}

// SSHConfig configures the SSH attach server.
type SSHConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Workspace: WorkspaceConfig{
			MaxPanes:           schema.DefaultMaxPanes,
			EscapeTimeoutMS:    int(schema.DefaultEscapeTimeout.Milliseconds()),
			ResizeDebounceMS:   int(schema.DefaultResizeDebounce.Milliseconds()),
			DefaultAgent:       string(schema.AgentShell),
			WorkingDir:         "",
			ScrollbackMaxBytes: schema.DefaultScrollbackMax,
		},
		Agents: AgentsConfig{},
		SSH: SSHConfig{
			Addr:               ":27322",
			HostKeyPath:        filepath.Join(home, ".gridmux", "ssh_host_key"),
			AuthorizedKeysPath: filepath.Join(home, ".gridmux", "authorized_keys"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gridmux", "config.yaml"), nil
}
