package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/gridmux/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("workspace.max_panes", cfg.Workspace.MaxPanes)
	v.SetDefault("workspace.escape_timeout_ms", cfg.Workspace.EscapeTimeoutMS)
	v.SetDefault("workspace.resize_debounce_ms", cfg.Workspace.ResizeDebounceMS)
	v.SetDefault("workspace.default_agent", cfg.Workspace.DefaultAgent)
	v.SetDefault("workspace.working_dir", cfg.Workspace.WorkingDir)
	v.SetDefault("workspace.scrollback_max_bytes", cfg.Workspace.ScrollbackMaxBytes)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys_path", cfg.SSH.AuthorizedKeysPath)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateWorkspaceConfig(cfg.Workspace); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServiceConfig converts the workspace section to the core service config.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		MaxPanes:       c.Workspace.MaxPanes,
		EscapeTimeout:  time.Duration(c.Workspace.EscapeTimeoutMS) * time.Millisecond,
		ResizeDebounce: time.Duration(c.Workspace.ResizeDebounceMS) * time.Millisecond,
		DefaultAgent:   schema.AgentType(c.Workspace.DefaultAgent),
		WorkingDir:     c.Workspace.WorkingDir,
	}
}

func validateWorkspaceConfig(cfg WorkspaceConfig) error {
	if cfg.MaxPanes < 1 || cfg.MaxPanes > schema.DefaultMaxPanes {
		return fmt.Errorf("workspace.max_panes must be between 1 and %d", schema.DefaultMaxPanes)
	}
	if cfg.EscapeTimeoutMS < 0 {
		return fmt.Errorf("workspace.escape_timeout_ms must not be negative")
	}
	if cfg.ResizeDebounceMS < 0 {
		return fmt.Errorf("workspace.resize_debounce_ms must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Workspace.WorkingDir = expandEnv(cfg.Workspace.WorkingDir)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeysPath = expandEnv(cfg.SSH.AuthorizedKeysPath)
	for name, agent := range cfg.Agents {
		agent.Command = expandEnv(agent.Command)
		cfg.Agents[name] = agent
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
