package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/gridmux/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("config_version = %d", cfg.ConfigVersion)
	}
	if cfg.Workspace.MaxPanes != schema.DefaultMaxPanes {
		t.Fatalf("max_panes = %d", cfg.Workspace.MaxPanes)
	}
	if cfg.Workspace.DefaultAgent != string(schema.AgentShell) {
		t.Fatalf("default_agent = %s", cfg.Workspace.DefaultAgent)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
workspace:
  max_panes: 4
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 99
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsBadPaneLimit(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
workspace:
  max_panes: 40
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "max_panes") {
		t.Fatalf("expected max_panes error, got %v", err)
	}
}

func TestLoadReadsWorkspaceAndAgents(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
workspace:
  max_panes: 6
  escape_timeout_ms: 250
  default_agent: claude
agents:
  claude:
    command: /usr/local/bin/claude
    args: ["--resume"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workspace.MaxPanes != 6 || cfg.Workspace.EscapeTimeoutMS != 250 {
		t.Fatalf("workspace = %+v", cfg.Workspace)
	}
	agent, ok := cfg.Agents["claude"]
	if !ok || agent.Command != "/usr/local/bin/claude" || len(agent.Args) != 1 {
		t.Fatalf("agents = %+v", cfg.Agents)
	}
}

func TestLoadExpandsEnvInPaths(t *testing.T) {
	t.Setenv("GRIDMUX_TEST_DIR", "/tmp/gridmux-test")
	path := writeConfig(t, `
config_version: 1
workspace:
  working_dir: $GRIDMUX_TEST_DIR/work
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workspace.WorkingDir != "/tmp/gridmux-test/work" {
		t.Fatalf("working_dir = %s", cfg.Workspace.WorkingDir)
	}
}

func TestServiceConfigConversion(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig failed: %v", err)
	}
	cfg.Workspace.EscapeTimeoutMS = 250
	cfg.Workspace.ResizeDebounceMS = 50
	svc := cfg.ServiceConfig()
	if svc.EscapeTimeout != 250*time.Millisecond {
		t.Fatalf("EscapeTimeout = %v", svc.EscapeTimeout)
	}
	if svc.ResizeDebounce != 50*time.Millisecond {
		t.Fatalf("ResizeDebounce = %v", svc.ResizeDebounce)
	}
	if svc.DefaultAgent != schema.AgentShell {
		t.Fatalf("DefaultAgent = %s", svc.DefaultAgent)
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if written != path {
		t.Fatalf("written = %s, want %s", written, path)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of written default failed: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("config_version = %d", cfg.ConfigVersion)
	}
}
