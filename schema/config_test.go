package schema

import (
	"testing"
	"time"
)

func TestNormalizeServiceConfigDefaults(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if cfg.MaxPanes != DefaultMaxPanes {
		t.Fatalf("MaxPanes = %d, want %d", cfg.MaxPanes, DefaultMaxPanes)
	}
	if cfg.EscapeTimeout != DefaultEscapeTimeout {
		t.Fatalf("EscapeTimeout = %v, want %v", cfg.EscapeTimeout, DefaultEscapeTimeout)
	}
	if cfg.ResizeDebounce != DefaultResizeDebounce {
		t.Fatalf("ResizeDebounce = %v, want %v", cfg.ResizeDebounce, DefaultResizeDebounce)
	}
	if cfg.DefaultAgent != AgentShell {
		t.Fatalf("DefaultAgent = %s, want %s", cfg.DefaultAgent, AgentShell)
	}
}

func TestNormalizeServiceConfigKeepsValues(t *testing.T) {
	in := ServiceConfig{
		MaxPanes:       6,
		EscapeTimeout:  150 * time.Millisecond,
		ResizeDebounce: 40 * time.Millisecond,
		DefaultAgent:   AgentClaude,
		WorkingDir:     "/work",
	}
	cfg, err := NormalizeServiceConfig(in)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if cfg != in {
		t.Fatalf("normalize changed valid config: %+v", cfg)
	}
}

func TestNormalizeServiceConfigRejectsPaneCount(t *testing.T) {
	if _, err := NormalizeServiceConfig(ServiceConfig{MaxPanes: 13}); err == nil {
		t.Fatalf("expected error for max_panes above limit")
	}
	if _, err := NormalizeServiceConfig(ServiceConfig{MaxPanes: -1}); err == nil {
		t.Fatalf("expected error for negative max_panes")
	}
}
