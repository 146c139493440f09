package schema

import (
	"fmt"
	"time"
)

// Workspace limits and timing defaults.
const (
	// DefaultMaxPanes is the largest grid the layout engine supports.
	DefaultMaxPanes = 12
	// DefaultEscapeTimeout is the double-escape disambiguation window.
	DefaultEscapeTimeout = 300 * time.Millisecond
	// DefaultResizeDebounce is the quiet period before a backend resize.
	DefaultResizeDebounce = 80 * time.Millisecond
	// DefaultScrollbackMax caps retained backend output per session.
	DefaultScrollbackMax = 256 * 1024
)

// ServiceConfig controls the workspace core.
type ServiceConfig struct {
	MaxPanes       int
	EscapeTimeout  time.Duration
	ResizeDebounce time.Duration
	DefaultAgent   AgentType
	WorkingDir     string
}

// NormalizeServiceConfig fills defaults and rejects unusable values.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.MaxPanes == 0 {
		cfg.MaxPanes = DefaultMaxPanes
	}
	if cfg.MaxPanes < 1 || cfg.MaxPanes > DefaultMaxPanes {
		return ServiceConfig{}, fmt.Errorf("max_panes must be 1..%d, got %d", DefaultMaxPanes, cfg.MaxPanes)
	}
	if cfg.EscapeTimeout <= 0 {
		cfg.EscapeTimeout = DefaultEscapeTimeout
	}
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = DefaultResizeDebounce
	}
	if cfg.DefaultAgent == "" {
		cfg.DefaultAgent = AgentShell
	}
	return cfg, nil
}
