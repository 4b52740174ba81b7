package prover

import (
	"errors"
	"sync/atomic"
)

// Config is the immutable configuration a proving operation runs under.
// It is captured once from Settings when the operation starts.
type Config struct {
	// MemoryBudget bounds checkpoint and bucket storage in bytes. Zero
	// means unbounded.
	MemoryBudget uint64
	// CollectStats enables timing and counter collection in Diagnostics.
	CollectStats bool
	// SpillDir, when set, lets checkpoints move to an on-disk store if
	// no plan fits MemoryBudget.
	SpillDir string
}

// DefaultConfig returns an unbounded configuration with stats disabled.
func DefaultConfig() Config {
	return Config{}
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if c.SpillDir != "" && c.MemoryBudget == 0 {
		return errors.New("config: spill directory requires a memory budget")
	}
	return nil
}

// Settings holds process-wide knobs that may change at any time, including
// while proofs are in flight. Operations never read them directly; they
// take a Snapshot at start.
type Settings struct {
	memoryBudget atomic.Uint64
	collectStats atomic.Bool
	spillDir     atomic.Pointer[string]
}

// DefaultSettings is the instance used by provers created without explicit
// settings.
var DefaultSettings = NewSettings(DefaultConfig())

// NewSettings creates Settings initialised from cfg.
func NewSettings(cfg Config) *Settings {
	s := new(Settings)
	s.SetMemoryBudget(cfg.MemoryBudget)
	s.SetStatsEnabled(cfg.CollectStats)
	s.SetSpillDir(cfg.SpillDir)
	return s
}

// SetMemoryBudget sets the checkpoint memory budget in bytes.
func (s *Settings) SetMemoryBudget(bytes uint64) { s.memoryBudget.Store(bytes) }

// SetStatsEnabled toggles diagnostics collection.
func (s *Settings) SetStatsEnabled(enable bool) { s.collectStats.Store(enable) }

// SetSpillDir sets the parent directory for on-disk checkpoint stores.
func (s *Settings) SetSpillDir(dir string) { s.spillDir.Store(&dir) }

// Snapshot returns the current values as a Config.
func (s *Settings) Snapshot() Config {
	cfg := Config{
		MemoryBudget: s.memoryBudget.Load(),
		CollectStats: s.collectStats.Load(),
	}
	if dir := s.spillDir.Load(); dir != nil {
		cfg.SpillDir = *dir
	}
	return cfg
}
