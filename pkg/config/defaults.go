package config

import (
	"strings"
	"time"
)

// ApplyDefaults backfills zero-valued fields of cfg with production
// defaults. Called after viper decoding and before Validate, so that a
// config file or env var only needs to set what it wants to override.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyCacheDefaults(&cfg.Cache)
	applySchedulerDefaults(&cfg.Scheduler)
	for i := range cfg.Tables {
		applyTableDefaults(&cfg.Tables[i])
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "INFO"
	}
	l.Level = strings.ToUpper(l.Level)
	if l.Format == "" {
		l.Format = "text"
	}
	if l.Output == "" {
		l.Output = "stdout"
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Port == "" {
		s.Port = "6278"
	}
	if s.Terminator == "" {
		s.Terminator = ";"
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
	if s.Metrics.Port == "" {
		s.Metrics.Port = "9090"
	}
}

func applyCacheDefaults(c *CacheConfig) {
	// Enabled has no "unset" representation distinct from false in a bool
	// field decoded from an absent key, so the cache defaults to on only
	// when the config omits the whole section (root_dir also empty);
	// an explicit "enabled: false" with both paths empty is
	// indistinguishable from that and is switched on too. With either path
	// set, "enabled: false" is kept.
	if c.RootDir == "" && c.IndexDBPath == "" && !c.Enabled {
		c.Enabled = true
	}
	if c.RootDir == "" {
		c.RootDir = "/var/lib/chunkmgr/cache"
	}
	if c.IndexDBPath == "" {
		c.IndexDBPath = "/var/lib/chunkmgr/index"
	}
}

func applySchedulerDefaults(s *SchedulerConfig) {
	if s.WaitDuration <= 0 {
		s.WaitDuration = time.Second
	}
}

func applyTableDefaults(t *TableConfig) {
	if t.FragmentSize == 0 {
		t.FragmentSize = 1 << 20
	}
	if t.Options == nil {
		t.Options = make(map[string]any)
	}
}

// GetDefaultConfig returns a fully-defaulted Config with no tables, useful
// as a starting point for generating a sample config file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
