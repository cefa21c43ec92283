// Package config loads MediaVault's runtime configuration once at
// process start, layering built-in defaults under environment-variable
// overrides via koanf. Configuration is immutable after Load.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds every tunable named in the external-interfaces contract.
type Config struct {
	DatabaseURL string `koanf:"database_url"`
	RedisAddr   string `koanf:"redis_addr"`

	StageRootCandidates []string `koanf:"stage_root_candidates"`
	ShareMountPrefix    string   `koanf:"share_mount_prefix"`
	DevFallbackPrefix   string   `koanf:"dev_fallback_prefix"`

	MediaExtensions   []string `koanf:"media_extensions"`
	ScanDenyDirs      []string `koanf:"scan_deny_dirs"`
	ScanMinMediaBytes int64    `koanf:"scan_min_media_bytes"`

	FuzzySimilarityThreshold int `koanf:"fuzzy_similarity_threshold"`
	ProbeTimeoutSeconds      int `koanf:"probe_timeout_seconds"`
	FingerprintChunkBytes    int `koanf:"fingerprint_chunk_bytes"`
	ScanMaxWorkers           int `koanf:"scan_max_workers"`

	PendingDeletionRetentionDays int    `koanf:"pending_deletion_retention_days"`
	CleanupCronExpr              string `koanf:"cleanup_cron_expr"`
	WorkerLockPath               string `koanf:"worker_lock_path"`

	FFprobePath string `koanf:"ffprobe_path"`
}

func defaults() *Config {
	return &Config{
		DatabaseURL: "postgres://mediavault:mediavault@db:5432/mediavault?sslmode=disable",
		RedisAddr:   "127.0.0.1:6379",

		StageRootCandidates: []string{"/mnt/stage", "/data/stage"},
		ShareMountPrefix:     "/mnt/nas",
		DevFallbackPrefix:    "",

		MediaExtensions: []string{
			".mkv", ".mp4", ".m4v", ".avi", ".mov", ".wmv", ".ts", ".webm",
		},
		ScanDenyDirs: []string{
			".git", "node_modules", "vendor", ".cache", "__pycache__",
			"$RECYCLE.BIN", "System Volume Information", ".Trash-1000",
		},
		ScanMinMediaBytes: 10 << 20,

		FuzzySimilarityThreshold: 85,
		ProbeTimeoutSeconds:      60,
		FingerprintChunkBytes:    1 << 20,
		ScanMaxWorkers:           5,

		PendingDeletionRetentionDays: 30,
		CleanupCronExpr:              "0 3 * * *",
		WorkerLockPath:               "/tmp/mediavault-worker.lock",

		FFprobePath: "ffprobe",
	}
}

// Load builds a Config from built-in defaults overridden by environment
// variables, following the layered-provider convention (defaults,
// then env) used elsewhere in this codebase's config loaders.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	envProvider := env.Provider("", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if err := applySliceOverrides(k); err != nil {
		return nil, fmt.Errorf("config: slice overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url must not be empty")
	}
	if c.ScanMaxWorkers < 1 {
		return fmt.Errorf("scan_max_workers must be >= 1")
	}
	if c.FuzzySimilarityThreshold < 0 || c.FuzzySimilarityThreshold > 100 {
		return fmt.Errorf("fuzzy_similarity_threshold must be in [0,100]")
	}
	return nil
}

var envKeys = map[string]string{
	"database_url":                    "database_url",
	"redis_addr":                      "redis_addr",
	"stage_root_candidates":           "stage_root_candidates",
	"share_mount_prefix":              "share_mount_prefix",
	"dev_fallback_prefix":             "dev_fallback_prefix",
	"media_extensions":                "media_extensions",
	"scan_deny_dirs":                  "scan_deny_dirs",
	"scan_min_media_bytes":            "scan_min_media_bytes",
	"fuzzy_similarity_threshold":      "fuzzy_similarity_threshold",
	"probe_timeout_seconds":           "probe_timeout_seconds",
	"fingerprint_chunk_bytes":         "fingerprint_chunk_bytes",
	"scan_max_workers":                "scan_max_workers",
	"pending_deletion_retention_days": "pending_deletion_retention_days",
	"cleanup_cron_expr":               "cleanup_cron_expr",
	"worker_lock_path":                "worker_lock_path",
	"ffprobe_path":                    "ffprobe_path",
}

// envTransform maps DATABASE_URL, STAGE_ROOT_CANDIDATES, etc. onto the
// koanf dotted-path keys declared on Config.
func envTransform(key string) string {
	lower := strings.ToLower(key)
	if path, ok := envKeys[lower]; ok {
		return path
	}
	return ""
}

var sliceKeys = []string{
	"stage_root_candidates",
	"media_extensions",
	"scan_deny_dirs",
}

// applySliceOverrides turns comma-separated environment values for the
// known list-typed settings into string slices.
func applySliceOverrides(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		raw := k.Get(path)
		str, ok := raw.(string)
		if !ok || str == "" {
			continue
		}
		parts := strings.Split(str, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseApprover normalizes a caller-supplied approver identifier; kept
// here rather than in staging because the core never validates identity,
// only shape.
func ParseApprover(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("approver identifier must not be empty")
	}
	return raw, nil
}
