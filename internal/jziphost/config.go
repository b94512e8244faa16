// Package jziphost is the ambient hosting layer around internal/jzip: it
// mounts a directory of .jar/.zip archives and serves their entries over
// HTTP, refreshing its view of what's on disk and reporting Prometheus
// metrics.
package jziphost

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for jzip-mount.
type Config struct {
	MountRoot       string
	MountRefresh    time.Duration
	ArchiveCacheMax int
	MaxOpenBuilds   int
	EntryCacheBytes int64
	UseMemoryMap    bool

	HTTPReadHeaderTimeout time.Duration
	HTTPIdleTimeout       time.Duration
	HTTPMaxHeaderBytes    int
	HTTPWriteTimeout      time.Duration
	HTTPReadTimeout       time.Duration
}

type envLookup func(key string) (string, bool)

// LoadConfig loads configuration from environment variables.
//
// This is the production entry point for loading configuration. For
// testing, use parseConfigFromLookup with an explicit map-backed lookup
// instead of relying on the real environment.
func LoadConfig() (Config, error) {
	return parseConfigFromLookup(os.LookupEnv)
}

func parseConfigFromMap(env map[string]string) (Config, error) {
	return parseConfigFromLookup(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
}

func parseConfigFromLookup(lookup envLookup) (Config, error) {
	cfg := Config{
		MountRoot:             "/var/lib/jzip-mount/archives",
		MountRefresh:          30 * time.Second,
		ArchiveCacheMax:       256,
		MaxOpenBuilds:         16,
		EntryCacheBytes:       64 << 20,
		UseMemoryMap:          false,
		HTTPReadHeaderTimeout: 5 * time.Second,
		HTTPIdleTimeout:       60 * time.Second,
		HTTPMaxHeaderBytes:    8192,
		HTTPWriteTimeout:      0,
		HTTPReadTimeout:       0,
	}

	if v, ok := lookup("JZIP_MOUNT_ROOT"); ok && v != "" {
		cfg.MountRoot = v
	}

	if v, ok := lookup("JZIP_MOUNT_REFRESH"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_MOUNT_REFRESH: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("JZIP_MOUNT_REFRESH: must be > 0")
		}
		cfg.MountRefresh = d
	}

	if v, ok := lookup("JZIP_ARCHIVE_CACHE_MAX"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_ARCHIVE_CACHE_MAX: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("JZIP_ARCHIVE_CACHE_MAX: must be > 0")
		}
		cfg.ArchiveCacheMax = n
	}

	if v, ok := lookup("JZIP_MAX_OPEN_BUILDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_MAX_OPEN_BUILDS: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("JZIP_MAX_OPEN_BUILDS: must be > 0")
		}
		cfg.MaxOpenBuilds = n
	}

	if v, ok := lookup("JZIP_ENTRY_CACHE_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_ENTRY_CACHE_BYTES: %w", err)
		}
		if n < 0 {
			return Config{}, fmt.Errorf("JZIP_ENTRY_CACHE_BYTES: must be >= 0")
		}
		cfg.EntryCacheBytes = n
	}

	if v, ok := lookup("JZIP_USE_MMAP"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_USE_MMAP: %w", err)
		}
		cfg.UseMemoryMap = b
	}

	if v, ok := lookup("JZIP_HTTP_READ_HEADER_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_HTTP_READ_HEADER_TIMEOUT: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("JZIP_HTTP_READ_HEADER_TIMEOUT: must be >= 0")
		}
		cfg.HTTPReadHeaderTimeout = d
	}

	if v, ok := lookup("JZIP_HTTP_IDLE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_HTTP_IDLE_TIMEOUT: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("JZIP_HTTP_IDLE_TIMEOUT: must be >= 0")
		}
		cfg.HTTPIdleTimeout = d
	}

	if v, ok := lookup("JZIP_HTTP_MAX_HEADER_BYTES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_HTTP_MAX_HEADER_BYTES: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("JZIP_HTTP_MAX_HEADER_BYTES: must be > 0")
		}
		cfg.HTTPMaxHeaderBytes = n
	}

	if v, ok := lookup("JZIP_HTTP_WRITE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_HTTP_WRITE_TIMEOUT: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("JZIP_HTTP_WRITE_TIMEOUT: must be >= 0")
		}
		cfg.HTTPWriteTimeout = d
	}

	if v, ok := lookup("JZIP_HTTP_READ_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("JZIP_HTTP_READ_TIMEOUT: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("JZIP_HTTP_READ_TIMEOUT: must be >= 0")
		}
		cfg.HTTPReadTimeout = d
	}

	return cfg, nil
}
