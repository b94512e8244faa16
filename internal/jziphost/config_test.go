package jziphost

import (
	"testing"
	"time"
)

func TestParseConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfigFromMap(map[string]string{})
	if err != nil {
		t.Fatalf("parseConfigFromMap() error = %v", err)
	}

	if got, want := cfg.MountRoot, "/var/lib/jzip-mount/archives"; got != want {
		t.Fatalf("MountRoot = %q, want %q", got, want)
	}
	if got, want := cfg.MountRefresh, 30*time.Second; got != want {
		t.Fatalf("MountRefresh = %v, want %v", got, want)
	}
	if got, want := cfg.ArchiveCacheMax, 256; got != want {
		t.Fatalf("ArchiveCacheMax = %d, want %d", got, want)
	}
	if got, want := cfg.MaxOpenBuilds, 16; got != want {
		t.Fatalf("MaxOpenBuilds = %d, want %d", got, want)
	}
	if got, want := cfg.EntryCacheBytes, int64(64<<20); got != want {
		t.Fatalf("EntryCacheBytes = %d, want %d", got, want)
	}
	if cfg.UseMemoryMap {
		t.Fatalf("UseMemoryMap = true, want false")
	}

	if got, want := cfg.HTTPReadHeaderTimeout, 5*time.Second; got != want {
		t.Fatalf("HTTPReadHeaderTimeout = %v, want %v", got, want)
	}
	if got, want := cfg.HTTPIdleTimeout, 60*time.Second; got != want {
		t.Fatalf("HTTPIdleTimeout = %v, want %v", got, want)
	}
	if got, want := cfg.HTTPMaxHeaderBytes, 8192; got != want {
		t.Fatalf("HTTPMaxHeaderBytes = %d, want %d", got, want)
	}
	if got, want := cfg.HTTPWriteTimeout, time.Duration(0); got != want {
		t.Fatalf("HTTPWriteTimeout = %v, want %v", got, want)
	}
	if got, want := cfg.HTTPReadTimeout, time.Duration(0); got != want {
		t.Fatalf("HTTPReadTimeout = %v, want %v", got, want)
	}
}

func TestParseConfig_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfigFromMap(map[string]string{
		"JZIP_MOUNT_ROOT":               "/srv/archives",
		"JZIP_MOUNT_REFRESH":            "10s",
		"JZIP_ARCHIVE_CACHE_MAX":        "64",
		"JZIP_MAX_OPEN_BUILDS":          "4",
		"JZIP_ENTRY_CACHE_BYTES":        "1024",
		"JZIP_USE_MMAP":                 "true",
		"JZIP_HTTP_READ_HEADER_TIMEOUT": "2s",
		"JZIP_HTTP_IDLE_TIMEOUT":        "30s",
		"JZIP_HTTP_MAX_HEADER_BYTES":    "4096",
		"JZIP_HTTP_WRITE_TIMEOUT":       "1s",
		"JZIP_HTTP_READ_TIMEOUT":        "1s",
	})
	if err != nil {
		t.Fatalf("parseConfigFromMap() error = %v", err)
	}

	if got, want := cfg.MountRoot, "/srv/archives"; got != want {
		t.Fatalf("MountRoot = %q, want %q", got, want)
	}
	if got, want := cfg.MountRefresh, 10*time.Second; got != want {
		t.Fatalf("MountRefresh = %v, want %v", got, want)
	}
	if got, want := cfg.ArchiveCacheMax, 64; got != want {
		t.Fatalf("ArchiveCacheMax = %d, want %d", got, want)
	}
	if got, want := cfg.MaxOpenBuilds, 4; got != want {
		t.Fatalf("MaxOpenBuilds = %d, want %d", got, want)
	}
	if got, want := cfg.EntryCacheBytes, int64(1024); got != want {
		t.Fatalf("EntryCacheBytes = %d, want %d", got, want)
	}
	if !cfg.UseMemoryMap {
		t.Fatalf("UseMemoryMap = false, want true")
	}
}

func TestParseConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "invalid mount refresh duration", env: map[string]string{"JZIP_MOUNT_REFRESH": "nope"}},
		{name: "mount refresh zero", env: map[string]string{"JZIP_MOUNT_REFRESH": "0s"}},
		{name: "invalid archive cache max", env: map[string]string{"JZIP_ARCHIVE_CACHE_MAX": "nope"}},
		{name: "archive cache max zero", env: map[string]string{"JZIP_ARCHIVE_CACHE_MAX": "0"}},
		{name: "invalid max open builds", env: map[string]string{"JZIP_MAX_OPEN_BUILDS": "nope"}},
		{name: "max open builds zero", env: map[string]string{"JZIP_MAX_OPEN_BUILDS": "0"}},
		{name: "invalid entry cache bytes", env: map[string]string{"JZIP_ENTRY_CACHE_BYTES": "nope"}},
		{name: "entry cache bytes negative", env: map[string]string{"JZIP_ENTRY_CACHE_BYTES": "-1"}},
		{name: "invalid use mmap", env: map[string]string{"JZIP_USE_MMAP": "nope"}},
		{name: "invalid http read header timeout", env: map[string]string{"JZIP_HTTP_READ_HEADER_TIMEOUT": "nope"}},
		{name: "invalid http idle timeout", env: map[string]string{"JZIP_HTTP_IDLE_TIMEOUT": "nope"}},
		{name: "invalid http max header bytes", env: map[string]string{"JZIP_HTTP_MAX_HEADER_BYTES": "nope"}},
		{name: "http max header bytes zero", env: map[string]string{"JZIP_HTTP_MAX_HEADER_BYTES": "0"}},
		{name: "invalid http write timeout", env: map[string]string{"JZIP_HTTP_WRITE_TIMEOUT": "nope"}},
		{name: "invalid http read timeout", env: map[string]string{"JZIP_HTTP_READ_TIMEOUT": "nope"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseConfigFromMap(tc.env)
			if err == nil {
				t.Fatalf("parseConfigFromMap() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("JZIP_MOUNT_ROOT", "/tmp/from-env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got, want := cfg.MountRoot, "/tmp/from-env"; got != want {
		t.Fatalf("MountRoot = %q, want %q", got, want)
	}
}
