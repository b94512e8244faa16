// Command jzip-mount mounts a directory of .jar/.zip archives and serves
// their entries over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"jzipmount/internal/jziphost"
)

func main() {
	var (
		help        = flag.Bool("h", false, "Show help")
		helpLong    = flag.Bool("help", false, "Show help")
		verbose     = flag.Bool("v", false, "Enable verbose logging (log successful HTTP requests)")
		verboseLong = flag.Bool("verbose", false, "Enable verbose logging (log successful HTTP requests)")
		debug       = flag.Bool("d", false, "Enable debug logging")
		debugLong   = flag.Bool("debug", false, "Enable debug logging")
		addr        = flag.String("addr", ":8080", "HTTP listen address")
	)
	flag.Parse()

	if *help || *helpLong {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: %s [flags]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stdout, "Flags:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stdout, "\nEnvironment Variables:\n\n")
		_, _ = fmt.Fprintf(os.Stdout, "  JZIP_MOUNT_ROOT\n")
		_, _ = fmt.Fprintf(os.Stdout, "    Directory to scan for .jar/.zip files (default: /var/lib/jzip-mount/archives)\n\n")
		_, _ = fmt.Fprintf(os.Stdout, "  JZIP_MOUNT_REFRESH\n")
		_, _ = fmt.Fprintf(os.Stdout, "    Interval for rescanning the mount root (default: 30s)\n\n")
		_, _ = fmt.Fprintf(os.Stdout, "  JZIP_ARCHIVE_CACHE_MAX\n")
		_, _ = fmt.Fprintf(os.Stdout, "    Maximum number of open archives to keep cached (default: 256)\n\n")
		_, _ = fmt.Fprintf(os.Stdout, "  JZIP_MAX_OPEN_BUILDS\n")
		_, _ = fmt.Fprintf(os.Stdout, "    Maximum number of concurrent archive index builds (default: 16)\n\n")
		_, _ = fmt.Fprintf(os.Stdout, "  JZIP_ENTRY_CACHE_BYTES\n")
		_, _ = fmt.Fprintf(os.Stdout, "    Byte budget for the decompressed entry content cache (default: 67108864)\n\n")
		_, _ = fmt.Fprintf(os.Stdout, "  JZIP_USE_MMAP\n")
		_, _ = fmt.Fprintf(os.Stdout, "    Use the memory-mapped directory strategy instead of heap (default: false)\n\n")
		os.Exit(0)
	}

	verboseEnabled := *verbose || *verboseLong
	debugEnabled := *debug || *debugLong

	logger := jziphost.NewLogger(jziphost.LoggerOptions{
		Verbose: verboseEnabled,
		Debug:   debugEnabled,
	})

	logger.Debug("loading configuration from environment")
	cfg, err := jziphost.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger.Debug("configuration loaded", "mount_root", cfg.MountRoot, "refresh", cfg.MountRefresh)

	logger.Debug("initializing metrics")
	// The server's /metrics handler gathers from the default registry.
	metrics := jziphost.NewMetrics(prometheus.DefaultRegisterer)

	logger.Debug("initializing mount index", "mount_root", cfg.MountRoot)
	mountIndex, err := jziphost.NewMountIndex(cfg.MountRoot, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize mount index", "error", err)
		os.Exit(1)
	}

	logger.Debug("initializing archive opener", "max_open_builds", cfg.MaxOpenBuilds, "archive_cache_max", cfg.ArchiveCacheMax, "use_mmap", cfg.UseMemoryMap)
	opener := jziphost.NewArchiveOpener(cfg.MaxOpenBuilds, cfg.ArchiveCacheMax, cfg.UseMemoryMap, metrics)

	logger.Debug("initializing entry content cache", "byte_budget", cfg.EntryCacheBytes)
	contents := jziphost.NewEntryContentCache(cfg.EntryCacheBytes, metrics)

	mountIndex.SetOnInvalidate(func(archiveName, path string) {
		logger.Info("archive replaced or removed on disk, dropping cached state", "archive", archiveName)
		opener.Evict(path)
		contents.Invalidate(path)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger.Debug("starting mount index refresh loop", "interval", cfg.MountRefresh)
	mountIndex.Start(ctx, cfg.MountRefresh)

	logger.Debug("creating HTTP server")
	server := jziphost.NewServer(cfg, logger, metrics, mountIndex, opener, contents)
	server.SetVerbose(verboseEnabled)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		MaxHeaderBytes:    cfg.HTTPMaxHeaderBytes,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		ReadTimeout:       cfg.HTTPReadTimeout,
	}
	logger.Debug("HTTP server configured", "addr", httpServer.Addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err)
		}
	}()

	logger.Info("starting jzip-mount", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
