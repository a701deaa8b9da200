// Package main is the Kiroku CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mizushima/kiroku/internal/cli"
	"github.com/mizushima/kiroku/internal/config"
	"github.com/mizushima/kiroku/internal/extract"
	"github.com/mizushima/kiroku/internal/offline"
	"github.com/mizushima/kiroku/internal/server"
	"github.com/mizushima/kiroku/internal/watch"
	"github.com/mizushima/kiroku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kiroku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigPath {
		// No config anywhere: run on defaults.
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "extract":
		runExtract()
	case "cache":
		runCache()
	case "export":
		runExport()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version":
		fmt.Printf("kiroku %s\n", version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: kiroku <command> [options]

Commands:
  server            Run the HTTP API server
  extract FILE...   Extract text from documents
  cache             Mirror index artifacts into the local cache
  export PATH       Export index artifacts to a zip archive
  import ARCHIVE    Import index artifacts from a zip archive
  status            Show index artifact status
  version           Print version`)
}

// setup loads config and builds the shared logger and archive manager.
func setup(configPath string) (*config.Config, *zap.Logger, *offline.Manager) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, offline.NewManager(logger)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	fs.Parse(os.Args[2:])

	cfg, logger, manager := setup(*configPath)
	defer logger.Sync()

	dispatcher := extract.NewDispatcher(extract.WithLogger(logger))
	srv := server.NewServer(dispatcher, manager, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Index.WatchOrDefault() {
		syncer := watch.NewSyncer(cfg.Index.Dir, func() {
			manager.CacheIndexLocally(cfg.Index.Dir, cfg.Index.CacheDir)
		}, watch.WithLogger(logger))
		if err := syncer.Start(ctx); err != nil {
			logger.Error("cache syncer failed to start", zap.Error(err))
		} else {
			defer syncer.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	formatFlag := fs.String("format", "", "format tag (docx, odf, pdf, pptx, xlsx); derived from extension when empty")
	configPath := fs.String("config", defaultConfigPath, "config file path")
	fs.Parse(os.Args[2:])
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: kiroku extract [-format tag] FILE...")
		os.Exit(1)
	}

	_, logger, _ := setup(*configPath)
	defer logger.Sync()
	dispatcher := extract.NewDispatcher(extract.WithLogger(logger))

	// One configuration failure per missing capability, not one per file;
	// per-document problems ride inline in the output stream.
	reported := make(map[extract.Format]bool)
	exitCode := 0
	for _, path := range fs.Args() {
		format := extract.Format(*formatFlag)
		if *formatFlag == "" {
			f, ok := extract.FormatForExtension(filepath.Ext(path))
			if !ok {
				fmt.Fprintf(os.Stderr, "%s: unsupported extension\n", path)
				exitCode = 1
				continue
			}
			format = f
		}
		text, err := dispatcher.Extract(path, format)
		if err != nil {
			var depErr *extract.DependencyMissingError
			if errors.As(err, &depErr) {
				if !reported[depErr.Format] {
					fmt.Fprintf(os.Stderr, "configuration error: %v\n", depErr)
					reported[depErr.Format] = true
				}
			} else {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			}
			exitCode = 1
			continue
		}
		fmt.Println(text)
	}
	os.Exit(exitCode)
}

func runCache() {
	fs := flag.NewFlagSet("cache", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	indexDir := fs.String("index", "", "index directory (default from config)")
	cacheDir := fs.String("cache", "", "cache directory (default from config)")
	fs.Parse(os.Args[2:])

	cfg, logger, manager := setup(*configPath)
	defer logger.Sync()
	src := orDefault(*indexDir, cfg.Index.Dir)
	dst := orDefault(*cacheDir, cfg.Index.CacheDir)
	if !manager.CacheIndexLocally(src, dst) {
		fmt.Fprintln(os.Stderr, "Cache sync failed")
		os.Exit(1)
	}
	fmt.Printf("Cached index artifacts from %s to %s\n", src, dst)
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	indexDir := fs.String("index", "", "index directory (default from config)")
	fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: kiroku export [-index dir] PATH")
		os.Exit(1)
	}

	cfg, logger, manager := setup(*configPath)
	defer logger.Sync()
	src := orDefault(*indexDir, cfg.Index.Dir)
	exportPath := fs.Arg(0)
	if !manager.ExportIndex(src, exportPath) {
		fmt.Fprintln(os.Stderr, "Export failed")
		os.Exit(1)
	}
	fmt.Printf("Exported index to %s\n", exportPath)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	targetDir := fs.String("target", "", "target directory (default: configured index dir)")
	fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: kiroku import [-target dir] ARCHIVE")
		os.Exit(1)
	}

	cfg, logger, manager := setup(*configPath)
	defer logger.Sync()
	dst := orDefault(*targetDir, cfg.Index.Dir)
	if !manager.ImportIndex(fs.Arg(0), dst) {
		fmt.Fprintln(os.Stderr, "Import failed")
		os.Exit(1)
	}
	fmt.Printf("Imported index into %s\n", dst)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	indexDir := fs.String("index", "", "index directory (default from config)")
	outputFormat := fs.String("output", string(cli.OutputText), "output format: text or json")
	fs.Parse(os.Args[2:])

	cfg, logger, manager := setup(*configPath)
	defer logger.Sync()
	status, err := manager.Status(orDefault(*indexDir, cfg.Index.Dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIndexStatus(os.Stdout, status, cli.OutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Write status failed: %v\n", err)
		os.Exit(1)
	}
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
