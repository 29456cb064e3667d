// Package main implements the blueprint command-line tool: it parses
// component definition documents into metadata graphs, optionally
// exporting them as JSON for downstream tooling. All parses are dry
// parses; there is no backing runtime module on the command line.
package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/c360/blueprint/config"
	"github.com/c360/blueprint/document"
	"github.com/c360/blueprint/handlerregistry"
	"github.com/c360/blueprint/metadata"
	"github.com/c360/blueprint/metric"
	"github.com/c360/blueprint/namespace"
	"github.com/c360/blueprint/parser"
)

const (
	version = "0.1.0"
	appName = "blueprint"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)

	cfg := config.Default()
	if cliCfg.ConfigPath != "" {
		cfg, err = config.Load(cliCfg.ConfigPath)
		if err != nil {
			return err
		}
	}

	registry := namespace.NewRegistry()
	if err := handlerregistry.Register(registry, cfg); err != nil {
		return err
	}

	engine, err := parser.New(registry,
		parser.WithConfig(cfg),
		parser.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := engine.EnableMetrics(metric.NewMetricsRegistry()); err != nil {
		return err
	}

	// Each document parses in its own session; sessions are independent,
	// so files fan out across goroutines.
	graphs := make(map[string]*metadata.Graph, len(cliCfg.Files))
	var mu sync.Mutex
	var g errgroup.Group

	for _, file := range cliCfg.Files {
		file := file
		g.Go(func() error {
			graph, err := parseFile(engine, cfg, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			mu.Lock()
			graphs[file] = graph
			mu.Unlock()
			logger.Info("parsed document", "file", file, "components", graph.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if cliCfg.Validate {
		logger.Info("all documents valid", "count", len(graphs))
		return nil
	}
	if cliCfg.Export != "" {
		return exportGraphs(graphs, cliCfg.Export, cliCfg.MetaSchema, logger)
	}
	return nil
}

func parseFile(engine *parser.Parser, cfg *config.Config, path string) (*metadata.Graph, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > int64(cfg.Limits.MaxDocumentBytes) {
		return nil, fmt.Errorf("document exceeds size limit of %d bytes", cfg.Limits.MaxDocumentBytes)
	}

	f, err := os.Open(path) // #nosec G304 -- path is operator-supplied
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	root, err := document.LoadXML(f)
	if err != nil {
		return nil, err
	}
	return engine.ParseDocument(root, nil)
}
