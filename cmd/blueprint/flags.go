package main

import (
	"flag"
	"fmt"
)

// cliConfig holds the parsed command-line options.
type cliConfig struct {
	ConfigPath string
	Validate   bool
	Export     string
	MetaSchema string
	LogLevel   string
	LogFormat  string
	Files      []string
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.ConfigPath, "config", "", "Path to engine config file (JSON or YAML)")
	fs.BoolVar(&cfg.Validate, "validate", false, "Dry-parse the documents and exit")
	fs.StringVar(&cfg.Export, "export", "", "Write the parsed graph as JSON to this path ('-' for stdout)")
	fs.StringVar(&cfg.MetaSchema, "meta-schema", "", "Validate the exported graph against this JSON meta-schema")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Files = fs.Args()
	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("at least one document file is required")
	}
	return cfg, nil
}
