package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/blueprint/metadata"
)

// exportGraphs writes the parsed graphs as a single JSON document keyed
// by file name, optionally validating the output against a meta-schema.
func exportGraphs(graphs map[string]*metadata.Graph, dest, metaSchemaPath string, logger *slog.Logger) error {
	// encoding/json emits map keys in sorted order, so the export is
	// deterministic across runs.
	data, err := json.MarshalIndent(graphs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph export: %w", err)
	}

	if metaSchemaPath != "" {
		if err := validateExport(data, metaSchemaPath); err != nil {
			return err
		}
		logger.Debug("export validated against meta-schema", "schema", metaSchemaPath)
	}

	if dest == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(dest, data, 0o600)
}

// validateExport validates the export payload against a JSON meta-schema.
func validateExport(data []byte, metaSchemaPath string) error {
	metaSchemaLoader := gojsonschema.NewReferenceLoader("file://" + metaSchemaPath)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(metaSchemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("meta-schema validation error: %w", err)
	}
	if !result.Valid() {
		errMsg := "graph export failed meta-schema validation:\n"
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("  - %s: %s\n", desc.Field(), desc.Description())
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}
