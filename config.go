package optrx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-trx/flags"
)

// Config holds the application configuration
type Config struct {
	InputPath       string   // Engine event stream, "-" for stdin
	OutputPath      string   // .trx document to write
	RunName         string   // Run name override for the document
	SourcePrefix    string   // Prefix trimmed from source paths in stack text
	AttachmentPaths []string // Attachment paths referenced in the summary
	Follow          bool     // Rewrite the document on every engine event
	Summary         bool     // Print a summary table after the run
	Log             log.Logger
}

// RunMetadata is the optional YAML file carrying run-level metadata that
// engines cannot embed in their event stream.
type RunMetadata struct {
	RunName      string   `yaml:"run_name,omitempty"`
	SourcePrefix string   `yaml:"source_prefix,omitempty"`
	Attachments  []string `yaml:"attachments,omitempty"`
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	outputPath := ctx.String(flags.Output.Name)
	if outputPath == "" {
		return nil, errors.New("output path is required")
	}
	absOutputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output '%s': %w", outputPath, err)
	}

	cfg := &Config{
		InputPath:       ctx.String(flags.Input.Name),
		OutputPath:      absOutputPath,
		RunName:         ctx.String(flags.RunName.Name),
		SourcePrefix:    ctx.String(flags.SourcePrefix.Name),
		AttachmentPaths: ctx.StringSlice(flags.Attachment.Name),
		Follow:          ctx.Bool(flags.Follow.Name),
		Summary:         ctx.Bool(flags.Summary.Name),
		Log:             log,
	}

	// The metadata file provides defaults; flags set explicitly win.
	if metaPath := ctx.String(flags.RunConfig.Name); metaPath != "" {
		meta, err := loadRunMetadata(metaPath)
		if err != nil {
			return nil, err
		}
		if cfg.RunName == "" {
			cfg.RunName = meta.RunName
		}
		if cfg.SourcePrefix == "" {
			cfg.SourcePrefix = meta.SourcePrefix
		}
		if len(cfg.AttachmentPaths) == 0 {
			cfg.AttachmentPaths = meta.Attachments
		}
	}

	return cfg, nil
}

func loadRunMetadata(path string) (*RunMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run metadata file '%s': %w", path, err)
	}
	var meta RunMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse run metadata file '%s': %w", path, err)
	}
	return &meta, nil
}
