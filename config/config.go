package config

import (
	"fmt"
	"os"

	"github.com/darianmavgo/mkcsv/converters/common"
	"github.com/darianmavgo/mkcsv/converters/sqlite"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Config represents the application configuration.
type Config struct {
	Engine       string   `hcl:"engine,optional"`
	Table        string   `hcl:"table,optional"`
	DefaultTable string   `hcl:"default_table,optional"`
	Columns      []string `hcl:"columns,optional"`
	Sheet        string   `hcl:"sheet,optional"`
	ChunkSize    int      `hcl:"chunk_size,optional"`
	GroupSize    int      `hcl:"group_size,optional"`
	Encoding     string   `hcl:"encoding,optional"`
	TempDir      string   `hcl:"temp_dir,optional"`
	ArchiveName  string   `hcl:"archive_name,optional"`
	StallTimeout string   `hcl:"stall_timeout,optional"`
	Verbose      bool     `hcl:"verbose,optional"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine:       sqlite.Name,
		DefaultTable: common.DefaultTableName,
		ChunkSize:    common.DefaultChunkSize,
		GroupSize:    common.DefaultGroupSize,
		ArchiveName:  common.DefaultArchiveName,
	}
}

// Load reads the configuration from the given HCL file.
// Attributes missing from the file keep their default values.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Wrap(common.ErrConfiguration, path, "failed to read config file", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, common.New(common.ErrConfiguration, path, fmt.Sprintf("failed to parse config file: %s", diags.Error()))
	}

	cfg := DefaultConfig()
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, common.New(common.ErrConfiguration, path, fmt.Sprintf("failed to decode config: %s", diags.Error()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Engine == "" {
		return common.New(common.ErrConfiguration, "", "engine must be set")
	}
	if c.ChunkSize <= 0 {
		return common.New(common.ErrConfiguration, "", fmt.Sprintf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.GroupSize <= 0 {
		return common.New(common.ErrConfiguration, "", fmt.Sprintf("group_size must be positive, got %d", c.GroupSize))
	}
	if c.ArchiveName == "" {
		return common.New(common.ErrConfiguration, "", "archive_name must not be empty")
	}
	conv := c.ConversionConfig()
	if _, err := conv.StallDuration(); err != nil {
		return err
	}
	if _, err := common.LookupEncoding(c.Encoding); err != nil {
		return err
	}
	return nil
}

// ConversionConfig returns the settings used by the reader and the orchestrator.
func (c *Config) ConversionConfig() *common.ConversionConfig {
	return &common.ConversionConfig{
		TableName:    c.Table,
		Columns:      append([]string(nil), c.Columns...),
		Sheet:        c.Sheet,
		DefaultTable: c.DefaultTable,
		ChunkSize:    c.ChunkSize,
		GroupSize:    c.GroupSize,
		Encoding:     c.Encoding,
		TempDir:      c.TempDir,
		ArchiveName:  c.ArchiveName,
		StallTimeout: c.StallTimeout,
		Verbose:      c.Verbose,
	}
}

// Export writes the configuration to the specified file in HCL format.
func Export(path string, cfg *Config) error {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	root.SetAttributeValue("engine", cty.StringVal(cfg.Engine))
	if cfg.Table != "" {
		root.SetAttributeValue("table", cty.StringVal(cfg.Table))
	}
	root.SetAttributeValue("default_table", cty.StringVal(cfg.DefaultTable))
	if len(cfg.Columns) > 0 {
		cols := make([]cty.Value, len(cfg.Columns))
		for i, c := range cfg.Columns {
			cols[i] = cty.StringVal(c)
		}
		root.SetAttributeValue("columns", cty.ListVal(cols))
	}
	if cfg.Sheet != "" {
		root.SetAttributeValue("sheet", cty.StringVal(cfg.Sheet))
	}
	root.AppendNewline()
	root.SetAttributeValue("chunk_size", cty.NumberIntVal(int64(cfg.ChunkSize)))
	root.SetAttributeValue("group_size", cty.NumberIntVal(int64(cfg.GroupSize)))
	if cfg.Encoding != "" {
		root.SetAttributeValue("encoding", cty.StringVal(cfg.Encoding))
	}
	if cfg.TempDir != "" {
		root.SetAttributeValue("temp_dir", cty.StringVal(cfg.TempDir))
	}
	root.SetAttributeValue("archive_name", cty.StringVal(cfg.ArchiveName))
	if cfg.StallTimeout != "" {
		root.SetAttributeValue("stall_timeout", cty.StringVal(cfg.StallTimeout))
	}
	root.SetAttributeValue("verbose", cty.BoolVal(cfg.Verbose))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(f.Bytes())
	if err != nil {
		return fmt.Errorf("failed to write config to file: %w", err)
	}

	return nil
}
