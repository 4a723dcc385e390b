package evtfix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// ConfigDirName is the per-data-directory settings directory
const ConfigDirName = ".evtfix"

// Config represents the evtfix configuration
type Config struct {
	configPath string
	ini        *ini.File
}

// RunConfig represents run file naming configuration
type RunConfig struct {
	FileFormat string // fmt format taking the run number, e.g. run_%04d.h5
}

// CheckConfig represents timestamp check configuration
type CheckConfig struct {
	Tolerance float64 // Allowed drift above the reference offset
	Enabled   bool    // Run the check after every repair
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // human or json
	Color  string // auto, always or never
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=progress, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// ProgressConfig represents progress reporting configuration
type ProgressConfig struct {
	Interval int // Steps between progress lines
}

// AllConfig represents all configuration options
type AllConfig struct {
	Run      *RunConfig
	Check    *CheckConfig
	Output   *OutputConfig
	Verbose  *VerboseConfig
	Progress *ProgressConfig
}

// DefaultConfigPath returns the config file location for a data directory
func DefaultConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigDirName, "config")
}

// LoadConfig loads configuration from configPath. A missing file yields the
// defaults in memory; nothing is written next to the data unless Save is called.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		VerboseLog(2, "No config at %s, using defaults", configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	} else {
		iniFile, err := ini.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.ini = iniFile
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section string
		key     string
		value   string
	}{
		{"run", "file_format", DefaultRunFormat},
		{"check", "tolerance", fmt.Sprintf("%d", DefaultTolerance)},
		{"check", "enabled", "true"},
		{"output", "format", "human"},
		{"output", "color", "auto"},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
		{"progress", "interval", fmt.Sprintf("%d", DefaultProgressInterval)},
	}

	for _, d := range defaults {
		section, err := c.ini.NewSection(d.section)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", d.section, err)
		}
		if _, err := section.NewKey(d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", d.section, d.key, err)
		}
	}
	return nil
}

// Path returns the file the configuration is read from and saved to
func (c *Config) Path() string {
	return c.configPath
}

// GetRunConfig returns the run naming configuration
func (c *Config) GetRunConfig() *RunConfig {
	runConfig := &RunConfig{
		FileFormat: DefaultRunFormat,
	}

	if c.ini.HasSection("run") {
		section := c.ini.Section("run")
		if section.HasKey("file_format") {
			if format := section.Key("file_format").String(); format != "" {
				runConfig.FileFormat = format
			}
		}
	}

	return runConfig
}

// GetCheckConfig returns the timestamp check configuration
func (c *Config) GetCheckConfig() *CheckConfig {
	checkConfig := &CheckConfig{
		Tolerance: DefaultTolerance,
		Enabled:   true,
	}

	if c.ini.HasSection("check") {
		section := c.ini.Section("check")
		if section.HasKey("tolerance") {
			if tolerance, err := section.Key("tolerance").Float64(); err == nil {
				checkConfig.Tolerance = tolerance
			}
		}
		if section.HasKey("enabled") {
			if enabled, err := section.Key("enabled").Bool(); err == nil {
				checkConfig.Enabled = enabled
			}
		}
	}

	return checkConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: "human",
		Color:  "auto",
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
		if section.HasKey("color") {
			outputConfig.Color = section.Key("color").String()
		}
	}

	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetProgressConfig returns the progress configuration
func (c *Config) GetProgressConfig() *ProgressConfig {
	progressConfig := &ProgressConfig{
		Interval: DefaultProgressInterval,
	}

	if c.ini.HasSection("progress") {
		section := c.ini.Section("progress")
		if section.HasKey("interval") {
			if interval, err := section.Key("interval").Int(); err == nil {
				progressConfig.Interval = interval
			}
		}
	}

	return progressConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Run:      c.GetRunConfig(),
		Check:    c.GetCheckConfig(),
		Output:   c.GetOutputConfig(),
		Verbose:  c.GetVerboseConfig(),
		Progress: c.GetProgressConfig(),
	}
}

// Save saves the configuration to disk, creating the settings directory
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return c.ini.SaveTo(c.configPath)
}

// overrideKeys maps override names to their section
var overrideKeys = map[string][2]string{
	"file_format": {"run", "file_format"},
	"tolerance":   {"check", "tolerance"},
	"check":       {"check", "enabled"},
	"format":      {"output", "format"},
	"color":       {"output", "color"},
	"level":       {"verbose", "level"},
	"debug":       {"verbose", "debug"},
	"interval":    {"progress", "interval"},
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "format:json", "level:2", "tolerance:1.5", "debug:renames"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		target, ok := overrideKeys[key]
		if !ok {
			return fmt.Errorf("unsupported override key '%s' (supported: file_format, tolerance, check, format, color, level, debug, interval)", key)
		}
		c.ini.Section(target[0]).Key(target[1]).SetValue(value)
	}

	return c.Validate()
}

// Validate checks every configured value
func (c *Config) Validate() error {
	all := c.GetAllConfig()
	if err := ValidateRunFormat(all.Run.FileFormat); err != nil {
		return err
	}
	if err := ValidateTolerance(all.Check.Tolerance); err != nil {
		return err
	}
	if err := ValidateOutputFormat(all.Output.Format); err != nil {
		return err
	}
	if err := ValidateColorMode(all.Output.Color); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return err
	}
	if err := ValidateProgressInterval(all.Progress.Interval); err != nil {
		return err
	}
	// Typed keys that failed to parse fall back to defaults in the getters; report them here
	if c.ini.HasSection("check") {
		section := c.ini.Section("check")
		if section.HasKey("tolerance") {
			if _, err := section.Key("tolerance").Float64(); err != nil {
				return fmt.Errorf("invalid tolerance %q", section.Key("tolerance").String())
			}
		}
		if section.HasKey("enabled") {
			if _, err := section.Key("enabled").Bool(); err != nil {
				return fmt.Errorf("invalid check.enabled %q", section.Key("enabled").String())
			}
		}
	}
	return nil
}

// ValidateTolerance validates the timestamp tolerance
func ValidateTolerance(tolerance float64) error {
	if tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got: %v", tolerance)
	}
	return nil
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "human", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json)", format)
	}
}

// ValidateColorMode validates that a color mode is supported
func ValidateColorMode(mode string) error {
	switch strings.ToLower(mode) {
	case "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("unsupported color mode: %s (supported: auto, always, never)", mode)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateProgressInterval validates the progress interval
func ValidateProgressInterval(interval int) error {
	if interval < 1 {
		return fmt.Errorf("progress interval must be at least 1, got: %d", interval)
	}
	return nil
}
