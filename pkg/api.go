package evtfix

// InitDebugFlags initialises debug flags - for CLI compatibility
func InitDebugFlags(flagsStr string) {
	if flagsStr != "" {
		SetDebugFlags(flagsStr)
	}
}

// ApplyConfig sets the global verbose level and debug flags from a loaded
// configuration. Explicit command-line values should be applied afterwards.
func ApplyConfig(cfg *Config) {
	verbose := cfg.GetVerboseConfig()
	SetVerboseLevel(verbose.Level)
	InitDebugFlags(verbose.Debug)
}

// RepairOptionsFromConfig builds repair options from a configuration
func RepairOptionsFromConfig(cfg *Config, dryRun bool) RepairOptions {
	return RepairOptions{
		DryRun:           dryRun,
		ProgressInterval: cfg.GetProgressConfig().Interval,
	}
}

// CheckOptionsFromConfig builds check options from a configuration
func CheckOptionsFromConfig(cfg *Config) CheckOptions {
	return CheckOptions{
		Tolerance:        cfg.GetCheckConfig().Tolerance,
		ProgressInterval: cfg.GetProgressConfig().Interval,
	}
}
