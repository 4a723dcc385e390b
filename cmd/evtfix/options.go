package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OptionType defines the type of value an option expects
type OptionType int

const (
	OptionTypeBool OptionType = iota
	OptionTypeString
	OptionTypeInt
	OptionTypeFloat
)

// OptionDef defines a command-line option
type OptionDef struct {
	Long        string     // Long option name (without --)
	Short       string     // Short option name (without -)
	Type        OptionType // Type of value expected
	Description string     // Help description
	Default     string     // Default value
}

// ParsedOptions holds the parsed command-line options
type ParsedOptions struct {
	values        map[string]string
	args          []string
	defs          map[string]*OptionDef
	order         []string          // Definition order, for usage output
	shortMap      map[string]string // Maps short options to long options
	explicitlySet map[string]bool   // Tracks which options were explicitly set
}

// NewParsedOptions creates a new options parser
func NewParsedOptions() *ParsedOptions {
	return &ParsedOptions{
		values:        make(map[string]string),
		args:          []string{},
		defs:          make(map[string]*OptionDef),
		shortMap:      make(map[string]string),
		explicitlySet: make(map[string]bool),
	}
}

// DefineOption defines a command-line option
func (p *ParsedOptions) DefineOption(long, short string, optType OptionType, defaultValue, description string) {
	def := &OptionDef{
		Long:        long,
		Short:       short,
		Type:        optType,
		Description: description,
		Default:     defaultValue,
	}
	if _, exists := p.defs[long]; !exists {
		p.order = append(p.order, long)
	}
	p.defs[long] = def
	if short != "" {
		p.shortMap[short] = long
	}

	if defaultValue != "" {
		p.values[long] = defaultValue
	}
}

// Parse parses command-line arguments. A lone "--" ends option parsing.
func (p *ParsedOptions) Parse(args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--":
			p.args = append(p.args, args[i+1:]...)
			return nil
		case strings.HasPrefix(arg, "--"):
			if err := p.parseLongOption(arg); err != nil {
				return err
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			if err := p.parseShortOptions(arg); err != nil {
				return err
			}
		default:
			p.args = append(p.args, arg)
		}
	}
	return nil
}

// parseLongOption parses a long option (--option or --option=value)
func (p *ParsedOptions) parseLongOption(arg string) error {
	optName := strings.TrimPrefix(arg, "--")
	var optValue string
	hasValue := false

	if equalPos := strings.Index(optName, "="); equalPos != -1 {
		optValue = optName[equalPos+1:]
		optName = optName[:equalPos]
		hasValue = true
	}

	def, exists := p.defs[optName]
	if !exists {
		return fmt.Errorf("unknown option: --%s", optName)
	}

	switch def.Type {
	case OptionTypeBool:
		if !hasValue {
			p.set(optName, "true")
			return nil
		}
		switch optValue {
		case "true", "1":
			p.set(optName, "true")
		case "false", "0":
			p.set(optName, "false")
		default:
			return fmt.Errorf("invalid boolean value for --%s: %s", optName, optValue)
		}

	case OptionTypeString, OptionTypeInt, OptionTypeFloat:
		if !hasValue || optValue == "" {
			return fmt.Errorf("option --%s requires a value (use --%s=value)", optName, optName)
		}
		if def.Type == OptionTypeInt {
			if _, err := strconv.Atoi(optValue); err != nil {
				return fmt.Errorf("invalid integer value for --%s: %s", optName, optValue)
			}
		}
		if def.Type == OptionTypeFloat {
			if _, err := strconv.ParseFloat(optValue, 64); err != nil {
				return fmt.Errorf("invalid number for --%s: %s", optName, optValue)
			}
		}
		p.set(optName, optValue)
	}

	return nil
}

// parseShortOptions parses short option(s) (-n or -vvn). Short options never
// take their value from the following argument, so positional run numbers
// are never swallowed: -v on its own means level 1, -vv level 2.
func (p *ParsedOptions) parseShortOptions(arg string) error {
	shortOpts := strings.TrimPrefix(arg, "-")

	optCounts := make(map[string]int)
	var seen []string
	for _, r := range shortOpts {
		short := string(r)
		if _, exists := p.shortMap[short]; !exists {
			return fmt.Errorf("unknown option: -%s", short)
		}
		if optCounts[short] == 0 {
			seen = append(seen, short)
		}
		optCounts[short]++
	}

	for _, short := range seen {
		longOpt := p.shortMap[short]
		switch p.defs[longOpt].Type {
		case OptionTypeBool:
			p.set(longOpt, "true")
		case OptionTypeInt:
			p.set(longOpt, strconv.Itoa(optCounts[short]))
		default:
			return fmt.Errorf("option -%s requires a value (use --%s=value)", short, longOpt)
		}
	}

	return nil
}

func (p *ParsedOptions) set(option, value string) {
	p.values[option] = value
	p.explicitlySet[option] = true
}

// GetString returns a string option value
func (p *ParsedOptions) GetString(option string) string {
	return p.values[option]
}

// GetInt returns an integer option value
func (p *ParsedOptions) GetInt(option string) int {
	if val, exists := p.values[option]; exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return 0
}

// GetFloat returns a floating point option value
func (p *ParsedOptions) GetFloat(option string) float64 {
	if val, exists := p.values[option]; exists {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return 0
}

// GetBool returns a boolean option value
func (p *ParsedOptions) GetBool(option string) bool {
	return p.values[option] == "true"
}

// IsSet returns true if an option was explicitly set
func (p *ParsedOptions) IsSet(option string) bool {
	return p.explicitlySet[option]
}

// GetArgs returns non-option arguments
func (p *ParsedOptions) GetArgs() []string {
	return p.args
}

// ShowOptions lists the defined options in definition order
func (p *ParsedOptions) ShowOptions(w io.Writer) {
	for _, long := range p.order {
		def := p.defs[long]
		shortOpt := "    "
		if def.Short != "" {
			shortOpt = fmt.Sprintf("-%s, ", def.Short)
		}

		var valueDesc string
		switch def.Type {
		case OptionTypeString:
			valueDesc = "=VALUE"
		case OptionTypeInt, OptionTypeFloat:
			valueDesc = "=N"
		}

		flag := "--" + long + valueDesc
		fmt.Fprintf(w, "  %s%-20s %s\n", shortOpt, flag, def.Description)
	}
}
