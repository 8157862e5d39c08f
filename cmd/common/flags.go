package common

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-optimizer/internal/logger"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// CommonFlags contains flags that are shared across multiple commands
type CommonFlags struct {
	EnvFile  *string
	DataRoot *string

	LogLevel  *string
	LogFormat *string
	LogDir    *string
	Verbose   *bool

	Version *bool
	Help    *bool
}

// RegisterCommonFlags registers common flags on fs
func RegisterCommonFlags(fs *flag.FlagSet) *CommonFlags {
	return &CommonFlags{
		EnvFile:  fs.String("env", config.EnvFile, "Environment file path"),
		DataRoot: fs.String("data-root", "", "Data root directory (default "+config.DefaultDataRoot+")"),

		LogLevel:  fs.String("log-level", "", "Log level: debug, info, warn, error"),
		LogFormat: fs.String("log-format", "", "Log format: console or json"),
		LogDir:    fs.String("log-dir", "", "Directory for rotated log files"),
		Verbose:   fs.Bool("verbose", false, "Shorthand for -log-level debug"),

		Version: fs.Bool("version", false, "Show version information"),
		Help:    fs.Bool("help", false, "Show help information"),
	}
}

// ApplyLogging copies the logging flags over cfg. Flags win over the file.
func (c *CommonFlags) ApplyLogging(cfg *config.LoggingConfig) {
	if *c.LogLevel != "" {
		cfg.Level = *c.LogLevel
	}
	if *c.Verbose {
		cfg.Level = "debug"
	}
	if *c.LogFormat != "" {
		cfg.Format = *c.LogFormat
	}
	if *c.LogDir != "" {
		cfg.Dir = *c.LogDir
	}
}

// NewLogger builds the zap logger for a command from its logging config.
func NewLogger(cfg config.LoggingConfig, name ...string) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:   cfg.Level,
		Format:  cfg.Format,
		Dir:     cfg.Dir,
		Name:    logger.FileName(name...),
		Console: true,
	})
}

// FlagValidator provides flag validation utilities
type FlagValidator struct {
	errors []string
}

// NewFlagValidator creates a new flag validator
func NewFlagValidator() *FlagValidator {
	return &FlagValidator{errors: make([]string, 0)}
}

// ValidateInt validates an int flag value
func (v *FlagValidator) ValidateInt(name string, value int, min, max int) *FlagValidator {
	if value < min || value > max {
		v.errors = append(v.errors, fmt.Sprintf("%s must be between %d and %d, got: %d", name, min, max, value))
	}
	return v
}

// ValidateChoice validates that a string is one of the allowed choices.
// Empty values pass.
func (v *FlagValidator) ValidateChoice(name, value string, choices []string) *FlagValidator {
	if value == "" {
		return v
	}
	for _, choice := range choices {
		if value == choice {
			return v
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of [%s], got: %s", name, strings.Join(choices, ", "), value))
	return v
}

// ValidateFile validates that a file exists
func (v *FlagValidator) ValidateFile(name, path string, required bool) *FlagValidator {
	if path == "" {
		if required {
			v.errors = append(v.errors, fmt.Sprintf("%s is required", name))
		}
		return v
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		v.errors = append(v.errors, fmt.Sprintf("%s file does not exist: %s", name, path))
	}
	return v
}

// AddError adds a custom validation error
func (v *FlagValidator) AddError(message string) *FlagValidator {
	v.errors = append(v.errors, message)
	return v
}

// GetError returns a formatted error message with all validation errors
func (v *FlagValidator) GetError() error {
	if len(v.errors) == 0 {
		return nil
	}
	if len(v.errors) == 1 {
		return fmt.Errorf("validation error: %s", v.errors[0])
	}
	return fmt.Errorf("validation errors:\n  - %s", strings.Join(v.errors, "\n  - "))
}

// UsageFormatter provides utilities for formatting flag usage
type UsageFormatter struct {
	AppName        string
	AppDescription string
	Examples       []UsageExample
}

// UsageExample represents a usage example
type UsageExample struct {
	Command     string
	Description string
}

// NewUsageFormatter creates a new usage formatter
func NewUsageFormatter(appName, description string) *UsageFormatter {
	return &UsageFormatter{AppName: appName, AppDescription: description}
}

// AddExample adds a usage example
func (u *UsageFormatter) AddExample(command, description string) *UsageFormatter {
	u.Examples = append(u.Examples, UsageExample{Command: command, Description: description})
	return u
}

// PrintUsage prints formatted usage information
func (u *UsageFormatter) PrintUsage(fs *flag.FlagSet) {
	fmt.Printf("%s - %s\n\n", u.AppName, u.AppDescription)
	fmt.Printf("USAGE:\n  %s [OPTIONS]\n\n", filepath.Base(os.Args[0]))

	if len(u.Examples) > 0 {
		fmt.Printf("EXAMPLES:\n")
		for _, example := range u.Examples {
			fmt.Printf("  # %s\n", example.Description)
			fmt.Printf("  %s\n\n", example.Command)
		}
	}

	fmt.Printf("OPTIONS:\n")
	fs.PrintDefaults()
}

// ResolveConfigPath turns a bare config name into configs/<name>.yaml.
func ResolveConfigPath(path string) string {
	if path == "" || strings.ContainsAny(path, "/\\") || filepath.Ext(path) != "" {
		return path
	}
	return filepath.Join("configs", path+".yaml")
}

// ParsePoint parses "name=value,name=value" into a parameter point.
func ParsePoint(s string) (optimization.Point, error) {
	p := optimization.Point{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		p[strings.TrimSpace(name)] = v
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("no parameters in %q", s)
	}
	return p, nil
}

// FormatPoint renders a point as "name=value" pairs in name order.
func FormatPoint(p optimization.Point) string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.FormatFloat(p[name], 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
