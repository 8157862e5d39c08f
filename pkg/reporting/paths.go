package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns root/SYMBOL_interval_generator.
func (p *DefaultPathManager) GetDefaultOutputDir(root, symbol, interval, generator string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	i := strings.ToLower(strings.TrimSpace(interval))
	if s == "" {
		s = "UNKNOWN"
	}
	if i == "" {
		i = "unknown"
	}
	if root == "" {
		root = "results"
	}

	name := fmt.Sprintf("%s_%s", s, i)
	if g := strings.ToLower(strings.TrimSpace(generator)); g != "" {
		name += "_" + g
	}
	return filepath.Join(root, name)
}

// EnsureDirectoryExists creates the parent directory of path.
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// DefaultOutputDir is a convenience wrapper around DefaultPathManager.
func DefaultOutputDir(root, symbol, interval, generator string) string {
	return NewDefaultPathManager().GetDefaultOutputDir(root, symbol, interval, generator)
}
