package signals

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
)

var generators = map[string]Generator{
	TripleEMA{}.Name(): TripleEMA{},
	Ichimoku{}.Name():  Ichimoku{},
	Fisher{}.Name():    Fisher{},
	Fractal{}.Name():   Fractal{},
	Breakout{}.Name():  Breakout{},
}

// New returns the generator registered under name
func New(name string) (Generator, error) {
	g, ok := generators[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.NewConfigurationError("signals", "new",
			fmt.Sprintf("unknown generator %q (available: %s)", name, strings.Join(Names(), ", ")))
	}
	return g, nil
}

// Names returns the registered generator names, sorted
func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
