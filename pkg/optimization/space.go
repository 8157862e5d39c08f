package optimization

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
)

// Kind is the value domain of a parameter.
type Kind int

const (
	Integer Kind = iota
	Real
)

func (k Kind) String() string {
	if k == Integer {
		return "int"
	}
	return "float"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "int", "integer":
		*k = Integer
	case "float", "real":
		*k = Real
	default:
		return fmt.Errorf("unknown parameter kind %q", string(text))
	}
	return nil
}

// Param is one named, bounded search dimension. Bounds are inclusive.
type Param struct {
	Name string  `json:"name" yaml:"name"`
	Kind Kind    `json:"kind" yaml:"kind"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// IntParam declares an integer dimension.
func IntParam(name string, min, max int) Param {
	return Param{Name: name, Kind: Integer, Min: float64(min), Max: float64(max)}
}

// RealParam declares a continuous dimension.
func RealParam(name string, min, max float64) Param {
	return Param{Name: name, Kind: Real, Min: min, Max: max}
}

// Width is Max-Min.
func (p Param) Width() float64 {
	return p.Max - p.Min
}

// normalize rounds integers and clamps into bounds. NaN stays NaN.
func (p Param) normalize(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if p.Kind == Integer {
		v = math.Round(v)
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// Space is an ordered set of parameters.
type Space struct {
	params []Param
	index  map[string]int
}

// NewSpace validates and builds a parameter space.
func NewSpace(params ...Param) (*Space, error) {
	if len(params) == 0 {
		return nil, apperrors.NewConfigurationError("optimization", "new_space", "parameter space is empty")
	}
	s := &Space{params: make([]Param, len(params)), index: make(map[string]int, len(params))}
	for i, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return nil, apperrors.NewConfigurationError("optimization", "new_space", "parameter name is empty").
				WithContext("index", i)
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, apperrors.NewConfigurationError("optimization", "new_space",
				fmt.Sprintf("duplicate parameter %q", p.Name))
		}
		if !isFinite(p.Min) || !isFinite(p.Max) || p.Min > p.Max {
			return nil, apperrors.NewConfigurationError("optimization", "new_space",
				fmt.Sprintf("parameter %q has invalid bounds [%v, %v]", p.Name, p.Min, p.Max))
		}
		if p.Kind == Integer && (p.Min != math.Trunc(p.Min) || p.Max != math.Trunc(p.Max)) {
			return nil, apperrors.NewConfigurationError("optimization", "new_space",
				fmt.Sprintf("integer parameter %q needs integral bounds", p.Name))
		}
		s.params[i] = p
		s.index[p.Name] = i
	}
	return s, nil
}

// MustSpace is NewSpace for static declarations. It panics on invalid bounds.
func MustSpace(params ...Param) *Space {
	s, err := NewSpace(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Params returns a copy of the ordered parameters.
func (s *Space) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// Dim returns the number of dimensions.
func (s *Space) Dim() int {
	return len(s.params)
}

// Param looks up a parameter by name.
func (s *Space) Param(name string) (Param, bool) {
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// WithBounds returns a copy of the space with overridden bounds for the named parameters.
func (s *Space) WithBounds(overrides map[string][2]float64) (*Space, error) {
	params := s.Params()
	for name, b := range overrides {
		i, ok := s.index[name]
		if !ok {
			return nil, apperrors.NewConfigurationError("optimization", "with_bounds",
				fmt.Sprintf("unknown parameter %q", name))
		}
		params[i].Min, params[i].Max = b[0], b[1]
	}
	return NewSpace(params...)
}

// Normalize fills missing fields with the center, rounds integer fields and
// clamps everything into bounds.
func (s *Space) Normalize(p Point) Point {
	out := make(Point, len(s.params))
	for _, param := range s.params {
		v, ok := p[param.Name]
		if !ok {
			v = param.Min + param.Width()/2
		}
		out[param.Name] = param.normalize(v)
	}
	return out
}

// Validate reports the first field that is missing, non-finite, out of
// bounds or non-integral where an integer is required.
func (s *Space) Validate(p Point) error {
	for _, param := range s.params {
		v, ok := p[param.Name]
		switch {
		case !ok:
			return apperrors.NewInvalidParameterError("optimization", "validate", "missing parameter").
				WithContext("param", param.Name)
		case !isFinite(v):
			return apperrors.NewInvalidParameterError("optimization", "validate", "parameter is not finite").
				WithContext("param", param.Name)
		case v < param.Min || v > param.Max:
			return apperrors.NewInvalidParameterError("optimization", "validate",
				fmt.Sprintf("%v outside [%v, %v]", v, param.Min, param.Max)).
				WithContext("param", param.Name)
		case param.Kind == Integer && v != math.Trunc(v):
			return apperrors.NewInvalidParameterError("optimization", "validate", "integer parameter has a fraction").
				WithContext("param", param.Name)
		}
	}
	return nil
}

// Center returns the midpoint of every dimension, normalized.
func (s *Space) Center() Point {
	return s.Normalize(Point{})
}

// Sample draws a uniform point, normalized.
func (s *Space) Sample(rng *rand.Rand) Point {
	p := make(Point, len(s.params))
	for _, param := range s.params {
		if param.Kind == Integer {
			p[param.Name] = param.Min + float64(rng.Intn(int(param.Width())+1))
		} else {
			p[param.Name] = param.Min + rng.Float64()*param.Width()
		}
	}
	return p
}

// Vector flattens a point into parameter order.
func (s *Space) Vector(p Point) []float64 {
	x := make([]float64, len(s.params))
	for i, param := range s.params {
		x[i] = p[param.Name]
	}
	return x
}

// FromVector builds a normalized point from a vector in parameter order.
func (s *Space) FromVector(x []float64) Point {
	p := make(Point, len(s.params))
	for i, param := range s.params {
		if i < len(x) {
			p[param.Name] = x[i]
		}
	}
	return s.Normalize(p)
}

// String lists the dimensions in order.
func (s *Space) String() string {
	parts := make([]string, len(s.params))
	for i, p := range s.params {
		parts[i] = fmt.Sprintf("%s:%s[%g,%g]", p.Name, p.Kind, p.Min, p.Max)
	}
	return strings.Join(parts, " ")
}

// Point is one candidate assignment of parameter values.
type Point map[string]float64

// Int returns the named field rounded to an int.
func (p Point) Int(name string) int {
	return int(math.Round(p[name]))
}

// Float returns the named field.
func (p Point) Float(name string) float64 {
	return p[name]
}

// Clone returns an independent copy.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Key is a stable string form, used for caching and logs.
func (p Point) Key() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(p[k], 'g', 10, 64))
	}
	return b.String()
}

func (p Point) String() string {
	return "{" + p.Key() + "}"
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
