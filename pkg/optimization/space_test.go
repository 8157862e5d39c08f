package optimization

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/signal-optimizer/internal/errors"
)

func testSpace(t *testing.T) *Space {
	t.Helper()
	space, err := NewSpace(IntParam("period", 5, 50), RealParam("mult", 0.5, 3.0))
	require.NoError(t, err)
	return space
}

// TestNewSpaceRejectsBadBounds tests that invalid declarations are configuration errors
func TestNewSpaceRejectsBadBounds(t *testing.T) {
	tests := []struct {
		name   string
		params []Param
	}{
		{"empty", nil},
		{"inverted", []Param{RealParam("a", 2, 1)}},
		{"infinite", []Param{RealParam("a", 0, math.Inf(1))}},
		{"fractional int", []Param{{Name: "a", Kind: Integer, Min: 0.5, Max: 3}}},
		{"duplicate", []Param{IntParam("a", 1, 2), IntParam("a", 1, 3)}},
		{"unnamed", []Param{IntParam(" ", 1, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpace(tt.params...)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigurationError(err))
		})
	}
}

// TestNormalize tests rounding, clamping and filling of missing fields
func TestNormalize(t *testing.T) {
	space := testSpace(t)

	p := space.Normalize(Point{"period": 12.6, "mult": 9})
	assert.Equal(t, 13.0, p["period"])
	assert.Equal(t, 3.0, p["mult"])

	p = space.Normalize(Point{"mult": 1})
	assert.Equal(t, 28.0, p["period"], "missing integer field takes the rounded centre")
	assert.NoError(t, space.Validate(p))
}

// TestValidate tests the invalid-parameter checks
func TestValidate(t *testing.T) {
	space := testSpace(t)

	assert.NoError(t, space.Validate(Point{"period": 10, "mult": 1.5}))

	for name, p := range map[string]Point{
		"missing":    {"period": 10},
		"nan":        {"period": 10, "mult": math.NaN()},
		"out":        {"period": 60, "mult": 1},
		"fractional": {"period": 10.5, "mult": 1},
	} {
		err := space.Validate(p)
		require.Error(t, err, name)
		assert.True(t, apperrors.IsInvalidParameter(err), name)
	}
}

// TestSampleStaysInBounds tests that uniform samples are always valid
func TestSampleStaysInBounds(t *testing.T) {
	space := testSpace(t)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		require.NoError(t, space.Validate(space.Sample(rng)))
	}
}

func TestWithBounds(t *testing.T) {
	space := testSpace(t)

	narrowed, err := space.WithBounds(map[string][2]float64{"period": {10, 20}})
	require.NoError(t, err)
	p, ok := narrowed.Param("period")
	require.True(t, ok)
	assert.Equal(t, 10.0, p.Min)
	assert.Equal(t, 20.0, p.Max)

	_, err = space.WithBounds(map[string][2]float64{"nope": {1, 2}})
	assert.Error(t, err)
}

func TestPointKeyIsStable(t *testing.T) {
	a := Point{"b": 2, "a": 1.5}
	b := Point{"a": 1.5, "b": 2}
	assert.Equal(t, "a=1.5,b=2", a.Key())
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, 2, a.Int("b"))
}

func TestVectorRoundTrip(t *testing.T) {
	space := testSpace(t)
	p := Point{"period": 7, "mult": 2.25}
	assert.Equal(t, p, space.FromVector(space.Vector(p)))
}

func TestKindText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("integer")))
	assert.Equal(t, Integer, k)
	require.NoError(t, k.UnmarshalText([]byte("float")))
	assert.Equal(t, Real, k)
	assert.Error(t, k.UnmarshalText([]byte("complex")))
}
