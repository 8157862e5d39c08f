package common

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint(" n=20, tp_percent=0.03 ,sl_percent=2e-2")
	require.NoError(t, err)
	assert.Equal(t, optimization.Point{"n": 20, "tp_percent": 0.03, "sl_percent": 0.02}, p)
	assert.Equal(t, "n=20,sl_percent=0.02,tp_percent=0.03", FormatPoint(p))

	for _, bad := range []string{"", "n", "n=abc", ","} {
		_, err := ParsePoint(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join("configs", "btc.yaml"), ResolveConfigPath("btc"))
	assert.Equal(t, "btc.json", ResolveConfigPath("btc.json"))
	assert.Equal(t, "dir/btc", ResolveConfigPath("dir/btc"))
	assert.Equal(t, "", ResolveConfigPath(""))
}

func TestFlagValidator(t *testing.T) {
	v := NewFlagValidator().
		ValidateInt("trials", 0, 1, 10).
		ValidateChoice("searcher", "", []string{"tpe"}).
		ValidateChoice("format", "xml", []string{"json", "console"})
	err := v.GetError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trials must be between 1 and 10")
	assert.Contains(t, err.Error(), "format must be one of [json, console]")

	assert.NoError(t, NewFlagValidator().ValidateInt("trials", 5, 1, 10).GetError())
}

func TestApplyLogging(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterCommonFlags(fs)
	require.NoError(t, fs.Parse([]string{"-log-format", "json", "-verbose"}))

	cfg := config.LoggingConfig{Level: "warn", Format: "console", Dir: "logs"}
	flags.ApplyLogging(&cfg)
	assert.Equal(t, config.LoggingConfig{Level: "debug", Format: "json", Dir: "logs"}, cfg)
}
