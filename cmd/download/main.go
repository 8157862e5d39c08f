package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-optimizer/cmd/common"
	"github.com/ducminhle1904/signal-optimizer/internal/exchange/bybit"
	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/data"
	"github.com/ducminhle1904/signal-optimizer/pkg/types"
)

const AppName = "Kline Downloader"

func main() {
	fs := flag.CommandLine
	commonFlags := common.RegisterCommonFlags(fs)
	symbol := fs.String("symbol", "", "Trading symbol, e.g. BTCUSDT (required)")
	interval := fs.String("interval", "1h", "Kline interval: 1m, 5m, 15m, 1h, 4h, 1d ...")
	category := fs.String("category", config.DefaultCategory, "Market category: spot, linear, inverse")
	start := fs.String("start", "", "Start of the range (default one year before end)")
	end := fs.String("end", "", "End of the range (default now)")
	out := fs.String("out", "", "Output file (default the data-root layout)")
	testnet := fs.Bool("testnet", false, "Use the Bybit testnet")
	flag.Parse()

	if *commonFlags.Version {
		common.PrintVersion(AppName)
		return
	}
	if *commonFlags.Help {
		common.NewUsageFormatter(AppName, "Download Bybit klines into the candles layout").
			AddExample("download -symbol BTCUSDT -interval 1h -start 2024-01-01", "One hour bars since January").
			AddExample("download -symbol ETHUSDT -interval 5m -category spot -out eth_5m.csv", "Spot bars to a custom file").
			PrintUsage(fs)
		return
	}

	v := common.NewFlagValidator().
		ValidateChoice("category", *category, []string{"spot", "linear", "inverse"})
	if *symbol == "" {
		v.AddError("symbol is required")
	}
	if err := v.GetError(); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	if err := config.LoadEnvFile(*commonFlags.EnvFile, nil); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", *commonFlags.EnvFile, err)
	}

	logging := config.LoggingConfig{Level: "info", Format: "console"}
	commonFlags.ApplyLogging(&logging)
	logger, err := common.NewLogger(logging, "download", *symbol, *interval)
	if err != nil {
		log.Fatalf("❌ logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dataRoot := *commonFlags.DataRoot
	if dataRoot == "" {
		dataRoot = config.DefaultDataRoot
	}
	path := *out
	if path == "" {
		path = data.DataFilePath(dataRoot, config.DefaultExchange, *category, *symbol, *interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bars, err := download(ctx, strings.ToUpper(*symbol), *interval, *category, *start, *end, *testnet, logger)
	if err != nil {
		log.Fatalf("❌ Download failed: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("❌ No klines returned for %s %s", *symbol, *interval)
	}
	if err := data.SaveCSV(path, bars); err != nil {
		log.Fatalf("❌ Save failed: %v", err)
	}

	first, last := types.Span(bars)
	fmt.Printf("✅ %d bars (%s to %s) saved to %s\n", len(bars),
		first.Format(time.RFC3339), last.Format(time.RFC3339), path)
}

func download(ctx context.Context, symbol, interval, category, start, end string, testnet bool, logger *zap.Logger) ([]types.OHLCV, error) {
	kline, err := bybit.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	var from, to time.Time
	if start != "" {
		if from, err = data.ParseTimestamp(start); err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
	}
	if end != "" {
		if to, err = data.ParseTimestamp(end); err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
	}

	env := config.ReadEnv()
	client := bybit.NewClient(bybit.Config{
		APIKey:    env.BybitAPIKey,
		APISecret: env.BybitAPISecret,
		Testnet:   testnet,
	})
	fmt.Printf("📥 Downloading %s %s %s klines from %s\n", category, symbol, interval, client.GetEnvironment())

	provider, err := bybit.NewKlineProvider(client, bybit.KlineProviderConfig{
		Category: category,
		Symbol:   symbol,
		Interval: kline,
	}, logger)
	if err != nil {
		return nil, err
	}
	return provider.LoadRange(ctx, from, to)
}
