package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"cycle-trade-bot-go/internal/backtest"
	"cycle-trade-bot-go/internal/logger"
	"cycle-trade-bot-go/internal/trader"
	"go.uber.org/zap"
)

// defaultItems are used for every key not given with -set.
var defaultItems = map[string]map[string]string{
	trader.ScalpingStrategyName: {
		trader.KeyCounterCurrencyBuyOrderAmount: "20",
		trader.KeyMinimumPercentageGain:         "2",
	},
	trader.MultiOrderStrategyName: {
		trader.KeyCounterCurrencyBuyOrderAmount: "20",
		trader.KeyMaxConcurrentSellOrders:       "3",
		trader.KeyPercentChangeThreshold:        "2",
	},
	trader.RebalancingStrategyName: {
		trader.KeyCounterCurrencyThreshold: "20",
	},
}

// configFlag collects repeated -set key=value flags.
type configFlag map[string]string

func (f configFlag) String() string {
	pairs := make([]string, 0, len(f))
	for k, v := range f {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (f configFlag) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	f[k] = v
	return nil
}

func main() {
	strategyType := flag.String("strategy", trader.ScalpingStrategyName,
		"strategy type, one of "+strings.Join(trader.StrategyNames(), ", "))
	scenarioName := flag.String("scenario", "", "run a single scenario (default: all)")
	logLevel := flag.String("log-level", "warn", "log level")
	overrides := configFlag{}
	flag.Var(overrides, "set", "strategy config item as key=value, may be repeated")
	flag.Parse()

	log, err := logger.NewLogger(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	items := make(map[string]string)
	for k, v := range defaultItems[*strategyType] {
		items[k] = v
	}
	for k, v := range overrides {
		items[k] = v
	}

	scenarios := backtest.DefaultScenarios()
	if *scenarioName != "" {
		sc, ok := backtest.ScenarioByName(*scenarioName)
		if !ok {
			log.Fatal("Unknown scenario", zap.String("scenario", *scenarioName))
		}
		scenarios = []backtest.Scenario{sc}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting backtest", zap.String("strategy", *strategyType), zap.Int("scenarios", len(scenarios)))
	results, err := backtest.RunAll(ctx, *strategyType, items, scenarios, backtest.WithLogger(log))
	if err != nil {
		log.Error("Backtest stopped", zap.Error(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "scenario\tcycles\ttransactions\tfinal value\t")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", r.Scenario, r.Cycles, len(r.Transactions), r.FinalValue.StringFixed(2))
	}
	w.Flush()

	if err != nil {
		os.Exit(1)
	}
}
