package backtest

import (
	"math"
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultPoints is the length of the generated scenarios.
const DefaultPoints = 200

// Series generates a deterministic price series.
type Series interface {
	Generate(n int) []float64
}

// LinearSeries drifts by Initial*Slope over the whole series, plus uniform
// noise of width Volatility*Initial at every step.
type LinearSeries struct {
	Initial    float64
	Slope      float64
	Volatility float64 // 0..1
	Seed       int64
}

func (s LinearSeries) Generate(n int) []float64 {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(s.Seed))
	series := make([]float64, n)
	series[0] = s.Initial

	randomness := clamp01(s.Volatility) * s.Initial
	increment := s.Initial * s.Slope / float64(n)
	for i := 1; i < n; i++ {
		r := rng.Float64()*randomness - randomness/2
		series[i] = series[i-1] + r + increment
		// prices stay positive
		if series[i] <= 0 {
			series[i] = -series[i]
		}
	}
	return series
}

// ExponentialSeries grows (or decays) as 2^(Power*x) with multiplicative
// noise. With Crashes > 0 the price falls to around CrashDegree*Initial at
// the crash points and the curve restarts from there.
type ExponentialSeries struct {
	Initial     float64
	Power       float64
	Volatility  float64 // 0..1
	Crashes     int
	CrashDegree float64
	Seed        int64
}

func (s ExponentialSeries) Generate(n int) []float64 {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(s.Seed))
	crashPoints := s.crashPoints(rng)
	volatility := clamp01(s.Volatility)

	series := make([]float64, n)
	series[0] = s.Initial
	start := s.Initial
	crash := 0
	x := 0
	for i := 1; i < n; i++ {
		r := 1 + rng.Float64()*volatility - volatility/2
		series[i] = start * r * math.Pow(2, s.Power*float64(x))
		x++

		if crash < len(crashPoints) && float64(i)/float64(n) >= crashPoints[crash] {
			series[i] = s.CrashDegree * (0.5 + rng.Float64()/2) * s.Initial
			start = series[i]
			x = 1
			crash++
		}
	}
	return series
}

// crashPoints returns the crash positions as fractions of the series length.
func (s ExponentialSeries) crashPoints(rng *rand.Rand) []float64 {
	switch {
	case s.Crashes <= 0:
		return nil
	case s.Crashes == 1:
		return []float64{0.94}
	}
	points := make([]float64, s.Crashes)
	for i := range points {
		points[i] = rng.Float64()
	}
	sort.Float64s(points)
	return points
}

// HistoricalSeries replays daily BTC closes from the second half of 2020.
// The series has a fixed length; n only truncates it.
type HistoricalSeries struct{}

func (HistoricalSeries) Generate(n int) []float64 {
	if n <= 0 || n > len(btcDailyClose2020) {
		n = len(btcDailyClose2020)
	}
	series := make([]float64, n)
	copy(series, btcDailyClose2020)
	return series
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Scenario is a named price series.
type Scenario struct {
	Name   string
	Prices []decimal.Decimal
}

// NewScenario generates n prices from s, kept to 8 fractional digits.
func NewScenario(name string, s Series, n int) Scenario {
	raw := s.Generate(n)
	prices := make([]decimal.Decimal, len(raw))
	for i, p := range raw {
		prices[i] = decimal.NewFromFloat(p).Round(8)
	}
	return Scenario{Name: name, Prices: prices}
}

const initialPrice = 25000

// DefaultScenarios returns the built-in market scenarios.
func DefaultScenarios() []Scenario {
	return []Scenario{
		NewScenario("linearlyIncreasing", LinearSeries{Initial: initialPrice, Slope: 0.4, Volatility: 0.02, Seed: 4}, DefaultPoints),
		NewScenario("volatileIncreasing", LinearSeries{Initial: initialPrice, Slope: 0.5, Volatility: 0.2, Seed: 4}, DefaultPoints),
		NewScenario("exponentiallyIncreasing", ExponentialSeries{Initial: initialPrice, Power: 0.0115, Volatility: 0.08}, DefaultPoints),
		NewScenario("flat", LinearSeries{Initial: initialPrice, Slope: 0, Volatility: 0.04, Seed: 4}, DefaultPoints),
		NewScenario("randomWalk", LinearSeries{Initial: initialPrice, Slope: 0, Volatility: 0.4, Seed: 4}, DefaultPoints),
		NewScenario("exponentiallyDecreasing", ExponentialSeries{Initial: initialPrice, Power: -0.03, Volatility: 0.06}, DefaultPoints),
		NewScenario("volatileDecreasing", LinearSeries{Initial: initialPrice, Slope: -0.4, Volatility: 0.2, Seed: 4}, DefaultPoints),
		NewScenario("linearlyDecreasing", LinearSeries{Initial: initialPrice, Slope: -0.4, Volatility: 0.02, Seed: 4}, DefaultPoints),
		NewScenario("crashAfterExponentiallyIncrease", ExponentialSeries{
			Initial: initialPrice, Power: 0.0129, Volatility: 0.08, Crashes: 1, CrashDegree: 0.2,
		}, DefaultPoints),
		NewScenario("exponentiallyIncreaseWithCrashes", ExponentialSeries{
			Initial: initialPrice, Power: 0.04, Volatility: 0.09, Crashes: 4, CrashDegree: 0.9,
		}, DefaultPoints),
		NewScenario("historicalDataLastHalf2020", HistoricalSeries{}, 0),
	}
}

// ScenarioByName looks a default scenario up by name.
func ScenarioByName(name string) (Scenario, bool) {
	for _, s := range DefaultScenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
