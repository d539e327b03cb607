package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// periodsPerYear infers the annualization factor from the median spacing
// between consecutive bar timestamps, falling back to 252 (daily bars) when
// fewer than two bars are available to measure a spacing from.
func periodsPerYear(timestamps []time.Time) float64 {
	if len(timestamps) < 2 {
		return 252
	}

	spacings := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		spacings = append(spacings, timestamps[i].Sub(timestamps[i-1]).Seconds())
	}
	sort.Float64s(spacings)

	median := spacings[len(spacings)/2]
	if len(spacings)%2 == 0 {
		median = (spacings[len(spacings)/2-1] + spacings[len(spacings)/2]) / 2
	}
	if median <= 0 {
		return 252
	}

	const secondsPerYear = 365.25 * 24 * 3600
	return secondsPerYear / median
}

// sharpeRatio computes mean(r)/stddev(r) * sqrt(periodsPerYear) over
// per-bar returns. Reports zero when the sample has no variance.
func sharpeRatio(returns []decimal.Decimal, annualizationFactor float64) decimal.Decimal {
	if len(returns) == 0 {
		return decimal.Zero
	}

	mean := decimal.Zero
	for _, r := range returns {
		mean = mean.Add(r)
	}
	mean = mean.Div(decimal.NewFromInt(int64(len(returns))))

	variance := decimal.Zero
	for _, r := range returns {
		diff := r.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(decimal.NewFromInt(int64(len(returns))))

	if variance.IsZero() {
		return decimal.Zero
	}

	stddev, _ := variance.Float64()
	stddev = math.Sqrt(stddev)
	if stddev == 0 {
		return decimal.Zero
	}

	meanF, _ := mean.Float64()
	sharpe := (meanF / stddev) * math.Sqrt(annualizationFactor)
	return decimal.NewFromFloat(sharpe)
}

// maxDrawdown returns the largest peak-to-trough decline across the equity
// curve, normalized by the peak at that point.
func maxDrawdown(equity []decimal.Decimal) decimal.Decimal {
	if len(equity) == 0 {
		return decimal.Zero
	}

	peak := equity[0]
	worst := decimal.Zero
	for _, v := range equity {
		if v.GreaterThan(peak) {
			peak = v
		}
		if peak.IsZero() {
			continue
		}
		drawdown := peak.Sub(v).Div(peak)
		if drawdown.GreaterThan(worst) {
			worst = drawdown
		}
	}
	return worst
}

// barReturns converts an equity curve into per-bar simple returns.
func barReturns(equity []decimal.Decimal) []decimal.Decimal {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]decimal.Decimal, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev.IsZero() {
			continue
		}
		returns = append(returns, equity[i].Sub(prev).Div(prev))
	}
	return returns
}
