package backtest

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"keno-bot/internal/database"
	"keno-bot/internal/predictor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantHistory(n int, drawn []int) []database.Round {
	history := make([]database.Round, n)
	for i := range history {
		history[i] = database.Round{DrawnNumbers: drawn}
	}
	return history
}

func randomHistory(n int, seed int64) []database.Round {
	rng := rand.New(rand.NewSource(seed))
	history := make([]database.Round, n)
	for i := range history {
		nums := predictor.RandomNumbers(10, rng)
		sort.Ints(nums)
		history[i] = database.Round{DrawnNumbers: nums}
	}
	return history
}

func TestMultiplier(t *testing.T) {
	assert.Equal(t, 3.96, Multiplier(RiskHigh, 1, 1))
	assert.Equal(t, 30.0, Multiplier(RiskClassic, 5, 5))
	assert.Equal(t, 5000.0, Multiplier(RiskMedium, 10, 10))
	assert.Zero(t, Multiplier(RiskHigh, 10, 3))
	assert.Zero(t, Multiplier(RiskLow, 11, 3))
}

func TestParseRisk(t *testing.T) {
	r, err := ParseRisk(" High ")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, r)

	_, err = ParseRisk("extreme")
	assert.Error(t, err)
	assert.Len(t, Risks(), 4)
}

func TestEvaluate(t *testing.T) {
	pattern := []int{1, 2, 3, 4, 5}
	future := []database.Round{
		{DrawnNumbers: []int{1, 2, 3, 11, 12}},
		{DrawnNumbers: []int{1, 2, 3, 4, 5, 6}},
	}

	ev := Evaluate(pattern, future, 2, RiskClassic)
	assert.True(t, ev.Completed)
	assert.Equal(t, 2, ev.RoundsToHit)
	assert.Equal(t, 28.0, ev.Profit)

	ev = Evaluate(pattern, future, 1, RiskClassic)
	assert.False(t, ev.Completed)
	assert.InDelta(t, 0.5, ev.Profit, 1e-9)

	ev = Evaluate(pattern, future, 1, "")
	assert.Equal(t, Evaluation{}, ev)

	// 剩余轮次不足lookahead
	assert.Equal(t, Evaluation{}, Evaluate(pattern, future, 5, RiskClassic))
}

func TestRun_ConstantHistory(t *testing.T) {
	history := constantHistory(200, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	result, err := Run(context.Background(), history, Options{
		Method:     predictor.MethodFrequency,
		Count:      5,
		StartIndex: 10,
		Step:       5,
		Lookahead:  5,
		Risk:       RiskClassic,
	})
	require.NoError(t, err)

	assert.Equal(t, 37, result.Predictions)
	assert.Equal(t, 37, result.Completions)
	assert.Equal(t, 100.0, result.SuccessRate)
	assert.Equal(t, 1.0, result.AvgRoundsToHit)
	assert.Equal(t, 1, result.PatternChanges)
	assert.Equal(t, 29.0, result.AvgProfit)
	assert.Equal(t, 100.0, result.ProfitableRate)
}

func TestRun_NotEnoughHistory(t *testing.T) {
	_, err := Run(context.Background(), randomHistory(20, 1), Options{})
	assert.True(t, errors.Is(err, ErrNotEnoughHistory))
}

func TestRun_RejectsTooManyPicksForProfit(t *testing.T) {
	_, err := Run(context.Background(), randomHistory(300, 1), Options{Count: 12, Risk: RiskHigh})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, randomHistory(300, 2), Options{Method: predictor.MethodCold})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Momentum(t *testing.T) {
	opts := Options{Method: predictor.MethodMomentum, Count: 4, Seed: 3}
	opts.Generator.Momentum.DetectionWindow = 5
	opts.Generator.Momentum.BaselineWindow = 50

	result, err := Run(context.Background(), randomHistory(400, 3), opts)
	require.NoError(t, err)
	assert.Greater(t, result.Predictions, 0)
	assert.GreaterOrEqual(t, result.SuccessRate, 0.0)
	assert.LessOrEqual(t, result.SuccessRate, 100.0)
}

func TestOptimize(t *testing.T) {
	grid := Grid{
		DetectionWindows:   []int{2, 3},
		BaselineWindows:    []int{10, 1000},
		Thresholds:         []float64{1.5},
		RefreshFrequencies: []int{10},
	}
	assert.Equal(t, 4, grid.Size())
	assert.Equal(t, 192, DefaultGrid().Size())

	results, err := Optimize(context.Background(), randomHistory(300, 4), Options{Count: 3}, grid, 2)
	require.NoError(t, err)

	// baseline=1000的组合历史不足被跳过
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].SuccessRate, results[1].SuccessRate)
	for _, r := range results {
		assert.Equal(t, predictor.MethodMomentum, r.Method)
		assert.Equal(t, 10, r.Generator.Momentum.BaselineWindow)
	}
}

func TestAnalyzeStreaks(t *testing.T) {
	history := []database.Round{
		{DrawnNumbers: []int{1}},
		{DrawnNumbers: []int{2}},
		{DrawnNumbers: []int{1}},
		{}, {}, {}, {},
		{DrawnNumbers: []int{1}},
	}

	streaks := AnalyzeStreaks(history)
	require.Len(t, streaks, database.MaxNumber)

	assert.Equal(t, NumberStreak{Number: 1, MaxGap: 5, HotStreaks: 1, Appeared: 3}, streaks[0])
	assert.Equal(t, NumberStreak{Number: 2, MaxGap: 2, Appeared: 1}, streaks[1])
	assert.Equal(t, NumberStreak{Number: 40}, streaks[39])

	assert.Equal(t, 1, TopByGap(streaks, 1)[0].Number)
	assert.Equal(t, 1, TopByHotStreaks(streaks, 3)[0].Number)
}
