package backtest

import (
	"context"
	"errors"
	"testing"

	"keno-bot/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundsOf(draws ...[]int) []database.Round {
	rounds := make([]database.Round, len(draws))
	for i, d := range draws {
		rounds[i] = database.Round{DrawnNumbers: d}
	}
	return rounds
}

func patternNumbers(patterns []Pattern) [][]int {
	out := make([][]int, len(patterns))
	for i, p := range patterns {
		out[i] = p.Numbers
	}
	return out
}

func TestFindCommonPatterns(t *testing.T) {
	history := roundsOf([]int{1, 2, 3}, []int{1, 2, 4}, []int{3, 2, 1})

	patterns := FindCommonPatterns(history, 2, 10, 0, false, 0)
	require.Len(t, patterns, 5)
	assert.Equal(t, [][]int{{1, 2}, {1, 3}, {2, 3}, {1, 4}, {2, 4}}, patternNumbers(patterns))
	assert.Equal(t, 3.0, patterns[0].Score)
	assert.Equal(t, 2.0, patterns[1].Score)

	// 最近一轮权重1，之前依次乘0.5
	weighted := FindCommonPatterns(history, 2, 3, 0, true, 0.5)
	require.Len(t, weighted, 3)
	assert.Equal(t, [][]int{{1, 2}, {1, 3}, {2, 3}}, patternNumbers(weighted))
	assert.Equal(t, 1.75, weighted[0].Score)
	assert.Equal(t, 1.25, weighted[1].Score)
	assert.Equal(t, 1.25, weighted[2].Score)

	// 只看最近两轮，同分按字典序
	recent := FindCommonPatterns(history, 2, 2, 2, false, 0)
	assert.Equal(t, [][]int{{1, 2}, {1, 3}}, patternNumbers(recent))
	assert.Equal(t, 2.0, recent[0].Score)

	assert.Empty(t, FindCommonPatterns(history, 4, 10, 0, false, 0))
	assert.Empty(t, FindCommonPatterns(history, 2, 0, 0, false, 0))
}

func TestPatternBuildups(t *testing.T) {
	sample := roundsOf([]int{1, 2}, []int{1, 2, 3}, []int{5})
	assert.Equal(t, []int{2}, PatternBuildups([]int{1, 2, 3}, sample, 1, 2))
	assert.Equal(t, []int{2, 3}, PatternBuildups([]int{1, 2, 3}, sample, 2, 3))
	assert.Empty(t, PatternBuildups([]int{7, 8}, sample, 1, 2))
}

func TestLastFullHit(t *testing.T) {
	tracking := roundsOf([]int{1, 2}, []int{3}, []int{1, 2, 5}, []int{4})
	assert.Equal(t, 2, LastFullHit([]int{1, 2}, tracking))
	assert.Equal(t, 3, LastFullHit([]int{4}, tracking))
	assert.Equal(t, -1, LastFullHit([]int{7}, tracking))
}

func patternTestOptions() PatternOptions {
	return PatternOptions{
		Size:            3,
		DiscoveryWindow: 20,
		TrackingWindow:  50,
		Lookahead:       5,
		Step:            10,
		TopN:            5,
	}
}

func TestRunPatterns_ConstantHistory(t *testing.T) {
	history := constantHistory(300, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	r, err := RunPatterns(context.Background(), history, patternTestOptions(), PatternParams{SampleSize: 5, MinHits: 1, MaxHits: 3})
	require.NoError(t, err)
	// 评估点 220, 230, ..., 290
	assert.Equal(t, 8, r.EvaluationPoints)
	assert.Equal(t, 40, r.TotalPredictions)
	assert.Equal(t, 40, r.TotalSuccesses)
	assert.Equal(t, 100.0, r.SuccessRate)
	assert.Equal(t, 1.0, r.AvgRoundsToHit)
	assert.Equal(t, 5.0, r.AvgPredictionsPerPoint)
	assert.Zero(t, r.AvgProfit)

	opts := patternTestOptions()
	opts.Risk = RiskClassic
	r, err = RunPatterns(context.Background(), history, opts, PatternParams{SampleSize: 5, MinHits: 1, MaxHits: 3})
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.MaintainingRate)
	assert.Equal(t, Multiplier(RiskClassic, 3, 3)-1, r.AvgProfit)
}

func TestRunPatterns_Filters(t *testing.T) {
	history := constantHistory(300, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	ctx := context.Background()

	// 每轮都是3中3，没有落在1..2的部分命中
	r, err := RunPatterns(ctx, history, patternTestOptions(), PatternParams{SampleSize: 5, MinHits: 1, MaxHits: 2})
	require.NoError(t, err)
	assert.Zero(t, r.TotalPredictions)
	assert.Zero(t, r.EvaluationPoints)

	// 上一轮刚全中，NotHitIn排除全部组合
	r, err = RunPatterns(ctx, history, patternTestOptions(), PatternParams{SampleSize: 5, MinHits: 1, MaxHits: 3, NotHitIn: 1000})
	require.NoError(t, err)
	assert.Zero(t, r.TotalPredictions)
	assert.Zero(t, r.SuccessRate)
}

func TestRunPatterns_Errors(t *testing.T) {
	history := constantHistory(50, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	ctx := context.Background()
	params := PatternParams{SampleSize: 5, MinHits: 1, MaxHits: 3}

	_, err := RunPatterns(ctx, history, patternTestOptions(), params)
	assert.True(t, errors.Is(err, ErrNotEnoughHistory))

	opts := patternTestOptions()
	opts.Size = 2
	_, err = RunPatterns(ctx, history, opts, params)
	assert.Error(t, err)

	_, err = RunPatterns(ctx, history, patternTestOptions(), PatternParams{})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = RunPatterns(cancelled, constantHistory(300, []int{1, 2, 3}), patternTestOptions(), params)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPatternGrid(t *testing.T) {
	assert.Len(t, PatternGrid(3), 128)

	grid := PatternGrid(5)
	assert.Len(t, grid, 96)
	for _, p := range grid {
		assert.LessOrEqual(t, p.MinHits, p.MaxHits)
	}
	assert.Contains(t, grid, PatternParams{SampleSize: 200, MinHits: 4, MaxHits: 4, NotHitIn: 1000})
	assert.NotContains(t, grid, PatternParams{SampleSize: 5, MinHits: 4, MaxHits: 3, NotHitIn: 0})
}

func TestOptimizePatterns(t *testing.T) {
	history := constantHistory(300, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	grid := []PatternParams{
		{SampleSize: 5, MinHits: 1, MaxHits: 2},
		{SampleSize: 5, MinHits: 1, MaxHits: 3, NotHitIn: 1000},
		{SampleSize: 5, MinHits: 1, MaxHits: 3},
		{},
	}

	results, err := OptimizePatterns(context.Background(), history, patternTestOptions(), grid, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 100.0, results[0].SuccessRate)
	assert.Equal(t, 3, results[0].Params.MaxHits)
	assert.Zero(t, results[0].Params.NotHitIn)
	assert.Equal(t, 3, results[0].Size)

	opts := patternTestOptions()
	opts.Size = 11
	_, err = OptimizePatterns(context.Background(), history, opts, grid, 2)
	assert.Error(t, err)
}
