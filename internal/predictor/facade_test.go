package predictor

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"keno-bot/internal/cache"
	"keno-bot/internal/config"
	"keno-bot/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	calls int
}

func (c *countingGenerator) Method() Method { return "counting" }

func (c *countingGenerator) Generate(_ *GeneratorContext, count int) []int {
	c.calls++
	return []int{c.calls}
}

func newContext(round int64, interval int) *GeneratorContext {
	cfg := config.DefaultGenerator()
	cfg.Interval = interval
	return &GeneratorContext{
		History: randomHistory(60, 21),
		Config:  cfg,
		Round:   round,
		Rand:    rand.New(rand.NewSource(round)),
	}
}

func TestFacade_RegistersAllMethods(t *testing.T) {
	f := NewFacade()

	methods := f.Methods()
	for _, m := range []Method{
		MethodFrequency, MethodCold, MethodMixed, MethodAverage,
		MethodMomentum, MethodShapes, MethodAuto, MethodRandom,
	} {
		assert.Contains(t, methods, m)
	}
}

func TestFacade_EveryMethodReturnsCount(t *testing.T) {
	f := NewFacade()
	gctx := newContext(1, 0)

	for _, m := range f.Methods() {
		nums, err := f.Generate(m, 6, gctx)
		require.NoError(t, err, m)
		assertDistinctInRange(t, nums, 6)
	}
}

func TestFacade_UnknownMethod(t *testing.T) {
	f := NewFacade()

	_, err := f.Generate("psychic", 5, newContext(1, 0))
	assert.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestFacade_CachesWithinInterval(t *testing.T) {
	f := NewFacade()
	gen := &countingGenerator{}
	f.Register(gen)

	first, err := f.Generate(gen.Method(), 5, newContext(10, 5))
	require.NoError(t, err)

	for round := int64(11); round <= 14; round++ {
		nums, err := f.Generate(gen.Method(), 5, newContext(round, 5))
		require.NoError(t, err)
		assert.Equal(t, first, nums, "round %d", round)
	}
	assert.Equal(t, 1, gen.calls)

	assert.Equal(t, cache.StateExpired, f.CacheState(gen.Method(), 5, newContext(15, 5)))
	nums, err := f.Generate(gen.Method(), 5, newContext(15, 5))
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
	assert.NotEqual(t, first, nums)
}

func TestFacade_ZeroIntervalNeverExpires(t *testing.T) {
	f := NewFacade()
	gen := &countingGenerator{}
	f.Register(gen)

	_, err := f.Generate(gen.Method(), 5, newContext(1, 0))
	require.NoError(t, err)
	_, err = f.Generate(gen.Method(), 5, newContext(1000, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)

	f.ForceRefresh()
	assert.Equal(t, cache.StateMiss, f.CacheState(gen.Method(), 5, newContext(1000, 0)))
	_, err = f.Generate(gen.Method(), 5, newContext(1000, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
}

func TestFacade_RefreshBypassesCache(t *testing.T) {
	f := NewFacade()
	gen := &countingGenerator{}
	f.Register(gen)

	_, _ = f.Generate(gen.Method(), 5, newContext(1, 0))
	nums, err := f.Refresh(gen.Method(), 5, newContext(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, nums)

	// 刷新结果写回缓存
	cached, err := f.Generate(gen.Method(), 5, newContext(2, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, cached)
}

func TestFacade_CacheKeyIncludesCountAndConfig(t *testing.T) {
	f := NewFacade()
	gen := &countingGenerator{}
	f.Register(gen)

	_, _ = f.Generate(gen.Method(), 5, newContext(1, 0))
	_, _ = f.Generate(gen.Method(), 6, newContext(1, 0))

	gctx := newContext(1, 0)
	gctx.Config.SampleSize = 25
	_, _ = f.Generate(gen.Method(), 5, gctx)

	assert.Equal(t, 3, gen.calls)
}

func TestFacade_MomentumUsesRefreshFrequency(t *testing.T) {
	cfg := config.DefaultGenerator()
	cfg.Interval = 100
	cfg.Momentum.RefreshFrequency = 3

	assert.Equal(t, 3, refreshInterval(MethodMomentum, cfg))
	assert.Equal(t, 100, refreshInterval(MethodFrequency, cfg))
}

func TestSelectBestMethod(t *testing.T) {
	point := func(freq, cold float64) ComparisonPoint {
		return ComparisonPoint{Results: map[Method]MethodResult{
			MethodFrequency: {Accuracy: freq},
			MethodCold:      {Accuracy: cold},
		}}
	}

	var points []ComparisonPoint
	for i := 0; i < 4; i++ {
		points = append(points, point(0.2, 0.5))
	}
	assert.Equal(t, MethodFrequency, SelectBestMethod(points, 20, 5))

	points = append(points, point(0.2, 0.5))
	assert.Equal(t, MethodCold, SelectBestMethod(points, 20, 5))

	tied := []ComparisonPoint{point(0.3, 0.3)}
	assert.Equal(t, MethodFrequency, SelectBestMethod(tied, 20, 1))

	// 窗口之外的旧数据不参与比较
	var shifting []ComparisonPoint
	for i := 0; i < 10; i++ {
		shifting = append(shifting, point(0.9, 0.1))
	}
	for i := 0; i < 5; i++ {
		shifting = append(shifting, point(0.1, 0.9))
	}
	assert.Equal(t, MethodCold, SelectBestMethod(shifting, 5, 5))
	assert.Equal(t, MethodFrequency, SelectBestMethod(shifting, 15, 5))
}

func TestFacade_AutoFollowsBestMethod(t *testing.T) {
	f := NewFacade()
	gctx := newContext(1, 0)

	nums, err := f.Generate(MethodAuto, 5, gctx)
	require.NoError(t, err)
	assert.Equal(t, GetTopPredictions(gctx.History, gctx.Config.SampleSize, 5, nil), nums)

	for i := 0; i < 5; i++ {
		f.RecordComparison(ComparisonPoint{Results: map[Method]MethodResult{
			MethodFrequency: {Accuracy: 0.1},
			MethodCold:      {Accuracy: 0.6},
		}})
	}

	nums, err = f.Generate(MethodAuto, 5, gctx)
	require.NoError(t, err)
	assert.Equal(t, GetColdPredictions(gctx.History, gctx.Config.SampleSize, 5, nil), nums)
}

func TestComparisonLog_Bounded(t *testing.T) {
	log := NewComparisonLog(3)
	for i := 0; i < 5; i++ {
		log.Add(ComparisonPoint{Round: string(rune('a' + i))})
	}

	points := log.Points()
	require.Len(t, points, 3)
	assert.Equal(t, "c", points[0].Round)
	assert.False(t, points[2].RecordedAt.IsZero())
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("hot")
	require.NoError(t, err)
	assert.Equal(t, MethodFrequency, m)

	m, err = ParseMethod("shapes")
	require.NoError(t, err)
	assert.Equal(t, MethodShapes, m)

	_, err = ParseMethod("tarot")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestFacade_RandomMethodSorted(t *testing.T) {
	f := NewFacade()

	nums, err := f.Generate(MethodRandom, 10, newContext(3, 0))
	require.NoError(t, err)
	assert.True(t, sort.IntsAreSorted(nums))
}

func TestFacade_NilContextUsesDefaults(t *testing.T) {
	f := NewFacade()

	nums, err := f.Generate(MethodFrequency, 0, nil)
	require.NoError(t, err)
	assertDistinctInRange(t, nums, config.DefaultGenerator().Count)
}

type fakePredictionStore struct {
	predictions []database.Prediction
	verified    map[int64]int
}

func (f *fakePredictionStore) GetUnverifiedPredictions(target string) ([]database.Prediction, error) {
	var out []database.Prediction
	for _, p := range f.predictions {
		if p.TargetRound == target {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePredictionStore) VerifyPrediction(id int64, hits int, _ float64) error {
	if f.verified == nil {
		f.verified = make(map[int64]int)
	}
	f.verified[id] = hits
	return nil
}

func TestValidateNumbers(t *testing.T) {
	r := ValidateNumbers([]int{1, 2, 3, 4}, []int{10, 4, 2})

	assert.Equal(t, []int{2, 4}, r.Matched)
	assert.Equal(t, 2, r.Hits)
	assert.InDelta(t, 0.5, r.Accuracy, 1e-9)

	assert.Zero(t, ValidateNumbers(nil, []int{1}).Accuracy)
}

func TestNextRoundKey(t *testing.T) {
	assert.Equal(t, "1001", NextRoundKey("1000"))
	assert.Equal(t, "abc+1", NextRoundKey("abc"))
}

func TestValidator_VerifyRound(t *testing.T) {
	store := &fakePredictionStore{predictions: []database.Prediction{
		{ID: 1, TargetRound: "101", Method: "frequency", Numbers: []int{1, 2, 3, 4}},
		{ID: 2, TargetRound: "101", Method: "cold", Numbers: []int{5, 6, 7, 8}},
		{ID: 3, TargetRound: "102", Method: "cold", Numbers: []int{1}},
	}}
	v := NewValidator(store)

	results, point, err := v.VerifyRound("101", &database.Round{RoundKey: "101", DrawnNumbers: []int{1, 2, 5}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, point)

	assert.Equal(t, map[int64]int{1: 2, 2: 1}, store.verified)
	assert.Equal(t, MethodResult{Hits: 2, Accuracy: 0.5}, point.Results[MethodFrequency])
	assert.Equal(t, MethodResult{Hits: 1, Accuracy: 0.25}, point.Results[MethodCold])

	results, point, err = v.VerifyRound("999", &database.Round{RoundKey: "999"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Nil(t, point)
}

type staticStats []database.MethodStats

func (s staticStats) GetMethodStats() ([]database.MethodStats, error) { return s, nil }

func TestStatisticsCalculator(t *testing.T) {
	sc := NewStatisticsCalculator(staticStats{
		{Method: "frequency", TotalVerified: 10, AverageAccuracy: 0.2},
		{Method: "cold", TotalVerified: 5, AverageAccuracy: 0.3},
		{Method: "shapes", TotalVerified: 0},
	})

	stats, err := sc.CalculateStatistics()
	require.NoError(t, err)
	assert.Equal(t, "cold", stats.BestMethod)
	assert.Equal(t, 15, stats.TotalVerified)
}

func TestTrendAnalysis(t *testing.T) {
	var points []ComparisonPoint
	for _, acc := range []float64{0.1, 0.2, 0.3, 0.4} {
		points = append(points, ComparisonPoint{Results: map[Method]MethodResult{MethodCold: {Accuracy: acc}}})
	}

	trend := TrendAnalysis(points, MethodCold, 2)
	require.Len(t, trend.MovingAverage, 3)
	assert.InDelta(t, 35.0, trend.MovingAverage[2], 1e-9)
	assert.Equal(t, "improving", trend.Direction)

	assert.Equal(t, "insufficient_data", TrendAnalysis(points, MethodShapes, 2).Direction)
}
