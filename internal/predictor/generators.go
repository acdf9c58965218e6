package predictor

import (
	"sort"

	"keno-bot/internal/logger"
)

type frequencyGenerator struct{}

func (frequencyGenerator) Method() Method { return MethodFrequency }

func (frequencyGenerator) Generate(gctx *GeneratorContext, count int) []int {
	return GetTopPredictions(gctx.History, gctx.sampleSize(), count, gctx.rng())
}

type coldGenerator struct{}

func (coldGenerator) Method() Method { return MethodCold }

func (coldGenerator) Generate(gctx *GeneratorContext, count int) []int {
	return GetColdPredictions(gctx.History, gctx.sampleSize(), count, gctx.rng())
}

type mixedGenerator struct{}

func (mixedGenerator) Method() Method { return MethodMixed }

func (mixedGenerator) Generate(gctx *GeneratorContext, count int) []int {
	return GetMixedPredictions(gctx.History, gctx.sampleSize(), count, gctx.rng())
}

type averageGenerator struct{}

func (averageGenerator) Method() Method { return MethodAverage }

func (averageGenerator) Generate(gctx *GeneratorContext, count int) []int {
	return GetAveragePredictions(gctx.History, gctx.sampleSize(), count, gctx.rng())
}

type momentumGenerator struct{}

func (momentumGenerator) Method() Method { return MethodMomentum }

func (momentumGenerator) Generate(gctx *GeneratorContext, count int) []int {
	return GetMomentumPredictions(gctx.History, gctx.momentumOptions(), count, gctx.rng())
}

type randomGenerator struct{}

func (randomGenerator) Method() Method { return MethodRandom }

func (randomGenerator) Generate(gctx *GeneratorContext, count int) []int {
	nums := RandomNumbers(count, gctx.rng())
	sort.Ints(nums)
	return nums
}

// shapesGenerator 选择图形并按放置策略落到棋盘上
type shapesGenerator struct {
	selector *ShapeSelector
}

func (shapesGenerator) Method() Method { return MethodShapes }

func (s shapesGenerator) Generate(gctx *GeneratorContext, count int) []int {
	count = ClampCount(count)
	placement := ParsePlacement(gctx.Config.Shapes.Placement)
	shape := s.selector.Select(gctx.Config.Shapes.Pattern, count, placement, gctx.History, gctx.sampleSize(), gctx.rng())

	nums := GenerateShape(shape, count, placement, gctx.History, gctx.sampleSize(), gctx.rng())
	logger.Debugf("Shape %s placed (%s): %v", shape.Key, placement, nums)
	return nums
}

// autoGenerator 按历史命中率挑选表现最好的方法并重新生成
type autoGenerator struct {
	registry    *Registry
	comparisons *ComparisonLog
}

func (autoGenerator) Method() Method { return MethodAuto }

func (a autoGenerator) Generate(gctx *GeneratorContext, count int) []int {
	best := SelectBestMethod(a.comparisons.Points(), gctx.Config.Auto.Window, gctx.Config.Auto.MinDataPoints)

	g, err := a.registry.Get(best)
	if err != nil {
		logger.Warnf("Auto generator picked unavailable method %s: %v", best, err)
		return GetTopPredictions(gctx.History, gctx.sampleSize(), count, gctx.rng())
	}
	logger.Debugf("Auto generator selected method: %s", best)
	return g.Generate(gctx, count)
}
