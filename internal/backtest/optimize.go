package backtest

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/logger"
	"keno-bot/internal/predictor"
)

// Grid momentum参数网格
type Grid struct {
	DetectionWindows   []int
	BaselineWindows    []int
	Thresholds         []float64
	RefreshFrequencies []int
}

// DefaultGrid 4×4×4×3共192组参数
func DefaultGrid() Grid {
	return Grid{
		DetectionWindows:   []int{3, 5, 7, 10},
		BaselineWindows:    []int{25, 50, 75, 100},
		Thresholds:         []float64{1.2, 1.5, 2.0, 2.5},
		RefreshFrequencies: []int{5, 10, 20},
	}
}

// Size 参数组合数量
func (g Grid) Size() int {
	return len(g.DetectionWindows) * len(g.BaselineWindows) * len(g.Thresholds) * len(g.RefreshFrequencies)
}

func (g Grid) expand(base Options) []Options {
	out := make([]Options, 0, g.Size())
	for _, d := range g.DetectionWindows {
		for _, b := range g.BaselineWindows {
			for _, th := range g.Thresholds {
				for _, r := range g.RefreshFrequencies {
					opts := base
					opts.Method = predictor.MethodMomentum
					opts.Generator.Momentum.DetectionWindow = d
					opts.Generator.Momentum.BaselineWindow = b
					opts.Generator.Momentum.Threshold = config.Float64(th)
					opts.Generator.Momentum.RefreshFrequency = r
					opts.Step = r
					opts.StartIndex = b + startBufferRounds
					out = append(out, opts)
				}
			}
		}
	}
	return out
}

// Optimize 并发跑完整个网格，按成功率从高到低排序；历史不足的组合被跳过
func Optimize(ctx context.Context, history []database.Round, base Options, grid Grid, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	configs := grid.expand(base)
	results := make([]*Result, len(configs))

	logger.Infof("Optimizing momentum parameters: %d configurations, %d workers", len(configs), workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, opts := range configs {
		i, opts := i, opts
		g.Go(func() error {
			r, err := Run(gctx, history, opts)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				logger.Debugf("Skipping configuration %d: %v", i, err)
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SuccessRate > out[j].SuccessRate
	})
	return out, nil
}
