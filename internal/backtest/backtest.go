// Package backtest 在历史开奖上回放生成器，统计号码组合在后续轮次中全部命中的情况。
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/logger"
	"keno-bot/internal/predictor"
)

const (
	defaultLookahead   = 30
	startBufferRounds  = 100
	defaultStep        = 5
	progressEveryCount = 50
)

// ErrNotEnoughHistory 历史不足以完成一次评估
var ErrNotEnoughHistory = errors.New("not enough history for backtest")

// Options 回测参数
type Options struct {
	Method     predictor.Method
	Count      int
	Generator  config.Generator
	StartIndex int  // 0表示基线窗口+100
	Step       int  // 0表示momentum刷新频率
	Lookahead  int  // 0表示30
	Risk       Risk // 为空时不计算收益
	Seed       int64
}

func (o *Options) applyDefaults() {
	o.Generator.ApplyDefaults()
	if o.Method == "" {
		o.Method = predictor.MethodMomentum
	}
	if o.Count <= 0 {
		o.Count = o.Generator.Count
	}
	if o.Lookahead <= 0 {
		o.Lookahead = defaultLookahead
	}
	if o.Step <= 0 {
		o.Step = o.Generator.Momentum.RefreshFrequency
		if o.Step <= 0 {
			o.Step = defaultStep
		}
	}
	if o.StartIndex <= 0 {
		o.StartIndex = baselineWindow(o.Generator) + startBufferRounds
	}
}

func baselineWindow(g config.Generator) int {
	if g.Momentum.BaselineWindow > 0 {
		return g.Momentum.BaselineWindow
	}
	return g.SampleSize * 4
}

// Result 回测结果
type Result struct {
	Method         predictor.Method `json:"method"`
	Count          int              `json:"count"`
	Generator      config.Generator `json:"generator"`
	Predictions    int              `json:"predictions"`
	Completions    int              `json:"completions"`
	SuccessRate    float64          `json:"success_rate"` // 百分比
	AvgRoundsToHit float64          `json:"avg_rounds_to_hit"`
	PatternChanges int              `json:"pattern_changes"`
	Risk           Risk             `json:"risk,omitempty"`
	Profitable     int              `json:"profitable,omitempty"`
	ProfitableRate float64          `json:"profitable_rate,omitempty"`
	AvgProfit      float64          `json:"avg_profit,omitempty"`
}

// Evaluation 单个组合在后续轮次中的表现
type Evaluation struct {
	Completed   bool
	RoundsToHit int
	Profit      float64
}

// Evaluate 检查pattern在future前lookahead轮内是否被某一轮全部开出。
// 设置risk时收益为倍率减去已投注轮数；未完成时取部分命中中的最佳收益。
func Evaluate(pattern []int, future []database.Round, lookahead int, risk Risk) Evaluation {
	if lookahead > len(future) {
		return Evaluation{}
	}
	future = future[:lookahead]
	picks := len(pattern)

	for i, round := range future {
		hits := database.CountHits(pattern, round.DrawnNumbers)
		if hits == picks && picks > 0 {
			ev := Evaluation{Completed: true, RoundsToHit: i + 1}
			if risk != "" {
				ev.Profit = Multiplier(risk, picks, picks) - float64(i+1)
			}
			return ev
		}
	}

	if risk == "" {
		return Evaluation{}
	}

	best := -float64(lookahead)
	for i, round := range future {
		hits := database.CountHits(pattern, round.DrawnNumbers)
		if m := Multiplier(risk, picks, hits); m > 0 {
			if profit := m - float64(i+1); profit > best {
				best = profit
			}
		}
	}
	return Evaluation{Profit: best}
}

// Run 从StartIndex起每隔Step轮生成一次组合（只使用此前的历史），并评估后续表现
func Run(ctx context.Context, history []database.Round, opts Options) (*Result, error) {
	opts.applyDefaults()
	if opts.Risk != "" && (opts.Count < 1 || opts.Count > MaxPicks) {
		return nil, fmt.Errorf("profit tracking supports 1-%d picks, got %d", MaxPicks, opts.Count)
	}

	end := len(history) - opts.Lookahead
	if opts.StartIndex >= end {
		return nil, fmt.Errorf("%w: need more than %d rounds, have %d",
			ErrNotEnoughHistory, opts.StartIndex+opts.Lookahead, len(history))
	}

	facade := predictor.NewFacade()
	rng := rand.New(rand.NewSource(opts.Seed))

	result := &Result{Method: opts.Method, Count: opts.Count, Generator: opts.Generator, Risk: opts.Risk}
	var lastPattern []int
	roundsToHit, profitSum := 0, 0.0

	for idx := opts.StartIndex; idx < end; idx += opts.Step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		gctx := &predictor.GeneratorContext{
			History: history[:idx],
			Config:  opts.Generator,
			Round:   int64(idx),
			Rand:    rng,
		}
		pattern, err := facade.Refresh(opts.Method, opts.Count, gctx)
		if err != nil {
			return nil, err
		}
		if !equalNumbers(pattern, lastPattern) {
			result.PatternChanges++
			lastPattern = pattern
		}

		ev := Evaluate(pattern, history[idx:], opts.Lookahead, opts.Risk)
		result.Predictions++
		if ev.Completed {
			result.Completions++
			roundsToHit += ev.RoundsToHit
		}
		if opts.Risk != "" {
			profitSum += ev.Profit
			if ev.Profit >= 0 {
				result.Profitable++
			}
		}

		if result.Predictions%progressEveryCount == 0 {
			logger.Debugf("Backtest progress: %d evaluations (round %d/%d)", result.Predictions, idx, end)
		}
	}

	result.SuccessRate = float64(result.Completions) / float64(result.Predictions) * 100
	if result.Completions > 0 {
		result.AvgRoundsToHit = float64(roundsToHit) / float64(result.Completions)
	}
	if opts.Risk != "" {
		result.ProfitableRate = float64(result.Profitable) / float64(result.Predictions) * 100
		result.AvgProfit = profitSum / float64(result.Predictions)
	}
	return result, nil
}

func equalNumbers(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
