package backtest

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"keno-bot/internal/database"
	"keno-bot/internal/logger"
)

// 组合大小范围
const (
	MinPatternSize = 3
	MaxPatternSize = 10
)

const (
	defaultDiscoveryWindow = 500
	defaultTrackingWindow  = 1000
	defaultPatternStep     = 50
	defaultPatternTopN     = 100
	defaultDecay           = 0.98
	patternStartBuffer     = 200
	minBuildupRate         = 10.0 // 百分比
)

// Pattern 候选号码组合及其出现得分
type Pattern struct {
	Numbers []int   `json:"numbers"`
	Score   float64 `json:"score"`
}

// FindCommonPatterns 统计最近window轮中每个size元组合的出现次数，返回得分最高的topN个。
// recency为true时第k近的一轮权重为decay^k（最近一轮为1）。
// 同分按号码字典序排列。
func FindCommonPatterns(history []database.Round, size, topN, window int, recency bool, decay float64) []Pattern {
	if size <= 0 || topN <= 0 {
		return nil
	}
	sample := history
	if window > 0 && len(sample) > window {
		sample = sample[len(sample)-window:]
	}

	scores := make(map[uint64]float64)
	for i, round := range sample {
		weight := 1.0
		if recency {
			weight = math.Pow(decay, float64(len(sample)-i-1))
		}
		drawn := database.NormalizeNumbers(round.DrawnNumbers)
		eachCombination(drawn, size, func(mask uint64) {
			scores[mask] += weight
		})
	}

	patterns := make([]Pattern, 0, len(scores))
	for mask, score := range scores {
		patterns = append(patterns, Pattern{Numbers: maskNumbers(mask), Score: score})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Score != patterns[j].Score {
			return patterns[i].Score > patterns[j].Score
		}
		return lessNumbers(patterns[i].Numbers, patterns[j].Numbers)
	})

	if len(patterns) > topN {
		patterns = patterns[:topN]
	}
	return patterns
}

// eachCombination 以位掩码枚举nums的全部size元组合
func eachCombination(nums []int, size int, fn func(mask uint64)) {
	if size > len(nums) {
		return
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	for {
		var mask uint64
		for _, i := range idx {
			mask |= 1 << uint(nums[i])
		}
		fn(mask)

		i := size - 1
		for i >= 0 && idx[i] == len(nums)-size+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < size; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func maskNumbers(mask uint64) []int {
	var nums []int
	for n := 1; n <= database.MaxNumber; n++ {
		if mask&(1<<uint(n)) != 0 {
			nums = append(nums, n)
		}
	}
	return nums
}

func lessNumbers(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// PatternBuildups 返回sample中部分命中数落在[minHits, maxHits]内的各轮命中数
func PatternBuildups(pattern []int, sample []database.Round, minHits, maxHits int) []int {
	var buildups []int
	for _, round := range sample {
		hits := database.CountHits(pattern, round.DrawnNumbers)
		if hits >= minHits && hits <= maxHits {
			buildups = append(buildups, hits)
		}
	}
	return buildups
}

// LastFullHit 组合最后一次全部开出的下标，从未全中返回-1
func LastFullHit(pattern []int, tracking []database.Round) int {
	for i := len(tracking) - 1; i >= 0; i-- {
		if database.CountHits(pattern, tracking[i].DrawnNumbers) == len(pattern) {
			return i
		}
	}
	return -1
}

// PatternParams 组合筛选参数
type PatternParams struct {
	SampleSize int `json:"sample_size"`
	MinHits    int `json:"min_hits"`
	MaxHits    int `json:"max_hits"`
	NotHitIn   int `json:"not_hit_in"` // 0表示不过滤最近全中的组合
}

// PatternOptions 组合回测的固定参数
type PatternOptions struct {
	Size            int
	Recency         bool
	Decay           float64 // 0表示0.98
	Risk            Risk
	DiscoveryWindow int // 0表示500
	TrackingWindow  int // 0表示1000
	Lookahead       int // 0表示30
	Step            int // 0表示50
	TopN            int // 0表示100
	StartIndex      int // 0表示max(发现窗口, 样本)+200
}

func (o *PatternOptions) applyDefaults() {
	if o.Decay <= 0 {
		o.Decay = defaultDecay
	}
	if o.DiscoveryWindow <= 0 {
		o.DiscoveryWindow = defaultDiscoveryWindow
	}
	if o.TrackingWindow <= 0 {
		o.TrackingWindow = defaultTrackingWindow
	}
	if o.Lookahead <= 0 {
		o.Lookahead = defaultLookahead
	}
	if o.Step <= 0 {
		o.Step = defaultPatternStep
	}
	if o.TopN <= 0 {
		o.TopN = defaultPatternTopN
	}
}

// PatternResult 一组筛选参数的回测结果
type PatternResult struct {
	Size                   int           `json:"pattern_size"`
	Params                 PatternParams `json:"params"`
	EvaluationPoints       int           `json:"evaluation_points"`
	TotalPredictions       int           `json:"total_predictions"`
	TotalSuccesses         int           `json:"total_successes"`
	TotalMaintaining       int           `json:"total_maintaining"`
	SuccessRate            float64       `json:"success_rate"`
	MaintainingRate        float64       `json:"maintaining_rate"`
	AvgRoundsToHit         float64       `json:"avg_rounds_to_hit"`
	AvgPredictionsPerPoint float64       `json:"avg_predictions_per_point"`
	AvgProfit              float64       `json:"avg_profit"`
}

// RunPatterns 在每个评估点从发现窗口中找出常见组合，保留样本窗口内有部分命中
// 且最近NotHitIn轮未全中的组合，再检查它们在后续Lookahead轮内是否全中
func RunPatterns(ctx context.Context, history []database.Round, opts PatternOptions, params PatternParams) (*PatternResult, error) {
	opts.applyDefaults()
	if opts.Size < MinPatternSize || opts.Size > MaxPatternSize {
		return nil, fmt.Errorf("pattern size must be %d-%d, got %d", MinPatternSize, MaxPatternSize, opts.Size)
	}
	if params.SampleSize <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", params.SampleSize)
	}

	start := opts.StartIndex
	if start <= 0 {
		start = opts.DiscoveryWindow
		if params.SampleSize > start {
			start = params.SampleSize
		}
		start += patternStartBuffer
	}
	if start < params.SampleSize {
		start = params.SampleSize
	}
	end := len(history) - opts.Lookahead
	if start >= end {
		return nil, fmt.Errorf("%w: need more than %d rounds, have %d",
			ErrNotEnoughHistory, start+opts.Lookahead, len(history))
	}

	result := &PatternResult{Size: opts.Size, Params: params}
	var roundsToHit, profits []float64

	for idx := start; idx < end; idx += opts.Step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		discovery := history[max(0, idx-opts.DiscoveryWindow):idx]
		candidates := FindCommonPatterns(discovery, opts.Size, opts.TopN, opts.DiscoveryWindow, opts.Recency, opts.Decay)
		if len(candidates) == 0 {
			continue
		}

		sample := history[idx-params.SampleSize : idx]
		tracking := history[max(0, idx-opts.TrackingWindow):idx]

		var selected []Pattern
		for _, p := range candidates {
			buildups := PatternBuildups(p.Numbers, sample, params.MinHits, params.MaxHits)
			if len(buildups) == 0 {
				continue
			}
			if rate := float64(len(buildups)) / float64(len(sample)) * 100; rate < minBuildupRate {
				continue
			}
			if params.NotHitIn > 0 {
				if last := LastFullHit(p.Numbers, tracking); last != -1 && len(tracking)-1-last < params.NotHitIn {
					continue
				}
			}
			selected = append(selected, p)
		}
		if len(selected) == 0 {
			continue
		}

		hitRounds, completions, profitSum := 0, 0, 0.0
		for _, p := range selected {
			ev := Evaluate(p.Numbers, history[idx:], opts.Lookahead, opts.Risk)
			if ev.Completed {
				completions++
				hitRounds += ev.RoundsToHit
			}
			if opts.Risk != "" {
				profitSum += ev.Profit
				if ev.Profit >= 0 {
					result.TotalMaintaining++
				}
			}
		}

		result.EvaluationPoints++
		result.TotalPredictions += len(selected)
		result.TotalSuccesses += completions
		if completions > 0 {
			roundsToHit = append(roundsToHit, float64(hitRounds)/float64(completions))
		}
		if avg := profitSum / float64(len(selected)); avg != 0 {
			profits = append(profits, avg)
		}
	}

	if result.TotalPredictions > 0 {
		result.SuccessRate = float64(result.TotalSuccesses) / float64(result.TotalPredictions) * 100
		result.MaintainingRate = float64(result.TotalMaintaining) / float64(result.TotalPredictions) * 100
	}
	if result.EvaluationPoints > 0 {
		result.AvgPredictionsPerPoint = float64(result.TotalPredictions) / float64(result.EvaluationPoints)
	}
	result.AvgRoundsToHit = mean(roundsToHit)
	result.AvgProfit = mean(profits)
	return result, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// hitRanges 各组合大小对应的部分命中上下限候选
var hitRanges = map[int][2][]int{
	3:  {{1, 2}, {2, 3}},
	4:  {{1, 3}, {3, 5}},
	5:  {{1, 4}, {3, 4}},
	6:  {{3, 4, 5}, {4, 5}},
	7:  {{4, 5, 6}, {5, 6}},
	8:  {{5, 6, 7}, {6, 7}},
	9:  {{6, 7, 8}, {7, 8}},
	10: {{7, 8, 9}, {8, 9}},
}

var (
	patternSampleSizes = []int{5, 10, 25, 50, 75, 100, 150, 200}
	patternNotHitIn    = []int{0, 50, 100, 1000}
)

// PatternGrid 某组合大小的全部筛选参数（跳过MinHits>MaxHits）
func PatternGrid(size int) []PatternParams {
	ranges, ok := hitRanges[size]
	if !ok {
		ranges = [2][]int{{max(1, size-2), size - 1}, {size - 1}}
	}

	var grid []PatternParams
	for _, sample := range patternSampleSizes {
		for _, lo := range ranges[0] {
			for _, hi := range ranges[1] {
				if lo > hi {
					continue
				}
				for _, notHit := range patternNotHitIn {
					grid = append(grid, PatternParams{SampleSize: sample, MinHits: lo, MaxHits: hi, NotHitIn: notHit})
				}
			}
		}
	}
	return grid
}

// OptimizePatterns 并发回测grid中的全部参数，按成功率从高到低排序；历史不足的参数被跳过
func OptimizePatterns(ctx context.Context, history []database.Round, opts PatternOptions, grid []PatternParams, workers int) ([]PatternResult, error) {
	if opts.Size < MinPatternSize || opts.Size > MaxPatternSize {
		return nil, fmt.Errorf("pattern size must be %d-%d, got %d", MinPatternSize, MaxPatternSize, opts.Size)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]*PatternResult, len(grid))

	logger.Infof("Optimizing size-%d pattern parameters: %d combinations, %d workers", opts.Size, len(grid), workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, params := range grid {
		i, params := i, params
		g.Go(func() error {
			r, err := RunPatterns(gctx, history, opts, params)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				logger.Debugf("Skipping pattern params %+v: %v", params, err)
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]PatternResult, 0, len(results))
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
