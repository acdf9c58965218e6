package predictor

import (
	"sort"

	"keno-bot/internal/database"
)

// NeutralMomentum 全部号码为1.0的中性动量表
func NeutralMomentum() MomentumMap {
	m := make(MomentumMap, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		m[n] = 1.0
	}
	return m
}

// MomentumReady 历史是否足够计算动量（sampleSize*5轮）
func MomentumReady(history []database.Round, sampleSize int) bool {
	return sampleSize > 0 && len(history) >= sampleSize*5
}

// CalculateMomentum 近期窗口=sampleSize，基线窗口=sampleSize*4
func CalculateMomentum(history []database.Round, sampleSize int) MomentumMap {
	return CalculateMomentumWindows(history, sampleSize, sampleSize*4)
}

// CalculateMomentumWindows 比较近期窗口与其之前紧邻的基线窗口的出现率。
// 历史不足 recent+baseline 轮时返回中性表，基线出现率为0的号码记为1.0。
func CalculateMomentumWindows(history []database.Round, recent, baseline int) MomentumMap {
	if recent <= 0 || baseline <= 0 || len(history) < recent+baseline {
		return NeutralMomentum()
	}

	end := len(history)
	recentFreq := countOccurrences(history[end-recent:])
	baselineFreq := countOccurrences(history[end-recent-baseline : end-recent])

	m := make(MomentumMap, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		baseRate := float64(baselineFreq[n]) / float64(baseline)
		if baseRate == 0 {
			m[n] = 1.0
			continue
		}
		recentRate := float64(recentFreq[n]) / float64(recent)
		m[n] = recentRate / baseRate
	}
	return m
}

// momentumRanking 按动量从高到低排序
func momentumRanking(m MomentumMap) []int {
	return rankBy(func(n int) float64 { return m[n] }, true)
}

// MomentumOptions 动量生成器参数
type MomentumOptions struct {
	SampleSize      int
	DetectionWindow int
	BaselineWindow  int
	Threshold       float64
	PoolSize        int
}

func (o MomentumOptions) windows() (int, int) {
	recent, baseline := o.DetectionWindow, o.BaselineWindow
	if recent <= 0 {
		recent = o.SampleSize
	}
	if baseline <= 0 {
		baseline = recent * 4
	}
	return recent, baseline
}

// GetMomentumPredictions 选出动量最高的count个号码（升序返回）。
// 候选池为动量排名前PoolSize个；优先取达到阈值的号码，不足时按排名补足。
// 历史不足时退回频率生成器。
func GetMomentumPredictions(history []database.Round, opts MomentumOptions, count int, rng Rand) []int {
	count = ClampCount(count)
	recent, baseline := opts.windows()
	if recent <= 0 || len(history) < recent+baseline {
		return GetTopPredictions(history, opts.SampleSize, count, rng)
	}

	m := CalculateMomentumWindows(history, recent, baseline)
	ranked := momentumRanking(m)

	poolSize := opts.PoolSize
	if poolSize < count {
		poolSize = count
	}
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}

	seen := make(map[int]bool, count)
	result := make([]int, 0, count)
	for _, n := range ranked[:poolSize] {
		if len(result) >= count {
			break
		}
		if m[n] >= opts.Threshold {
			seen[n] = true
			result = append(result, n)
		}
	}
	for _, n := range ranked {
		if len(result) >= count {
			break
		}
		if !seen[n] {
			seen[n] = true
			result = append(result, n)
		}
	}

	sort.Ints(result)
	return result
}
