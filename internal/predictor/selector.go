package predictor

import (
	"sync"

	"keno-bot/internal/database"
	"keno-bot/internal/logger"
)

// 图形选择模式（除此之外的值视为具体图形key）
const (
	PatternRandom   = "random"
	PatternWeighted = "weighted"
	PatternSmart    = "smart"
)

// UsageLogCapacity 图形使用记录上限
const UsageLogCapacity = 20

// UsageLog 有界的图形使用记录，超出容量时丢弃最旧的
type UsageLog struct {
	mu       sync.Mutex
	keys     []string
	capacity int
}

// NewUsageLog 创建使用记录
func NewUsageLog(capacity int) *UsageLog {
	if capacity <= 0 {
		capacity = UsageLogCapacity
	}
	return &UsageLog{capacity: capacity}
}

// Add 追加一条记录
func (u *UsageLog) Add(key string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.keys = append(u.keys, key)
	if over := len(u.keys) - u.capacity; over > 0 {
		u.keys = append([]string(nil), u.keys[over:]...)
	}
}

// Keys 记录副本（最旧在前）
func (u *UsageLog) Keys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.keys...)
}

// Weight 根据距上次使用的间隔计算权重：未出现为10，否则max(0.5, recency*1.5)
func (u *UsageLog) Weight(key string) float64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	for i := len(u.keys) - 1; i >= 0; i-- {
		if u.keys[i] == key {
			recency := float64(len(u.keys) - i)
			w := recency * 1.5
			if w < 0.5 {
				w = 0.5
			}
			return w
		}
	}
	return 10
}

// ShapeSelector 选择使用哪个图形，持有加权随机所需的使用记录
type ShapeSelector struct {
	usage *UsageLog
}

// NewShapeSelector 创建图形选择器
func NewShapeSelector() *ShapeSelector {
	return &ShapeSelector{usage: NewUsageLog(UsageLogCapacity)}
}

// Usage 使用记录
func (s *ShapeSelector) Usage() *UsageLog {
	return s.usage
}

// Select 根据pattern选择图形：具体key、random、weighted或smart
func (s *ShapeSelector) Select(pattern string, count int, placement Placement, history []database.Round, sampleSize int, rng Rand) ShapeDefinition {
	if rng == nil {
		rng = globalRand{}
	}

	switch pattern {
	case PatternWeighted:
		return s.SelectWeighted(count, rng)
	case PatternSmart:
		return SelectSmart(count, placement, history, sampleSize, rng)
	case PatternRandom, "":
		return selectRandom(count, rng)
	}

	if shape, ok := LookupShape(pattern); ok {
		return shape
	}
	logger.Warnf("Unknown shape pattern %q, using random shape", pattern)
	return selectRandom(count, rng)
}

func selectRandom(count int, rng Rand) ShapeDefinition {
	candidates := ShapesOfSize(count)
	return candidates[rng.Intn(len(candidates))]
}

// SelectWeighted 按使用间隔加权随机选择，并记录本次选择
func (s *ShapeSelector) SelectWeighted(count int, rng Rand) ShapeDefinition {
	candidates := ShapesOfSize(count)

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		weights[i] = s.usage.Weight(c.Key)
		total += weights[i]
	}

	chosen := candidates[len(candidates)-1]
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			chosen = candidates[i]
			break
		}
	}

	s.usage.Add(chosen.Key)
	return chosen
}

// SelectSmart 选择在该放置策略下所有可放置位置平均得分最高的图形；
// random策略、空历史或数据不足时随机选择
func SelectSmart(count int, placement Placement, history []database.Round, sampleSize int, rng Rand) ShapeDefinition {
	if placement == PlacementRandom || len(history) == 0 {
		return selectRandom(count, rng)
	}
	score := positionScorer(placement, history, sampleSize)
	if score == nil {
		return selectRandom(count, rng)
	}

	candidates := ShapesOfSize(count)
	best := -1
	bestScore := 0.0
	for i, shape := range candidates {
		offsets := shape.Offsets
		if count < len(offsets) {
			offsets = offsets[:count]
		}
		positions := GetValidPositions(offsets)
		if len(positions) == 0 {
			continue
		}

		total := 0.0
		for _, p := range positions {
			total += score(NumbersAt(offsets, p))
		}
		avg := total / float64(len(positions))
		if best < 0 || avg > bestScore {
			best, bestScore = i, avg
		}
	}

	if best < 0 {
		return selectRandom(count, rng)
	}
	return candidates[best]
}
