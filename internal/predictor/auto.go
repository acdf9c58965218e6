package predictor

import (
	"sync"
	"time"
)

// AutoCandidates 自动选择参与比较的方法，顺序即平局时的优先级
var AutoCandidates = []Method{
	MethodFrequency, MethodCold, MethodMixed, MethodAverage, MethodMomentum, MethodShapes,
}

// comparisonLogCapacity 对比记录保留上限
const comparisonLogCapacity = 200

// MethodResult 某方法在一轮中的表现
type MethodResult struct {
	Hits     int     `json:"hits"`
	Accuracy float64 `json:"accuracy"`
}

// ComparisonPoint 一轮开奖后各方法预测的对比结果
type ComparisonPoint struct {
	Round      string                  `json:"round"`
	Results    map[Method]MethodResult `json:"results"`
	RecordedAt time.Time               `json:"recorded_at"`
}

// ComparisonLog 有界的对比记录
type ComparisonLog struct {
	mu       sync.RWMutex
	points   []ComparisonPoint
	capacity int
}

// NewComparisonLog 创建对比记录
func NewComparisonLog(capacity int) *ComparisonLog {
	if capacity <= 0 {
		capacity = comparisonLogCapacity
	}
	return &ComparisonLog{capacity: capacity}
}

// Add 追加对比点
func (l *ComparisonLog) Add(p ComparisonPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now()
	}
	l.points = append(l.points, p)
	if over := len(l.points) - l.capacity; over > 0 {
		l.points = append([]ComparisonPoint(nil), l.points[over:]...)
	}
}

// Points 全部对比点副本（最旧在前）
func (l *ComparisonLog) Points() []ComparisonPoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ComparisonPoint(nil), l.points...)
}

// Len 对比点数量
func (l *ComparisonLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.points)
}

// AverageAccuracy 最近window个对比点中各方法的平均命中率
func AverageAccuracy(points []ComparisonPoint, window int) map[Method]float64 {
	if window > 0 && len(points) > window {
		points = points[len(points)-window:]
	}

	sums := make(map[Method]float64)
	counts := make(map[Method]int)
	for _, p := range points {
		for m, r := range p.Results {
			sums[m] += r.Accuracy
			counts[m]++
		}
	}

	avg := make(map[Method]float64, len(sums))
	for m, s := range sums {
		avg[m] = s / float64(counts[m])
	}
	return avg
}

// SelectBestMethod 平均命中率最高的方法；数据点少于minPoints时返回frequency
func SelectBestMethod(points []ComparisonPoint, window, minPoints int) Method {
	if window > 0 && len(points) > window {
		points = points[len(points)-window:]
	}
	if len(points) == 0 || len(points) < minPoints {
		return MethodFrequency
	}

	avg := AverageAccuracy(points, 0)
	best := MethodFrequency
	bestAcc := -1.0
	for _, m := range AutoCandidates {
		acc, ok := avg[m]
		if !ok {
			continue
		}
		if acc > bestAcc {
			best, bestAcc = m, acc
		}
	}
	return best
}
