package predictor

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"keno-bot/internal/database"
	"keno-bot/internal/logger"
)

// ValidationResult 单条预测的验证结果
type ValidationResult struct {
	PredictionID   int64     `json:"prediction_id"`
	Method         Method    `json:"method"`
	TargetRound    string    `json:"target_round"`
	Predicted      []int     `json:"predicted"`
	Drawn          []int     `json:"drawn"`
	Matched        []int     `json:"matched"`
	Hits           int       `json:"hits"`
	Accuracy       float64   `json:"accuracy"`
	ValidationTime time.Time `json:"validation_time"`
}

// ValidateNumbers 比较预测与开奖号码，命中率为命中数/预测数
func ValidateNumbers(predicted, drawn []int) *ValidationResult {
	drawnSet := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		drawnSet[n] = true
	}

	matched := make([]int, 0, len(predicted))
	for _, n := range predicted {
		if drawnSet[n] {
			matched = append(matched, n)
		}
	}
	sort.Ints(matched)

	result := &ValidationResult{
		Predicted:      append([]int(nil), predicted...),
		Drawn:          append([]int(nil), drawn...),
		Matched:        matched,
		Hits:           len(matched),
		ValidationTime: time.Now(),
	}
	if len(predicted) > 0 {
		result.Accuracy = float64(len(matched)) / float64(len(predicted))
	}
	return result
}

// NextRoundKey 推算下一轮的key：纯数字加一，否则追加"+1"
func NextRoundKey(latest string) string {
	if n, err := strconv.ParseInt(latest, 10, 64); err == nil {
		return strconv.FormatInt(n+1, 10)
	}
	return latest + "+1"
}

// PredictionStore 验证器依赖的预测存储
type PredictionStore interface {
	GetUnverifiedPredictions(targetRound string) ([]database.Prediction, error)
	VerifyPrediction(id int64, hits int, accuracy float64) error
}

// Validator 预测验证器
type Validator struct {
	store PredictionStore
}

// NewValidator 创建新的验证器
func NewValidator(store PredictionStore) *Validator {
	return &Validator{store: store}
}

// VerifyRound 用实际开奖验证目标轮次的全部预测，返回结果和对比点；
// 没有待验证预测时对比点为nil
func (v *Validator) VerifyRound(targetRound string, round *database.Round) ([]ValidationResult, *ComparisonPoint, error) {
	predictions, err := v.store.GetUnverifiedPredictions(targetRound)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get predictions for %s: %w", targetRound, err)
	}
	if len(predictions) == 0 {
		logger.Debugf("No predictions to verify for %s", targetRound)
		return nil, nil, nil
	}

	point := &ComparisonPoint{
		Round:      round.RoundKey,
		Results:    make(map[Method]MethodResult, len(predictions)),
		RecordedAt: time.Now(),
	}
	results := make([]ValidationResult, 0, len(predictions))

	for _, p := range predictions {
		r := ValidateNumbers(p.Numbers, round.DrawnNumbers)
		r.PredictionID = p.ID
		r.Method = Method(p.Method)
		r.TargetRound = targetRound

		if err := v.store.VerifyPrediction(p.ID, r.Hits, r.Accuracy); err != nil {
			logger.Errorf("Failed to persist verification for prediction %d: %v", p.ID, err)
			continue
		}
		results = append(results, *r)
		point.Results[r.Method] = MethodResult{Hits: r.Hits, Accuracy: r.Accuracy}
	}

	logger.Infof("Verified %d predictions for round %s", len(results), round.RoundKey)
	return results, point, nil
}

// Statistics 各方法的累计统计
type Statistics struct {
	Methods        []database.MethodStats `json:"methods"`
	BestMethod     string                 `json:"best_method"`
	TotalVerified  int                    `json:"total_verified"`
	LastUpdateTime time.Time              `json:"last_update_time"`
}

// MethodStatsSource 统计数据来源
type MethodStatsSource interface {
	GetMethodStats() ([]database.MethodStats, error)
}

// StatisticsCalculator 统计计算器
type StatisticsCalculator struct {
	source MethodStatsSource
}

// NewStatisticsCalculator 创建统计计算器
func NewStatisticsCalculator(source MethodStatsSource) *StatisticsCalculator {
	return &StatisticsCalculator{source: source}
}

// CalculateStatistics 汇总各方法统计并找出平均命中率最高的方法
func (sc *StatisticsCalculator) CalculateStatistics() (*Statistics, error) {
	methods, err := sc.source.GetMethodStats()
	if err != nil {
		return nil, fmt.Errorf("failed to get method stats: %w", err)
	}

	stats := &Statistics{Methods: methods, LastUpdateTime: time.Now()}
	bestAcc := -1.0
	for _, m := range methods {
		stats.TotalVerified += m.TotalVerified
		if m.TotalVerified > 0 && m.AverageAccuracy > bestAcc {
			stats.BestMethod, bestAcc = m.Method, m.AverageAccuracy
		}
	}

	logger.Debugf("Statistics calculated: %d methods, %d verified", len(methods), stats.TotalVerified)
	return stats, nil
}

// Trend 某方法命中率的移动平均趋势
type Trend struct {
	Method        Method    `json:"method"`
	Accuracy      []float64 `json:"accuracy"`
	MovingAverage []float64 `json:"moving_average"`
	Direction     string    `json:"direction"`
}

// TrendAnalysis 基于对比记录计算某方法的命中率趋势（百分比）
func TrendAnalysis(points []ComparisonPoint, method Method, window int) Trend {
	var accuracy []float64
	for _, p := range points {
		if r, ok := p.Results[method]; ok {
			accuracy = append(accuracy, r.Accuracy*100)
		}
	}

	ma := calculateMovingAverage(accuracy, window)
	return Trend{
		Method:        method,
		Accuracy:      accuracy,
		MovingAverage: ma,
		Direction:     analyzeTrendDirection(ma),
	}
}

func calculateMovingAverage(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}

	movingAvg := make([]float64, 0, len(values)-window+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			movingAvg = append(movingAvg, sum/float64(window))
		}
	}
	return movingAvg
}

func analyzeTrendDirection(movingAverage []float64) string {
	if len(movingAverage) < 2 {
		return "insufficient_data"
	}

	recent := movingAverage[len(movingAverage)-1]
	previous := movingAverage[len(movingAverage)-2]

	switch {
	case recent > previous+1:
		return "improving"
	case recent < previous-1:
		return "declining"
	default:
		return "stable"
	}
}
