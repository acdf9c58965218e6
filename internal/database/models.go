package database

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxNumber Keno号码上限（1..40）
const MaxNumber = 40

// ErrRoundNotFound 未找到对应轮次
var ErrRoundNotFound = errors.New("round not found")

// Round 规范化后的开奖轮次
type Round struct {
	ID           int64     `json:"id" db:"id"`
	RoundKey     string    `json:"round_key" db:"round_key"`
	DrawnNumbers []int     `json:"drawn_numbers" db:"drawn_numbers"`
	PlayedAt     time.Time `json:"played_at" db:"played_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RoundRecord 外部原始轮次记录，兼容两种历史格式：
// {"drawn": [...]} 或 {"hits": [...], "misses": [...]}
type RoundRecord struct {
	ID        string `json:"id"`
	Drawn     []int  `json:"drawn,omitempty"`
	Hits      []int  `json:"hits,omitempty"`
	Misses    []int  `json:"misses,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"` // 毫秒
}

// Normalize 转换为规范化的Round，越界和重复号码会被丢弃。
// 没有ID时以毫秒时间戳作为轮次键。
func (r RoundRecord) Normalize() Round {
	raw := r.Drawn
	if len(raw) == 0 {
		raw = make([]int, 0, len(r.Hits)+len(r.Misses))
		raw = append(raw, r.Hits...)
		raw = append(raw, r.Misses...)
	}

	round := Round{
		RoundKey:     strings.TrimSpace(r.ID),
		DrawnNumbers: NormalizeNumbers(raw),
	}
	if r.Timestamp > 0 {
		round.PlayedAt = time.UnixMilli(r.Timestamp)
		if round.RoundKey == "" {
			round.RoundKey = strconv.FormatInt(r.Timestamp, 10)
		}
	}
	return round
}

// NormalizeNumbers 去重、过滤越界并升序排列
func NormalizeNumbers(nums []int) []int {
	seen := make(map[int]bool, len(nums))
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if n < 1 || n > MaxNumber || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// NormalizeRecords 批量规范化，丢弃没有号码的记录
func NormalizeRecords(records []RoundRecord) []Round {
	rounds := make([]Round, 0, len(records))
	for _, rec := range records {
		round := rec.Normalize()
		if len(round.DrawnNumbers) == 0 {
			continue
		}
		rounds = append(rounds, round)
	}
	return rounds
}

// Prediction 预测记录模型
type Prediction struct {
	ID          int64      `json:"id" db:"id"`
	TargetRound string     `json:"target_round" db:"target_round"`
	Method      string     `json:"method" db:"method"`
	Numbers     []int      `json:"numbers" db:"numbers"`
	Hits        *int       `json:"hits" db:"hits"`
	Accuracy    *float64   `json:"accuracy" db:"accuracy"`
	PredictedAt time.Time  `json:"predicted_at" db:"predicted_at"`
	VerifiedAt  *time.Time `json:"verified_at" db:"verified_at"`
}

// IsVerified 是否已验证
func (p *Prediction) IsVerified() bool {
	return p.Hits != nil
}

// MethodStats 按方法的预测统计
type MethodStats struct {
	Method          string  `json:"method" db:"method"`
	TotalVerified   int     `json:"total_verified" db:"total_verified"`
	AverageAccuracy float64 `json:"average_accuracy" db:"average_accuracy"`
	BestHits        int     `json:"best_hits" db:"best_hits"`
}

// FormatNumbers 格式化号码为 "1,5,12"
func FormatNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ParseNumbers 解析 "1,5,12" 格式的号码
func ParseNumbers(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}

	parts := strings.Split(s, ",")
	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("failed to parse number %q: %w", part, err)
		}
		if num < 1 || num > MaxNumber {
			return nil, fmt.Errorf("number out of range (1-%d): %d", MaxNumber, num)
		}
		nums = append(nums, num)
	}
	return nums, nil
}

// CountHits 统计预测号码命中数
func CountHits(predicted, drawn []int) int {
	drawnSet := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		drawnSet[n] = true
	}
	hits := 0
	for _, n := range predicted {
		if drawnSet[n] {
			hits++
		}
	}
	return hits
}
