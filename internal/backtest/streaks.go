package backtest

import (
	"sort"

	"keno-bot/internal/database"
)

// hotStreakDistance 距上次出现不超过该轮数即记一次热连
const hotStreakDistance = 3

// NumberStreak 单个号码的冷热统计
type NumberStreak struct {
	Number     int `json:"number"`
	MaxGap     int `json:"max_gap"`
	HotStreaks int `json:"hot_streaks"`
	Appeared   int `json:"appeared"`
}

// AnalyzeStreaks 统计每个号码的最长未出现间隔和热连次数，按号码升序返回
func AnalyzeStreaks(history []database.Round) []NumberStreak {
	streaks := make([]NumberStreak, database.MaxNumber)
	currentGap := make([]int, database.MaxNumber)
	lastSeen := make([]int, database.MaxNumber)
	for i := range streaks {
		streaks[i].Number = i + 1
		lastSeen[i] = -1
	}

	for idx, round := range history {
		for i := range currentGap {
			currentGap[i]++
		}
		for _, n := range round.DrawnNumbers {
			if n < 1 || n > database.MaxNumber {
				continue
			}
			s := &streaks[n-1]
			if currentGap[n-1] > s.MaxGap {
				s.MaxGap = currentGap[n-1]
			}
			if lastSeen[n-1] >= 0 && idx-lastSeen[n-1] <= hotStreakDistance {
				s.HotStreaks++
			}
			s.Appeared++
			currentGap[n-1] = 0
			lastSeen[n-1] = idx
		}
	}
	return streaks
}

// TopByGap 最长间隔最大的n个号码
func TopByGap(streaks []NumberStreak, n int) []NumberStreak {
	return topBy(streaks, n, func(s NumberStreak) int { return s.MaxGap })
}

// TopByHotStreaks 热连次数最多的n个号码
func TopByHotStreaks(streaks []NumberStreak, n int) []NumberStreak {
	return topBy(streaks, n, func(s NumberStreak) int { return s.HotStreaks })
}

func topBy(streaks []NumberStreak, n int, key func(NumberStreak) int) []NumberStreak {
	sorted := append([]NumberStreak(nil), streaks...)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
