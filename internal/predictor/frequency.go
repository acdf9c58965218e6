package predictor

import (
	"keno-bot/internal/database"
)

// FrequencyMap 号码 -> 样本窗口内出现次数，1..40全部存在
type FrequencyMap map[int]int

// MomentumMap 号码 -> 近期/基线出现率之比，中性值为1.0
type MomentumMap map[int]float64

// lastRounds 取历史末尾的n轮（n超出时取全部）
func lastRounds(history []database.Round, n int) []database.Round {
	if n <= 0 {
		return nil
	}
	if n >= len(history) {
		return history
	}
	return history[len(history)-n:]
}

// countOccurrences 统计一段轮次内每个号码出现次数
func countOccurrences(rounds []database.Round) FrequencyMap {
	freq := make(FrequencyMap, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		freq[n] = 0
	}
	for _, round := range rounds {
		for _, n := range round.DrawnNumbers {
			if n >= 1 && n <= MaxNumber {
				freq[n]++
			}
		}
	}
	return freq
}

// CalculateFrequency 计算最近sampleSize轮的号码频率
func CalculateFrequency(history []database.Round, sampleSize int) FrequencyMap {
	return countOccurrences(lastRounds(history, sampleSize))
}

// Total 所有号码出现次数之和
func (f FrequencyMap) Total() int {
	total := 0
	for _, c := range f {
		total += c
	}
	return total
}
