package predictor

import (
	"math"
	"sort"

	"keno-bot/internal/database"
)

// rankBy 按score排序全部号码，score相同时号码小的在前
func rankBy(score func(n int) float64, descending bool) []int {
	numbers := make([]int, MaxNumber)
	for i := range numbers {
		numbers[i] = i + 1
	}
	sort.SliceStable(numbers, func(i, j int) bool {
		a, b := score(numbers[i]), score(numbers[j])
		if a == b {
			return numbers[i] < numbers[j]
		}
		if descending {
			return a > b
		}
		return a < b
	})
	return numbers
}

// hotRanking 按频率从高到低
func hotRanking(freq FrequencyMap) []int {
	return rankBy(func(n int) float64 { return float64(freq[n]) }, true)
}

// coldRanking 按频率从低到高
func coldRanking(freq FrequencyMap) []int {
	return rankBy(func(n int) float64 { return float64(freq[n]) }, false)
}

func takeCopy(ranked []int, count int) []int {
	if count > len(ranked) {
		count = len(ranked)
	}
	out := make([]int, count)
	copy(out, ranked[:count])
	return out
}

// GetTopPredictions 热号：出现次数最多的count个号码
func GetTopPredictions(history []database.Round, sampleSize, count int, rng Rand) []int {
	count = ClampCount(count)
	sample := lastRounds(history, sampleSize)
	if len(sample) == 0 {
		return RandomNumbers(count, rng)
	}
	return takeCopy(hotRanking(countOccurrences(sample)), count)
}

// GetColdPredictions 冷号：出现次数最少的count个号码
func GetColdPredictions(history []database.Round, sampleSize, count int, rng Rand) []int {
	count = ClampCount(count)
	sample := lastRounds(history, sampleSize)
	if len(sample) == 0 {
		return RandomNumbers(count, rng)
	}
	return takeCopy(coldRanking(countOccurrences(sample)), count)
}

// GetMixedPredictions 冷热混合：ceil(count/2)个热号 + floor(count/2)个冷号，升序返回。
// 热号和冷号重叠时去重，并沿冷号排名继续补足，保证返回count个不同号码。
func GetMixedPredictions(history []database.Round, sampleSize, count int, rng Rand) []int {
	count = ClampCount(count)
	sample := lastRounds(history, sampleSize)
	if len(sample) == 0 {
		return RandomNumbers(count, rng)
	}

	freq := countOccurrences(sample)
	hotCount := (count + 1) / 2

	seen := make(map[int]bool, count)
	result := make([]int, 0, count)
	for _, n := range hotRanking(freq)[:hotCount] {
		seen[n] = true
		result = append(result, n)
	}
	for _, n := range coldRanking(freq) {
		if len(result) >= count {
			break
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		result = append(result, n)
	}

	sort.Ints(result)
	return result
}

// Median 40个频率值的中位数（第20和第21小值的平均）
func Median(freq FrequencyMap) float64 {
	values := make([]int, 0, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		values = append(values, freq[n])
	}
	sort.Ints(values)
	mid := len(values) / 2
	return float64(values[mid-1]+values[mid]) / 2
}

// GetAveragePredictions 频率最接近中位数的count个号码
func GetAveragePredictions(history []database.Round, sampleSize, count int, rng Rand) []int {
	count = ClampCount(count)
	sample := lastRounds(history, sampleSize)
	if len(sample) == 0 {
		return RandomNumbers(count, rng)
	}

	freq := countOccurrences(sample)
	median := Median(freq)
	ranked := rankBy(func(n int) float64 { return math.Abs(float64(freq[n]) - median) }, false)
	return takeCopy(ranked, count)
}
