package predictor

import (
	"sort"

	"keno-bot/internal/database"
)

// Placement 图形放置策略
type Placement string

const (
	PlacementRandom   Placement = "random"
	PlacementHot      Placement = "hot"
	PlacementCold     Placement = "cold"
	PlacementTrending Placement = "trending"
)

// ParsePlacement 解析放置策略，未知值按random处理
func ParsePlacement(s string) Placement {
	switch Placement(s) {
	case PlacementHot, PlacementCold, PlacementTrending:
		return Placement(s)
	default:
		return PlacementRandom
	}
}

// placementTopN 从得分最高的前N个位置中随机选一个
const placementTopN = 3

// positionScorer 返回"越大越好"的位置打分函数；
// random或数据不足（trending需要sampleSize*5轮）时返回nil
func positionScorer(placement Placement, history []database.Round, sampleSize int) func(nums []int) float64 {
	switch placement {
	case PlacementHot:
		freq := CalculateFrequency(history, sampleSize)
		return func(nums []int) float64 { return float64(sumFrequency(freq, nums)) }
	case PlacementCold:
		freq := CalculateFrequency(history, sampleSize)
		return func(nums []int) float64 { return -float64(sumFrequency(freq, nums)) }
	case PlacementTrending:
		if !MomentumReady(history, sampleSize) {
			return nil
		}
		m := CalculateMomentum(history, sampleSize)
		return func(nums []int) float64 {
			total := 0.0
			for _, n := range nums {
				total += m[n]
			}
			return total
		}
	default:
		return nil
	}
}

func sumFrequency(freq FrequencyMap, nums []int) int {
	total := 0
	for _, n := range nums {
		total += freq[n]
	}
	return total
}

// PlaceShape 按策略选择图形的中心坐标；图形放不下时返回false
func PlaceShape(offsets []Offset, placement Placement, history []database.Round, sampleSize int, rng Rand) (Position, bool) {
	if rng == nil {
		rng = globalRand{}
	}
	positions := GetValidPositions(offsets)
	if len(positions) == 0 {
		return Position{}, false
	}

	score := positionScorer(placement, history, sampleSize)
	if score == nil {
		return positions[rng.Intn(len(positions))], true
	}

	scores := make(map[Position]float64, len(positions))
	for _, p := range positions {
		scores[p] = score(NumbersAt(offsets, p))
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return scores[positions[i]] > scores[positions[j]]
	})

	top := placementTopN
	if top > len(positions) {
		top = len(positions)
	}
	return positions[rng.Intn(top)], true
}

// GenerateShape 放置图形并返回恰好count个号码
func GenerateShape(shape ShapeDefinition, count int, placement Placement, history []database.Round, sampleSize int, rng Rand) []int {
	count = ClampCount(count)
	offsets := shape.Offsets
	if count < len(offsets) {
		offsets = offsets[:count]
	}

	center, ok := PlaceShape(offsets, placement, history, sampleSize, rng)
	if !ok {
		return RandomNumbers(count, rng)
	}
	return adjustSize(NumbersAt(offsets, center), count, rng)
}

var neighbourOffsets = []Offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// adjustSize 截断或用相邻格子扩充到count个号码
func adjustSize(nums []int, count int, rng Rand) []int {
	if len(nums) >= count {
		return nums[:count]
	}

	included := make(map[int]bool, count)
	for _, n := range nums {
		included[n] = true
	}

	for len(nums) < count {
		added := false
		for _, n := range nums {
			p := CellPosition(n)
			for _, o := range neighbourOffsets {
				r, c := p.Row+o.DRow, p.Col+o.DCol
				if !OnBoard(r, c) {
					continue
				}
				if nb := CellNumber(r, c); !included[nb] {
					included[nb] = true
					nums = append(nums, nb)
					added = true
					break
				}
			}
			if added {
				break
			}
		}
		if !added {
			break
		}
	}

	// 连通区域已满时用随机号码补齐
	if len(nums) < count {
		for _, n := range RandomNumbers(MaxNumber, rng) {
			if len(nums) >= count {
				break
			}
			if !included[n] {
				included[n] = true
				nums = append(nums, n)
			}
		}
	}
	return nums
}
