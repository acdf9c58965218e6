package predictor

import (
	"math/rand"
)

// Keno棋盘：5行×8列，号码按行优先从1编号到40
const (
	BoardRows = 5
	BoardCols = 8
	MaxNumber = BoardRows * BoardCols
)

// Position 棋盘格子坐标
type Position struct {
	Row int
	Col int
}

// Offset 相对中心格子的偏移
type Offset struct {
	DRow int
	DCol int
}

// CellNumber 坐标转号码
func CellNumber(row, col int) int {
	return row*BoardCols + col + 1
}

// CellPosition 号码转坐标
func CellPosition(number int) Position {
	return Position{Row: (number - 1) / BoardCols, Col: (number - 1) % BoardCols}
}

// OnBoard 坐标是否在棋盘内
func OnBoard(row, col int) bool {
	return row >= 0 && row < BoardRows && col >= 0 && col < BoardCols
}

// ClampCount 将数量限制在[1,40]
func ClampCount(count int) int {
	if count < 1 {
		return 1
	}
	if count > MaxNumber {
		return MaxNumber
	}
	return count
}

// Rand 生成器使用的随机源，*rand.Rand 满足该接口
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// globalRand 使用math/rand的全局（并发安全）随机源
type globalRand struct{}

func (globalRand) Intn(n int) int                     { return rand.Intn(n) }
func (globalRand) Float64() float64                   { return rand.Float64() }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// RandomNumbers 从打乱的1..40中不放回地取count个号码
func RandomNumbers(count int, rng Rand) []int {
	if rng == nil {
		rng = globalRand{}
	}
	count = ClampCount(count)

	pool := make([]int, MaxNumber)
	for i := range pool {
		pool[i] = i + 1
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:count]
}
