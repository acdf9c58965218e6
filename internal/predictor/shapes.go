package predictor

// ShapeDefinition 图形定义。Offsets有序：数量不足时取前K个，
// 因此越靠前的偏移越能代表图形本身。
type ShapeDefinition struct {
	Key     string
	Name    string
	Glyph   string
	Offsets []Offset
}

// Size 图形格子数
func (s ShapeDefinition) Size() int {
	return len(s.Offsets)
}

var shapeCatalog = []ShapeDefinition{
	{Key: "plus", Name: "Plus", Glyph: "➕", Offsets: []Offset{
		{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1},
	}},
	{Key: "cross", Name: "Cross", Glyph: "✖️", Offsets: []Offset{
		{0, 0}, {-1, -1}, {-1, 1}, {1, -1}, {1, 1},
	}},
	{Key: "lShape", Name: "L-Shape", Glyph: "🇱", Offsets: []Offset{
		{0, 0}, {-1, 0}, {-2, 0}, {0, 1}, {0, 2},
	}},
	{Key: "tShape", Name: "T-Shape", Glyph: "🇹", Offsets: []Offset{
		{0, 0}, {0, -1}, {0, 1}, {1, 0}, {2, 0},
	}},
	{Key: "cShape", Name: "C-Shape", Glyph: "🇨", Offsets: []Offset{
		{0, 0}, {-1, 0}, {1, 0}, {-1, 1}, {1, 1},
	}},
	{Key: "square", Name: "Square", Glyph: "⬛", Offsets: []Offset{
		{0, 0}, {0, 1}, {1, 0}, {1, 1}, {0, -1}, {1, -1},
	}},
	{Key: "horizontalLine", Name: "Horizontal Line", Glyph: "➖", Offsets: []Offset{
		{0, 0}, {0, -1}, {0, 1}, {0, -2}, {0, 2},
	}},
	{Key: "verticalLine", Name: "Vertical Line", Glyph: "┃", Offsets: []Offset{
		{0, 0}, {-1, 0}, {1, 0}, {-2, 0}, {2, 0},
	}},
	{Key: "diagonalDown", Name: "Diagonal ↘", Glyph: "↘️", Offsets: []Offset{
		{0, 0}, {-1, -1}, {1, 1}, {-2, -2}, {2, 2},
	}},
	{Key: "diagonalUp", Name: "Diagonal ↗", Glyph: "↗️", Offsets: []Offset{
		{0, 0}, {1, -1}, {-1, 1}, {2, -2}, {-2, 2},
	}},
	{Key: "zigzag", Name: "Zigzag", Glyph: "〰️", Offsets: []Offset{
		{0, 0}, {-1, -1}, {-1, 1}, {0, -2}, {0, 2},
	}},
	{Key: "arrow", Name: "Arrow", Glyph: "➡️", Offsets: []Offset{
		{0, 0}, {-1, -1}, {1, -1}, {0, -1}, {0, -2},
	}},
	{Key: "kite", Name: "Kite", Glyph: "🪁", Offsets: []Offset{
		{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}, {2, 0},
	}},
}

// ShapeCatalog 返回全部图形（副本）
func ShapeCatalog() []ShapeDefinition {
	out := make([]ShapeDefinition, len(shapeCatalog))
	for i, s := range shapeCatalog {
		s.Offsets = append([]Offset(nil), s.Offsets...)
		out[i] = s
	}
	return out
}

// LookupShape 根据key查找图形
func LookupShape(key string) (ShapeDefinition, bool) {
	for _, s := range shapeCatalog {
		if s.Key == key {
			s.Offsets = append([]Offset(nil), s.Offsets...)
			return s, true
		}
	}
	return ShapeDefinition{}, false
}

// ShapesOfSize 格子数等于size的图形；没有时返回全部
func ShapesOfSize(size int) []ShapeDefinition {
	var matched []ShapeDefinition
	for _, s := range shapeCatalog {
		if s.Size() == size {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return ShapeCatalog()
	}
	return matched
}

// Fits 图形以(row, col)为中心时是否完全落在棋盘内
func Fits(offsets []Offset, row, col int) bool {
	for _, o := range offsets {
		if !OnBoard(row+o.DRow, col+o.DCol) {
			return false
		}
	}
	return true
}

// GetValidPositions 枚举图形可放置的所有中心坐标
func GetValidPositions(offsets []Offset) []Position {
	var positions []Position
	for row := 0; row < BoardRows; row++ {
		for col := 0; col < BoardCols; col++ {
			if Fits(offsets, row, col) {
				positions = append(positions, Position{Row: row, Col: col})
			}
		}
	}
	return positions
}

// NumbersAt 图形在中心坐标处覆盖的号码，越界的格子跳过
func NumbersAt(offsets []Offset, center Position) []int {
	nums := make([]int, 0, len(offsets))
	for _, o := range offsets {
		r, c := center.Row+o.DRow, center.Col+o.DCol
		if OnBoard(r, c) {
			nums = append(nums, CellNumber(r, c))
		}
	}
	return nums
}
