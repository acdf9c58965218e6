package telegram

import (
	"errors"
	"strings"
	"testing"

	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/predictor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeData struct {
	rounds []database.Round
	stats  []database.MethodStats
	err    error
}

func (f *fakeData) GetRecentRounds(limit int) ([]database.Round, error) {
	return f.rounds, f.err
}

func (f *fakeData) GetLatestPredictions(limit int) ([]database.Prediction, error) {
	return nil, f.err
}

func (f *fakeData) GetMethodStats() ([]database.MethodStats, error) {
	return f.stats, f.err
}

func newCommands(t *testing.T, data *fakeData) *Commands {
	t.Helper()
	history := []database.Round{
		{RoundKey: "100", DrawnNumbers: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{RoundKey: "101", DrawnNumbers: []int{1, 2, 3, 11, 12, 13, 14, 15, 16, 17}},
	}
	return NewCommands(predictor.NewFacade(), data, func() (*predictor.GeneratorContext, error) {
		return &predictor.GeneratorContext{History: history, Config: config.DefaultGenerator(), Round: 2}, nil
	})
}

func TestParsePredictArgs(t *testing.T) {
	m, n, err := parsePredictArgs("")
	require.NoError(t, err)
	assert.Equal(t, predictor.MethodAuto, m)
	assert.Zero(t, n)

	m, n, err = parsePredictArgs("7 Cold")
	require.NoError(t, err)
	assert.Equal(t, predictor.MethodCold, m)
	assert.Equal(t, 7, n)

	m, n, err = parsePredictArgs("frequency 41")
	require.NoError(t, err)
	assert.Equal(t, predictor.MethodFrequency, m)
	assert.Equal(t, predictor.MaxNumber, n)

	_, n, err = parsePredictArgs("0")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, n, err = parsePredictArgs("hot -5")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, err = parsePredictArgs("astrology")
	assert.Error(t, err)
}

func TestCommands_Predict(t *testing.T) {
	c := newCommands(t, &fakeData{})

	reply := c.Handle("predict", "frequency 3")
	assert.Contains(t, reply, "`frequency`")
	assert.Contains(t, reply, "Target Round: `102`")
	assert.Contains(t, reply, "`1,2,3`")

	reply = c.Handle("predict", "nonsense")
	assert.Contains(t, reply, "Usage")
}

func TestCommands_PredictContextError(t *testing.T) {
	c := NewCommands(predictor.NewFacade(), &fakeData{}, func() (*predictor.GeneratorContext, error) {
		return nil, errors.New("db down")
	})

	assert.Contains(t, c.Handle("predict", ""), "Failed to load history")
}

func TestCommands_Static(t *testing.T) {
	c := newCommands(t, &fakeData{})

	assert.Equal(t, welcomeText, c.Handle("start", ""))
	assert.Equal(t, helpText, c.Handle("help", ""))
	assert.Contains(t, c.Handle("methods", ""), "`momentum`")
	assert.Contains(t, c.Handle("shapes", ""), "`kite`")
	assert.Contains(t, c.Handle("refresh", ""), "cache cleared")
	assert.Contains(t, c.Handle("bogus", ""), "Unknown command")
}

func TestCommands_HistoryAndStats(t *testing.T) {
	data := &fakeData{
		rounds: []database.Round{{RoundKey: "55", DrawnNumbers: []int{4, 8}}},
		stats: []database.MethodStats{
			{Method: "cold", TotalVerified: 4, AverageAccuracy: 0.2, BestHits: 3},
			{Method: "momentum", TotalVerified: 4, AverageAccuracy: 0.35, BestHits: 5},
		},
	}
	c := newCommands(t, data)

	history := c.Handle("history", "")
	assert.Contains(t, history, "Round `55`")
	assert.Contains(t, history, "`4,8`")

	stats := c.Handle("stats", "")
	assert.Contains(t, stats, "*Best*: `momentum`")
	assert.Less(t, strings.Index(stats, "`momentum`:"), strings.Index(stats, "`cold`:"))

	assert.Equal(t, stats, c.HandleText("统计"))

	data.err = errors.New("boom")
	assert.Contains(t, c.Handle("history", ""), "Failed")
}

func TestCommands_Auto(t *testing.T) {
	c := newCommands(t, &fakeData{})

	reply := c.Handle("auto", "")
	assert.Contains(t, reply, "Following: `frequency`")
	assert.Contains(t, reply, "Collecting data")

	for i := 0; i < 5; i++ {
		c.facade.RecordComparison(predictor.ComparisonPoint{Results: map[predictor.Method]predictor.MethodResult{
			predictor.MethodShapes: {Accuracy: 0.5},
		}})
	}
	reply = c.Handle("auto", "")
	assert.Contains(t, reply, "Following: `shapes`")
	assert.Contains(t, reply, "`shapes`: 50.0%")
}

func TestRenderBoard(t *testing.T) {
	board := renderBoard([]int{1, 40})
	lines := strings.Split(strings.Trim(board, "`\n"), "\n")
	require.Len(t, lines, predictor.BoardRows)
	assert.True(t, strings.HasPrefix(lines[0], " ●"))
	assert.True(t, strings.HasSuffix(lines[4], " ●"))
}

func TestFormatBroadcast(t *testing.T) {
	msg := formatBroadcast(&database.Round{RoundKey: "9", DrawnNumbers: []int{1}}, "10", map[predictor.Method][]int{
		predictor.MethodMomentum: {3, 4},
		predictor.MethodCold:     {5},
	})

	assert.Contains(t, msg, "Round: `10`")
	assert.Less(t, strings.Index(msg, "`cold`"), strings.Index(msg, "`momentum`"))
}

func TestCalculatePerformanceRating(t *testing.T) {
	assert.Contains(t, calculatePerformanceRating(45), "Excellent")
	assert.Contains(t, calculatePerformanceRating(25), "Fair")
	assert.Contains(t, calculatePerformanceRating(10), "Below random")
}
