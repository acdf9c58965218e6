package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"keno-bot/internal/backtest"
	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/predictor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHistory(t *testing.T, n int) string {
	t.Helper()
	records := make([]database.RoundRecord, n)
	for i := range records {
		records[i] = database.RoundRecord{ID: strconv.Itoa(1000 + i), Drawn: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func executeArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := execute(context.Background())
	return out.String(), err
}

func TestBuildOptions(t *testing.T) {
	method, risk, detection, refresh = "cold", "low", 4, 7
	defer func() { method, risk, detection, refresh = string(predictor.MethodMomentum), "", 0, 0 }()

	opts, err := buildOptions(config.DefaultGenerator())
	require.NoError(t, err)
	assert.Equal(t, predictor.MethodCold, opts.Method)
	assert.Equal(t, backtest.RiskLow, opts.Risk)
	assert.Equal(t, 4, opts.Generator.Momentum.DetectionWindow)
	assert.Equal(t, 7, opts.Generator.Momentum.RefreshFrequency)
	assert.Equal(t, 7, opts.Step)

	risk = "extreme"
	_, err = buildOptions(config.DefaultGenerator())
	assert.Error(t, err)

	risk, method = "", "astrology"
	_, err = buildOptions(config.DefaultGenerator())
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	path := writeHistory(t, 200)

	out, err := executeArgs(t, "run", "--data-file", path, "--method", "frequency",
		"--count", "5", "--lookahead", "5", "--start", "10", "--refresh", "5", "--json")
	require.NoError(t, err)

	var result backtest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, predictor.MethodFrequency, result.Method)
	assert.Equal(t, 37, result.Predictions)
	assert.Equal(t, 100.0, result.SuccessRate)
}

func TestStreaksCommand(t *testing.T) {
	path := writeHistory(t, 20)

	out, err := executeArgs(t, "streaks", "--data-file", path, "--top", "3", "--json=false", "--limit", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Analyzed 20 rounds")
	assert.Contains(t, out, "Longest gaps:")
	assert.Contains(t, out, "Most hot streaks:")
}

func TestMissingDataFile(t *testing.T) {
	_, err := executeArgs(t, "streaks", "--data-file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPatternsCommand(t *testing.T) {
	path := writeHistory(t, 300)

	out, err := executeArgs(t, "patterns", "--data-file", path, "--pattern-sizes", "3",
		"--discovery", "20", "--tracking", "50", "--step", "10", "--lookahead", "5",
		"--top", "3", "--recency", "--decay", "0.9", "--json")
	require.NoError(t, err)

	var results map[string][]backtest.PatternResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results["pattern_size_3"], 3)
	best := results["pattern_size_3"][0]
	assert.Equal(t, 3, best.Size)
	assert.Equal(t, 100.0, best.SuccessRate)
	assert.Positive(t, best.TotalPredictions)
}

func TestPatternsCommandRejectsUnknownRisk(t *testing.T) {
	defer func() { risk = "" }()
	path := writeHistory(t, 10)

	_, err := executeArgs(t, "patterns", "--data-file", path, "--risk", "extreme")
	assert.Error(t, err)
}
