package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"keno-bot/internal/api"
	"keno-bot/internal/backtest"
	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/logger"
	"keno-bot/internal/predictor"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	dataFile   string
	configPath string
	logLevel   string
	jsonOutput bool
	limit      int

	method     string
	count      int
	detection  int
	baseline   int
	threshold  float64
	refresh    int
	pool       int
	sampleSize int
	lookahead  int
	start      int
	risk       string
	seed       int64

	workers int
	top     int

	patternSizes []int
	recency      bool
	decay        float64
	discovery    int
	tracking     int
	patternStep  int

	rootCmd = &cobra.Command{
		Use:   "keno-backtest",
		Short: "Replay Keno generators over recorded draw history",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitLogger(logLevel)
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Backtest one generator configuration",
		RunE:  runBacktest,
	}

	optimizeCmd = &cobra.Command{
		Use:   "optimize",
		Short: "Grid search momentum parameters and rank them by success rate",
		RunE:  runOptimize,
	}

	patternsCmd = &cobra.Command{
		Use:   "patterns",
		Short: "Grid search common-pattern filters (sample, partial hits, recent full hits)",
		RunE:  runPatterns,
	}

	streaksCmd = &cobra.Command{
		Use:   "streaks",
		Short: "Report per-number gaps and hot streaks",
		RunE:  runStreaks,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataFile, "data-file", "d", "", "JSON draw history (array or {data: [...]})")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Read generator defaults from this config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 0, "Only use the most recent N rounds (0 = all)")
	_ = rootCmd.MarkPersistentFlagRequired("data-file")

	for _, cmd := range []*cobra.Command{runCmd, optimizeCmd} {
		cmd.Flags().IntVarP(&count, "count", "n", 0, "Numbers per pattern (0 = config count)")
		cmd.Flags().IntVar(&pool, "pool", 0, "Momentum candidate pool size")
		cmd.Flags().IntVar(&sampleSize, "sample", 0, "Frequency sample size in rounds")
		cmd.Flags().IntVar(&lookahead, "lookahead", 0, "Rounds a pattern has to complete (0 = 30)")
		cmd.Flags().IntVar(&start, "start", 0, "First history index to predict from (0 = baseline + 100)")
		cmd.Flags().StringVar(&risk, "risk", "", "Payout table for profit simulation (classic, low, medium, high)")
		cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for tie-breaking generators")
	}

	runCmd.Flags().StringVarP(&method, "method", "m", string(predictor.MethodMomentum), "Generation method")
	runCmd.Flags().IntVar(&detection, "detection", 0, "Momentum detection window")
	runCmd.Flags().IntVar(&baseline, "baseline", 0, "Momentum baseline window")
	runCmd.Flags().Float64Var(&threshold, "threshold", -1, "Momentum threshold (negative = config value)")
	runCmd.Flags().IntVar(&refresh, "refresh", 0, "Rounds between regenerations")

	optimizeCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel backtests (0 = CPU count)")
	optimizeCmd.Flags().IntVar(&top, "top", 10, "Show the best N configurations")

	streaksCmd.Flags().IntVar(&top, "top", 10, "Show the top N numbers per ranking")

	patternsCmd.Flags().IntSliceVar(&patternSizes, "pattern-sizes", []int{5}, "Pattern sizes to test (3-10)")
	patternsCmd.Flags().BoolVar(&recency, "recency", false, "Weight recent rounds higher when discovering patterns")
	patternsCmd.Flags().Float64Var(&decay, "decay", 0.98, "Per-round weight decay used with --recency")
	patternsCmd.Flags().IntVar(&discovery, "discovery", 0, "Rounds scanned for common patterns (0 = 500)")
	patternsCmd.Flags().IntVar(&tracking, "tracking", 0, "Rounds scanned for the last full hit (0 = 1000)")
	patternsCmd.Flags().IntVar(&patternStep, "step", 0, "Rounds between evaluation points (0 = 50)")
	patternsCmd.Flags().IntVar(&lookahead, "lookahead", 0, "Rounds a pattern has to complete (0 = 30)")
	patternsCmd.Flags().StringVar(&risk, "risk", "", "Payout table for profit simulation (classic, low, medium, high)")
	patternsCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel backtests (0 = CPU count)")
	patternsCmd.Flags().IntVar(&top, "top", 10, "Show the best N parameter sets per size")

	rootCmd.AddCommand(runCmd, optimizeCmd, patternsCmd, streaksCmd)
}

// loadHistory 读取开奖文件，并按--limit截取最近的轮次
func loadHistory() ([]database.Round, error) {
	history, err := api.LoadHistoryFile(dataFile)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func baseGenerator() (config.Generator, error) {
	if configPath == "" {
		return config.DefaultGenerator(), nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Generator{}, err
	}
	return cfg.Generator, nil
}

// buildOptions 命令行参数覆盖配置中的生成器参数
func buildOptions(gen config.Generator) (backtest.Options, error) {
	m, err := predictor.ParseMethod(method)
	if err != nil {
		return backtest.Options{}, err
	}

	var r backtest.Risk
	if risk != "" {
		if r, err = backtest.ParseRisk(risk); err != nil {
			return backtest.Options{}, err
		}
	}

	if sampleSize > 0 {
		gen.SampleSize = sampleSize
	}
	if detection > 0 {
		gen.Momentum.DetectionWindow = detection
	}
	if baseline > 0 {
		gen.Momentum.BaselineWindow = baseline
	}
	if threshold >= 0 {
		gen.Momentum.Threshold = config.Float64(threshold)
	}
	if pool > 0 {
		gen.Momentum.PoolSize = pool
	}
	if refresh > 0 {
		gen.Momentum.RefreshFrequency = refresh
	}

	return backtest.Options{
		Method:     m,
		Count:      count,
		Generator:  gen,
		StartIndex: start,
		Step:       refresh,
		Lookahead:  lookahead,
		Risk:       r,
		Seed:       seed,
	}, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	history, err := loadHistory()
	if err != nil {
		return err
	}
	gen, err := baseGenerator()
	if err != nil {
		return err
	}
	opts, err := buildOptions(gen)
	if err != nil {
		return err
	}

	result, err := backtest.Run(cmd.Context(), history, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, result)
	}
	writeResults(out, []backtest.Result{*result})
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	history, err := loadHistory()
	if err != nil {
		return err
	}
	gen, err := baseGenerator()
	if err != nil {
		return err
	}
	method = string(predictor.MethodMomentum)
	opts, err := buildOptions(gen)
	if err != nil {
		return err
	}

	grid := backtest.DefaultGrid()
	fmt.Fprintf(cmd.ErrOrStderr(), "Testing %d configurations over %d rounds...\n", grid.Size(), len(history))

	results, err := backtest.Optimize(cmd.Context(), history, opts, grid, workers)
	if err != nil {
		return err
	}
	if top > 0 && len(results) > top {
		results = results[:top]
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, results)
	}
	writeResults(out, results)
	return nil
}

func runPatterns(cmd *cobra.Command, args []string) error {
	history, err := loadHistory()
	if err != nil {
		return err
	}

	var r backtest.Risk
	if risk != "" {
		if r, err = backtest.ParseRisk(risk); err != nil {
			return err
		}
	}

	results := make(map[string][]backtest.PatternResult, len(patternSizes))
	for _, size := range patternSizes {
		opts := backtest.PatternOptions{
			Size:            size,
			Recency:         recency,
			Decay:           decay,
			Risk:            r,
			DiscoveryWindow: discovery,
			TrackingWindow:  tracking,
			Lookahead:       lookahead,
			Step:            patternStep,
		}
		grid := backtest.PatternGrid(size)
		fmt.Fprintf(cmd.ErrOrStderr(), "Testing %d size-%d parameter sets over %d rounds...\n", len(grid), size, len(history))

		sized, err := backtest.OptimizePatterns(cmd.Context(), history, opts, grid, workers)
		if err != nil {
			return err
		}
		if top > 0 && len(sized) > top {
			sized = sized[:top]
		}
		results[fmt.Sprintf("pattern_size_%d", size)] = sized
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, results)
	}
	for _, size := range patternSizes {
		fmt.Fprintf(out, "Pattern size %d:\n", size)
		writePatternResults(out, results[fmt.Sprintf("pattern_size_%d", size)])
		fmt.Fprintln(out)
	}
	return nil
}

func runStreaks(cmd *cobra.Command, args []string) error {
	history, err := loadHistory()
	if err != nil {
		return err
	}

	streaks := backtest.AnalyzeStreaks(history)
	byGap := backtest.TopByGap(streaks, top)
	byHot := backtest.TopByHotStreaks(streaks, top)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"rounds":      len(history),
			"max_gap":     byGap,
			"hot_streaks": byHot,
			"numbers":     streaks,
		})
	}

	fmt.Fprintf(out, "Analyzed %d rounds\n\nLongest gaps:\n", len(history))
	writeStreaks(out, byGap)
	fmt.Fprintln(out, "\nMost hot streaks:")
	writeStreaks(out, byHot)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResults(w io.Writer, results []backtest.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tCOUNT\tDETECT\tBASE\tTHRESH\tREFRESH\tPREDICTIONS\tSUCCESS\tAVG ROUNDS\tCHANGES\tAVG PROFIT")
	for _, r := range results {
		m := r.Generator.Momentum
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f\t%d\t%d\t%.1f%%\t%.1f\t%d\t%.2f\n",
			r.Method, r.Count, m.DetectionWindow, m.BaselineWindow, m.ThresholdValue(), m.RefreshFrequency,
			r.Predictions, r.SuccessRate, r.AvgRoundsToHit, r.PatternChanges, r.AvgProfit)
	}
	tw.Flush()
}

func writePatternResults(w io.Writer, results []backtest.PatternResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tMIN HITS\tMAX HITS\tNOT HIT IN\tPOINTS\tPREDICTIONS\tSUCCESS\tMAINTAIN\tAVG ROUNDS\tAVG PROFIT")
	for _, r := range results {
		p := r.Params
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%.1f%%\t%.1f%%\t%.1f\t%.2f\n",
			p.SampleSize, p.MinHits, p.MaxHits, p.NotHitIn, r.EvaluationPoints, r.TotalPredictions,
			r.SuccessRate, r.MaintainingRate, r.AvgRoundsToHit, r.AvgProfit)
	}
	tw.Flush()
}

func writeStreaks(w io.Writer, streaks []backtest.NumberStreak) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tMAX GAP\tHOT STREAKS\tAPPEARED")
	for _, s := range streaks {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", s.Number, s.MaxGap, s.HotStreaks, s.Appeared)
	}
	tw.Flush()
}

// execute 运行根命令，ctx用于中断长时间的回测
func execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
