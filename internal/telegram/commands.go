package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"keno-bot/internal/database"
	"keno-bot/internal/logger"
	"keno-bot/internal/predictor"
)

// DataSource 命令读取的数据（CacheManager实现该接口）
type DataSource interface {
	GetRecentRounds(limit int) ([]database.Round, error)
	GetLatestPredictions(limit int) ([]database.Prediction, error)
	GetMethodStats() ([]database.MethodStats, error)
}

// ContextFunc 返回当前的生成上下文（历史、配置、轮次）
type ContextFunc func() (*predictor.GeneratorContext, error)

const historyDisplayCount = 10

// Commands 与传输层无关的命令处理
type Commands struct {
	facade  *predictor.Facade
	data    DataSource
	context ContextFunc
}

// NewCommands 创建命令处理器
func NewCommands(facade *predictor.Facade, data DataSource, context ContextFunc) *Commands {
	return &Commands{facade: facade, data: data, context: context}
}

// Handle 处理命令并返回回复文本
func (c *Commands) Handle(command, args string) string {
	switch command {
	case "start":
		return welcomeText
	case "help":
		return helpText
	case "predict":
		return c.handlePredict(args)
	case "methods":
		return formatMethods(c.facade.Methods())
	case "shapes":
		return formatShapes(predictor.ShapeCatalog())
	case "history":
		return c.handleHistory()
	case "stats":
		return c.handleStats()
	case "auto":
		return c.handleAuto()
	case "refresh":
		c.facade.ForceRefresh()
		return "🔄 Prediction cache cleared. The next /predict generates fresh numbers."
	default:
		return "Unknown command. Type /help to view available commands."
	}
}

// HandleText 关键字回复
func (c *Commands) HandleText(text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "predict", "预测":
		return c.handlePredict("")
	case "history", "历史", "历史记录":
		return c.handleHistory()
	case "stats", "统计", "准确率":
		return c.handleStats()
	default:
		return "Please use commands or keywords, type /help for help."
	}
}

func (c *Commands) handlePredict(args string) string {
	method, count, err := parsePredictArgs(args)
	if err != nil {
		return "❌ " + err.Error() + "\nUsage: /predict [method] [count]"
	}

	gctx, err := c.context()
	if err != nil {
		logger.Errorf("Failed to build generator context: %v", err)
		return "❌ Failed to load history, please try again later."
	}

	nums, err := c.facade.Generate(method, count, gctx)
	if err != nil {
		logger.Errorf("Failed to generate %s prediction: %v", method, err)
		return "❌ Failed to generate prediction, please try again later."
	}

	target := ""
	if n := len(gctx.History); n > 0 {
		target = predictor.NextRoundKey(gctx.History[n-1].RoundKey)
	}
	return formatPrediction(method, target, nums)
}

// parsePredictArgs 解析"[method] [count]"，顺序任意；越界的count收敛到1..40
func parsePredictArgs(args string) (predictor.Method, int, error) {
	method := predictor.MethodAuto
	count := 0

	for _, field := range strings.Fields(args) {
		if n, err := strconv.Atoi(field); err == nil {
			count = predictor.ClampCount(n)
			continue
		}
		m, err := predictor.ParseMethod(strings.ToLower(field))
		if err != nil {
			return "", 0, fmt.Errorf("unknown method %q", field)
		}
		method = m
	}
	return method, count, nil
}

func (c *Commands) handleHistory() string {
	rounds, err := c.data.GetRecentRounds(historyDisplayCount)
	if err != nil {
		logger.Errorf("Failed to get round history: %v", err)
		return "❌ Failed to get history records, please try again later."
	}
	return formatRounds(rounds)
}

func (c *Commands) handleStats() string {
	stats, err := c.data.GetMethodStats()
	if err != nil {
		logger.Errorf("Failed to get method stats: %v", err)
		return "❌ Failed to get statistics, please try again later."
	}
	return formatStats(stats)
}

func (c *Commands) handleAuto() string {
	gctx, err := c.context()
	if err != nil {
		logger.Errorf("Failed to build generator context: %v", err)
		return "❌ Failed to load configuration, please try again later."
	}

	points := c.facade.Comparisons().Points()
	window := gctx.Config.Auto.Window
	best := predictor.SelectBestMethod(points, window, gctx.Config.Auto.MinDataPoints)
	return formatAuto(best, predictor.AverageAccuracy(points, window), len(points), gctx.Config.Auto.MinDataPoints)
}
