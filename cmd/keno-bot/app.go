package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"keno-bot/internal/api"
	"keno-bot/internal/cache"
	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/logger"
	"keno-bot/internal/predictor"
	"keno-bot/internal/telegram"

	"github.com/robfig/cron/v3"
)

// fetchWindow 每次轮询拉取的开奖条数
const fetchWindow = 50

// HistoryFeed 开奖历史来源
type HistoryFeed interface {
	FetchHistory(ctx context.Context, limit int) ([]database.Round, error)
}

// Broadcaster 新预测推送
type Broadcaster interface {
	BroadcastPredictions(latest *database.Round, target string, predictions map[predictor.Method][]int)
}

// App 应用程序主结构
type App struct {
	config         *config.Config
	store          *database.Store
	cacheManager   *cache.CacheManager
	feed           HistoryFeed
	facade         *predictor.Facade
	validator      *predictor.Validator
	statCalculator *predictor.StatisticsCalculator
	commands       *telegram.Commands
	telegramBot    *telegram.Bot
	broadcaster    Broadcaster
	scheduler      *cron.Cron

	// 自启动以来处理过的轮次计数，作为缓存间隔的轮次号
	round int64

	mu         sync.Mutex
	latestKey  string
	lastHealth string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 错误状态跟踪（避免重复日志）
	lastFeedError string
}

// NewApp 创建应用程序实例
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitLogger(cfg.App.LogLevel)
	fmt.Println("🚀 启动Keno预测机器人...")

	store, err := database.NewStore(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Println("✅ 数据库连接成功")

	app, err := newApp(cfg, store, api.NewClient(&cfg.API))
	if err != nil {
		store.Close()
		return nil, err
	}

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(&cfg.Telegram, app.commands)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		app.telegramBot = bot
		app.broadcaster = bot
		fmt.Println("✅ Telegram机器人连接成功")
	} else {
		fmt.Println("⚠️  未配置Telegram token，仅运行数据采集与预测")
	}

	fmt.Println("🎯 应用程序初始化完成")
	return app, nil
}

func newApp(cfg *config.Config, store *database.Store, feed HistoryFeed) (*App, error) {
	cacheManager := cache.NewCacheManager(store, cfg.App.CacheTTL)
	fmt.Println("✅ 缓存系统初始化完成")

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		config:         cfg,
		store:          store,
		cacheManager:   cacheManager,
		feed:           feed,
		facade:         predictor.NewFacade(),
		validator:      predictor.NewValidator(store),
		statCalculator: predictor.NewStatisticsCalculator(cacheManager),
		scheduler:      cron.New(cron.WithSeconds()),
		ctx:            ctx,
		cancel:         cancel,
	}
	app.commands = telegram.NewCommands(app.facade, cacheManager, app.generatorContext)

	if _, err := app.scheduler.AddFunc(cfg.App.CleanupCron, app.cleanupJob); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cleanup cron %q: %w", cfg.App.CleanupCron, err)
	}
	if cfg.App.ReportCron != "" {
		if _, err := app.scheduler.AddFunc(cfg.App.ReportCron, app.reportJob); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid report cron %q: %w", cfg.App.ReportCron, err)
		}
	}

	latest, err := store.GetRecentRounds(1)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load latest round: %w", err)
	}
	if len(latest) > 0 {
		app.latestKey = latest[0].RoundKey
	}
	return app, nil
}

// Start 启动应用程序
func (a *App) Start() error {
	fmt.Println("🔄 启动所有服务...")

	if err := a.processDataUpdate(a.ctx); err != nil {
		logger.Warnf("Failed to initialize historical data: %v", err)
	}

	if a.telegramBot != nil {
		a.telegramBot.Start()
	}

	a.wg.Add(1)
	go a.dataMonitorLoop()

	a.scheduler.Start()

	fmt.Println("✅ 所有服务启动完成")
	fmt.Printf("⏰ 轮询间隔: %v\n", a.config.App.PollingInterval)
	fmt.Printf("🧹 清理计划: %s\n", a.config.App.CleanupCron)
	fmt.Println("💡 按 Ctrl+C 停止程序")
	fmt.Println("")
	return nil
}

// Stop 停止应用程序
func (a *App) Stop() error {
	fmt.Println("🛑 正在停止应用程序...")

	a.cancel()

	// 等待正在执行的定时任务
	<-a.scheduler.Stop().Done()

	if a.telegramBot != nil {
		a.telegramBot.Stop()
	}

	a.wg.Wait()

	a.cacheManager.Close()

	if err := a.store.Close(); err != nil {
		logger.Errorf("Failed to close database: %v", err)
	}

	fmt.Println("✅ 应用程序已安全停止")
	return nil
}

// generatorContext 当前的生成上下文：缓存中的最近历史、生成器配置、轮次号
func (a *App) generatorContext() (*predictor.GeneratorContext, error) {
	history, err := a.cacheManager.GetRecentRounds(a.config.App.HistoryLimit)
	if err != nil {
		return nil, err
	}
	return &predictor.GeneratorContext{
		History: history,
		Config:  a.config.Generator,
		Round:   atomic.LoadInt64(&a.round),
	}, nil
}

// dataMonitorLoop 数据监控循环
func (a *App) dataMonitorLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.App.PollingInterval)
	defer ticker.Stop()

	consecutiveErrors := 0

	for {
		select {
		case <-ticker.C:
			if err := a.processDataUpdate(a.ctx); err != nil {
				consecutiveErrors++
				// 只在第一次错误和每30次错误时显示
				if consecutiveErrors == 1 {
					fmt.Printf("⚠️  数据获取失败: %v\n", err)
				} else if consecutiveErrors%30 == 0 {
					fmt.Printf("❌ 连续失败 %d 次，仍在重试...\n", consecutiveErrors)
				}
			} else if consecutiveErrors > 0 {
				fmt.Printf("✅ 数据连接已恢复（失败了 %d 次）\n", consecutiveErrors)
				consecutiveErrors = 0
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// processDataUpdate 拉取开奖、保存新轮次、验证预测，有新轮次时生成下一轮预测
func (a *App) processDataUpdate(ctx context.Context) error {
	rounds, err := a.feed.FetchHistory(ctx, fetchWindow)
	if err != nil {
		if a.lastFeedError != err.Error() {
			logger.Errorf("History fetch failed: %v", err)
			a.lastFeedError = err.Error()
		}
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	a.lastFeedError = ""

	var latest *database.Round
	for i := range rounds {
		round := rounds[i]
		if round.RoundKey == "" {
			logger.Warnf("Skipping round without key or timestamp: %s", database.FormatNumbers(round.DrawnNumbers))
			continue
		}
		inserted, err := a.store.SaveRound(&round)
		if err != nil {
			return fmt.Errorf("failed to save round %s: %w", round.RoundKey, err)
		}
		if !inserted {
			continue
		}

		a.onNewRound(&round)
		latest = &round
	}

	if latest == nil {
		return nil
	}

	fmt.Printf("🎯 发现新开奖: %s - %s\n", latest.RoundKey, database.FormatNumbers(latest.DrawnNumbers))
	if _, err := a.generateNewPredictions(latest); err != nil {
		logger.Errorf("Failed to generate new predictions: %v", err)
		return err
	}
	return nil
}

// onNewRound 新轮次入库后：刷新缓存、验证上一轮的预测、推进轮次号
func (a *App) onNewRound(round *database.Round) {
	a.cacheManager.OnNewRound(round)

	a.mu.Lock()
	previous := a.latestKey
	a.latestKey = round.RoundKey
	a.mu.Unlock()

	if previous != "" {
		if err := a.verifyPreviousPredictions(predictor.NextRoundKey(previous), round); err != nil {
			logger.Warnf("Failed to verify previous predictions: %v", err)
		}
	}

	atomic.AddInt64(&a.round, 1)
}

// verifyPreviousPredictions 验证目标轮次的预测并记录各方法的对比结果
func (a *App) verifyPreviousPredictions(target string, round *database.Round) error {
	results, point, err := a.validator.VerifyRound(target, round)
	if err != nil {
		return err
	}
	if point == nil {
		return nil
	}

	a.facade.RecordComparison(*point)
	a.cacheManager.OnPredictionsChanged()

	for _, r := range results {
		logger.WithFields(map[string]interface{}{
			"round":  round.RoundKey,
			"method": r.Method,
			"hits":   r.Hits,
		}).Info("Prediction verified")
	}
	return nil
}

// generateNewPredictions 为下一轮生成每个配置方法的号码并保存、推送
func (a *App) generateNewPredictions(latest *database.Round) (map[predictor.Method][]int, error) {
	gctx, err := a.generatorContext()
	if err != nil {
		return nil, fmt.Errorf("failed to get history for prediction: %w", err)
	}

	target := predictor.NextRoundKey(latest.RoundKey)
	predictions := make(map[predictor.Method][]int, len(a.config.App.Methods))

	for _, name := range a.config.App.Methods {
		method, err := predictor.ParseMethod(name)
		if err != nil {
			logger.Warnf("Skipping configured method %q: %v", name, err)
			continue
		}

		nums, err := a.facade.Generate(method, a.config.Generator.Count, gctx)
		if err != nil {
			logger.Errorf("Failed to generate %s prediction: %v", method, err)
			continue
		}

		prediction := &database.Prediction{
			TargetRound: target,
			Method:      string(method),
			Numbers:     nums,
			PredictedAt: time.Now(),
		}
		if err := a.store.SavePrediction(prediction); err != nil {
			return nil, fmt.Errorf("failed to save prediction: %w", err)
		}
		predictions[method] = nums
	}

	a.cacheManager.OnPredictionsChanged()

	if a.broadcaster != nil {
		a.broadcaster.BroadcastPredictions(latest, target, predictions)
	}

	fmt.Printf("🔮 生成预测: %s (%d 种方法)\n", target, len(predictions))
	return predictions, nil
}

// cleanupJob 定期删除过期的轮次与预测
func (a *App) cleanupJob() {
	retention := time.Duration(a.config.App.DataRetentionHours) * time.Hour
	removed, err := a.store.CleanOldData(retention)
	if err != nil {
		fmt.Printf("❌ 数据清理失败: %v\n", err)
		return
	}

	a.cacheManager.OnPredictionsChanged()
	a.cacheManager.OnNewRound(nil)
	fmt.Printf("🧹 定期数据清理完成，删除 %d 条记录\n", removed)
}

// reportJob 定期输出健康状态、各方法的命中统计与趋势
func (a *App) reportJob() {
	health := a.HealthCheck(a.ctx)
	status, _ := health["status"].(string)
	a.mu.Lock()
	a.lastHealth = status
	a.mu.Unlock()

	if status != "ok" {
		logger.WithFields(map[string]interface{}{
			"status":   status,
			"services": health["services"],
		}).Warn("Health check degraded")
	} else {
		logger.WithFields(map[string]interface{}{
			"status": status,
			"round":  health["round"],
		}).Debug("Health check passed")
	}

	stats, err := a.statCalculator.CalculateStatistics()
	if err != nil {
		logger.Errorf("Failed to calculate statistics: %v", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"best_method":    stats.BestMethod,
		"total_verified": stats.TotalVerified,
	}).Info("Prediction report")

	points := a.facade.Comparisons().Points()
	window := a.config.Generator.Auto.Window
	for _, m := range predictor.AutoCandidates {
		trend := predictor.TrendAnalysis(points, m, window)
		if len(trend.Accuracy) == 0 {
			continue
		}
		logger.Infof("Trend %s: %s over %d verified rounds", m, trend.Direction, len(trend.Accuracy))
	}
}

// HealthCheck 健康检查
func (a *App) HealthCheck(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"timestamp": time.Now(),
		"status":    "ok",
		"round":     atomic.LoadInt64(&a.round),
	}
	services := map[string]interface{}{}
	health["services"] = services

	if client, ok := a.feed.(*api.Client); ok {
		if err := client.HealthCheck(ctx); err != nil {
			services["api"] = map[string]interface{}{"status": "error", "error": err.Error()}
			health["status"] = "degraded"
		} else {
			services["api"] = map[string]interface{}{"status": "ok", "stats": client.GetAPIStats()}
		}
	}

	if _, err := a.store.CountRounds(); err != nil {
		services["database"] = map[string]interface{}{"status": "error", "error": err.Error()}
		health["status"] = "degraded"
	} else {
		services["database"] = map[string]interface{}{"status": "ok"}
	}

	services["cache"] = map[string]interface{}{"status": "ok", "stats": a.cacheManager.GetStats()}

	if a.telegramBot != nil {
		services["telegram"] = map[string]interface{}{"status": "ok", "info": a.telegramBot.GetBotInfo()}
	}

	return health
}
