package predictor

import (
	"fmt"
	"sync"

	"keno-bot/internal/cache"
	"keno-bot/internal/config"
	"keno-bot/internal/logger"
)

// Facade 统一的号码生成入口，按轮次间隔缓存结果
type Facade struct {
	mu          sync.Mutex
	registry    *Registry
	cache       *cache.RoundCache
	selector    *ShapeSelector
	comparisons *ComparisonLog
}

// NewFacade 创建生成器门面并注册全部内置方法
func NewFacade() *Facade {
	f := &Facade{
		registry:    NewRegistry(),
		cache:       cache.NewRoundCache(),
		selector:    NewShapeSelector(),
		comparisons: NewComparisonLog(0),
	}

	f.registry.Register(frequencyGenerator{})
	f.registry.Register(coldGenerator{})
	f.registry.Register(mixedGenerator{})
	f.registry.Register(averageGenerator{})
	f.registry.Register(momentumGenerator{})
	f.registry.Register(randomGenerator{})
	f.registry.Register(shapesGenerator{selector: f.selector})
	f.registry.Register(autoGenerator{registry: f.registry, comparisons: f.comparisons})

	logger.Infof("Generator facade initialized with methods: %v", f.registry.Methods())
	return f
}

// Register 注册或替换生成器
func (f *Facade) Register(g Generator) {
	f.registry.Register(g)
	f.cache.InvalidatePattern(string(g.Method()) + "|*")
}

// Methods 可用的方法
func (f *Facade) Methods() []Method {
	return f.registry.Methods()
}

// Selector 图形选择器
func (f *Facade) Selector() *ShapeSelector {
	return f.selector
}

// Comparisons 方法对比记录
func (f *Facade) Comparisons() *ComparisonLog {
	return f.comparisons
}

// RecordComparison 记录一轮对比结果；auto的缓存随之失效
func (f *Facade) RecordComparison(p ComparisonPoint) {
	f.comparisons.Add(p)
	f.cache.InvalidatePattern(string(MethodAuto) + "|*")
}

// Generate 返回缓存中仍有效的号码，否则重新生成
func (f *Facade) Generate(method Method, count int, gctx *GeneratorContext) ([]int, error) {
	return f.generate(method, count, gctx, false)
}

// Refresh 忽略缓存强制重新生成该方法的号码
func (f *Facade) Refresh(method Method, count int, gctx *GeneratorContext) ([]int, error) {
	return f.generate(method, count, gctx, true)
}

// ForceRefresh 清空全部缓存，下次调用必定重新生成
func (f *Facade) ForceRefresh() {
	f.cache.Clear()
	logger.Info("Generator cache cleared")
}

// CacheState 查询某次调用对应的缓存状态
func (f *Facade) CacheState(method Method, count int, gctx *GeneratorContext) cache.State {
	gctx = normalizeContext(gctx)
	count = resolveCount(count, gctx.Config)
	_, state := f.cache.Lookup(cacheKey(method, count, gctx.Config), gctx.Round, refreshInterval(method, gctx.Config))
	return state
}

func (f *Facade) generate(method Method, count int, gctx *GeneratorContext, force bool) ([]int, error) {
	gctx = normalizeContext(gctx)
	count = resolveCount(count, gctx.Config)

	g, err := f.registry.Get(method)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := cacheKey(method, count, gctx.Config)
	interval := refreshInterval(method, gctx.Config)
	if !force {
		if nums, state := f.cache.Lookup(key, gctx.Round, interval); state == cache.StateValid {
			logger.Debugf("Generator cache hit: %s (round %d)", key, gctx.Round)
			return nums, nil
		}
	}

	nums := g.Generate(gctx, count)
	f.cache.Store(key, nums, gctx.Round)
	logger.WithFields(map[string]interface{}{
		"method": method,
		"count":  count,
		"round":  gctx.Round,
	}).Debugf("Generated numbers: %v", nums)
	return append([]int(nil), nums...), nil
}

func normalizeContext(gctx *GeneratorContext) *GeneratorContext {
	if gctx == nil {
		return &GeneratorContext{Config: config.DefaultGenerator()}
	}
	return gctx
}

func resolveCount(count int, cfg config.Generator) int {
	if count <= 0 {
		count = cfg.Count
	}
	return ClampCount(count)
}

// refreshInterval momentum使用自己的刷新频率，其余方法使用全局间隔
func refreshInterval(method Method, cfg config.Generator) int {
	if method == MethodMomentum && cfg.Momentum.RefreshFrequency > 0 {
		return cfg.Momentum.RefreshFrequency
	}
	if cfg.Interval < 0 {
		return 0
	}
	return cfg.Interval
}

func cacheKey(method Method, count int, cfg config.Generator) string {
	return fmt.Sprintf("%s|%d|%s", method, count, cfg.Signature())
}
