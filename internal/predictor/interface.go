package predictor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"keno-bot/internal/config"
	"keno-bot/internal/database"
)

// Method 号码生成方法
type Method string

const (
	MethodFrequency Method = "frequency"
	MethodCold      Method = "cold"
	MethodMixed     Method = "mixed"
	MethodAverage   Method = "average"
	MethodMomentum  Method = "momentum"
	MethodShapes    Method = "shapes"
	MethodAuto      Method = "auto"
	MethodRandom    Method = "random"
)

// ErrUnknownMethod 未注册的生成方法
var ErrUnknownMethod = errors.New("unknown generator method")

// ParseMethod 解析方法名（"hot"是frequency的别名）
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodFrequency, MethodCold, MethodMixed, MethodAverage,
		MethodMomentum, MethodShapes, MethodAuto, MethodRandom:
		return m, nil
	case "hot":
		return MethodFrequency, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMethod, s)
	}
}

// GeneratorContext 每次生成调用的显式上下文
type GeneratorContext struct {
	History []database.Round // 最旧在前
	Config  config.Generator
	Round   int64 // 当前轮次计数，用于缓存刷新判断
	Rand    Rand
}

func (g *GeneratorContext) rng() Rand {
	if g.Rand == nil {
		return globalRand{}
	}
	return g.Rand
}

func (g *GeneratorContext) sampleSize() int {
	if g.Config.SampleSize <= 0 {
		return 10
	}
	return g.Config.SampleSize
}

func (g *GeneratorContext) momentumOptions() MomentumOptions {
	m := g.Config.Momentum
	return MomentumOptions{
		SampleSize:      g.sampleSize(),
		DetectionWindow: m.DetectionWindow,
		BaselineWindow:  m.BaselineWindow,
		Threshold:       m.ThresholdValue(),
		PoolSize:        m.PoolSize,
	}
}

// Generator 号码生成器接口
type Generator interface {
	// Method 生成器对应的方法名
	Method() Method

	// Generate 根据上下文生成count个号码
	Generate(gctx *GeneratorContext, count int) []int
}

// Registry 生成器注册表
type Registry struct {
	mu         sync.RWMutex
	generators map[Method]Generator
}

// NewRegistry 创建空的注册表
func NewRegistry() *Registry {
	return &Registry{generators: make(map[Method]Generator)}
}

// Register 注册生成器（同名覆盖）
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Method()] = g
}

// Get 获取生成器
func (r *Registry) Get(method Method) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.generators[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	return g, nil
}

// Methods 已注册的方法（按名称排序）
func (r *Registry) Methods() []Method {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]Method, 0, len(r.generators))
	for m := range r.generators {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
