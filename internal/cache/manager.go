package cache

import (
	"fmt"
	"time"

	"keno-bot/internal/database"
	"keno-bot/internal/logger"
)

// Store 缓存管理器依赖的持久层
type Store interface {
	GetRecentRounds(limit int) ([]database.Round, error)
	GetLatestPredictions(limit int) ([]database.Prediction, error)
	GetMethodStats() ([]database.MethodStats, error)
}

const (
	keyRounds      = "rounds:%d"
	keyPredictions = "predictions:%d"
	keyStats       = "stats:methods"
)

// CacheManager 数据库读取的内存缓存层
type CacheManager struct {
	memory     *MemoryCache
	store      Store
	defaultTTL time.Duration
}

// NewCacheManager 创建新的缓存管理器
func NewCacheManager(store Store, defaultTTL time.Duration) *CacheManager {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	manager := &CacheManager{
		memory:     NewMemoryCache(1000, 5*time.Minute),
		store:      store,
		defaultTTL: defaultTTL,
	}

	logger.Info("Cache manager initialized")
	return manager
}

// Close 关闭缓存管理器
func (cm *CacheManager) Close() {
	cm.memory.Close()
	logger.Info("Cache manager closed")
}

// GetRecentRounds 最近limit轮开奖（最旧在前）
func (cm *CacheManager) GetRecentRounds(limit int) ([]database.Round, error) {
	key := fmt.Sprintf(keyRounds, limit)
	if v, ok := cm.memory.Get(key); ok {
		return append([]database.Round(nil), v.([]database.Round)...), nil
	}

	rounds, err := cm.store.GetRecentRounds(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent rounds: %w", err)
	}
	cm.memory.Set(key, rounds, cm.defaultTTL)
	return append([]database.Round(nil), rounds...), nil
}

// GetLatestPredictions 最近的预测记录
func (cm *CacheManager) GetLatestPredictions(limit int) ([]database.Prediction, error) {
	key := fmt.Sprintf(keyPredictions, limit)
	if v, ok := cm.memory.Get(key); ok {
		return append([]database.Prediction(nil), v.([]database.Prediction)...), nil
	}

	predictions, err := cm.store.GetLatestPredictions(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}
	cm.memory.Set(key, predictions, cm.defaultTTL)
	return append([]database.Prediction(nil), predictions...), nil
}

// GetMethodStats 各方法命中统计
func (cm *CacheManager) GetMethodStats() ([]database.MethodStats, error) {
	if v, ok := cm.memory.Get(keyStats); ok {
		return append([]database.MethodStats(nil), v.([]database.MethodStats)...), nil
	}

	stats, err := cm.store.GetMethodStats()
	if err != nil {
		return nil, fmt.Errorf("failed to load method stats: %w", err)
	}
	cm.memory.Set(keyStats, stats, cm.defaultTTL)
	return append([]database.MethodStats(nil), stats...), nil
}

// OnNewRound 新开奖入库后失效开奖缓存
func (cm *CacheManager) OnNewRound(round *database.Round) {
	n := cm.memory.DeletePattern("rounds:*")
	if round != nil {
		logger.Debugf("Cache invalidated for new round %s (%d entries)", round.RoundKey, n)
	}
}

// OnPredictionsChanged 预测写入或验证后失效预测与统计缓存
func (cm *CacheManager) OnPredictionsChanged() {
	cm.memory.DeletePattern("predictions:*")
	cm.memory.Delete(keyStats)
}

// GetStats 获取缓存统计信息
func (cm *CacheManager) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"memory_cache": cm.memory.Stats(),
	}
}
