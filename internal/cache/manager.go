package cache

import (
	"errors"
	"fmt"
	"time"

	"powerball-bot/internal/database"
	"powerball-bot/internal/logger"
)

// 缓存键
const (
	keyLatestDrawing     = "drawings:latest"
	keyDrawingHistory    = "drawings:history:%d"
	keyLatestPredictions = "predictions:latest:%d"
	keyPredictionStats   = "stats:predictions"

	patternDrawings    = "drawings:*"
	patternPredictions = "predictions:*"
	patternStats       = "stats:*"
)

// ErrNoData 数据库中没有数据
var ErrNoData = errors.New("no data found")

// Store 缓存回源的数据库查询
type Store interface {
	GetLatestDrawings(limit int) ([]database.Drawing, error)
	GetLatestPredictions(limit int) ([]database.PredictionRecord, error)
	GetPredictionStats() (*database.PredictionStats, error)
}

// CacheManager 内存缓存 + MySQL 回源
type CacheManager struct {
	memory     *MemoryCache
	store      Store
	defaultTTL time.Duration
}

// NewCacheManager 创建新的缓存管理器
func NewCacheManager(store Store, defaultTTL time.Duration) *CacheManager {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}

	manager := &CacheManager{
		memory:     NewMemoryCache(1000, defaultTTL),
		store:      store,
		defaultTTL: defaultTTL,
	}

	logger.Info("Cache manager initialized with Memory + MySQL")
	return manager
}

// Close 关闭缓存管理器
func (cm *CacheManager) Close() error {
	cm.memory.Close()
	logger.Info("Cache manager closed")
	return nil
}

// getOrLoad 先读内存缓存，未命中时回源并回填
func getOrLoad[T any](cm *CacheManager, key string, load func() (T, error)) (T, error) {
	var value T
	if err := cm.memory.Get(key, &value); err == nil {
		return value, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := cm.memory.Set(key, value, cm.defaultTTL); err != nil {
		logger.Warnf("Failed to set memory cache %s: %v", key, err)
	}
	return value, nil
}

// GetDrawingHistory 获取最近 limit 期开奖，最新在前
func (cm *CacheManager) GetDrawingHistory(limit int) ([]database.Drawing, error) {
	return getOrLoad(cm, fmt.Sprintf(keyDrawingHistory, limit), func() ([]database.Drawing, error) {
		history, err := cm.store.GetLatestDrawings(limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get drawing history from database: %w", err)
		}
		return history, nil
	})
}

// GetLatestDrawing 获取最新一期开奖
func (cm *CacheManager) GetLatestDrawing() (*database.Drawing, error) {
	d, err := getOrLoad(cm, keyLatestDrawing, func() (database.Drawing, error) {
		drawings, err := cm.store.GetLatestDrawings(1)
		if err != nil {
			return database.Drawing{}, fmt.Errorf("failed to get latest drawing from database: %w", err)
		}
		if len(drawings) == 0 {
			return database.Drawing{}, fmt.Errorf("latest drawing: %w", ErrNoData)
		}
		return drawings[0], nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetLatestPredictions 获取最近的预测记录
func (cm *CacheManager) GetLatestPredictions(limit int) ([]database.PredictionRecord, error) {
	return getOrLoad(cm, fmt.Sprintf(keyLatestPredictions, limit), func() ([]database.PredictionRecord, error) {
		records, err := cm.store.GetLatestPredictions(limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get predictions from database: %w", err)
		}
		return records, nil
	})
}

// GetPredictionStats 获取预测统计
func (cm *CacheManager) GetPredictionStats() (*database.PredictionStats, error) {
	stats, err := getOrLoad(cm, keyPredictionStats, func() (database.PredictionStats, error) {
		s, err := cm.store.GetPredictionStats()
		if err != nil {
			return database.PredictionStats{}, fmt.Errorf("failed to get prediction stats from database: %w", err)
		}
		return *s, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// OnNewDrawing 新开奖入库后失效开奖相关缓存并写入最新一期
func (cm *CacheManager) OnNewDrawing(d *database.Drawing) {
	cm.memory.DeletePattern(patternDrawings)
	cm.memory.DeletePattern(patternStats)

	if err := cm.memory.Set(keyLatestDrawing, d, cm.defaultTTL); err != nil {
		logger.Warnf("Failed to cache latest drawing: %v", err)
	}
	logger.Infof("Cache updated for new drawing: %s", d.DateString())
}

// OnPredictionBatch 新一批预测入库后失效预测缓存
func (cm *CacheManager) OnPredictionBatch(records []database.PredictionRecord) {
	cm.memory.DeletePattern(patternPredictions)
	cm.memory.DeletePattern(patternStats)

	if len(records) > 0 {
		logger.Infof("Cache invalidated for prediction batch %s (%d sets)", records[0].BatchID, len(records))
	}
}

// OnPredictionsScored 预测验证后失效统计与预测缓存
func (cm *CacheManager) OnPredictionsScored(count int) {
	cm.memory.DeletePattern(patternPredictions)
	cm.memory.DeletePattern(patternStats)
	logger.Infof("Cache invalidated after scoring %d predictions", count)
}

// GetStats 获取缓存统计信息
func (cm *CacheManager) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"memory_cache": cm.memory.Stats(),
		"cache_layers": 2, // Memory + MySQL
	}
}
