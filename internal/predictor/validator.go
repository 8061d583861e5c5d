package predictor

import (
	"fmt"
	"time"

	"powerball-bot/internal/database"
	"powerball-bot/internal/logger"
)

// PredictionStore 验证器所需的持久化操作
type PredictionStore interface {
	GetUnverifiedPredictions() ([]database.PredictionRecord, error)
	UpdatePredictionScore(id int64, actualNumbers []int, actualPowerball int, matchScore float64) error
}

// ValidationResult 单条预测的验证结果
type ValidationResult struct {
	PredictionID     int64      `json:"prediction_id"`
	BatchID          string     `json:"batch_id"`
	StrategyID       StrategyID `json:"strategy_id"`
	MatchedNumbers   []int      `json:"matched_numbers"`
	PowerballMatch   bool       `json:"powerball_match"`
	MatchScore       float64    `json:"match_score"`
	PredictedNumbers []int      `json:"predicted_numbers"`
	ActualNumbers    []int      `json:"actual_numbers"`
	ValidationTime   time.Time  `json:"validation_time"`
}

// Validator 将已保存的预测与实际开奖比对并写回得分
type Validator struct {
	store PredictionStore
}

// NewValidator 创建新的验证器
func NewValidator(store PredictionStore) *Validator {
	return &Validator{store: store}
}

// ValidateDrawing 为开奖前生成且尚未验证的预测打分
func (v *Validator) ValidateDrawing(actual *database.Drawing) ([]ValidationResult, error) {
	if !actual.IsValid() {
		return nil, fmt.Errorf("invalid actual drawing %s: %w", actual.DateString(), database.ErrInvalidNumbers)
	}

	pending, err := v.store.GetUnverifiedPredictions()
	if err != nil {
		return nil, fmt.Errorf("failed to get unverified predictions: %w", err)
	}

	var results []ValidationResult
	for _, record := range pending {
		if !targetsDrawing(record, actual) {
			continue
		}

		result := v.performDetailedValidation(record, actual)
		if err := v.store.UpdatePredictionScore(record.ID, actual.Numbers, actual.Powerball, result.MatchScore); err != nil {
			logger.Warnf("Failed to store score for prediction %d: %v", record.ID, err)
			continue
		}
		results = append(results, result)
	}

	logger.Infof("Validated %d predictions against drawing %s", len(results), actual.DateString())
	return results, nil
}

// targetsDrawing 预测基于更早的开奖生成时才以这期为目标。
// 基于本期生成的预测属于下一期，保持未验证。
func targetsDrawing(record database.PredictionRecord, actual *database.Drawing) bool {
	drawDate := actual.DateString()
	if !record.SourceDrawDate.IsZero() {
		return database.FormatDrawDate(record.SourceDrawDate) < drawDate
	}
	// 旧记录没有来源日期，只认开奖日之前生成的
	return database.FormatDrawDate(record.PredictedAt) < drawDate
}

// performDetailedValidation 计算命中号码与得分
func (v *Validator) performDetailedValidation(record database.PredictionRecord, actual *database.Drawing) ValidationResult {
	actualSet := make(map[int]bool, len(actual.Numbers))
	for _, n := range actual.Numbers {
		actualSet[n] = true
	}

	var matched []int
	for _, n := range record.Numbers {
		if actualSet[n] {
			matched = append(matched, n)
		}
	}

	return ValidationResult{
		PredictionID:     record.ID,
		BatchID:          record.BatchID,
		StrategyID:       StrategyID(record.StrategyID),
		MatchedNumbers:   matched,
		PowerballMatch:   record.Powerball == actual.Powerball,
		MatchScore:       CalculateMatchScore(record.Numbers, record.Powerball, actual.Numbers, actual.Powerball),
		PredictedNumbers: record.Numbers,
		ActualNumbers:    actual.Numbers,
		ValidationTime:   time.Now(),
	}
}

// StatsStore 统计计算所需的查询
type StatsStore interface {
	GetPredictionStats() (*database.PredictionStats, error)
	GetStrategyStats() ([]database.StrategyStats, error)
	GetLatestPredictions(limit int) ([]database.PredictionRecord, error)
}

// Statistics 统计信息
type Statistics struct {
	Overall           database.PredictionStats `json:"overall"`
	Strategies        []database.StrategyStats `json:"strategies"`
	MatchDistribution map[int]int              `json:"match_distribution"` // 命中主号码个数 -> 预测数
	PowerballHits     int                      `json:"powerball_hits"`
	LastUpdateTime    time.Time                `json:"last_update_time"`
}

// StatisticsCalculator 统计计算器
type StatisticsCalculator struct {
	store StatsStore
}

// NewStatisticsCalculator 创建统计计算器
func NewStatisticsCalculator(store StatsStore) *StatisticsCalculator {
	return &StatisticsCalculator{store: store}
}

// CalculateStatistics 计算统计信息
func (sc *StatisticsCalculator) CalculateStatistics() (*Statistics, error) {
	logger.Debug("Calculating prediction statistics")

	overall, err := sc.store.GetPredictionStats()
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction stats from database: %w", err)
	}

	strategies, err := sc.store.GetStrategyStats()
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy stats from database: %w", err)
	}

	// 分析最近200条记录的命中分布
	records, err := sc.store.GetLatestPredictions(200)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction details: %w", err)
	}

	stats := &Statistics{
		Overall:           *overall,
		Strategies:        strategies,
		MatchDistribution: make(map[int]int),
		LastUpdateTime:    time.Now(),
	}
	sc.calculateDetailedStats(records, stats)

	logger.Infof("Statistics calculated: verified=%d, avg score=%.3f",
		stats.Overall.VerifiedPredictions, stats.Overall.AverageMatchScore)
	return stats, nil
}

// calculateDetailedStats 统计命中分布
func (sc *StatisticsCalculator) calculateDetailedStats(records []database.PredictionRecord, stats *Statistics) {
	for _, r := range records {
		if !r.IsVerified() || r.ActualPowerball == nil {
			continue
		}
		matched := 0
		for _, n := range r.Numbers {
			if containsInt(r.ActualNumbers, n) {
				matched++
			}
		}
		stats.MatchDistribution[matched]++
		if r.Powerball == *r.ActualPowerball {
			stats.PowerballHits++
		}
	}
}

// GetTrendAnalysis 获取趋势分析
func (sc *StatisticsCalculator) GetTrendAnalysis(window int) (map[string]interface{}, error) {
	records, err := sc.store.GetLatestPredictions(100)
	if err != nil {
		return nil, fmt.Errorf("failed to get predictions for trend analysis: %w", err)
	}

	// 记录按时间倒序返回，翻转为正序
	var scores []float64
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].MatchScore != nil {
			scores = append(scores, *records[i].MatchScore)
		}
	}

	movingAverage := calculateMovingAverage(scores, window)

	return map[string]interface{}{
		"recent_scores":   scores,
		"moving_average":  movingAverage,
		"trend_direction": analyzeTrendDirection(movingAverage),
		"analysis_time":   time.Now(),
	}, nil
}

// calculateMovingAverage 计算移动平均
func calculateMovingAverage(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}

	movingAvg := make([]float64, 0, len(values)-window+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			movingAvg = append(movingAvg, sum/float64(window))
		}
	}
	return movingAvg
}

// analyzeTrendDirection 分析趋势方向
func analyzeTrendDirection(movingAverage []float64) string {
	if len(movingAverage) < 2 {
		return "insufficient_data"
	}

	recent := movingAverage[len(movingAverage)-1]
	previous := movingAverage[len(movingAverage)-2]

	const tolerance = 0.01
	if recent > previous+tolerance {
		return "improving"
	} else if recent < previous-tolerance {
		return "declining"
	}
	return "stable"
}
