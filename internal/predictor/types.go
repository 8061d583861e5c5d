package predictor

import (
	"errors"
	"time"
)

// StrategyID 算法标识
type StrategyID string

const (
	StrategyEWMA   StrategyID = "ewma"
	StrategyNeural StrategyID = "neural"
	StrategyPairs  StrategyID = "pairs"
	StrategyGaps   StrategyID = "gaps"
	StrategyMarkov StrategyID = "markov"
	StrategySum    StrategyID = "sum"
	StrategyRandom StrategyID = "random"
)

// DefaultStrategyOrder 轮询组装时的算法顺序
var DefaultStrategyOrder = []StrategyID{
	StrategyEWMA,
	StrategyNeural,
	StrategyPairs,
	StrategyGaps,
	StrategyMarkov,
	StrategySum,
}

// 权重与置信度范围
const (
	MinWeight     = 0.05
	MaxWeight     = 0.25
	MinConfidence = 65
	MaxConfidence = 95
)

const (
	numbersPerSet = 5
	maxMainNumber = 69
	maxPowerball  = 26
	highThreshold = 35
)

var (
	// ErrInsufficientHistory 历史数据不足或格式不合法
	ErrInsufficientHistory = errors.New("insufficient or malformed drawing history")
	// ErrStrategyFailed 单个算法执行失败
	ErrStrategyFailed = errors.New("strategy failed")
)

// Candidate 单个算法的原始输出
type Candidate struct {
	Numbers   []int
	Powerball int
	Analysis  string
}

// Metadata 预测号码的衍生统计
type Metadata struct {
	Sum       int `json:"sum"`
	EvenCount int `json:"even_count"`
	OddCount  int `json:"odd_count"`
	LowCount  int `json:"low_count"`
	HighCount int `json:"high_count"`
	Range     int `json:"range"`
}

// Prediction 一组预测号码
type Prediction struct {
	BatchID    string     `json:"batch_id"`
	SlotIndex  int        `json:"slot_index"`
	Numbers    []int      `json:"numbers"`
	Powerball  int        `json:"powerball"`
	Confidence int        `json:"confidence"`
	StrategyID StrategyID `json:"strategy_id"`
	Weight     float64    `json:"weight"`
	Analysis   string     `json:"analysis"`
	Metadata   Metadata   `json:"metadata"`
	Timestamp  time.Time  `json:"timestamp"`
}

func (p Prediction) clone() Prediction {
	p.Numbers = append([]int(nil), p.Numbers...)
	return p
}

// StrategyBase 算法的初始权重、成功率与平均置信度
type StrategyBase struct {
	Weight            float64
	SuccessRate       float64
	AverageConfidence float64
	// Restored 为 true 表示成功率来自表现快照，0 也是有效值
	Restored bool
}

// Config 预测引擎配置
type Config struct {
	// Alpha EWMA 平滑系数
	Alpha float64
	// PerformanceWindow 每个算法保留的最近命中得分数量
	PerformanceWindow int
	// HistoryCapacity 预测历史环形缓冲容量
	HistoryCapacity int
	// MinHistory 可用历史的最少期数
	MinHistory int
	// Seed 为0时使用当前时间
	Seed int64
	// NeuralSeed 固定随机投影的种子
	NeuralSeed int64
	Strategies map[StrategyID]StrategyBase
}

// DefaultConfig 默认引擎配置
func DefaultConfig() Config {
	return Config{
		Alpha:             0.1,
		PerformanceWindow: 20,
		HistoryCapacity:   100,
		MinHistory:        10,
		NeuralSeed:        42,
		Strategies: map[StrategyID]StrategyBase{
			StrategyEWMA:   {Weight: 0.20, SuccessRate: 0.15, AverageConfidence: 78},
			StrategyNeural: {Weight: 0.18, SuccessRate: 0.14, AverageConfidence: 82},
			StrategyPairs:  {Weight: 0.17, SuccessRate: 0.13, AverageConfidence: 75},
			StrategyGaps:   {Weight: 0.15, SuccessRate: 0.12, AverageConfidence: 73},
			StrategyMarkov: {Weight: 0.16, SuccessRate: 0.13, AverageConfidence: 76},
			StrategySum:    {Weight: 0.14, SuccessRate: 0.11, AverageConfidence: 71},
		},
	}
}

// withDefaults 用默认值补全未设置的字段
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = def.Alpha
	}
	if c.PerformanceWindow <= 0 {
		c.PerformanceWindow = def.PerformanceWindow
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = def.HistoryCapacity
	}
	if c.MinHistory <= 0 {
		c.MinHistory = def.MinHistory
	}
	if c.NeuralSeed == 0 {
		c.NeuralSeed = def.NeuralSeed
	}

	merged := make(map[StrategyID]StrategyBase, len(def.Strategies))
	for id, base := range def.Strategies {
		if override, ok := c.Strategies[id]; ok {
			if override.Weight != 0 {
				base.Weight = clampFloat(override.Weight, MinWeight, MaxWeight)
			}
			if override.SuccessRate != 0 || override.Restored {
				base.SuccessRate = clampFloat(override.SuccessRate, 0, 1)
			}
			if override.AverageConfidence != 0 {
				base.AverageConfidence = override.AverageConfidence
			}
		}
		merged[id] = base
	}
	c.Strategies = merged
	return c
}

// IsKnownStrategy 是否为内置算法
func IsKnownStrategy(id StrategyID) bool {
	for _, known := range DefaultStrategyOrder {
		if id == known {
			return true
		}
	}
	return false
}
