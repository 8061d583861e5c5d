package predictor

import (
	"fmt"
	"math/rand"

	"powerball-bot/internal/database"
)

// Strategy 预测算法接口
type Strategy interface {
	// ID 算法标识
	ID() StrategyID

	// Name 算法描述名称
	Name() string

	// Generate 根据历史数据（最新在前）生成一组候选号码
	Generate(history []database.Drawing, rng *rand.Rand) (Candidate, error)
}

// Registry 有序的算法注册表，顺序决定轮询组装时的槽位
type Registry struct {
	strategies []Strategy
	index      map[StrategyID]int
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{index: make(map[StrategyID]int)}
}

// NewDefaultRegistry 按默认顺序注册六个内置算法
func NewDefaultRegistry(cfg Config) *Registry {
	r := NewRegistry()
	r.Register(NewEWMAStrategy(cfg.Alpha))
	r.Register(NewNeuralStrategy(cfg.NeuralSeed))
	r.Register(NewPairStrategy())
	r.Register(NewGapStrategy())
	r.Register(NewMarkovStrategy())
	r.Register(NewSumRangeStrategy())
	return r
}

// Register 注册算法；同ID算法原位替换，否则追加到末尾
func (r *Registry) Register(s Strategy) {
	if i, exists := r.index[s.ID()]; exists {
		r.strategies[i] = s
		return
	}
	r.index[s.ID()] = len(r.strategies)
	r.strategies = append(r.strategies, s)
}

// Get 获取指定算法
func (r *Registry) Get(id StrategyID) (Strategy, error) {
	i, exists := r.index[id]
	if !exists {
		return nil, fmt.Errorf("strategy not found: %s", id)
	}
	return r.strategies[i], nil
}

// Strategies 按槽位顺序返回所有算法
func (r *Registry) Strategies() []Strategy {
	return append([]Strategy(nil), r.strategies...)
}

// IDs 按槽位顺序返回算法标识
func (r *Registry) IDs() []StrategyID {
	ids := make([]StrategyID, len(r.strategies))
	for i, s := range r.strategies {
		ids[i] = s.ID()
	}
	return ids
}

// Len 已注册算法数量
func (r *Registry) Len() int {
	return len(r.strategies)
}
