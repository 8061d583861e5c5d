package predictor

import (
	"powerball-bot/internal/logger"
)

const (
	weightBoost        = 1.05
	weightPenalty      = 0.95
	boostSuccessRate   = 0.2
	penaltySuccessRate = 0.1
	defaultUnknownBase = 0.15
	defaultUnknownConf = 75
	defaultUnknownRate = 0.12
)

// AlgorithmPerformance 单个算法的表现状态
type AlgorithmPerformance struct {
	StrategyID         StrategyID `json:"strategy_id"`
	Weight             float64    `json:"weight"`
	SuccessRate        float64    `json:"success_rate"`
	AverageConfidence  float64    `json:"average_confidence"`
	RecentHits         []float64  `json:"recent_hits"`
	TotalPredictions   int        `json:"total_predictions"`
	CorrectPredictions float64    `json:"correct_predictions"`
}

// PerformanceTracker 维护各算法的权重与成功率。非并发安全，由 Engine 加锁保护。
type PerformanceTracker struct {
	window   int
	order    []StrategyID
	perf     map[StrategyID]*AlgorithmPerformance
	feedback int
}

// NewPerformanceTracker 按初始配置创建表现跟踪器
func NewPerformanceTracker(window int, bases map[StrategyID]StrategyBase, order []StrategyID) *PerformanceTracker {
	t := &PerformanceTracker{
		window: window,
		perf:   make(map[StrategyID]*AlgorithmPerformance, len(order)),
	}
	for _, id := range order {
		base, ok := bases[id]
		if !ok {
			base = StrategyBase{Weight: defaultUnknownBase, SuccessRate: defaultUnknownRate, AverageConfidence: defaultUnknownConf}
		}
		t.add(id, base)
	}
	return t
}

func (t *PerformanceTracker) add(id StrategyID, base StrategyBase) *AlgorithmPerformance {
	p := &AlgorithmPerformance{
		StrategyID:        id,
		Weight:            clampFloat(base.Weight, MinWeight, MaxWeight),
		SuccessRate:       base.SuccessRate,
		AverageConfidence: base.AverageConfidence,
		RecentHits:        make([]float64, 0, t.window),
	}
	t.perf[id] = p
	t.order = append(t.order, id)
	return p
}

// ensure 获取算法状态，不存在时按默认值创建
func (t *PerformanceTracker) ensure(id StrategyID) *AlgorithmPerformance {
	if p, ok := t.perf[id]; ok {
		return p
	}
	return t.add(id, StrategyBase{Weight: defaultUnknownBase, SuccessRate: defaultUnknownRate, AverageConfidence: defaultUnknownConf})
}

// Get 返回算法状态副本
func (t *PerformanceTracker) Get(id StrategyID) (AlgorithmPerformance, bool) {
	p, ok := t.perf[id]
	if !ok {
		return AlgorithmPerformance{}, false
	}
	return p.snapshot(), true
}

// Record 记录一次命中得分，超出窗口时淘汰最旧的得分
func (t *PerformanceTracker) Record(id StrategyID, score float64) {
	p := t.ensure(id)
	if len(p.RecentHits) >= t.window {
		copy(p.RecentHits, p.RecentHits[1:])
		p.RecentHits = p.RecentHits[:len(p.RecentHits)-1]
	}
	p.RecentHits = append(p.RecentHits, score)
	p.TotalPredictions++
	p.CorrectPredictions += score
	t.feedback++
}

// Update 以最近得分均值刷新成功率，并据此调整权重
func (t *PerformanceTracker) Update() {
	for _, id := range t.order {
		p := t.perf[id]
		if len(p.RecentHits) == 0 {
			continue
		}

		var total float64
		for _, h := range p.RecentHits {
			total += h
		}
		p.SuccessRate = total / float64(len(p.RecentHits))

		switch {
		case p.SuccessRate > boostSuccessRate:
			p.Weight = min(p.Weight*weightBoost, MaxWeight)
		case p.SuccessRate < penaltySuccessRate:
			p.Weight = max(p.Weight*weightPenalty, MinWeight)
		}
	}
	logger.Debugf("Performance metrics updated for %d strategies", len(t.order))
}

// HasFeedback 是否已收到过实际开奖反馈
func (t *PerformanceTracker) HasFeedback() bool {
	return t.feedback > 0
}

// Snapshot 按注册顺序返回所有算法状态副本
func (t *PerformanceTracker) Snapshot() []AlgorithmPerformance {
	out := make([]AlgorithmPerformance, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.perf[id].snapshot())
	}
	return out
}

func (p *AlgorithmPerformance) snapshot() AlgorithmPerformance {
	cp := *p
	cp.RecentHits = append([]float64(nil), p.RecentHits...)
	return cp
}
