package predictor

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"powerball-bot/internal/database"
	"powerball-bot/internal/logger"
)

// Engine 集成预测引擎。所有可变状态（表现跟踪、预测历史、最近批次）由一把锁保护。
type Engine struct {
	mu sync.Mutex

	cfg      Config
	rng      *rand.Rand
	now      func() time.Time
	registry *Registry
	tracker  *PerformanceTracker

	history   *Ring[Prediction]
	lastBatch []Prediction
}

// Option 引擎构造选项
type Option func(*Engine)

// WithRand 注入随机源，便于测试复现
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine 创建预测引擎
func NewEngine(cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:      cfg,
		now:      time.Now,
		registry: NewDefaultRegistry(cfg),
		history:  NewRing[Prediction](cfg.HistoryCapacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		e.rng = rand.New(rand.NewSource(seed))
	}
	e.tracker = NewPerformanceTracker(cfg.PerformanceWindow, cfg.Strategies, e.registry.IDs())

	logger.Infof("Prediction engine initialized: %d strategies, alpha=%.2f, window=%d",
		e.registry.Len(), cfg.Alpha, cfg.PerformanceWindow)
	return e
}

// RegisterStrategy 注册或替换算法
func (e *Engine) RegisterStrategy(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Register(s)
	e.tracker.ensure(s.ID())
}

// Strategies 当前槽位顺序的算法标识
func (e *Engine) Strategies() []StrategyID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.IDs()
}

type strategyResult struct {
	id        StrategyID
	candidate Candidate
	err       error
}

// GenerateEnsemblePrediction 运行全部算法并按 i mod 算法数 轮询组装 requestedSets 组预测。
// 历史不可用、单个算法失败或结果不合法时以随机预测替代，不会返回错误。
// 结果记入预测历史，并作为下一次 RecordActualDrawing 评估的批次。
func (e *Engine) GenerateEnsemblePrediction(history []database.Drawing, requestedSets int) []Prediction {
	if requestedSets <= 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	predictions := e.generate(history, requestedSets)
	for i := range predictions {
		e.history.Push(predictions[i].clone())
	}

	e.lastBatch = make([]Prediction, len(predictions))
	for i := range predictions {
		e.lastBatch[i] = predictions[i].clone()
	}

	logger.Infof("Generated prediction batch %s: %d sets from %d drawings", predictions[0].BatchID, len(predictions), len(history))
	return predictions
}

// PreviewEnsemblePrediction 与 GenerateEnsemblePrediction 相同的组装方式，
// 但不记入预测历史，也不替换待评估批次。用于按需查询。
func (e *Engine) PreviewEnsemblePrediction(history []database.Drawing, requestedSets int) []Prediction {
	if requestedSets <= 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	predictions := e.generate(history, requestedSets)
	logger.Debugf("Generated preview batch %s: %d sets", predictions[0].BatchID, len(predictions))
	return predictions
}

// generate 调用方需持有锁
func (e *Engine) generate(history []database.Drawing, requestedSets int) []Prediction {
	var predictions []Prediction
	if !isHistoryUsable(history, e.cfg.MinHistory) || e.registry.Len() == 0 {
		logger.Warnf("History unusable (%d drawings), generating %d fallback predictions", len(history), requestedSets)
		predictions = GenerateFallbackPredictions(e.rng, requestedSets)
	} else {
		predictions = e.assemble(e.runStrategies(history), requestedSets)
	}

	batchID := uuid.NewString()
	timestamp := e.now()
	for i := range predictions {
		predictions[i].BatchID = batchID
		predictions[i].SlotIndex = i
		predictions[i].Timestamp = timestamp
		predictions[i].Metadata = BuildMetadata(predictions[i].Numbers)
	}
	return predictions
}

// runStrategies 每个算法运行一次，失败（包括 panic）互不影响
func (e *Engine) runStrategies(history []database.Drawing) []strategyResult {
	strategies := e.registry.Strategies()
	results := make([]strategyResult, len(strategies))
	for i, s := range strategies {
		c, err := e.safeGenerate(s, history)
		if err != nil {
			logger.Warnf("Strategy %s failed, using fallback: %v", s.ID(), err)
		}
		results[i] = strategyResult{id: s.ID(), candidate: c, err: err}
	}
	return results
}

func (e *Engine) safeGenerate(s Strategy, history []database.Drawing) (c Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrStrategyFailed, s.ID(), r)
		}
	}()

	c, err = s.Generate(history, e.rng)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %s: %v", ErrStrategyFailed, s.ID(), err)
	}
	return c, nil
}

func (e *Engine) assemble(results []strategyResult, requestedSets int) []Prediction {
	predictions := make([]Prediction, 0, requestedSets)
	for i := 0; i < requestedSets; i++ {
		r := results[i%len(results)]
		if r.err != nil {
			predictions = append(predictions, GenerateRandomPrediction(e.rng, i))
			continue
		}

		p := e.decorate(r.id, r.candidate)
		if err := ValidatePrediction(p); err != nil {
			logger.Warnf("Discarding invalid prediction in slot %d: %v", i, err)
			p = GenerateRandomPrediction(e.rng, i)
		}
		predictions = append(predictions, p)
	}
	return predictions
}

// decorate 排序号码并附加权重与置信度
func (e *Engine) decorate(id StrategyID, c Candidate) Prediction {
	numbers := sortedCopy(c.Numbers)
	perf := e.tracker.ensure(id)

	return Prediction{
		Numbers:    numbers,
		Powerball:  c.Powerball,
		Confidence: CalculateConfidence(e.rng, perf.SuccessRate, perf.AverageConfidence, numbers),
		StrategyID: id,
		Weight:     perf.Weight,
		Analysis:   c.Analysis,
	}
}

// RecordActualDrawing 用实际开奖结果为最近一批预测打分。
// 没有待评估的批次或开奖号码不合法时不做任何修改。
func (e *Engine) RecordActualDrawing(actualNumbers []int, actualPowerball int) {
	if err := database.ValidateNumbers(actualNumbers, actualPowerball); err != nil {
		logger.Warnf("Ignoring actual drawing feedback: %v", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.lastBatch) == 0 {
		logger.Debug("No prediction batch to score, skipping feedback")
		return
	}

	scored := 0
	best := 0.0
	for _, p := range e.lastBatch {
		if p.StrategyID == StrategyRandom {
			continue
		}
		score := CalculateMatchScore(p.Numbers, p.Powerball, actualNumbers, actualPowerball)
		e.tracker.Record(p.StrategyID, score)
		best = max(best, score)
		scored++
	}

	logger.Infof("Recorded actual drawing %s PB %d against batch %s: %d scored, best %.2f",
		database.FormatNumbers(actualNumbers), actualPowerball, e.lastBatch[0].BatchID, scored, best)
	e.lastBatch = nil
}

// UpdatePerformanceMetrics 由外部定时器周期调用，刷新成功率与权重
func (e *Engine) UpdatePerformanceMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Update()
}

// PerformanceReport 引擎诊断信息
type PerformanceReport struct {
	Algorithms              []AlgorithmPerformance `json:"algorithms"`
	PredictionHistoryLength int                    `json:"prediction_history_length"`
	IsLearning              bool                   `json:"is_learning"`
}

// GetPerformanceReport 获取只读的表现报告
func (e *Engine) GetPerformanceReport() PerformanceReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	return PerformanceReport{
		Algorithms:              e.tracker.Snapshot(),
		PredictionHistoryLength: e.history.Len(),
		IsLearning:              e.tracker.HasFeedback(),
	}
}

// RecentPredictions 最近 n 条预测，按从旧到新排列
func (e *Engine) RecentPredictions(n int) []Prediction {
	e.mu.Lock()
	defer e.mu.Unlock()

	recent := e.history.Last(n)
	for i := range recent {
		recent[i] = recent[i].clone()
	}
	return recent
}

// LastBatch 尚未评估的最近一批预测
func (e *Engine) LastBatch() []Prediction {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Prediction, len(e.lastBatch))
	for i := range e.lastBatch {
		out[i] = e.lastBatch[i].clone()
	}
	return out
}
