package predictor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerball-bot/internal/database"
)

func assertValidBatch(t *testing.T, predictions []Prediction) {
	t.Helper()
	for i, p := range predictions {
		require.NoError(t, ValidatePrediction(p), "slot %d", i)
		assert.Equal(t, i, p.SlotIndex)
		assert.IsIncreasing(t, p.Numbers)
		assert.GreaterOrEqual(t, p.Confidence, MinConfidence)
		assert.LessOrEqual(t, p.Confidence, MaxConfidence)
		assert.Equal(t, BuildMetadata(p.Numbers), p.Metadata)
	}
}

func strategyIDs(predictions []Prediction) []StrategyID {
	ids := make([]StrategyID, len(predictions))
	for i, p := range predictions {
		ids[i] = p.StrategyID
	}
	return ids
}

func TestGenerateEnsemblePrediction_RoundRobin(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := newTestEngine(1)

	predictions := e.GenerateEnsemblePrediction(makeHistory(rng, 500), 5)

	require.Len(t, predictions, 5)
	assert.Equal(t, []StrategyID{StrategyEWMA, StrategyNeural, StrategyPairs, StrategyGaps, StrategyMarkov}, strategyIDs(predictions))
	assertValidBatch(t, predictions)

	batchID := predictions[0].BatchID
	assert.NotEmpty(t, batchID)
	for _, p := range predictions {
		assert.Equal(t, batchID, p.BatchID)
	}
}

func TestGenerateEnsemblePrediction_WrapsAroundStrategies(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	e := newTestEngine(2)

	predictions := e.GenerateEnsemblePrediction(makeHistory(rng, 100), 8)

	require.Len(t, predictions, 8)
	assert.Equal(t, StrategySum, predictions[5].StrategyID)
	assert.Equal(t, StrategyEWMA, predictions[6].StrategyID)
	assert.Equal(t, StrategyNeural, predictions[7].StrategyID)
	assertValidBatch(t, predictions)
}

func TestGenerateEnsemblePrediction_UnusableHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	malformed := makeHistory(rng, 20)
	malformed[4].Numbers = []int{1, 2, 3, 4}

	tests := []struct {
		name    string
		history []database.Drawing
	}{
		{name: "empty"},
		{name: "too short", history: makeHistory(rng, 9)},
		{name: "malformed drawing", history: malformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(4)
			predictions := e.GenerateEnsemblePrediction(tt.history, 3)

			require.Len(t, predictions, 3)
			for _, p := range predictions {
				assert.Equal(t, StrategyRandom, p.StrategyID)
				assert.Equal(t, "Random selection (fallback)", p.Analysis)
				assert.GreaterOrEqual(t, p.Confidence, 70)
				assert.Less(t, p.Confidence, 85)
			}
			assertValidBatch(t, predictions)
		})
	}
}

func TestGenerateEnsemblePrediction_NonPositiveCount(t *testing.T) {
	e := newTestEngine(1)
	rng := rand.New(rand.NewSource(1))

	assert.Empty(t, e.GenerateEnsemblePrediction(makeHistory(rng, 50), 0))
	assert.Empty(t, e.GenerateEnsemblePrediction(makeHistory(rng, 50), -2))
	assert.Zero(t, e.GetPerformanceReport().PredictionHistoryLength)
}

func TestGenerateEnsemblePrediction_StrategyIsolation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	history := makeHistory(rng, 60)

	e := newTestEngine(5)
	e.RegisterStrategy(panicStrategy{id: StrategyNeural})
	e.RegisterStrategy(invalidStrategy{id: StrategyGaps})

	predictions := e.GenerateEnsemblePrediction(history, 6)

	require.Len(t, predictions, 6)
	assert.Equal(t, []StrategyID{
		StrategyEWMA, StrategyRandom, StrategyPairs, StrategyRandom, StrategyMarkov, StrategySum,
	}, strategyIDs(predictions))
	assertValidBatch(t, predictions)
}

func TestGenerateEnsemblePrediction_HistoryCapacity(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	history := makeHistory(rng, 30)
	e := newTestEngine(6)

	for i := 0; i < 30; i++ {
		e.GenerateEnsemblePrediction(history, 5)
	}

	assert.Equal(t, 100, e.GetPerformanceReport().PredictionHistoryLength)
	assert.Len(t, e.RecentPredictions(7), 7)
	assert.Len(t, e.RecentPredictions(500), 100)
}

func TestRecordActualDrawing_NoBatch(t *testing.T) {
	e := newTestEngine(1)
	before := e.GetPerformanceReport()

	e.RecordActualDrawing([]int{1, 2, 3, 4, 5}, 6)

	after := e.GetPerformanceReport()
	assert.Equal(t, before, after)
	assert.False(t, after.IsLearning)
}

func TestRecordActualDrawing_InvalidDrawingIgnored(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	e := newTestEngine(1)
	e.GenerateEnsemblePrediction(makeHistory(rng, 40), 3)

	e.RecordActualDrawing([]int{1, 2, 3}, 5)
	e.RecordActualDrawing([]int{1, 2, 3, 4, 70}, 5)
	e.RecordActualDrawing([]int{1, 2, 3, 4, 5}, 27)

	assert.Len(t, e.LastBatch(), 3)
	assert.False(t, e.GetPerformanceReport().IsLearning)
}

func TestRecordActualDrawing_ScoresOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	e := newTestEngine(1)
	predictions := e.GenerateEnsemblePrediction(makeHistory(rng, 40), 1)
	require.Len(t, predictions, 1)
	require.Equal(t, StrategyEWMA, predictions[0].StrategyID)

	e.RecordActualDrawing(predictions[0].Numbers, predictions[0].Powerball)
	e.RecordActualDrawing(predictions[0].Numbers, predictions[0].Powerball)

	report := e.GetPerformanceReport()
	assert.True(t, report.IsLearning)
	assert.Empty(t, e.LastBatch())

	ewma := report.Algorithms[0]
	assert.Equal(t, StrategyEWMA, ewma.StrategyID)
	assert.Equal(t, 1, ewma.TotalPredictions)
	assert.Equal(t, []float64{1}, ewma.RecentHits)
}

func TestPreviewEnsemblePrediction_KeepsPendingBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	e := newTestEngine(1)
	history := makeHistory(rng, 500)

	batch := e.GenerateEnsemblePrediction(history, 6)
	require.Len(t, batch, 6)

	preview := e.PreviewEnsemblePrediction(history, 1)
	require.Len(t, preview, 1)
	assertValidBatch(t, preview)
	assert.NotEqual(t, batch[0].BatchID, preview[0].BatchID)
	assert.Empty(t, e.PreviewEnsemblePrediction(history, 0))

	pending := e.LastBatch()
	require.Len(t, pending, 6)
	assert.Equal(t, batch[0].BatchID, pending[0].BatchID)
	assert.Equal(t, 6, e.GetPerformanceReport().PredictionHistoryLength)

	// 预览之后的反馈仍覆盖全部六个算法
	e.RecordActualDrawing(batch[0].Numbers, batch[0].Powerball)
	for _, a := range e.GetPerformanceReport().Algorithms {
		assert.Equal(t, 1, a.TotalPredictions, a.StrategyID)
	}
}

func TestRecordActualDrawing_SkipsFallbackPredictions(t *testing.T) {
	e := newTestEngine(1)
	predictions := e.GenerateEnsemblePrediction(nil, 2)
	require.Len(t, predictions, 2)

	e.RecordActualDrawing(predictions[0].Numbers, predictions[0].Powerball)

	report := e.GetPerformanceReport()
	assert.False(t, report.IsLearning)
	for _, a := range report.Algorithms {
		assert.Zero(t, a.TotalPredictions)
	}
}

func TestFeedbackLoop_MatchingRaisesWeight(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	history := makeHistory(rng, 40)
	e := newTestEngine(3)

	for i := 0; i < 10; i++ {
		p := e.GenerateEnsemblePrediction(history, 1)[0]
		e.RecordActualDrawing(p.Numbers, p.Powerball)
		e.UpdatePerformanceMetrics()

		w := e.GetPerformanceReport().Algorithms[0].Weight
		assert.LessOrEqual(t, w, MaxWeight)
	}

	ewma := e.GetPerformanceReport().Algorithms[0]
	assert.InDelta(t, 1.0, ewma.SuccessRate, 1e-9)
	assert.InDelta(t, MaxWeight, ewma.Weight, 1e-9)
}

func TestFeedbackLoop_MissesLowerWeight(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	history := makeHistory(rng, 40)
	e := newTestEngine(4)

	for i := 0; i < 60; i++ {
		p := e.GenerateEnsemblePrediction(history, 1)[0]
		numbers, pb := disjointDrawing(p)
		e.RecordActualDrawing(numbers, pb)
		e.UpdatePerformanceMetrics()

		w := e.GetPerformanceReport().Algorithms[0].Weight
		assert.GreaterOrEqual(t, w, MinWeight)
	}

	ewma := e.GetPerformanceReport().Algorithms[0]
	assert.Zero(t, ewma.SuccessRate)
	assert.InDelta(t, MinWeight, ewma.Weight, 1e-9)
	assert.Len(t, ewma.RecentHits, DefaultConfig().PerformanceWindow)
	assert.Equal(t, 60, ewma.TotalPredictions)
}

func TestGetPerformanceReport_InitialState(t *testing.T) {
	e := newTestEngine(1)
	report := e.GetPerformanceReport()

	require.Len(t, report.Algorithms, len(DefaultStrategyOrder))
	for i, a := range report.Algorithms {
		assert.Equal(t, DefaultStrategyOrder[i], a.StrategyID)
		assert.Equal(t, DefaultConfig().Strategies[a.StrategyID].Weight, a.Weight)
	}
	assert.Zero(t, report.PredictionHistoryLength)
	assert.False(t, report.IsLearning)
}

func TestEngine_ReturnedPredictionsAreCopies(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	e := newTestEngine(1)
	predictions := e.GenerateEnsemblePrediction(makeHistory(rng, 40), 1)
	original := append([]int(nil), predictions[0].Numbers...)

	predictions[0].Numbers[0] = 99

	assert.Equal(t, original, e.LastBatch()[0].Numbers)
	assert.Equal(t, original, e.RecentPredictions(1)[0].Numbers)
}
