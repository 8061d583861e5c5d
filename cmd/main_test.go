package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerball-bot/internal/config"
	"powerball-bot/internal/database"
	"powerball-bot/internal/predictor"
)

func TestEngineConfig(t *testing.T) {
	cfg := engineConfig(&config.Engine{
		Alpha:             0.2,
		PerformanceWindow: 30,
		Seed:              7,
		Strategies: map[string]config.StrategyConfig{
			"ewma":    {Weight: 0.22, SuccessRate: 0.3},
			"unknown": {Weight: 0.1},
		},
	})

	assert.Equal(t, 0.2, cfg.Alpha)
	assert.Equal(t, 30, cfg.PerformanceWindow)
	assert.Equal(t, int64(7), cfg.Seed)
	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, 0.22, cfg.Strategies[predictor.StrategyEWMA].Weight)
}

func TestRestorePerformance(t *testing.T) {
	cfg := engineConfig(&config.Engine{})
	restored := restorePerformance(&cfg, []database.PerformanceRecord{
		{StrategyID: "gaps", Weight: 0.06, SuccessRate: 0.02},
		{StrategyID: "random", Weight: 0.2},
		{StrategyID: "pairs", Weight: 0},
	})

	assert.Equal(t, 1, restored)
	assert.Equal(t, 0.06, cfg.Strategies[predictor.StrategyGaps].Weight)

	report := predictor.NewEngine(cfg).GetPerformanceReport()
	for _, a := range report.Algorithms {
		if a.StrategyID == predictor.StrategyGaps {
			assert.Equal(t, 0.06, a.Weight)
			assert.Equal(t, 0.02, a.SuccessRate)
		}
	}
}

func TestRestorePerformance_KeepsZeroSuccessRate(t *testing.T) {
	cfg := engineConfig(&config.Engine{})
	restored := restorePerformance(&cfg, []database.PerformanceRecord{
		{StrategyID: "ewma", Weight: 0.05, SuccessRate: 0},
	})
	require.Equal(t, 1, restored)

	report := predictor.NewEngine(cfg).GetPerformanceReport()
	for _, a := range report.Algorithms {
		if a.StrategyID == predictor.StrategyEWMA {
			assert.Equal(t, 0.05, a.Weight)
			assert.Equal(t, 0.0, a.SuccessRate)
		}
	}
}

func TestToPredictionRecords(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	batch := []predictor.Prediction{
		{BatchID: "b1", SlotIndex: 0, Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6, Confidence: 80, StrategyID: predictor.StrategyPairs, Weight: 0.17, Timestamp: ts},
	}

	source := time.Date(2024, 5, 29, 0, 0, 0, 0, time.UTC)
	records := toPredictionRecords(batch, source)

	require.Len(t, records, 1)
	assert.Equal(t, "pairs", records[0].StrategyID)
	assert.Equal(t, "b1", records[0].BatchID)
	assert.Equal(t, ts, records[0].PredictedAt)
	assert.Equal(t, source, records[0].SourceDrawDate)
	assert.False(t, records[0].IsVerified())
}

func TestToPerformanceRecords(t *testing.T) {
	records := toPerformanceRecords(predictor.PerformanceReport{
		Algorithms: []predictor.AlgorithmPerformance{
			{StrategyID: predictor.StrategySum, Weight: 0.14, SuccessRate: 0.11, TotalPredictions: 3, CorrectPredictions: 0.5},
		},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "sum", records[0].StrategyID)
	assert.Equal(t, 3, records[0].TotalPredictions)
	assert.False(t, records[0].UpdatedAt.IsZero())
}
