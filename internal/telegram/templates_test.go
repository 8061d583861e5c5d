package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerball-bot/internal/database"
	"powerball-bot/internal/predictor"
)

func TestParsePredictCount(t *testing.T) {
	tests := []struct {
		args    string
		def     int
		want    int
		wantErr bool
	}{
		{args: "", def: 5, want: 5},
		{args: "  ", def: 0, want: 1},
		{args: "", def: 50, want: 10},
		{args: "3", def: 5, want: 3},
		{args: "10", def: 5, want: 10},
		{args: "0", def: 5, wantErr: true},
		{args: "11", def: 5, wantErr: true},
		{args: "many", def: 5, wantErr: true},
	}

	for _, tt := range tests {
		got, err := parsePredictCount(tt.args, tt.def)
		if tt.wantErr {
			assert.Error(t, err, "args %q", tt.args)
			continue
		}
		require.NoError(t, err, "args %q", tt.args)
		assert.Equal(t, tt.want, got, "args %q", tt.args)
	}
}

func TestFormatBatchMessage(t *testing.T) {
	b := &Bot{}
	batch := []predictor.Prediction{
		{Numbers: []int{3, 15, 22, 41, 69}, Powerball: 7, Confidence: 81, StrategyID: predictor.StrategyEWMA, Metadata: predictor.BuildMetadata([]int{3, 15, 22, 41, 69})},
		{Numbers: []int{1, 2, 3, 4, 5}, Powerball: 26, Confidence: 72, StrategyID: predictor.StrategyRandom},
	}

	msg := b.formatBatchMessage("title", batch)

	assert.Contains(t, msg, "*1.* `03 15 22 41 69` PB `07`")
	assert.Contains(t, msg, "📈 EWMA · confidence 81% · sum 150")
	assert.Contains(t, msg, "*2.* `01 02 03 04 05` PB `26`")
	assert.Contains(t, msg, "🎲 Random")
	assert.Contains(t, b.formatBatchMessage("title", nil), "No prediction data")
}

func TestFormatLatestMessage(t *testing.T) {
	b := &Bot{}
	d := &database.Drawing{
		DrawDate:   time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		Numbers:    []int{66, 1, 12, 20, 33},
		Powerball:  21,
		Multiplier: 2,
	}

	msg := b.formatLatestMessage(d, nil)

	assert.Contains(t, msg, "Date: `2024-01-06`")
	assert.Contains(t, msg, "`01 12 20 33 66` PB `21`")
	assert.Contains(t, msg, "Sum: `132`")
	assert.Contains(t, msg, "Power Play: `2x`")
	assert.Contains(t, msg, "/predict")
}

func TestFormatStatsMessage(t *testing.T) {
	b := &Bot{}
	score := 0.5
	stats := &database.PredictionStats{
		TotalPredictions:    12,
		VerifiedPredictions: 10,
		AverageMatchScore:   0.21,
		BestMatchScore:      0.5,
		FirstPrediction:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastPrediction:      time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
	}
	recent := []database.PredictionRecord{
		{Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6, StrategyID: "gaps", MatchScore: &score},
		{Numbers: []int{7, 8, 9, 10, 11}, Powerball: 6, StrategyID: "pairs"},
	}

	msg := b.formatStatsMessage(stats, recent)

	assert.Contains(t, msg, "Verified Predictions: `10`")
	assert.Contains(t, msg, "Running Days: `10 days`")
	assert.Contains(t, msg, "⏳ Gaps score `0.50`")
	assert.NotContains(t, msg, "🔗 Pairs")
	assert.Contains(t, msg, "🥈 Good")
}

func TestFormatPerformanceMessage(t *testing.T) {
	b := &Bot{}
	report := predictor.PerformanceReport{
		Algorithms: []predictor.AlgorithmPerformance{
			{StrategyID: predictor.StrategyMarkov, Weight: 0.16, SuccessRate: 0.13, TotalPredictions: 4},
			{StrategyID: "custom", Weight: 0.1},
		},
		PredictionHistoryLength: 25,
		IsLearning:              true,
	}

	msg := b.formatPerformanceMessage(report)

	assert.Contains(t, msg, "🔄 Markov\n   weight `0.160` · success `0.130` · scored `4`")
	assert.Contains(t, msg, "custom")
	assert.Contains(t, msg, "Predictions kept: `25`")
	assert.Contains(t, msg, "Learning from drawing feedback")
}

func TestCalculatePerformanceRating(t *testing.T) {
	assert.Contains(t, calculatePerformanceRating(0.6), "Excellent")
	assert.Contains(t, calculatePerformanceRating(0.4), "Great")
	assert.Contains(t, calculatePerformanceRating(0.1), "Fair")
	assert.Contains(t, calculatePerformanceRating(0), "Needs Improvement")
}
