package predictor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerball-bot/internal/database"
)

type fakeStore struct {
	records  []database.PredictionRecord
	stats    database.PredictionStats
	strategy []database.StrategyStats
	updated  map[int64]float64
	failIDs  map[int64]bool
	fetchErr error
}

func (f *fakeStore) GetUnverifiedPredictions() ([]database.PredictionRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []database.PredictionRecord
	for _, r := range f.records {
		if r.MatchScore == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePredictionScore(id int64, actual []int, pb int, score float64) error {
	if f.failIDs[id] {
		return errors.New("write failed")
	}
	if f.updated == nil {
		f.updated = make(map[int64]float64)
	}
	f.updated[id] = score
	for i := range f.records {
		if f.records[i].ID == id {
			s := score
			f.records[i].MatchScore = &s
			f.records[i].ActualNumbers = actual
			f.records[i].ActualPowerball = &pb
		}
	}
	return nil
}

func (f *fakeStore) GetPredictionStats() (*database.PredictionStats, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &f.stats, nil
}

func (f *fakeStore) GetStrategyStats() ([]database.StrategyStats, error) {
	return f.strategy, nil
}

func (f *fakeStore) GetLatestPredictions(limit int) ([]database.PredictionRecord, error) {
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func TestValidator_ValidateDrawing(t *testing.T) {
	drawDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	previous := drawDate.AddDate(0, 0, -3)
	store := &fakeStore{
		records: []database.PredictionRecord{
			{ID: 1, StrategyID: "ewma", Numbers: []int{1, 2, 3, 40, 50}, Powerball: 6, PredictedAt: drawDate.Add(-time.Hour), SourceDrawDate: previous},
			{ID: 2, StrategyID: "gaps", Numbers: []int{10, 20, 30, 40, 50}, Powerball: 7, PredictedAt: drawDate.Add(20 * time.Hour), SourceDrawDate: previous},
			{ID: 3, StrategyID: "sum", Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6, PredictedAt: drawDate.Add(48 * time.Hour), SourceDrawDate: drawDate},
		},
	}
	v := NewValidator(store)

	results, err := v.ValidateDrawing(&database.Drawing{DrawDate: drawDate, Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, []int{1, 2, 3}, results[0].MatchedNumbers)
	assert.True(t, results[0].PowerballMatch)
	assert.InDelta(t, 4.0/6.0, results[0].MatchScore, 1e-9)
	assert.Equal(t, StrategyGaps, results[1].StrategyID)
	assert.Zero(t, results[1].MatchScore)

	assert.Len(t, store.updated, 2)
	assert.NotContains(t, store.updated, int64(3))
}

func TestValidator_LeavesBatchBuiltFromSameDrawingUnverified(t *testing.T) {
	drawDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		records: []database.PredictionRecord{
			// 开奖次日早上基于本期生成，目标是下一期
			{ID: 1, StrategyID: "ewma", Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6, PredictedAt: drawDate.Add(9 * time.Hour), SourceDrawDate: drawDate},
			// 没有来源日期的旧记录，开奖当天之后生成
			{ID: 2, StrategyID: "pairs", Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6, PredictedAt: drawDate.Add(30 * time.Hour)},
			// 没有来源日期的旧记录，开奖前一天生成
			{ID: 3, StrategyID: "markov", Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6, PredictedAt: drawDate.Add(-20 * time.Hour)},
		},
	}
	actual := &database.Drawing{DrawDate: drawDate, Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6}

	results, err := NewValidator(store).ValidateDrawing(actual)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].PredictionID)
	assert.NotContains(t, store.updated, int64(1))
	assert.NotContains(t, store.updated, int64(2))

	// 下一期开奖时再为它打分
	next := &database.Drawing{DrawDate: drawDate.AddDate(0, 0, 3), Numbers: []int{1, 2, 3, 4, 5}, Powerball: 6}
	results, err = NewValidator(store).ValidateDrawing(next)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, store.updated[1], 1e-9)
}

func TestValidator_SkipsFailedWrites(t *testing.T) {
	drawDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	source := drawDate.AddDate(0, 0, -3)
	store := &fakeStore{
		records: []database.PredictionRecord{
			{ID: 1, Numbers: []int{1, 2, 3, 4, 5}, Powerball: 1, PredictedAt: drawDate, SourceDrawDate: source},
			{ID: 2, Numbers: []int{1, 2, 3, 4, 5}, Powerball: 1, PredictedAt: drawDate, SourceDrawDate: source},
		},
		failIDs: map[int64]bool{1: true},
	}

	results, err := NewValidator(store).ValidateDrawing(&database.Drawing{DrawDate: drawDate, Numbers: []int{1, 2, 3, 4, 5}, Powerball: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].PredictionID)
}

func TestValidator_Errors(t *testing.T) {
	_, err := NewValidator(&fakeStore{}).ValidateDrawing(&database.Drawing{Numbers: []int{1, 2}, Powerball: 1})
	assert.ErrorIs(t, err, database.ErrInvalidNumbers)

	boom := errors.New("db down")
	_, err = NewValidator(&fakeStore{fetchErr: boom}).ValidateDrawing(&database.Drawing{Numbers: []int{1, 2, 3, 4, 5}, Powerball: 1})
	assert.ErrorIs(t, err, boom)
}

func TestStatisticsCalculator_CalculateStatistics(t *testing.T) {
	score := 0.5
	actualPB := 6
	store := &fakeStore{
		stats:    database.PredictionStats{TotalPredictions: 3, VerifiedPredictions: 2, AverageMatchScore: 0.25},
		strategy: []database.StrategyStats{{StrategyID: "ewma", Verified: 2}},
		records: []database.PredictionRecord{
			{ID: 1, Numbers: []int{1, 2, 3, 40, 50}, Powerball: 6, ActualNumbers: []int{1, 2, 3, 4, 5}, ActualPowerball: &actualPB, MatchScore: &score},
			{ID: 2, Numbers: []int{10, 20, 30, 40, 50}, Powerball: 7, ActualNumbers: []int{1, 2, 3, 4, 5}, ActualPowerball: &actualPB, MatchScore: new(float64)},
			{ID: 3, Numbers: []int{1, 2, 3, 4, 5}, Powerball: 7},
		},
	}

	stats, err := NewStatisticsCalculator(store).CalculateStatistics()
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Overall.TotalPredictions)
	assert.Len(t, stats.Strategies, 1)
	assert.Equal(t, map[int]int{3: 1, 0: 1}, stats.MatchDistribution)
	assert.Equal(t, 1, stats.PowerballHits)
}

func TestStatisticsCalculator_Trend(t *testing.T) {
	scores := []float64{0.5, 0.5, 0, 0}
	records := make([]database.PredictionRecord, len(scores))
	for i := range scores {
		records[i] = database.PredictionRecord{ID: int64(i + 1), MatchScore: &scores[i]}
	}

	trend, err := NewStatisticsCalculator(&fakeStore{records: records}).GetTrendAnalysis(2)
	require.NoError(t, err)

	// 最新在前，翻转后得分逐步上升
	assert.Equal(t, []float64{0, 0.25, 0.5}, trend["moving_average"])
	assert.Equal(t, "improving", trend["trend_direction"])
}

func TestAnalyzeTrendDirection(t *testing.T) {
	assert.Equal(t, "insufficient_data", analyzeTrendDirection([]float64{0.1}))
	assert.Equal(t, "declining", analyzeTrendDirection([]float64{0.3, 0.1}))
	assert.Equal(t, "stable", analyzeTrendDirection([]float64{0.2, 0.205}))
}
