package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"powerball-bot/internal/config"
	"powerball-bot/internal/logger"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDB MySQL数据库客户端
type MySQLDB struct {
	db *sql.DB
}

// NewMySQLDB 创建新的MySQL数据库连接
func NewMySQLDB(cfg *config.Database) (*MySQLDB, error) {
	db, err := sql.Open("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	mysqlDB := &MySQLDB{db: db}

	// 自动创建表结构
	if err := mysqlDB.createTablesIfNotExists(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return mysqlDB, nil
}

// Close 关闭数据库连接
func (m *MySQLDB) Close() error {
	return m.db.Close()
}

// SaveDrawing 保存开奖数据
func (m *MySQLDB) SaveDrawing(d *Drawing) error {
	if err := ValidateNumbers(d.Numbers, d.Powerball); err != nil {
		return err
	}

	query := `INSERT INTO drawings (draw_date, numbers, powerball, multiplier, jackpot)
			  VALUES (?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  numbers = VALUES(numbers),
			  powerball = VALUES(powerball),
			  multiplier = VALUES(multiplier),
			  jackpot = VALUES(jackpot)`

	result, err := m.db.Exec(query, FormatDrawDate(d.DrawDate), FormatNumbers(d.Numbers), d.Powerball, d.Multiplier, d.Jackpot)
	if err != nil {
		return fmt.Errorf("failed to save drawing: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil && id > 0 {
		d.ID = id
	}

	logger.Debugf("Saved drawing: %s", d.DateString())
	return nil
}

// GetLatestDrawings 获取最新的开奖数据（最新在前）
func (m *MySQLDB) GetLatestDrawings(limit int) ([]Drawing, error) {
	query := `SELECT id, draw_date, numbers, powerball, multiplier, jackpot, created_at
			  FROM drawings
			  ORDER BY draw_date DESC
			  LIMIT ?`

	rows, err := m.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest drawings: %w", err)
	}
	defer rows.Close()

	var drawings []Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, err
		}
		drawings = append(drawings, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading drawing rows: %w", err)
	}

	return drawings, nil
}

// GetDrawingByDate 根据开奖日期获取开奖数据
func (m *MySQLDB) GetDrawingByDate(date time.Time) (*Drawing, error) {
	query := `SELECT id, draw_date, numbers, powerball, multiplier, jackpot, created_at
			  FROM drawings
			  WHERE draw_date = ?`

	d, err := scanDrawing(m.db.QueryRow(query, FormatDrawDate(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CheckNewDrawing 检查该开奖日期是否尚未入库
func (m *MySQLDB) CheckNewDrawing(date time.Time) (bool, error) {
	var count int
	err := m.db.QueryRow("SELECT COUNT(*) FROM drawings WHERE draw_date = ?", FormatDrawDate(date)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check new drawing: %w", err)
	}
	return count == 0, nil
}

// SavePredictionBatch 在一个事务中保存一批预测记录
func (m *MySQLDB) SavePredictionBatch(records []PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO predictions
		(batch_id, slot_index, strategy_id, numbers, powerball, confidence, weight, predicted_at, source_draw_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare prediction insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		result, err := stmt.Exec(r.BatchID, r.SlotIndex, r.StrategyID, FormatNumbers(r.Numbers),
			r.Powerball, r.Confidence, r.Weight, r.PredictedAt, sourceDateParam(r.SourceDrawDate))
		if err != nil {
			return fmt.Errorf("failed to save prediction: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			r.ID = id
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prediction batch: %w", err)
	}

	logger.Debugf("Saved prediction batch %s (%d records)", records[0].BatchID, len(records))
	return nil
}

// GetLatestPredictions 获取最新的预测记录
func (m *MySQLDB) GetLatestPredictions(limit int) ([]PredictionRecord, error) {
	query := predictionColumns + ` FROM predictions
			  ORDER BY predicted_at DESC, slot_index ASC
			  LIMIT ?`
	return m.queryPredictions(query, limit)
}

// GetUnverifiedPredictions 获取所有未验证的预测记录
func (m *MySQLDB) GetUnverifiedPredictions() ([]PredictionRecord, error) {
	query := predictionColumns + ` FROM predictions
			  WHERE match_score IS NULL
			  ORDER BY predicted_at DESC, slot_index ASC`
	return m.queryPredictions(query)
}

// UpdatePredictionScore 写入实际开奖号码与命中得分
func (m *MySQLDB) UpdatePredictionScore(id int64, actualNumbers []int, actualPowerball int, matchScore float64) error {
	query := `UPDATE predictions
			  SET actual_numbers = ?, actual_powerball = ?, match_score = ?, verified_at = NOW()
			  WHERE id = ?`

	_, err := m.db.Exec(query, FormatNumbers(actualNumbers), actualPowerball, matchScore, id)
	if err != nil {
		return fmt.Errorf("failed to update prediction score: %w", err)
	}

	logger.Debugf("Updated prediction %d score: %.3f", id, matchScore)
	return nil
}

// SavePerformanceSnapshot 保存各算法的表现快照
func (m *MySQLDB) SavePerformanceSnapshot(records []PerformanceRecord) error {
	query := `INSERT INTO algorithm_performance
			  (strategy_id, weight, success_rate, total_predictions, correct_predictions)
			  VALUES (?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  weight = VALUES(weight),
			  success_rate = VALUES(success_rate),
			  total_predictions = VALUES(total_predictions),
			  correct_predictions = VALUES(correct_predictions)`

	for _, r := range records {
		if _, err := m.db.Exec(query, r.StrategyID, r.Weight, r.SuccessRate, r.TotalPredictions, r.CorrectPredictions); err != nil {
			return fmt.Errorf("failed to save performance for %s: %w", r.StrategyID, err)
		}
	}
	return nil
}

// GetPerformanceSnapshot 获取各算法最新表现快照
func (m *MySQLDB) GetPerformanceSnapshot() ([]PerformanceRecord, error) {
	rows, err := m.db.Query(`SELECT strategy_id, weight, success_rate, total_predictions, correct_predictions, updated_at
		FROM algorithm_performance ORDER BY strategy_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance snapshot: %w", err)
	}
	defer rows.Close()

	var records []PerformanceRecord
	for rows.Next() {
		var r PerformanceRecord
		if err := rows.Scan(&r.StrategyID, &r.Weight, &r.SuccessRate, &r.TotalPredictions,
			&r.CorrectPredictions, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan performance record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetPredictionStats 获取预测统计信息
func (m *MySQLDB) GetPredictionStats() (*PredictionStats, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN match_score IS NOT NULL THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(match_score), 0),
		COALESCE(MAX(match_score), 0),
		COALESCE(MIN(predicted_at), NOW()),
		COALESCE(MAX(predicted_at), NOW())
	FROM predictions`

	var stats PredictionStats
	err := m.db.QueryRow(query).Scan(
		&stats.TotalPredictions, &stats.VerifiedPredictions,
		&stats.AverageMatchScore, &stats.BestMatchScore,
		&stats.FirstPrediction, &stats.LastPrediction,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &PredictionStats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction stats: %w", err)
	}
	return &stats, nil
}

// GetStrategyStats 按算法分组统计已验证的预测
func (m *MySQLDB) GetStrategyStats() ([]StrategyStats, error) {
	rows, err := m.db.Query(`SELECT strategy_id, COUNT(*), AVG(match_score), AVG(confidence)
		FROM predictions
		WHERE match_score IS NOT NULL
		GROUP BY strategy_id
		ORDER BY strategy_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy stats: %w", err)
	}
	defer rows.Close()

	var stats []StrategyStats
	for rows.Next() {
		var s StrategyStats
		if err := rows.Scan(&s.StrategyID, &s.Verified, &s.AverageMatchScore, &s.AverageConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan strategy stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// CleanOldData 清理超过保留天数的预测记录
func (m *MySQLDB) CleanOldData(retentionDays int) (int, error) {
	result, err := m.db.Exec("DELETE FROM predictions WHERE predicted_at < DATE_SUB(NOW(), INTERVAL ? DAY)", retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to clean predictions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

const predictionColumns = `SELECT id, batch_id, slot_index, strategy_id, numbers, powerball,
			  confidence, weight, actual_numbers, actual_powerball, match_score,
			  predicted_at, source_draw_date, verified_at`

// rowScanner 兼容 *sql.Row 与 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDrawing(row rowScanner) (*Drawing, error) {
	var d Drawing
	var numbers string
	var multiplier sql.NullInt64
	var jackpot sql.NullFloat64

	err := row.Scan(&d.ID, &d.DrawDate, &numbers, &d.Powerball, &multiplier, &jackpot, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan drawing: %w", err)
	}

	d.Numbers, err = ParseNumbers(numbers)
	if err != nil {
		return nil, fmt.Errorf("drawing %d: %w", d.ID, err)
	}
	d.Multiplier = int(multiplier.Int64)
	if jackpot.Valid {
		v := jackpot.Float64
		d.Jackpot = &v
	}
	return &d, nil
}

func (m *MySQLDB) queryPredictions(query string, args ...interface{}) ([]PredictionRecord, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var r PredictionRecord
		var numbers string
		var actualNumbers sql.NullString
		var actualPowerball sql.NullInt64
		var matchScore sql.NullFloat64
		var sourceDrawDate sql.NullTime
		var verifiedAt sql.NullTime

		if err := rows.Scan(&r.ID, &r.BatchID, &r.SlotIndex, &r.StrategyID, &numbers, &r.Powerball,
			&r.Confidence, &r.Weight, &actualNumbers, &actualPowerball, &matchScore,
			&r.PredictedAt, &sourceDrawDate, &verifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}

		if r.Numbers, err = ParseNumbers(numbers); err != nil {
			return nil, fmt.Errorf("prediction %d: %w", r.ID, err)
		}
		if actualNumbers.Valid {
			if r.ActualNumbers, err = ParseNumbers(actualNumbers.String); err != nil {
				return nil, fmt.Errorf("prediction %d: %w", r.ID, err)
			}
		}
		if actualPowerball.Valid {
			v := int(actualPowerball.Int64)
			r.ActualPowerball = &v
		}
		if matchScore.Valid {
			v := matchScore.Float64
			r.MatchScore = &v
		}
		if sourceDrawDate.Valid {
			r.SourceDrawDate = sourceDrawDate.Time
		}
		if verifiedAt.Valid {
			v := verifiedAt.Time
			r.VerifiedAt = &v
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading prediction rows: %w", err)
	}

	return records, nil
}

// createTablesIfNotExists 自动创建表结构
func (m *MySQLDB) createTablesIfNotExists() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drawings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			draw_date DATE UNIQUE NOT NULL COMMENT '开奖日期',
			numbers VARCHAR(20) NOT NULL COMMENT '主号码',
			powerball TINYINT NOT NULL COMMENT '强力球',
			multiplier TINYINT DEFAULT NULL COMMENT 'Power Play倍数',
			jackpot DECIMAL(15,2) DEFAULT NULL COMMENT '头奖金额',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP COMMENT '记录创建时间',
			INDEX idx_draw_date (draw_date)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='开奖数据表'`,

		`CREATE TABLE IF NOT EXISTS predictions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			batch_id CHAR(36) NOT NULL COMMENT '批次ID',
			slot_index INT NOT NULL COMMENT '批次内序号',
			strategy_id VARCHAR(16) NOT NULL COMMENT '算法',
			numbers VARCHAR(20) NOT NULL COMMENT '预测主号码',
			powerball TINYINT NOT NULL COMMENT '预测强力球',
			confidence INT NOT NULL COMMENT '置信度',
			weight DECIMAL(6,4) NOT NULL COMMENT '算法权重',
			actual_numbers VARCHAR(20) DEFAULT NULL COMMENT '实际主号码',
			actual_powerball TINYINT DEFAULT NULL COMMENT '实际强力球',
			match_score DECIMAL(5,4) DEFAULT NULL COMMENT '命中得分',
			predicted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP COMMENT '预测时间',
			source_draw_date DATE NULL COMMENT '生成时最新开奖日期',
			verified_at TIMESTAMP NULL COMMENT '验证时间',
			INDEX idx_batch_id (batch_id),
			INDEX idx_strategy_id (strategy_id),
			INDEX idx_predicted_at (predicted_at),
			INDEX idx_match_score (match_score)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='预测记录表'`,

		`CREATE TABLE IF NOT EXISTS algorithm_performance (
			strategy_id VARCHAR(16) PRIMARY KEY COMMENT '算法',
			weight DECIMAL(6,4) NOT NULL COMMENT '权重',
			success_rate DECIMAL(6,4) NOT NULL COMMENT '成功率',
			total_predictions INT NOT NULL DEFAULT 0 COMMENT '预测总数',
			correct_predictions DECIMAL(12,4) NOT NULL DEFAULT 0 COMMENT '累计命中得分',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP COMMENT '更新时间'
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='算法表现表'`,
	}

	for _, stmt := range stmts {
		if _, err := m.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return m.addColumnIfMissing("predictions", "source_draw_date",
		"DATE NULL COMMENT '生成时最新开奖日期' AFTER predicted_at")
}

// addColumnIfMissing 为旧版本创建的表补充新列
func (m *MySQLDB) addColumnIfMissing(table, column, definition string) error {
	var count int
	err := m.db.QueryRow(`SELECT COUNT(*) FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`, table, column).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to inspect column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}

	if _, err := m.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	logger.Infof("Added column %s.%s", table, column)
	return nil
}

// sourceDateParam 未知的来源日期写入 NULL
func sourceDateParam(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return FormatDrawDate(t)
}
