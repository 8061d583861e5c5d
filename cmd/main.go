package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"powerball-bot/internal/api"
	"powerball-bot/internal/cache"
	"powerball-bot/internal/config"
	"powerball-bot/internal/database"
	"powerball-bot/internal/logger"
	"powerball-bot/internal/predictor"
	"powerball-bot/internal/telegram"
)

// App 应用程序主结构
type App struct {
	config         *config.Config
	mysql          *database.MySQLDB
	cacheManager   *cache.CacheManager
	apiClient      *api.Client
	engine         *predictor.Engine
	validator      *predictor.Validator
	statCalculator *predictor.StatisticsCalculator
	telegramBot    *telegram.Bot

	// 控制
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 错误状态跟踪（避免重复日志）
	lastAPIError string
	lastDBError  string
}

// NewApp 创建应用程序实例
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitLogger(cfg.App.LogLevel)
	fmt.Println("🚀 启动Powerball预测机器人...")

	mysql, err := database.NewMySQLDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Println("✅ 数据库连接成功，表结构初始化完成")

	cacheManager := cache.NewCacheManager(mysql, cfg.App.CacheTTL)
	fmt.Println("✅ 缓存系统初始化完成")

	apiClient := api.NewClient(&cfg.API)

	engineCfg := engineConfig(&cfg.Engine)
	if snapshot, err := mysql.GetPerformanceSnapshot(); err != nil {
		logger.Warnf("Failed to load performance snapshot: %v", err)
	} else if restored := restorePerformance(&engineCfg, snapshot); restored > 0 {
		fmt.Printf("✅ 恢复了 %d 个算法的权重\n", restored)
	}
	engine := predictor.NewEngine(engineCfg)

	validator := predictor.NewValidator(mysql)
	statCalculator := predictor.NewStatisticsCalculator(mysql)

	telegramBot, err := telegram.NewBot(&cfg.Telegram, cacheManager, engine, cfg.API.HistoryLimit, cfg.Engine.RequestedSets)
	if err != nil {
		mysql.Close()
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	fmt.Println("✅ Telegram机器人连接成功")

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		config:         cfg,
		mysql:          mysql,
		cacheManager:   cacheManager,
		apiClient:      apiClient,
		engine:         engine,
		validator:      validator,
		statCalculator: statCalculator,
		telegramBot:    telegramBot,
		ctx:            ctx,
		cancel:         cancel,
	}

	fmt.Println("🎯 应用程序初始化完成")
	return app, nil
}

// engineConfig 将YAML引擎配置转换为预测引擎配置，未设置的字段由引擎补默认值
func engineConfig(cfg *config.Engine) predictor.Config {
	out := predictor.Config{
		Alpha:             cfg.Alpha,
		PerformanceWindow: cfg.PerformanceWindow,
		HistoryCapacity:   cfg.HistoryCapacity,
		MinHistory:        cfg.MinHistory,
		Seed:              cfg.Seed,
		NeuralSeed:        cfg.NeuralSeed,
		Strategies:        make(map[predictor.StrategyID]predictor.StrategyBase, len(cfg.Strategies)),
	}
	for id, s := range cfg.Strategies {
		sid := predictor.StrategyID(id)
		if !predictor.IsKnownStrategy(sid) {
			logger.Warnf("Ignoring config for unknown strategy: %s", id)
			continue
		}
		out.Strategies[sid] = predictor.StrategyBase{
			Weight:            s.Weight,
			SuccessRate:       s.SuccessRate,
			AverageConfidence: s.AverageConfidence,
		}
	}
	return out
}

// restorePerformance 用数据库中的表现快照覆盖初始权重与成功率
func restorePerformance(cfg *predictor.Config, snapshot []database.PerformanceRecord) int {
	restored := 0
	for _, r := range snapshot {
		sid := predictor.StrategyID(r.StrategyID)
		if !predictor.IsKnownStrategy(sid) || r.Weight <= 0 {
			continue
		}
		base := cfg.Strategies[sid]
		base.Weight = r.Weight
		base.SuccessRate = r.SuccessRate
		base.Restored = true
		cfg.Strategies[sid] = base
		restored++
	}
	return restored
}

// Start 启动应用程序
func (a *App) Start() error {
	fmt.Println("🔄 启动所有服务...")

	if err := a.initializeHistoricalData(); err != nil {
		logger.Warnf("Failed to initialize historical data: %v", err)
	}

	a.telegramBot.Start()

	a.wg.Add(3)
	go a.dataMonitorLoop()
	go a.performanceLoop()
	go a.dataCleanupLoop()

	fmt.Println("✅ 所有服务启动完成")
	logger.Infof("Startup health: %v", a.HealthCheck()["status"])
	fmt.Printf("⏰ 轮询间隔: %v, 表现更新间隔: %v\n", a.config.App.PollingInterval, a.config.App.PerformanceInterval)
	fmt.Println("🔔 机器人仅在私聊中提供服务")
	fmt.Println("💡 按 Ctrl+C 停止程序")
	return nil
}

// Stop 停止应用程序
func (a *App) Stop() error {
	fmt.Println("🛑 正在停止应用程序...")

	a.cancel()
	a.telegramBot.Stop()
	a.wg.Wait()

	// 退出前保存一次表现快照
	a.persistPerformance()

	if err := a.cacheManager.Close(); err != nil {
		logger.Errorf("Failed to close cache manager: %v", err)
	}
	if err := a.mysql.Close(); err != nil {
		logger.Errorf("Failed to close database: %v", err)
	}

	fmt.Println("✅ 应用程序已安全停止")
	return nil
}

// initializeHistoricalData 拉取历史开奖入库，补验证并生成首批预测
func (a *App) initializeHistoricalData() error {
	fmt.Println("📚 初始化历史开奖数据...")

	drawings, err := a.apiClient.FetchDrawings(a.ctx, a.config.API.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to get historical data: %w", err)
	}

	savedCount := 0
	for i := range drawings {
		isNew, err := a.mysql.CheckNewDrawing(drawings[i].DrawDate)
		if err != nil || !isNew {
			continue
		}
		if err := a.mysql.SaveDrawing(&drawings[i]); err != nil {
			logger.Warnf("Failed to save historical drawing %s: %v", drawings[i].DateString(), err)
			continue
		}
		savedCount++
	}

	if savedCount > 0 {
		fmt.Printf("✅ 初始化了 %d 期历史数据\n", savedCount)
	} else {
		fmt.Println("✅ 历史数据已存在，无需初始化")
	}

	latest := &drawings[0]
	a.cacheManager.OnNewDrawing(latest)

	// 开奖已出但尚未验证的预测
	fmt.Println("🔍 检查并更新预测验证状态...")
	a.verifyPredictions(latest)

	return a.generateNewPrediction(latest)
}

// dataMonitorLoop 数据监控循环
func (a *App) dataMonitorLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.App.PollingInterval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for {
		select {
		case <-ticker.C:
			if err := a.processDataUpdate(); err != nil {
				consecutiveErrors++
				// 只在第一次错误和每30次错误时显示
				if consecutiveErrors == 1 {
					fmt.Printf("⚠️  数据获取失败: %v\n", err)
				} else if consecutiveErrors%30 == 0 {
					fmt.Printf("❌ 连续失败 %d 次，仍在重试...\n", consecutiveErrors)
				}
			} else if consecutiveErrors > 0 {
				fmt.Printf("✅ 数据连接已恢复（失败了 %d 次）\n", consecutiveErrors)
				consecutiveErrors = 0
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// processDataUpdate 处理数据更新
func (a *App) processDataUpdate() error {
	latest, err := a.apiClient.FetchLatestDrawing(a.ctx)
	if err != nil {
		if a.lastAPIError != err.Error() {
			logger.Errorf("API fetch failed: %v", err)
			a.lastAPIError = err.Error()
		}
		return fmt.Errorf("failed to fetch latest drawing: %w", err)
	}
	a.lastAPIError = ""

	isNew, err := a.mysql.CheckNewDrawing(latest.DrawDate)
	if err != nil {
		if a.lastDBError != err.Error() {
			logger.Errorf("Database check failed: %v", err)
			a.lastDBError = err.Error()
		}
		return fmt.Errorf("failed to check new drawing: %w", err)
	}
	a.lastDBError = ""

	if !isNew {
		return nil
	}

	fmt.Printf("🎯 发现新开奖: %s - %s PB %02d\n", latest.DateString(), database.FormatNumbers(latest.Numbers), latest.Powerball)

	if err := a.mysql.SaveDrawing(latest); err != nil {
		return fmt.Errorf("failed to save drawing: %w", err)
	}
	a.cacheManager.OnNewDrawing(latest)

	// 先反馈给引擎，再为数据库中的预测打分
	a.engine.RecordActualDrawing(latest.Numbers, latest.Powerball)
	a.verifyPredictions(latest)

	if err := a.generateNewPrediction(latest); err != nil {
		logger.Errorf("Failed to generate new prediction: %v", err)
		return err
	}

	fmt.Printf("✅ 新开奖处理完成: %s\n", latest.DateString())
	return nil
}

// verifyPredictions 为已保存的预测打分
func (a *App) verifyPredictions(actual *database.Drawing) {
	results, err := a.validator.ValidateDrawing(actual)
	if err != nil {
		logger.Warnf("Failed to verify predictions for %s: %v", actual.DateString(), err)
		return
	}
	if len(results) == 0 {
		return
	}

	a.cacheManager.OnPredictionsScored(len(results))

	best := results[0]
	for _, r := range results[1:] {
		if r.MatchScore > best.MatchScore {
			best = r
		}
	}
	fmt.Printf("✅ 验证了 %d 组预测，最佳 %s 得分 %.2f\n", len(results), best.StrategyID, best.MatchScore)
}

// generateNewPrediction 生成、保存并推送新一批预测
func (a *App) generateNewPrediction(latest *database.Drawing) error {
	history, err := a.cacheManager.GetDrawingHistory(a.config.API.HistoryLimit)
	if err != nil {
		// 引擎会退化为随机预测
		logger.Warnf("Failed to get history for prediction: %v", err)
	}

	batch := a.engine.GenerateEnsemblePrediction(history, a.config.Engine.RequestedSets)
	if len(batch) == 0 {
		return fmt.Errorf("engine returned an empty batch")
	}

	records := toPredictionRecords(batch, latest.DrawDate)
	if err := a.mysql.SavePredictionBatch(records); err != nil {
		return fmt.Errorf("failed to save prediction batch: %w", err)
	}
	a.cacheManager.OnPredictionBatch(records)

	a.telegramBot.BroadcastPredictions(batch, latest)

	fmt.Printf("🔮 生成预测批次 %s: %d 组\n", batch[0].BatchID, len(batch))
	return nil
}

// toPredictionRecords 转换为数据库记录，source 为生成时最新的开奖日期，决定该批次对应下一期
func toPredictionRecords(batch []predictor.Prediction, source time.Time) []database.PredictionRecord {
	records := make([]database.PredictionRecord, len(batch))
	for i, p := range batch {
		records[i] = database.PredictionRecord{
			BatchID:        p.BatchID,
			SlotIndex:      p.SlotIndex,
			StrategyID:     string(p.StrategyID),
			Numbers:        p.Numbers,
			Powerball:      p.Powerball,
			Confidence:     p.Confidence,
			Weight:         p.Weight,
			PredictedAt:    p.Timestamp,
			SourceDrawDate: source,
		}
	}
	return records
}

// performanceLoop 定期刷新算法权重并保存快照
func (a *App) performanceLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.App.PerformanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.engine.UpdatePerformanceMetrics()
			a.persistPerformance()
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) persistPerformance() {
	report := a.engine.GetPerformanceReport()
	if !report.IsLearning {
		return
	}
	if err := a.mysql.SavePerformanceSnapshot(toPerformanceRecords(report)); err != nil {
		logger.Warnf("Failed to save performance snapshot: %v", err)
	}
}

func toPerformanceRecords(report predictor.PerformanceReport) []database.PerformanceRecord {
	now := time.Now()
	records := make([]database.PerformanceRecord, len(report.Algorithms))
	for i, a := range report.Algorithms {
		records[i] = database.PerformanceRecord{
			StrategyID:         string(a.StrategyID),
			Weight:             a.Weight,
			SuccessRate:        a.SuccessRate,
			TotalPredictions:   a.TotalPredictions,
			CorrectPredictions: a.CorrectPredictions,
			UpdatedAt:          now,
		}
	}
	return records
}

// dataCleanupLoop 每小时清理过期数据并记录统计
func (a *App) dataCleanupLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := a.mysql.CleanOldData(a.config.App.DataRetentionDays)
			if err != nil {
				fmt.Printf("❌ 数据清理失败: %v\n", err)
			} else if removed > 0 {
				fmt.Printf("🧹 清理了 %d 条过期数据\n", removed)
			}
			a.logStatistics()
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) logStatistics() {
	stats, err := a.statCalculator.CalculateStatistics()
	if err != nil {
		logger.Warnf("Failed to calculate statistics: %v", err)
		return
	}

	trend, err := a.statCalculator.GetTrendAnalysis(10)
	if err != nil {
		logger.Warnf("Failed to analyze trend: %v", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"verified":       stats.Overall.VerifiedPredictions,
		"avg_score":      stats.Overall.AverageMatchScore,
		"powerball_hits": stats.PowerballHits,
		"trend":          trend["trend_direction"],
	}).Info("Prediction statistics")
}

// HealthCheck 健康检查
func (a *App) HealthCheck() map[string]interface{} {
	health := map[string]interface{}{
		"timestamp": time.Now(),
		"status":    "ok",
	}
	services := map[string]interface{}{}
	health["services"] = services

	ctx, cancel := context.WithTimeout(a.ctx, a.config.API.Timeout)
	defer cancel()

	if err := a.apiClient.HealthCheck(ctx); err != nil {
		services["api"] = map[string]interface{}{"status": "error", "error": err.Error()}
		health["status"] = "degraded"
	} else {
		services["api"] = map[string]interface{}{"status": "ok", "stats": a.apiClient.GetAPIStats()}
	}

	services["cache"] = map[string]interface{}{"status": "ok", "stats": a.cacheManager.GetStats()}
	services["engine"] = map[string]interface{}{"status": "ok", "report": a.engine.GetPerformanceReport()}
	services["telegram"] = map[string]interface{}{"status": "ok", "info": a.telegramBot.GetBotInfo()}

	return health
}

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	app, err := NewApp(configPath)
	if err != nil {
		fmt.Printf("❌ 应用初始化失败: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		fmt.Printf("❌ 应用启动失败: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := app.Stop(); err != nil {
		fmt.Printf("❌ 关闭时出错: %v\n", err)
		os.Exit(1)
	}
}
