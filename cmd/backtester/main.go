package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"quant-trading/internal/backtest"
	"quant-trading/internal/config"
	"quant-trading/internal/log"
	"quant-trading/internal/metric"
	"quant-trading/internal/risk"
	"quant-trading/internal/sizing"
	"quant-trading/internal/store"
	"quant-trading/internal/strategy"
)

func main() {
	var configPath string
	var barsPath string
	var runName string
	var sweepAll bool
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&barsPath, "bars", "", "历史K线CSV文件路径")
	flag.StringVar(&runName, "name", "", "运行名称，默认使用策略名")
	flag.BoolVar(&sweepAll, "sweep", false, "并发回测全部策略并逐一保存结果")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if barsPath == "" {
		logger.Error("缺少 -bars 参数")
		os.Exit(1)
	}

	series, err := loadBarsCSV(barsPath)
	if err != nil {
		logger.Error("读取K线文件失败", zap.Error(err))
		os.Exit(1)
	}

	resultStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := resultStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runName == "" {
		runName = cfg.Strategy.Name
	}

	if sweepAll {
		outcomes, err := runSweep(ctx, cfg, series, logger)
		if err != nil {
			logger.Error("策略对比回测失败", zap.Error(err))
			os.Exit(1)
		}
		for _, outcome := range outcomes {
			saveAndReport(ctx, resultStore, logger, outcome.Name, outcome.Result)
		}
		return
	}

	result, err := runBacktest(ctx, cfg, series, logger)
	if err != nil {
		logger.Error("回测运行失败", zap.Error(err))
		os.Exit(1)
	}

	saveAndReport(ctx, resultStore, logger, runName, result)
}

func saveAndReport(ctx context.Context, resultStore *store.Store, logger *zap.Logger, name string, result backtest.Result) {
	runID, err := resultStore.SaveResult(ctx, name, result)
	if err != nil {
		logger.Error("保存结果失败", zap.String("name", name), zap.Error(err))
		os.Exit(1)
	}

	logger.Info("回测完成",
		zap.String("name", name),
		zap.Int64("run_id", runID),
		zap.Float64("final_equity", result.FinalEquity),
		zap.Int("trades", len(result.Trades)),
		zap.Any("metrics", result.Metrics.Map()),
	)
}

func runBacktest(ctx context.Context, cfg *config.Config, series barSeries, logger *zap.Logger) (backtest.Result, error) {
	feed, err := series.feed()
	if err != nil {
		return backtest.Result{}, err
	}

	riskMgr, err := risk.NewManager(cfg.Risk, logger)
	if err != nil {
		return backtest.Result{}, err
	}

	engine, err := backtest.NewEngine(engineConfig(cfg), feed, riskMgr, logger)
	if err != nil {
		return backtest.Result{}, err
	}

	if err := engine.AddExecution(buildStrategy(cfg.Strategy), cfg.Strategy.Symbols, buildSizer(cfg.Sizing)); err != nil {
		return backtest.Result{}, err
	}

	return engine.Run(ctx)
}

// runSweep 在同一份数据上并发回测全部策略变体，用于横向对比。
func runSweep(ctx context.Context, cfg *config.Config, series barSeries, logger *zap.Logger) ([]backtest.RunOutcome, error) {
	names := []string{"ma_cross", "mean_reversion", "rsi_threshold", "bollinger_breakout"}

	specs := make([]backtest.RunSpec, 0, len(names))
	for _, name := range names {
		stratCfg := cfg.Strategy
		stratCfg.Name = name
		specs = append(specs, backtest.RunSpec{
			Name:    name,
			Config:  engineConfig(cfg),
			Limits:  cfg.Risk,
			NewFeed: series.feed,
			Setup: func(engine *backtest.Engine) error {
				return engine.AddExecution(buildStrategy(stratCfg), stratCfg.Symbols, buildSizer(cfg.Sizing))
			},
		})
	}

	return backtest.Sweep(ctx, specs, cfg.Backtest.SweepWorkers, logger)
}

func engineConfig(cfg *config.Config) backtest.Config {
	return backtest.Config{
		InitialCash:     cfg.Backtest.InitialCash,
		FillPolicy:      backtest.FillPolicy(cfg.Backtest.FillPolicy),
		Slippage:        cfg.Backtest.Slippage,
		CommissionRate:  cfg.Backtest.CommissionRate,
		CommissionFixed: cfg.Backtest.CommissionFixed,
		Metrics: metric.Params{
			PeriodsPerYear: cfg.Backtest.PeriodsPerYear,
			RiskFreeRate:   cfg.Backtest.RiskFreeRate,
		},
	}
}

func buildStrategy(cfg config.StrategyConfig) strategy.Strategy {
	switch cfg.Name {
	case "mean_reversion":
		return strategy.NewMeanReversion(cfg.Lookback, cfg.Threshold)
	case "rsi_threshold":
		return strategy.NewRSIThreshold(cfg.RSIPeriod, cfg.Oversold, cfg.Overbought)
	case "bollinger_breakout":
		return strategy.NewBollingerBreakout(cfg.BollPeriod, cfg.BollDev)
	default:
		return strategy.NewMACross(cfg.FastPeriod, cfg.SlowPeriod)
	}
}

func buildSizer(cfg config.SizingConfig) sizing.Sizer {
	switch cfg.Name {
	case "volatility_adjusted":
		return sizing.NewVolatilityAdjusted(cfg.Fraction, cfg.ATRPeriod, cfg.ATRMultiplier)
	case "kelly":
		return sizing.NewKelly(cfg.KellyWinProb, cfg.KellyPayoff, cfg.KellyMax)
	default:
		return sizing.NewFixedFractional(cfg.Fraction)
	}
}
