package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quant-trading/internal/market"
	"quant-trading/internal/risk"
)

// RunSpec 描述一次独立回测。NewFeed 与 Setup 必须为每次运行
// 构造全新的 Feed 与策略实例，运行之间不共享任何可变状态。
type RunSpec struct {
	Name    string
	Config  Config
	Limits  risk.Limits
	NewFeed func() (market.Feed, error)
	Setup   func(*Engine) error
}

// RunOutcome 为单次运行的结果，顺序与输入Spec一致。
type RunOutcome struct {
	Name   string
	Result Result
}

// Sweep 并发执行相互独立的回测（参数扫描、多策略对比）。
// 任一运行失败或上下文取消时整体失败，未完成运行的部分结果被丢弃。
func Sweep(ctx context.Context, specs []RunSpec, concurrency int, logger *zap.Logger) ([]RunOutcome, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("backtest: sweep 需要至少一个运行配置")
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	outcomes := make([]RunOutcome, len(specs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, spec := range specs {
		i, spec := i, spec
		group.Go(func() error {
			result, err := runSpec(groupCtx, spec, logger)
			if err != nil {
				return fmt.Errorf("backtest: 运行 %q 失败: %w", spec.Name, err)
			}
			outcomes[i] = RunOutcome{Name: spec.Name, Result: result}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func runSpec(ctx context.Context, spec RunSpec, logger *zap.Logger) (Result, error) {
	if spec.NewFeed == nil || spec.Setup == nil {
		return Result{}, fmt.Errorf("NewFeed 与 Setup 不能为空")
	}

	feed, err := spec.NewFeed()
	if err != nil {
		return Result{}, err
	}

	riskMgr, err := risk.NewManager(spec.Limits, logger.Named(spec.Name))
	if err != nil {
		return Result{}, err
	}

	engine, err := NewEngine(spec.Config, feed, riskMgr, logger.Named(spec.Name))
	if err != nil {
		return Result{}, err
	}
	if err := spec.Setup(engine); err != nil {
		return Result{}, err
	}

	return engine.Run(ctx)
}
