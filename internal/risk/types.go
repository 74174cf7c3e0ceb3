package risk

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"quant-trading/internal/strategy"
)

// StatusType 描述风险评估结果状态。
type StatusType string

const (
	StatusProceed StatusType = "proceed"
	StatusDeny    StatusType = "deny"
)

// SizedOrder 为经过仓位计算后的订单，可被风控缩减或拒绝。
type SizedOrder struct {
	Intent   strategy.OrderIntent
	Quantity int64
}

// Decision 为一次授权评估的输出。Quantity 可能小于请求数量：
// 当部分数量即可满足全部限制时按最紧的上界缩减而不是直接拒绝。
type Decision struct {
	Status   StatusType
	Quantity int64
	Notes    []string
}

// Approved 返回订单是否被允许执行。
func (d Decision) Approved() bool {
	return d.Status == StatusProceed && d.Quantity > 0
}

// Limits 为组合级风险限制，回测运行期间只读。
type Limits struct {
	MaxPositionPct        float64 `mapstructure:"max_position_pct"`
	MaxExposurePct        float64 `mapstructure:"max_exposure_pct"`
	MaxDrawdownPct        float64 `mapstructure:"max_drawdown_pct"`
	MaxCorrelatedPct      float64 `mapstructure:"max_correlated_pct"`
	CorrelationThreshold  float64 `mapstructure:"correlation_threshold"`
	CorrelationWindow     int     `mapstructure:"correlation_window"`
	DrawdownRecoveryRatio float64 `mapstructure:"drawdown_recovery_ratio"`
}

// DefaultLimits 返回带文档化默认值的限制集合。
func DefaultLimits() Limits {
	return Limits{
		MaxPositionPct:        0.25,
		MaxExposurePct:        1.0,
		MaxDrawdownPct:        0.20,
		MaxCorrelatedPct:      0.50,
		CorrelationThreshold:  0.7,
		CorrelationWindow:     30,
		DrawdownRecoveryRatio: 0.5,
	}
}

// Validate 校验限制取值，非法配置在回测启动前即失败。
func (l Limits) Validate() error {
	var err error

	if l.MaxPositionPct <= 0 || l.MaxPositionPct > 1 {
		err = multierr.Append(err, errors.New("risk: max_position_pct 必须位于(0,1]"))
	}
	if l.MaxExposurePct <= 0 || l.MaxExposurePct > 1 {
		err = multierr.Append(err, errors.New("risk: max_exposure_pct 必须位于(0,1]"))
	}
	if l.MaxDrawdownPct <= 0 || l.MaxDrawdownPct >= 1 {
		err = multierr.Append(err, errors.New("risk: max_drawdown_pct 必须位于(0,1)"))
	}
	if l.MaxCorrelatedPct <= 0 || l.MaxCorrelatedPct > 1 {
		err = multierr.Append(err, errors.New("risk: max_correlated_pct 必须位于(0,1]"))
	}
	if l.CorrelationThreshold < 0 || l.CorrelationThreshold > 1 {
		err = multierr.Append(err, errors.New("risk: correlation_threshold 必须位于[0,1]"))
	}
	if l.CorrelationWindow <= 2 {
		err = multierr.Append(err, errors.New("risk: correlation_window 必须大于2"))
	}
	if l.DrawdownRecoveryRatio <= 0 || l.DrawdownRecoveryRatio >= 1 {
		err = multierr.Append(err, errors.New("risk: drawdown_recovery_ratio 必须位于(0,1)"))
	}

	if err != nil {
		return fmt.Errorf("风险限制配置非法: %w", err)
	}
	return nil
}
