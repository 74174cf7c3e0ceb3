package market

import (
	"errors"
	"fmt"
)

var (
	// ErrDataIntegrity 表示输入K线数据违反顺序或取值约束，回测必须中止。
	ErrDataIntegrity = errors.New("market data integrity violation")
)

func wrapIntegrity(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}
