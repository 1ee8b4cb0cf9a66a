package position

import (
	"context"

	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/exchange"
)

// LeverageConfigurator는 주문 전에 레버리지와 포지션 모드를 맞춥니다.
// 실패는 모두 Advisory로 반환하며 실행을 중단시키지 않습니다
type LeverageConfigurator struct {
	exchange exchange.Exchange
	mode     domain.PositionMode
	logger   *zap.Logger
}

// NewLeverageConfigurator는 새 LeverageConfigurator를 생성합니다.
// mode가 PositionModeNone이면 모드 변경을 요청하지 않습니다
func NewLeverageConfigurator(ex exchange.Exchange, mode domain.PositionMode, logger *zap.Logger) *LeverageConfigurator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeverageConfigurator{exchange: ex, mode: mode, logger: logger}
}

// Configure는 레버리지 설정과 포지션 모드 변경을 시도하고 실패한 단계를 반환합니다
func (c *LeverageConfigurator) Configure(ctx context.Context, symbol string, leverage int) []StepError {
	var failures []StepError

	if err := c.exchange.SetLeverage(ctx, symbol, leverage); err != nil {
		c.logger.Warn("레버리지 설정 실패, 계속 진행합니다",
			zap.String("symbol", symbol), zap.Int("leverage", leverage), zap.Error(err))
		failures = append(failures, StepError{Step: "set-leverage", Severity: Advisory, Err: err})
	}

	if c.mode != "" && c.mode != domain.PositionModeNone {
		if err := c.exchange.SetPositionMode(ctx, symbol, c.mode); err != nil {
			c.logger.Warn("포지션 모드 변경 실패, 계속 진행합니다",
				zap.String("symbol", symbol), zap.String("mode", string(c.mode)), zap.Error(err))
			failures = append(failures, StepError{Step: "switch-mode", Severity: Advisory, Err: err})
		}
	}

	return failures
}
