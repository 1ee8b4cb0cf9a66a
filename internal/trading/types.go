package trading

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/position"
)

// ExecuteConfig는 거래를 실행하는데 필요한 설정을 담고 있는 구조체이다.
type ExecuteConfig struct {
	DefaultLeverage int                                // 시그널에 레버리지가 없을 때 사용
	AccountType     domain.AccountType                 // 잔고 조회 계정 분류
	SettleCoin      string                             // 잔고 자산 (USDT)
	MarginFraction  decimal.Decimal                    // 잔고 중 증거금 비율
	Rounding        position.RoundingMode              // 수량 반올림 방향
	Bracket         position.BracketConfig             // 기본 TP/SL 퍼센트
	DefaultLimits   domain.InstrumentLimits            // 기본 주문 제약
	Instruments     map[string]domain.InstrumentLimits // 심볼별 주문 제약 (선택)
	PositionMode    domain.PositionMode                // 포지션 모드
	Poll            position.PollPolicy                // 청산 확인 폴링 정책
}

// LimitsFor는 심볼별 제약에 기본값을 채워 반환합니다
func (c ExecuteConfig) LimitsFor(symbol string) domain.InstrumentLimits {
	if l, ok := c.Instruments[symbol]; ok {
		return l.Merge(c.DefaultLimits)
	}
	return c.DefaultLimits
}

// Executor는 매매 실행기 인터페이스를 정의합니다.
//
// 같은 심볼에 대한 Execute 호출은 도착 순서와 관계없이 한 번에 하나씩만 실행되며,
// 서로 다른 심볼은 병렬로 실행됩니다. 잠금 대기는 ctx를 따릅니다.
type Executor interface {
	// Execute는 시그널에 따라 실제 매매를 실행합니다
	Execute(ctx context.Context, signal domain.TradeSignal) (*Result, error)
}

// Result는 매매 실행 결과입니다
type Result struct {
	Symbol             string
	Side               domain.OrderSide
	ReferencePrice     decimal.Decimal
	Quantity           decimal.Decimal
	Leverage           int
	Balance            decimal.Decimal
	MarginUsed         decimal.Decimal
	PositionValue      decimal.Decimal
	Notional           decimal.Decimal
	MinNotionalApplied bool
	TakeProfit         decimal.Decimal
	StopLoss           decimal.Decimal
	Reconcile          position.ReconcileState
	Flipped            bool
	Warnings           []string
	Ack                *domain.OrderAck
	Message            string
}

func openedMessage(side domain.OrderSide, symbol string, price decimal.Decimal) string {
	return fmt.Sprintf("Opened %s %s @ %s", side, symbol, price)
}

// PositionType은 알림용 포지션 표기를 반환합니다
func (r *Result) PositionType() string {
	if r.Side == domain.Sell {
		return "SHORT"
	}
	return "LONG"
}

// ExecutionError는 거래 실행 중 발생한 오류를 나타내는 구조체입니다.
type ExecutionError struct {
	Phase string
	Err   error
}

func (e *ExecutionError) Error() string {
	return "매매 실행 실패 (" + e.Phase + "): " + e.Err.Error()
}

// Unwrap은 내부 에러를 반환합니다
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func warningsOf(steps []position.StepError) []string {
	if len(steps) == 0 {
		return nil
	}
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, strings.TrimSpace(s.Error()))
	}
	return out
}
