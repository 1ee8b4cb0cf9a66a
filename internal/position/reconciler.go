package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/exchange"
)

// ReconcileState는 포지션 정리 과정의 상태입니다
type ReconcileState int

const (
	StateStart ReconcileState = iota
	StateOrdersCancelled
	StatePositionChecked
	StateFlat
	StateSameSide
	StateOppositeDetected
	StateClosing
	StatePollingFlat
	StateTimedOut
)

func (s ReconcileState) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateOrdersCancelled:
		return "OrdersCancelled"
	case StatePositionChecked:
		return "PositionChecked"
	case StateFlat:
		return "Flat"
	case StateSameSide:
		return "SameSide"
	case StateOppositeDetected:
		return "OppositeDetected"
	case StateClosing:
		return "Closing"
	case StatePollingFlat:
		return "PollingFlat"
	case StateTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// PollPolicy는 청산 확인 폴링 정책입니다
type PollPolicy struct {
	Interval    time.Duration // 조회 간격
	MaxAttempts int           // 최대 조회 횟수
	Deadline    time.Duration // 전체 대기 한도 (0이면 제한 없음)
}

// DefaultPollPolicy는 1초 간격, 10회, 15초 한도입니다
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: time.Second, MaxAttempts: 10, Deadline: 15 * time.Second}
}

// ReconcileResult는 포지션 정리 결과입니다
type ReconcileResult struct {
	State           ReconcileState   // 최종 상태
	ClosedPosition  *domain.Position // 청산한 반대 포지션 (없으면 nil)
	CancelledOrders int              // 취소 성공한 주문 수
	FailedCancels   int              // 취소 실패한 주문 수
	PollAttempts    int              // 청산 확인 조회 횟수
	Flipped         bool             // 반대 포지션을 청산했는지 여부
	Trail           []ReconcileState // 거쳐간 상태 기록
}

func (r *ReconcileResult) moveTo(s ReconcileState) {
	r.State = s
	r.Trail = append(r.Trail, s)
}

// Reconciler는 진입 전에 미체결 주문을 취소하고 반대 포지션을 청산합니다
type Reconciler struct {
	exchange exchange.Exchange
	policy   PollPolicy
	logger   *zap.Logger
}

// NewReconciler는 새 Reconciler를 생성합니다
func NewReconciler(ex exchange.Exchange, policy PollPolicy, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Reconciler{exchange: ex, policy: policy, logger: logger}
}

// Reconcile은 entrySide 방향 진입이 가능한 상태로 계정을 정리합니다.
// 반환된 결과의 State가 Flat 또는 SameSide일 때만 진입할 수 있습니다.
// 에러가 있어도 진행 상황을 담은 결과를 함께 반환합니다.
// ctx 취소는 청산 주문 전까지만 반영됩니다
func (r *Reconciler) Reconcile(ctx context.Context, symbol string, entrySide domain.OrderSide) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	result.moveTo(StateStart)
	logger := r.logger.With(zap.String("symbol", symbol), zap.String("entry_side", string(entrySide)))

	// 1. 미체결 주문 취소
	if err := r.cancelOpenOrders(ctx, symbol, result, logger); err != nil {
		return result, NewPositionError(symbol, "cancel-orders", err)
	}
	result.moveTo(StateOrdersCancelled)

	// 2. 현재 포지션 확인
	pos, err := r.exchange.GetPosition(ctx, symbol)
	if err != nil {
		return result, NewPositionError(symbol, "get-position", fmt.Errorf("포지션 조회 실패: %w", err))
	}
	result.moveTo(StatePositionChecked)

	if !pos.IsActive() {
		result.moveTo(StateFlat)
		return result, nil
	}
	if !IsOppositePosition(pos, entrySide) {
		logger.Info("같은 방향 포지션이 이미 있습니다", zap.String("size", pos.Size.String()))
		result.moveTo(StateSameSide)
		return result, nil
	}

	// 3. 반대 포지션 청산
	result.moveTo(StateOppositeDetected)
	logger.Info("반대 방향 포지션 감지",
		zap.String("side", string(pos.Side)),
		zap.String("size", pos.Size.String()),
		zap.Int("position_idx", pos.PositionIdx))

	closeOrder := domain.OrderRequest{
		Symbol:      symbol,
		Side:        GetOrderSideForExit(pos),
		Type:        domain.Market,
		Quantity:    pos.Size,
		ReduceOnly:  true,
		PositionIdx: pos.PositionIdx,
		TimeInForce: domain.IOC,
		OrderLinkID: uuid.NewString(),
	}

	result.moveTo(StateClosing)
	result.ClosedPosition = pos
	if _, err := r.exchange.PlaceOrder(ctx, closeOrder); err != nil {
		return result, NewPositionError(symbol, "close-position", fmt.Errorf("%w: %w", domain.ErrFlip, err))
	}

	// 4. 청산 확인. 청산 주문이 접수된 뒤에는 호출자 취소와 무관하게 정책 한도까지 확인합니다
	result.moveTo(StatePollingFlat)
	if err := r.waitFlat(context.WithoutCancel(ctx), symbol, result, logger); err != nil {
		return result, NewPositionError(symbol, "poll-flat", err)
	}

	result.Flipped = true
	result.moveTo(StateFlat)
	logger.Info("반대 포지션 청산 완료", zap.Int("attempts", result.PollAttempts))
	return result, nil
}

// cancelOpenOrders는 심볼의 모든 미체결 주문을 취소합니다.
// 개별 취소 실패는 기록만 하고, 목록 조회 실패는 에러로 반환합니다
func (r *Reconciler) cancelOpenOrders(ctx context.Context, symbol string, result *ReconcileResult, logger *zap.Logger) error {
	orders, err := r.exchange.GetOpenOrders(ctx, symbol)
	if err != nil {
		return fmt.Errorf("주문 조회 실패: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	logger.Info("기존 주문을 취소합니다", zap.Int("count", len(orders)))
	for _, order := range orders {
		if err := r.exchange.CancelOrder(ctx, symbol, order.OrderID); err != nil {
			result.FailedCancels++
			logger.Warn("주문 취소 실패",
				zap.String("order_id", order.OrderID), zap.Error(err))
			continue
		}
		result.CancelledOrders++
		logger.Debug("주문 취소 성공",
			zap.String("order_id", order.OrderID),
			zap.String("type", string(order.OrderType)),
			zap.String("side", string(order.Side)))
	}
	return nil
}

// errStillOpen은 폴링 중 포지션이 아직 남아있을 때 재시도를 위해 사용합니다
var errStillOpen = errors.New("포지션이 아직 남아있습니다")

// waitFlat은 포지션 크기가 0이 될 때까지 정책에 따라 조회합니다.
// 조회 에러와 남은 포지션은 재시도하고, 횟수나 한도를 넘으면 FlipTimeout입니다
func (r *Reconciler) waitFlat(ctx context.Context, symbol string, result *ReconcileResult, logger *zap.Logger) error {
	pollCtx := ctx
	if r.policy.Deadline > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, r.policy.Deadline)
		defer cancel()
	}

	check := func() (struct{}, error) {
		result.PollAttempts++
		pos, err := r.exchange.GetPosition(pollCtx, symbol)
		if err != nil {
			logger.Warn("청산 확인 조회 실패",
				zap.Int("attempt", result.PollAttempts), zap.Error(err))
			return struct{}{}, err
		}
		if pos.IsActive() {
			logger.Debug("포지션이 아직 남아있습니다",
				zap.Int("attempt", result.PollAttempts), zap.String("size", pos.Size.String()))
			return struct{}{}, errStillOpen
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(pollCtx, check,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.policy.Interval)),
		backoff.WithMaxTries(uint(r.policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(r.policy.Deadline))
	if err == nil {
		return nil
	}

	result.moveTo(StateTimedOut)
	cause := fmt.Sprintf("%d회 조회", result.PollAttempts)
	if result.PollAttempts < r.policy.MaxAttempts {
		cause = fmt.Sprintf("%s 대기", r.policy.Deadline)
	}
	return fmt.Errorf("%w: %s 후에도 포지션이 남아있습니다 (마지막 결과: %v)", domain.ErrFlipTimeout, cause, err)
}
