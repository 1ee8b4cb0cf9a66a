package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/exchange"
	"github.com/assist-by/relay/internal/notification"
	"github.com/assist-by/relay/internal/position"
)

// 실행 단계 이름
const (
	PhaseLock      = "lock"
	PhaseBalance   = "balance"
	PhaseSizing    = "sizing"
	PhaseBracket   = "bracket"
	PhaseReconcile = "reconcile"
	PhasePreOrder  = "pre-order"
	PhaseOrder     = "order"
)

var _ Executor = (*SignalExecutor)(nil)

// SignalExecutor는 시그널 하나를 잔고 조회부터 진입 주문까지 처리합니다
type SignalExecutor struct {
	exchange   exchange.Exchange
	reconciler *position.Reconciler
	leverage   *position.LeverageConfigurator
	placer     *position.OrderPlacer
	locker     *SymbolLocker
	notifier   notification.Notifier
	config     ExecuteConfig
	logger     *zap.Logger
	notifyWG   sync.WaitGroup
}

// Option은 SignalExecutor 생성 옵션입니다
type Option func(*SignalExecutor)

// WithNotifier는 실행 결과 알림을 설정합니다
func WithNotifier(n notification.Notifier) Option {
	return func(e *SignalExecutor) {
		e.notifier = n
	}
}

// WithLogger는 로거를 설정합니다
func WithLogger(logger *zap.Logger) Option {
	return func(e *SignalExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLocker는 심볼 잠금을 교체합니다
func WithLocker(l *SymbolLocker) Option {
	return func(e *SignalExecutor) {
		if l != nil {
			e.locker = l
		}
	}
}

// NewExecutor는 새 SignalExecutor를 생성합니다
func NewExecutor(ex exchange.Exchange, cfg ExecuteConfig, opts ...Option) *SignalExecutor {
	e := &SignalExecutor{
		exchange: ex,
		locker:   NewSymbolLocker(),
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With(zap.String("component", "executor"))
	e.reconciler = position.NewReconciler(ex, cfg.Poll, e.logger)
	e.leverage = position.NewLeverageConfigurator(ex, cfg.PositionMode, e.logger)
	e.placer = position.NewOrderPlacer(ex, cfg.PositionMode, e.logger)
	return e
}

// Execute는 시그널에 따라 실제 매매를 실행합니다.
//
// 순서: 잔고 → 수량 계산 → TP/SL 계산 → 레버리지/모드 설정(실패 무시) →
// 미체결 주문 취소 및 반대 포지션 청산 → 진입 주문.
// 진입 주문 직전에 ctx가 끝났으면 주문하지 않습니다. 단, 반대 포지션 청산 주문이
// 접수된 뒤에는 청산 확인과 진입을 끝까지 진행합니다
func (e *SignalExecutor) Execute(ctx context.Context, signal domain.TradeSignal) (*Result, error) {
	logger := e.logger.With(
		zap.String("symbol", signal.Symbol),
		zap.String("direction", signal.Direction.String()))

	e.notify(func(n notification.Notifier) error { return n.SendSignal(signal) })

	release, err := e.locker.Lock(ctx, signal.Symbol)
	if err != nil {
		return nil, e.fail(logger, PhaseLock, err)
	}
	defer release()

	side := signal.Side()
	leverage := signal.Leverage
	if leverage <= 0 {
		leverage = e.config.DefaultLeverage
	}
	limits := e.config.LimitsFor(signal.Symbol)

	// 1. 잔고
	balance, err := e.exchange.GetBalance(ctx, e.config.AccountType, e.config.SettleCoin)
	if err != nil {
		if !errors.Is(err, domain.ErrBalance) {
			err = fmt.Errorf("%w: %w", domain.ErrBalance, err)
		}
		return nil, e.fail(logger, PhaseBalance, err)
	}
	if !balance.IsUsable() {
		return nil, e.fail(logger, PhaseBalance, fmt.Errorf("%w: 사용 가능한 잔고가 없습니다", domain.ErrBalance))
	}

	// 2. 수량
	size, err := position.CalculatePositionSize(balance.Available, leverage, signal.ReferencePrice, position.SizingConfig{
		MarginFraction: e.config.MarginFraction,
		Limits:         limits,
		Rounding:       e.config.Rounding,
	})
	if err != nil {
		return nil, e.fail(logger, PhaseSizing, err)
	}

	// 3. TP/SL (부작용 전에 검증)
	bracket, err := position.ComputeBracket(signal.Direction, signal.ReferencePrice,
		signal.TakeProfit, signal.StopLoss, e.config.Bracket, limits.PriceTick)
	if err != nil {
		return nil, e.fail(logger, PhaseBracket, err)
	}

	logger.Info("주문 준비",
		zap.String("balance", balance.Available.String()),
		zap.String("balance_source", balance.Source),
		zap.Int("leverage", leverage),
		zap.String("qty", size.Quantity.String()),
		zap.Bool("min_notional_applied", size.MinNotionalApplied),
		zap.String("tp", bracket.TakeProfit.String()),
		zap.String("sl", bracket.StopLoss.String()))

	// 4. 레버리지/모드
	warnings := warningsOf(e.leverage.Configure(ctx, signal.Symbol, leverage))

	// 5. 기존 주문/포지션 정리
	rec, err := e.reconciler.Reconcile(ctx, signal.Symbol, side)
	if err != nil {
		return nil, e.fail(logger, PhaseReconcile, err)
	}

	// 6. 되돌릴 수 없는 주문 직전 확인.
	// 반대 포지션을 이미 청산했으면 취소와 무관하게 진입까지 진행합니다
	orderCtx := ctx
	if rec.Flipped {
		orderCtx = context.WithoutCancel(ctx)
	} else if err := ctx.Err(); err != nil {
		return nil, e.fail(logger, PhasePreOrder, err)
	}

	// 7. 진입
	order := e.placer.BuildEntryOrder(signal.Symbol, side, size.Quantity, bracket)
	ack, err := e.placer.Place(orderCtx, order)
	if err != nil {
		return nil, e.fail(logger, PhaseOrder, err)
	}

	result := &Result{
		Symbol:             signal.Symbol,
		Side:               side,
		ReferencePrice:     signal.ReferencePrice,
		Quantity:           size.Quantity,
		Leverage:           leverage,
		Balance:            balance.Available,
		MarginUsed:         size.MarginUsed,
		PositionValue:      size.PositionValue,
		Notional:           size.Notional,
		MinNotionalApplied: size.MinNotionalApplied,
		TakeProfit:         bracket.TakeProfit,
		StopLoss:           bracket.StopLoss,
		Reconcile:          rec.State,
		Flipped:            rec.Flipped,
		Warnings:           warnings,
		Ack:                ack,
		Message:            openedMessage(side, signal.Symbol, signal.ReferencePrice),
	}

	logger.Info("매매 실행 완료",
		zap.String("message", result.Message),
		zap.String("reconcile", rec.State.String()),
		zap.Bool("flipped", rec.Flipped),
		zap.Strings("warnings", warnings))

	e.notify(func(n notification.Notifier) error {
		return n.SendTradeInfo(notification.TradeInfo{
			Symbol:        result.Symbol,
			PositionType:  result.PositionType(),
			PositionValue: result.PositionValue,
			Quantity:      result.Quantity,
			EntryPrice:    result.ReferencePrice,
			StopLoss:      result.StopLoss,
			TakeProfit:    result.TakeProfit,
			Balance:       result.Balance,
			Leverage:      result.Leverage,
			Flipped:       result.Flipped,
			OrderID:       ack.OrderID,
			Warnings:      warnings,
		})
	})

	return result, nil
}

// fail은 에러를 ExecutionError로 감싸고 기록과 알림을 남깁니다
func (e *SignalExecutor) fail(logger *zap.Logger, phase string, err error) error {
	execErr := &ExecutionError{Phase: phase, Err: err}
	logger.Error("매매 실행 실패",
		zap.String("phase", phase),
		zap.String("kind", domain.ErrorKind(err)),
		zap.Error(err))
	e.notify(func(n notification.Notifier) error { return n.SendError(execErr) })
	return execErr
}

// notify는 알림을 별도 고루틴에서 전송합니다. 전송 실패는 기록만 합니다
func (e *SignalExecutor) notify(send func(notification.Notifier) error) {
	if e.notifier == nil {
		return
	}
	e.notifyWG.Add(1)
	go func() {
		defer e.notifyWG.Done()
		if err := send(e.notifier); err != nil {
			e.logger.Warn("알림 전송 실패", zap.Error(err))
		}
	}()
}

// Wait는 전송 중인 알림이 끝날 때까지 기다립니다
func (e *SignalExecutor) Wait() {
	e.notifyWG.Wait()
}
