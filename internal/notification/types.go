package notification

import (
	"github.com/shopspring/decimal"

	"github.com/assist-by/relay/internal/domain"
)

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendSignal은 수신한 시그널 알림을 전송합니다
	SendSignal(signal domain.TradeSignal) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendTradeInfo는 거래 실행 정보를 전송합니다
	SendTradeInfo(info TradeInfo) error
}

// TradeInfo는 거래 실행 정보를 정의합니다
type TradeInfo struct {
	Symbol        string          // 심볼 (예: ETHUSDT)
	PositionType  string          // "LONG" or "SHORT"
	PositionValue decimal.Decimal // 포지션 크기 (USDT)
	Quantity      decimal.Decimal // 주문 수량 (코인)
	EntryPrice    decimal.Decimal // 기준가
	StopLoss      decimal.Decimal // 손절가
	TakeProfit    decimal.Decimal // 익절가
	Balance       decimal.Decimal // 주문 전 USDT 잔고
	Leverage      int             // 사용 레버리지
	Flipped       bool            // 반대 포지션 청산 후 진입 여부
	OrderID       string          // 거래소 주문 ID
	Warnings      []string        // 무시하고 진행한 설정 실패
}

// GetColorForPosition은 포지션 타입에 따른 색상을 반환합니다
func GetColorForPosition(positionType string) int {
	switch positionType {
	case "LONG":
		return ColorSuccess
	case "SHORT":
		return ColorError
	default:
		return ColorInfo
	}
}
