package domain

// Direction은 시그널의 매매 방향을 정의합니다
type Direction int

const (
	NoDirection Direction = iota
	Long
	Short
)

// String은 Direction의 문자열 표현을 반환합니다
func (d Direction) String() string {
	switch d {
	case Long:
		return "Long"
	case Short:
		return "Short"
	default:
		return "Unknown"
	}
}

// EntrySide는 방향에 맞는 진입 주문 사이드를 반환합니다
func (d Direction) EntrySide() OrderSide {
	if d == Short {
		return Sell
	}
	return Buy
}

// OrderSide는 주문 방향을 정의합니다 (Bybit 표기)
type OrderSide string

const (
	Buy  OrderSide = "Buy"
	Sell OrderSide = "Sell"
)

// Opposite는 반대 방향 사이드를 반환합니다
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType은 주문 유형을 정의합니다
type OrderType string

const (
	Market OrderType = "Market"
	Limit  OrderType = "Limit"
)

// TimeInForce는 주문 유효 기간을 정의합니다
type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
)

// PositionMode는 계정의 포지션 모드를 정의합니다
type PositionMode string

const (
	PositionModeNone   PositionMode = "none"   // 모드 변경 요청 안 함
	PositionModeOneWay PositionMode = "oneway" // 단방향 (positionIdx 0)
	PositionModeHedge  PositionMode = "hedge"  // 헤지 (positionIdx 1/2)
)

// PositionIdx는 모드와 사이드에 맞는 positionIdx 값을 반환합니다
func (m PositionMode) PositionIdx(side OrderSide) int {
	if m != PositionModeHedge {
		return 0
	}
	if side == Buy {
		return 1
	}
	return 2
}

// AccountType은 Bybit 계정 분류입니다 (예: UNIFIED, CONTRACT)
type AccountType string

const (
	AccountUnified  AccountType = "UNIFIED"
	AccountContract AccountType = "CONTRACT"
)

// 기본 정산 자산
const SettleCoin = "USDT"
