package domain

import (
	"context"
	"errors"
)

// 실행 흐름 전체에서 공유하는 에러 분류입니다.
// 하위 레이어는 이 값들을 %w로 감싸서 반환하고, 경계에서는 ErrorKind로 분류합니다
var (
	ErrAuthentication = errors.New("인증 실패")
	ErrInvalidSignal  = errors.New("잘못된 시그널")
	ErrBalance        = errors.New("잔고 조회 실패")
	ErrSizing         = errors.New("주문 수량 계산 실패")
	ErrFlip           = errors.New("반대 포지션 청산 실패")
	ErrFlipTimeout    = errors.New("반대 포지션 청산 확인 시간 초과")
	ErrOrderRejected  = errors.New("주문 거부")
	ErrTransport      = errors.New("거래소 통신 실패")
	ErrProtocol       = errors.New("거래소 응답 파싱 실패")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrAuthentication, "AuthenticationError"},
	{ErrInvalidSignal, "InvalidSignal"},
	{ErrBalance, "BalanceError"},
	{ErrSizing, "SizingError"},
	{ErrFlipTimeout, "FlipTimeoutError"},
	{ErrFlip, "FlipError"},
	{ErrOrderRejected, "OrderRejected"},
	{ErrTransport, "TransportError"},
	{ErrProtocol, "ProtocolError"},
	{context.Canceled, "Canceled"},
	{context.DeadlineExceeded, "Timeout"},
}

// ErrorKind는 에러 체인에서 가장 먼저 일치하는 분류 이름을 반환합니다
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "InternalError"
}
