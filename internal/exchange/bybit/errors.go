package bybit

import "fmt"

// Bybit 응답 코드 중 성공으로 취급하는 값들
const (
	retCodeOK                  = 0
	retCodeLeverageNotModified = 110043 // 이미 같은 레버리지
	retCodeModeNotModified     = 110025 // 이미 같은 포지션 모드
)

// APIError는 retCode가 0이 아닌 거래소 응답입니다
type APIError struct {
	Code    int
	Message string
}

// Error는 error 인터페이스를 구현합니다
func (e *APIError) Error() string {
	return fmt.Sprintf("bybit API 에러(코드: %d): %s", e.Code, e.Message)
}
