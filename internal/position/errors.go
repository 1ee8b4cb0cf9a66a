package position

import "fmt"

// PositionError는 포지션 처리 중 발생한 에러에 심볼과 작업 정보를 덧붙입니다
type PositionError struct {
	Symbol string
	Op     string
	Err    error
}

// Error는 error 인터페이스를 구현합니다
func (e *PositionError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("포지션 에러 [%s, 작업: %s]: %v", e.Symbol, e.Op, e.Err)
	}
	return fmt.Sprintf("포지션 에러 [작업: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *PositionError) Unwrap() error {
	return e.Err
}

// NewPositionError는 새로운 PositionError를 생성합니다
func NewPositionError(symbol, op string, err error) *PositionError {
	return &PositionError{
		Symbol: symbol,
		Op:     op,
		Err:    err,
	}
}

// Severity는 단계 실패가 실행 흐름에 미치는 영향을 나타냅니다
type Severity int

const (
	// Advisory 실패는 기록만 하고 흐름을 계속 진행합니다
	Advisory Severity = iota
	// Fatal 실패는 실행을 중단합니다
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "advisory"
}

// StepError는 개별 설정 단계의 실패 결과입니다
type StepError struct {
	Step     string
	Severity Severity
	Err      error
}

// Error는 error 인터페이스를 구현합니다
func (e StepError) Error() string {
	return fmt.Sprintf("%s 단계 실패 (%s): %v", e.Step, e.Severity, e.Err)
}

// Unwrap은 내부 에러를 반환합니다
func (e StepError) Unwrap() error {
	return e.Err
}
