package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/domain"
)

// flexDecimal은 숫자, 숫자 문자열, 빈 문자열, null을 모두 받습니다
type flexDecimal struct {
	decimal.NullDecimal
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`""`)) {
		f.Valid = false
		return nil
	}
	return f.NullDecimal.UnmarshalJSON(data)
}

// WebhookRequest는 TradingView 알림 본문입니다
type WebhookRequest struct {
	Secret   string      `json:"secret"`
	Event    string      `json:"event"`
	Symbol   string      `json:"symbol"`
	Price    flexDecimal `json:"price"`
	Leverage flexDecimal `json:"lvg"`
	TP       flexDecimal `json:"tp"`
	SL       flexDecimal `json:"sl"`
}

// WebhookResponse는 실행 성공 응답입니다
type WebhookResponse struct {
	OK            bool            `json:"ok"`
	Message       string          `json:"message"`
	Qty           string          `json:"qty"`
	Leverage      int             `json:"leverage"`
	TP            string          `json:"tp"`
	SL            string          `json:"sl"`
	MarginUsed    string          `json:"marginUsed"`
	PositionValue string          `json:"positionValue"`
	Reconcile     string          `json:"reconcile"`
	Flipped       bool            `json:"flipped"`
	Warnings      []string        `json:"warnings,omitempty"`
	OrderID       string          `json:"orderId,omitempty"`
	BybitResponse json.RawMessage `json:"bybitResponse,omitempty"`
}

// ErrorResponse는 실패 응답입니다
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func (s *Server) webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: 요청 본문 파싱 실패: %w", domain.ErrInvalidSignal, err))
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.config.Secret)) != 1 {
		s.respondError(c, domain.ErrAuthentication)
		return
	}

	signal, err := domain.NewTradeSignal(domain.SignalInput{
		Event:      req.Event,
		Symbol:     req.Symbol,
		Price:      req.Price.NullDecimal,
		Leverage:   req.Leverage.NullDecimal,
		TakeProfit: req.TP.NullDecimal,
		StopLoss:   req.SL.NullDecimal,
	}, s.config.MaxLeverage, s.now())
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("시그널 수신",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("event", signal.Event),
		zap.String("symbol", signal.Symbol),
		zap.String("price", signal.ReferencePrice.String()))

	// 클라이언트 연결이 끊겨도 실행은 중단하지 않음
	ctx := context.WithoutCancel(c.Request.Context())
	if s.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ExecutionTimeout)
		defer cancel()
	}

	result, err := s.executor.Execute(ctx, signal)
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := WebhookResponse{
		OK:            true,
		Message:       result.Message,
		Qty:           result.Quantity.String(),
		Leverage:      result.Leverage,
		TP:            result.TakeProfit.String(),
		SL:            result.StopLoss.String(),
		MarginUsed:    result.MarginUsed.String(),
		PositionValue: result.PositionValue.String(),
		Reconcile:     result.Reconcile.String(),
		Flipped:       result.Flipped,
		Warnings:      result.Warnings,
	}
	if result.Ack != nil {
		resp.OrderID = result.Ack.OrderID
		resp.BybitResponse = result.Ack.Raw
	}
	c.JSON(http.StatusOK, resp)
}

// respondError는 에러 분류에 맞는 상태 코드로 응답합니다
func (s *Server) respondError(c *gin.Context, err error) {
	kind := domain.ErrorKind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidSignal):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("시그널 처리 실패",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("kind", kind),
			zap.Error(err))
	} else {
		s.logger.Warn("시그널 거부",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("kind", kind),
			zap.Error(err))
	}

	c.JSON(status, ErrorResponse{OK: false, Kind: kind, Error: err.Error()})
}
