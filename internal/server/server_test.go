package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/position"
	"github.com/assist-by/relay/internal/trading"
)

type fakeExecutor struct {
	got    domain.TradeSignal
	called bool
	ctxErr error
	result *trading.Result
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, signal domain.TradeSignal) (*trading.Result, error) {
	f.called = true
	f.got = signal
	f.ctxErr = ctx.Err()
	return f.result, f.err
}

func newTestServer(exec trading.Executor) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(exec, Config{
		Secret:           "s3cret",
		MaxLeverage:      100,
		ExecutionTimeout: time.Minute,
	}, nil)
}

func post(t *testing.T, s *Server, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestWebhookSuccess(t *testing.T) {
	exec := &fakeExecutor{result: &trading.Result{
		Quantity:      decimal.RequireFromString("1.14"),
		Leverage:      5,
		TakeProfit:    decimal.NewFromInt(2568),
		StopLoss:      decimal.NewFromInt(2275),
		MarginUsed:    decimal.NewFromInt(950),
		PositionValue: decimal.NewFromInt(4750),
		Reconcile:     position.StateFlat,
		Ack:           &domain.OrderAck{OrderID: "ord-1", Raw: json.RawMessage(`{"retCode":0}`)},
		Message:       "Opened Buy ETHUSDT @ 2500",
	}}
	s := newTestServer(exec)

	w, out := post(t, s, "/", `{"secret":"s3cret","event":"ETH LONG","symbol":"ETHUSDT.P","price":"2500","lvg":5}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "Opened Buy ETHUSDT @ 2500", out["message"])
	assert.Equal(t, "1.14", out["qty"])
	assert.Equal(t, "Flat", out["reconcile"])
	assert.Equal(t, "ord-1", out["orderId"])
	assert.NotNil(t, out["bybitResponse"])

	require.True(t, exec.called)
	assert.Equal(t, "ETHUSDT", exec.got.Symbol)
	assert.Equal(t, domain.Long, exec.got.Direction)
	assert.Equal(t, 5, exec.got.Leverage)
	assert.NoError(t, exec.ctxErr)
}

func TestWebhookPathAlias(t *testing.T) {
	exec := &fakeExecutor{result: &trading.Result{Reconcile: position.StateSameSide}}
	s := newTestServer(exec)

	w, _ := post(t, s, "/webhook", `{"secret":"s3cret","event":"SHORT","symbol":"BTCUSDT","price":65000,"tp":"","sl":null}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Short, exec.got.Direction)
	assert.Nil(t, exec.got.TakeProfit)
}

func TestWebhookErrors(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		err    error
		status int
		kind   string
	}{
		{"잘못된 시크릿", `{"secret":"nope","event":"LONG","symbol":"ETHUSDT","price":1}`, nil, http.StatusForbidden, "AuthenticationError"},
		{"필드 누락", `{"secret":"s3cret","event":"LONG"}`, nil, http.StatusBadRequest, "InvalidSignal"},
		{"알 수 없는 이벤트", `{"secret":"s3cret","event":"CLOSE","symbol":"ETHUSDT","price":1}`, nil, http.StatusBadRequest, "InvalidSignal"},
		{"잘못된 JSON", `{"secret":`, nil, http.StatusBadRequest, "InvalidSignal"},
		{"숫자가 아닌 가격", `{"secret":"s3cret","event":"LONG","symbol":"ETHUSDT","price":"abc"}`, nil, http.StatusBadRequest, "InvalidSignal"},
		{
			"청산 시간 초과",
			`{"secret":"s3cret","event":"LONG","symbol":"ETHUSDT","price":2500}`,
			&trading.ExecutionError{Phase: "reconcile", Err: fmt.Errorf("x: %w", domain.ErrFlipTimeout)},
			http.StatusInternalServerError, "FlipTimeoutError",
		},
		{
			"TP/SL 방향 오류",
			`{"secret":"s3cret","event":"LONG","symbol":"ETHUSDT","price":2500,"tp":2400}`,
			&trading.ExecutionError{Phase: "bracket", Err: domain.ErrInvalidSignal},
			http.StatusBadRequest, "InvalidSignal",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exec := &fakeExecutor{err: tc.err}
			s := newTestServer(exec)

			w, out := post(t, s, "/", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, false, out["ok"])
			assert.Equal(t, tc.kind, out["kind"])
			assert.NotEmpty(t, out["error"])
			if tc.err == nil {
				assert.False(t, exec.called)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeExecutor{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(&fakeExecutor{}, Config{Secret: "x", RateLimit: 1, RateBurst: 1}, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)
}
