// internal/exchange/bybit/client.go
package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/exchange"
)

var _ exchange.Exchange = (*Client)(nil)

const (
	MainnetURL = "https://api.bybit.com"
	TestnetURL = "https://api-testnet.bybit.com"

	defaultRecvWindow = 5000
	defaultCategory   = "linear"
)

// Client는 Bybit v5 API 클라이언트를 구현합니다
type Client struct {
	apiKey           string
	secretKey        string
	baseURL          string
	category         string
	recvWindow       int64
	httpClient       *http.Client
	limiter          *rate.Limiter
	logger           *zap.Logger
	now              func() time.Time
	serverTimeOffset int64 // 서버 시간과의 차이 (ms)
	mu               sync.RWMutex
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTestnet은 테스트넷 사용 여부를 설정합니다
func WithTestnet(useTestnet bool) ClientOption {
	return func(c *Client) {
		if useTestnet {
			c.baseURL = TestnetURL
		} else {
			c.baseURL = MainnetURL
		}
	}
}

// WithRecvWindow는 서명 요청의 수신 허용 시간(ms)을 설정합니다
func WithRecvWindow(ms int64) ClientOption {
	return func(c *Client) {
		if ms > 0 {
			c.recvWindow = ms
		}
	}
}

// WithCategory는 상품 분류를 설정합니다 (기본값 linear)
func WithCategory(category string) ClientOption {
	return func(c *Client) {
		if category != "" {
			c.category = category
		}
	}
}

// WithRateLimit은 초당 요청 수 제한을 설정합니다. rps가 0 이하이면 제한하지 않습니다
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger는 로거를 설정합니다
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient는 HTTP 클라이언트를 교체합니다
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient는 새로운 Bybit API 클라이언트를 생성합니다
func NewClient(apiKey, secretKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    MainnetURL,
		category:   defaultCategory,
		recvWindow: defaultRecvWindow,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(zap.String("component", "bybit"))
	return c
}

// Response는 Bybit v5 공통 응답 구조입니다
type Response struct {
	RetCode    int
	RetMsg     string
	Result     json.RawMessage
	Time       int64
	HTTPStatus int
	Raw        json.RawMessage
}

// Err는 retCode가 0이 아니면 APIError를 반환합니다
func (r *Response) Err() error {
	if r.RetCode == retCodeOK {
		return nil
	}
	return &APIError{Code: r.RetCode, Message: r.RetMsg}
}

// envelope은 retCode 누락을 감지하기 위해 포인터 필드를 사용합니다
type envelope struct {
	RetCode *int            `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
	Time    int64           `json:"time"`
}

// Send는 서명된 요청을 전송합니다.
// GET은 params를 쿼리 문자열로, 그 외 메서드는 body를 JSON으로 직렬화해 서명합니다.
// retCode가 0이 아닌 응답은 에러가 아니며 호출자가 Response.Err로 판단합니다
func (c *Client) Send(ctx context.Context, method, path string, params url.Values, body any) (*Response, error) {
	return c.doRequest(ctx, method, path, params, body, true)
}

// doRequest는 HTTP 요청을 실행하고 공통 응답을 반환합니다
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any, needSign bool) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: 요청 제한 대기 실패: %w", domain.ErrTransport, err)
		}
	}

	reqURL := c.baseURL + path
	var payload string
	var reader io.Reader

	if method == http.MethodGet {
		payload = params.Encode()
		if payload != "" {
			reqURL += "?" + payload
		}
	} else {
		if body == nil {
			body = struct{}{}
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("요청 본문 직렬화 실패: %w", err)
		}
		payload = string(raw)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if needSign {
		timestamp := strconv.FormatInt(c.timestamp(), 10)
		recvWindow := strconv.FormatInt(c.recvWindow, 10)
		req.Header.Set("X-BAPI-API-KEY", c.apiKey)
		req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
		req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
		req.Header.Set("X-BAPI-SIGN-TYPE", "2")
		req.Header.Set("X-BAPI-SIGN", c.sign(timestamp, recvWindow, payload))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: 응답 읽기 실패: %w", domain.ErrTransport, err)
	}

	c.observeRateLimit(path, resp.Header)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.RetCode == nil {
		return nil, fmt.Errorf("%w: %s %s HTTP %d: %s", domain.ErrProtocol, method, path, resp.StatusCode, truncate(raw, 200))
	}

	return &Response{
		RetCode:    *env.RetCode,
		RetMsg:     env.RetMsg,
		Result:     env.Result,
		Time:       env.Time,
		HTTPStatus: resp.StatusCode,
		Raw:        raw,
	}, nil
}

// sign은 timestamp + apiKey + recvWindow + payload에 대한 HMAC-SHA256 서명을 생성합니다
func (c *Client) sign(timestamp, recvWindow, payload string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(timestamp + c.apiKey + recvWindow + payload))
	return hex.EncodeToString(h.Sum(nil))
}

// timestamp는 서버 시간 보정을 적용한 현재 시각(ms)을 반환합니다
func (c *Client) timestamp() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().UnixMilli() + c.serverTimeOffset
}

// observeRateLimit은 응답 헤더의 남은 요청 수가 적으면 경고를 남깁니다
func (c *Client) observeRateLimit(path string, header http.Header) {
	remaining, err1 := strconv.Atoi(header.Get("X-Bapi-Limit-Status"))
	limit, err2 := strconv.Atoi(header.Get("X-Bapi-Limit"))
	if err1 != nil || err2 != nil || limit <= 0 {
		return
	}
	if float64(remaining)/float64(limit) <= 0.1 {
		c.logger.Warn("요청 한도 임박",
			zap.String("path", path),
			zap.Int("remaining", remaining),
			zap.Int("limit", limit))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// GetServerTime은 서버 시간을 조회합니다
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v5/market/time", nil, nil, false)
	if err != nil {
		return time.Time{}, err
	}
	if err := resp.Err(); err != nil {
		return time.Time{}, fmt.Errorf("서버 시간 조회 실패: %w", err)
	}

	var result struct {
		TimeNano string `json:"timeNano"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return time.Time{}, fmt.Errorf("%w: 서버 시간 파싱 실패: %w", domain.ErrProtocol, err)
	}

	nanos, err := strconv.ParseInt(result.TimeNano, 10, 64)
	if err != nil {
		if resp.Time > 0 {
			return time.UnixMilli(resp.Time), nil
		}
		return time.Time{}, fmt.Errorf("%w: 서버 시간 값 오류: %q", domain.ErrProtocol, result.TimeNano)
	}
	return time.Unix(0, nanos), nil
}

// SyncTime은 Bybit 서버와 시간을 동기화합니다
func (c *Client) SyncTime(ctx context.Context) error {
	before := c.now()
	serverTime, err := c.GetServerTime(ctx)
	if err != nil {
		return fmt.Errorf("서버 시간 동기화 실패: %w", err)
	}
	after := c.now()

	// 왕복 지연은 대칭이라고 가정
	local := before.Add(after.Sub(before) / 2)
	offset := serverTime.UnixMilli() - local.UnixMilli()

	c.mu.Lock()
	c.serverTimeOffset = offset
	c.mu.Unlock()

	c.logger.Info("서버 시간 동기화 완료", zap.Int64("offset_ms", offset))
	return nil
}
