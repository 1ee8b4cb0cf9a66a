package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/assist-by/relay/internal/domain"
)

type Config struct {
	// 바이비트 API 설정
	Bybit struct {
		APIKey      string        `envconfig:"BYBIT_API_KEY" required:"true"`
		SecretKey   string        `envconfig:"BYBIT_API_SECRET" required:"true"`
		BaseURL     string        `envconfig:"BYBIT_API_URL" default:"https://api.bybit.com"`
		Testnet     bool          `envconfig:"BYBIT_TESTNET" default:"false"`
		RecvWindow  int64         `envconfig:"BYBIT_RECV_WINDOW" default:"5000"`
		AccountType string        `envconfig:"ACCOUNT_TYPE" default:"UNIFIED"`
		Category    string        `envconfig:"BYBIT_CATEGORY" default:"linear"`
		Timeout     time.Duration `envconfig:"BYBIT_TIMEOUT" default:"10s"`
		RateLimit   float64       `envconfig:"BYBIT_RATE_LIMIT" default:"10"`
	}

	// 웹훅 서버 설정
	Server struct {
		Port             int           `envconfig:"PORT" default:"10000"`
		Secret           string        `envconfig:"SECRET" required:"true"`
		ExecutionTimeout time.Duration `envconfig:"SERVER_EXECUTION_TIMEOUT" default:"60s"`
		RateLimit        float64       `envconfig:"SERVER_RATE_LIMIT" default:"5"`
		RateBurst        int           `envconfig:"SERVER_RATE_BURST" default:"10"`
	}

	// 거래 설정
	Trading struct {
		Leverage        int             `envconfig:"LEVERAGE" default:"3"`
		MaxLeverage     int             `envconfig:"MAX_LEVERAGE" default:"100"`
		MarginFraction  decimal.Decimal `envconfig:"MARGIN_FRACTION" default:"0.95"`
		TakeProfitPct   decimal.Decimal `envconfig:"TP_PERCENT" default:"2.72"`
		StopLossPct     decimal.Decimal `envconfig:"SL_PERCENT" default:"9"`
		MinQty          decimal.Decimal `envconfig:"MIN_QTY" default:"0.01"`
		MaxQty          decimal.Decimal `envconfig:"MAX_QTY" default:"100"`
		MinNotional     decimal.Decimal `envconfig:"MIN_NOTIONAL" default:"10"`
		QtyStep         decimal.Decimal `envconfig:"QTY_STEP" default:"0.001"`
		PriceTick       decimal.Decimal `envconfig:"PRICE_TICK" default:"0.01"`
		Rounding        string          `envconfig:"QTY_ROUNDING" default:"down"`
		PositionMode    string          `envconfig:"POSITION_MODE" default:"oneway"`
		SettleCoin      string          `envconfig:"SETTLE_COIN" default:"USDT"`
		InstrumentsFile string          `envconfig:"INSTRUMENTS_FILE"`
	}

	// 반대 포지션 청산 확인 설정
	Reconcile struct {
		PollInterval time.Duration `envconfig:"FLIP_POLL_INTERVAL" default:"1s"`
		MaxAttempts  int           `envconfig:"FLIP_POLL_ATTEMPTS" default:"10"`
		Deadline     time.Duration `envconfig:"FLIP_POLL_DEADLINE" default:"15s"`
	}

	// 디스코드 웹훅 설정 (비어있으면 알림 생략)
	Discord struct {
		SignalWebhook string `envconfig:"DISCORD_SIGNAL_WEBHOOK"`
		TradeWebhook  string `envconfig:"DISCORD_TRADE_WEBHOOK"`
		ErrorWebhook  string `envconfig:"DISCORD_ERROR_WEBHOOK"`
	}

	// 애플리케이션 설정
	App struct {
		LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat        string        `envconfig:"LOG_FORMAT" default:"json"`
		TimeSyncInterval time.Duration `envconfig:"TIME_SYNC_INTERVAL" default:"30m"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	t := cfg.Trading

	if t.MaxLeverage < 1 || t.MaxLeverage > 125 {
		return fmt.Errorf("MAX_LEVERAGE는 1 이상 125 이하이어야 합니다")
	}
	if t.Leverage < 1 || t.Leverage > t.MaxLeverage {
		return fmt.Errorf("레버리지는 1 이상 %d 이하이어야 합니다", t.MaxLeverage)
	}

	if !t.MarginFraction.IsPositive() || t.MarginFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("MARGIN_FRACTION은 0 초과 1 이하이어야 합니다")
	}
	if !t.TakeProfitPct.IsPositive() || !t.StopLossPct.IsPositive() || t.StopLossPct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("TP_PERCENT, SL_PERCENT는 0보다 커야 하고 SL_PERCENT는 100 미만이어야 합니다")
	}
	if !t.MinQty.IsPositive() || t.MinQty.GreaterThan(t.MaxQty) {
		return fmt.Errorf("MIN_QTY는 0보다 크고 MAX_QTY 이하이어야 합니다")
	}
	if !t.QtyStep.IsPositive() || !t.PriceTick.IsPositive() {
		return fmt.Errorf("QTY_STEP, PRICE_TICK은 0보다 커야 합니다")
	}
	if t.MinNotional.IsNegative() {
		return fmt.Errorf("MIN_NOTIONAL은 음수일 수 없습니다")
	}

	switch t.Rounding {
	case "down", "up":
	default:
		return fmt.Errorf("QTY_ROUNDING은 down 또는 up이어야 합니다: %q", t.Rounding)
	}
	switch domain.PositionMode(t.PositionMode) {
	case domain.PositionModeOneWay, domain.PositionModeHedge, domain.PositionModeNone:
	default:
		return fmt.Errorf("POSITION_MODE는 oneway, hedge, none 중 하나여야 합니다: %q", t.PositionMode)
	}

	switch domain.AccountType(cfg.Bybit.AccountType) {
	case domain.AccountUnified, domain.AccountContract:
	default:
		return fmt.Errorf("ACCOUNT_TYPE은 UNIFIED 또는 CONTRACT여야 합니다: %q", cfg.Bybit.AccountType)
	}

	if cfg.Reconcile.MaxAttempts < 1 {
		return fmt.Errorf("FLIP_POLL_ATTEMPTS는 1 이상이어야 합니다")
	}
	if cfg.Reconcile.PollInterval < 0 || cfg.Reconcile.Deadline < 0 {
		return fmt.Errorf("FLIP_POLL_INTERVAL, FLIP_POLL_DEADLINE은 음수일 수 없습니다")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("PORT가 올바르지 않습니다: %d", cfg.Server.Port)
	}
	if cfg.Server.ExecutionTimeout < time.Second {
		return fmt.Errorf("SERVER_EXECUTION_TIMEOUT은 1초 이상이어야 합니다")
	}

	if cfg.Bybit.BaseURL == "" {
		return fmt.Errorf("BYBIT_API_URL이 비어있습니다")
	}

	if cfg.App.TimeSyncInterval < time.Minute {
		return fmt.Errorf("TIME_SYNC_INTERVAL은 1분 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
// .env 파일이 없으면 환경변수만 사용합니다
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	cfg.Bybit.BaseURL = NormalizeBaseURL(cfg.Bybit.BaseURL)

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}

// NormalizeBaseURL은 공백을 모두 제거하고 끝의 '/'를 없앱니다
func NormalizeBaseURL(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimRight(cleaned, "/")
}

// DefaultLimits는 환경변수의 기본 주문 제약을 반환합니다
func (c *Config) DefaultLimits() domain.InstrumentLimits {
	return domain.InstrumentLimits{
		MinQty:      c.Trading.MinQty,
		MaxQty:      c.Trading.MaxQty,
		MinNotional: c.Trading.MinNotional,
		QtyStep:     c.Trading.QtyStep,
		PriceTick:   c.Trading.PriceTick,
	}
}
