package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/trading"
)

// Config는 웹훅 서버 설정입니다
type Config struct {
	Port             int
	Secret           string        // 공유 시크릿
	MaxLeverage      int           // 허용 최대 레버리지
	ExecutionTimeout time.Duration // 매매 실행 한도
	RateLimit        float64       // IP별 초당 요청 수
	RateBurst        int
}

// Server는 매매 시그널 웹훅을 받는 HTTP 서버입니다
type Server struct {
	router   *gin.Engine
	httpSrv  *http.Server
	executor trading.Executor
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer는 라우트와 미들웨어가 설정된 서버를 생성합니다
func NewServer(executor trading.Executor, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "server"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst, logger))

	s := &Server{
		router:   r,
		executor: executor,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
	s.routes()

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.POST("/", s.webhook)
	s.router.POST("/webhook", s.webhook)
}

// Handler는 라우터를 반환합니다
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start는 서버를 시작합니다. Shutdown으로 종료되면 nil을 반환합니다
func (s *Server) Start() error {
	s.logger.Info("웹훅 서버 시작", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("서버 실행 실패: %w", err)
	}
	return nil
}

// Shutdown은 처리 중인 요청이 끝나기를 기다린 뒤 서버를 종료합니다
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
