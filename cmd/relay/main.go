package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/assist-by/relay/internal/config"
	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/exchange/bybit"
	"github.com/assist-by/relay/internal/logging"
	"github.com/assist-by/relay/internal/notification"
	"github.com/assist-by/relay/internal/notification/discord"
	"github.com/assist-by/relay/internal/position"
	"github.com/assist-by/relay/internal/scheduler"
	"github.com/assist-by/relay/internal/server"
	"github.com/assist-by/relay/internal/trading"
)

// TimeSyncTask는 거래소 서버 시간 동기화 작업을 정의합니다
type TimeSyncTask struct {
	client   *bybit.Client
	notifier notification.Notifier
	logger   *zap.Logger
}

// Execute는 시간 동기화를 실행합니다
func (t *TimeSyncTask) Execute(ctx context.Context) error {
	if err := t.client.SyncTime(ctx); err != nil {
		if t.notifier != nil {
			if nerr := t.notifier.SendError(err); nerr != nil {
				t.logger.Warn("에러 알림 전송 실패", zap.Error(nerr))
			}
		}
		return err
	}
	return nil
}

func main() {
	checkFlag := flag.Bool("check", false, "거래소 연결과 잔고만 확인하고 종료")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		log.Fatalf("로거 생성 실패: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *checkFlag); err != nil {
		logger.Error("종료", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, checkOnly bool) error {
	ctx, stop := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instruments, err := config.LoadInstruments(cfg.Trading.InstrumentsFile)
	if err != nil {
		return err
	}

	// Discord 클라이언트 생성 (웹훅이 없으면 알림 생략)
	var notifier notification.Notifier
	if cfg.Discord.SignalWebhook != "" || cfg.Discord.TradeWebhook != "" || cfg.Discord.ErrorWebhook != "" {
		notifier = discord.NewClient(
			cfg.Discord.SignalWebhook,
			cfg.Discord.TradeWebhook,
			cfg.Discord.ErrorWebhook,
			discord.WithTimeout(10*time.Second),
			discord.WithUsername("signal-relay"),
		)
	}

	// 바이비트 클라이언트 생성
	clientOpts := []bybit.ClientOption{
		bybit.WithBaseURL(cfg.Bybit.BaseURL),
		bybit.WithTimeout(cfg.Bybit.Timeout),
		bybit.WithRecvWindow(cfg.Bybit.RecvWindow),
		bybit.WithCategory(cfg.Bybit.Category),
		bybit.WithRateLimit(cfg.Bybit.RateLimit, int(cfg.Bybit.RateLimit)+1),
		bybit.WithLogger(logger),
	}
	if cfg.Bybit.Testnet {
		logger.Warn("바이비트 테스트넷을 사용합니다", zap.String("base_url", bybit.TestnetURL))
		clientOpts = append(clientOpts, bybit.WithTestnet(true))
	}
	client := bybit.NewClient(cfg.Bybit.APIKey, cfg.Bybit.SecretKey, clientOpts...)

	// 바이비트 서버와 시간 동기화
	syncTask := &TimeSyncTask{client: client, notifier: notifier, logger: logger}
	if err := syncTask.Execute(ctx); err != nil {
		return fmt.Errorf("바이비트 서버 시간 동기화 실패: %w", err)
	}

	accountType := domain.AccountType(cfg.Bybit.AccountType)
	if checkOnly {
		bal, err := client.GetBalance(ctx, accountType, cfg.Trading.SettleCoin)
		if err != nil {
			return err
		}
		logger.Info("연결 확인 완료",
			zap.String("asset", bal.Asset),
			zap.String("available", bal.Available.String()),
			zap.String("source", bal.Source))
		return nil
	}

	executor := trading.NewExecutor(client, trading.ExecuteConfig{
		DefaultLeverage: cfg.Trading.Leverage,
		AccountType:     accountType,
		SettleCoin:      cfg.Trading.SettleCoin,
		MarginFraction:  cfg.Trading.MarginFraction,
		Rounding:        position.RoundingMode(cfg.Trading.Rounding),
		Bracket: position.BracketConfig{
			TakeProfitPct: cfg.Trading.TakeProfitPct,
			StopLossPct:   cfg.Trading.StopLossPct,
		},
		DefaultLimits: cfg.DefaultLimits(),
		Instruments:   instruments,
		PositionMode:  domain.PositionMode(cfg.Trading.PositionMode),
		Poll: position.PollPolicy{
			Interval:    cfg.Reconcile.PollInterval,
			MaxAttempts: cfg.Reconcile.MaxAttempts,
			Deadline:    cfg.Reconcile.Deadline,
		},
	}, trading.WithNotifier(notifier), trading.WithLogger(logger))

	srv := server.NewServer(executor, server.Config{
		Port:             cfg.Server.Port,
		Secret:           cfg.Server.Secret,
		MaxLeverage:      cfg.Trading.MaxLeverage,
		ExecutionTimeout: cfg.Server.ExecutionTimeout,
		RateLimit:        cfg.Server.RateLimit,
		RateBurst:        cfg.Server.RateBurst,
	}, logger)

	syncScheduler := scheduler.NewScheduler("time-sync", cfg.App.TimeSyncInterval, syncTask, logger)

	if notifier != nil {
		if err := notifier.SendInfo("🚀 시그널 릴레이가 시작되었습니다."); err != nil {
			logger.Warn("시작 알림 전송 실패", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		if err := syncScheduler.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("종료 신호 수신, 처리 중인 요청을 기다립니다")

		// 실행 중인 매매는 끝까지 진행
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ExecutionTimeout+5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		executor.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("정상 종료")
	return nil
}
