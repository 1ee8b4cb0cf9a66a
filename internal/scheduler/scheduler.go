package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc는 함수를 Task로 사용할 수 있게 합니다
type TaskFunc func(ctx context.Context) error

// Execute는 Task 인터페이스를 구현합니다
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Scheduler는 일정 간격으로 작업을 실행하는 스케줄러입니다
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(name string, interval time.Duration, task Task, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With(zap.String("task", name)),
		stopCh:   make(chan struct{}),
	}
}

// Start는 스케줄러를 시작합니다. ctx가 끝나거나 Stop이 호출될 때까지 반환하지 않습니다
func (s *Scheduler) Start(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	s.logger.Debug("스케줄러 시작", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			// 에러가 발생해도 계속 실행
			if err := s.task.Execute(ctx); err != nil {
				s.logger.Warn("작업 실행 실패", zap.Error(err))
			}

			s.logger.Debug("다음 실행 대기",
				zap.Time("next_run", time.Now().Add(s.interval)))
			timer.Reset(s.interval)
		}
	}
}

// Stop은 스케줄러를 중지합니다
func (s *Scheduler) Stop() {
	close(s.stopCh)
}
