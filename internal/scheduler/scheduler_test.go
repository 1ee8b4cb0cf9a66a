package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsTaskUntilCancelled(t *testing.T) {
	var runs int32
	task := TaskFunc(func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("계속 실행되어야 함")
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler("time-sync", 5*time.Millisecond, task, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler("noop", time.Hour, TaskFunc(func(context.Context) error { return nil }), nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	s.Stop()
	assert.NoError(t, <-done)
}
