package trading

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// SymbolLocker는 심볼별로 실행을 직렬화합니다.
// 잠금은 대기자가 없어지면 맵에서 제거됩니다
type SymbolLocker struct {
	mu    sync.Mutex
	locks map[string]*symbolLock
}

type symbolLock struct {
	sem  *semaphore.Weighted
	refs int
}

// NewSymbolLocker는 새 SymbolLocker를 생성합니다
func NewSymbolLocker() *SymbolLocker {
	return &SymbolLocker{locks: make(map[string]*symbolLock)}
}

// Lock은 심볼 잠금을 획득하고 해제 함수를 반환합니다.
// 대기 중 ctx가 끝나면 ctx 에러를 반환합니다
func (l *SymbolLocker) Lock(ctx context.Context, symbol string) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[symbol]
	if !ok {
		sl = &symbolLock{sem: semaphore.NewWeighted(1)}
		l.locks[symbol] = sl
	}
	sl.refs++
	l.mu.Unlock()

	if err := sl.sem.Acquire(ctx, 1); err != nil {
		l.unref(symbol, sl)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sl.sem.Release(1)
			l.unref(symbol, sl)
		})
	}, nil
}

func (l *SymbolLocker) unref(symbol string, sl *symbolLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, symbol)
	}
}

// Len은 현재 사용 중인 심볼 잠금 수를 반환합니다
func (l *SymbolLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
