package page

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo is a request-scoped result cache. Every caller asking for the same
// key within one request gets the same result, and concurrent callers share
// a single in-flight call. Create one per request and drop it afterwards.
type Memo struct {
	mu     sync.Mutex
	done   map[string]memoResult
	flight singleflight.Group
}

type memoResult struct {
	val interface{}
	err error
}

func NewMemo() *Memo {
	return &Memo{done: make(map[string]memoResult)}
}

// Len returns the number of completed keys.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.done)
}

// Remember returns the memoized result for key, calling fn at most once.
// Errors are memoized too so a request never observes two different
// outcomes for one key.
func Remember[T any](m *Memo, key string, fn func() (T, error)) (T, error) {
	if m == nil {
		return fn()
	}

	m.mu.Lock()
	if r, ok := m.done[key]; ok {
		m.mu.Unlock()
		return cast[T](r)
	}
	m.mu.Unlock()

	v, err, _ := m.flight.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		if r, ok := m.done[key]; ok {
			m.mu.Unlock()
			return r.val, r.err
		}
		m.mu.Unlock()

		val, err := fn()
		m.mu.Lock()
		m.done[key] = memoResult{val: val, err: err}
		m.mu.Unlock()
		return val, err
	})
	return cast[T](memoResult{val: v, err: err})
}

func cast[T any](r memoResult) (T, error) {
	v, _ := r.val.(T)
	return v, r.err
}
