package store

import (
	"context"
	"sync"
)

type changeHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[Collection]map[int]func()
}

func newChangeHub() *changeHub {
	return &changeHub{subs: map[Collection]map[int]func(){}}
}

func (h *changeHub) subscribe(col Collection, fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.subs[col] == nil {
		h.subs[col] = map[int]func(){}
	}
	h.subs[col][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[col], id)
		})
	}
}

func (h *changeHub) publish(col Collection) {
	h.mu.Lock()
	callbacks := make([]func(), 0, len(h.subs[col]))
	for _, fn := range h.subs[col] {
		callbacks = append(callbacks, fn)
	}
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Live evaluates query immediately and again after every commit to col,
// handing each result to fn. Evaluation stops once ctx is done or the
// returned stop function is called.
func Live[T any](ctx context.Context, s *EntityStore, col Collection, query func(context.Context) ([]T, error), fn func([]T, error)) (stop func()) {
	var mu sync.Mutex
	stopped := false
	evaluate := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		fn(query(ctx))
	}

	unsubscribe := s.Subscribe(col, evaluate)
	evaluate()

	return func() {
		unsubscribe()
		mu.Lock()
		stopped = true
		mu.Unlock()
	}
}
