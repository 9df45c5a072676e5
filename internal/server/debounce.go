package server

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// debounceCacheSize bounds the number of senders remembered at once.
const debounceCacheSize = 1024

// debouncer remembers when each sender last triggered the command.
type debouncer struct {
	window time.Duration

	mu   sync.Mutex
	last *lru.Cache[string, time.Time]
}

func newDebouncer(window time.Duration) (*debouncer, error) {
	c, err := lru.New[string, time.Time](debounceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating debounce cache: %w", err)
	}
	return &debouncer{window: window, last: c}, nil
}

// allow reports whether key may trigger at now, and records the trigger if so.
func (d *debouncer) allow(key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.last.Get(key); ok && now.Sub(t) < d.window {
		return false
	}
	d.last.Add(key, now)
	return true
}
