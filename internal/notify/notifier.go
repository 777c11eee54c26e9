package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultTTL is how long a toast stays visible before it drops out of
// Recent on its own.
const DefaultTTL = 10 * time.Second

const maxToasts = 50

// Toast is one dashboard notification.
type Toast struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Center holds the recent toasts for the dashboard. Expired toasts are
// filtered on read and compacted opportunistically; the buffer is bounded.
type Center struct {
	mu     sync.Mutex
	toasts []Toast
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Center)

// WithTTL overrides how long toasts remain visible.
func WithTTL(ttl time.Duration) Option {
	return func(c *Center) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCenter(opts ...Option) *Center {
	c := &Center{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push adds a toast and returns it.
func (c *Center) Push(level Level, message string) Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	toast := Toast{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: c.now(),
	}
	c.compactLocked()
	c.toasts = append(c.toasts, toast)
	if len(c.toasts) > maxToasts {
		c.toasts = c.toasts[len(c.toasts)-maxToasts:]
	}
	return toast
}

func (c *Center) Info(message string) Toast    { return c.Push(LevelInfo, message) }
func (c *Center) Success(message string) Toast { return c.Push(LevelSuccess, message) }
func (c *Center) Error(message string) Toast   { return c.Push(LevelError, message) }

// Recent returns the unexpired toasts, oldest first.
func (c *Center) Recent() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.compactLocked()
	ret := make([]Toast, len(c.toasts))
	copy(ret, c.toasts)
	return ret
}

// Dismiss removes the toast with id and reports whether it was present.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, toast := range c.toasts {
		if toast.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Center) compactLocked() {
	cutoff := c.now().Add(-c.ttl)
	kept := c.toasts[:0]
	for _, toast := range c.toasts {
		if toast.CreatedAt.After(cutoff) {
			kept = append(kept, toast)
		}
	}
	c.toasts = kept
}
