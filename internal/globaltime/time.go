// Package globaltime is a mockable clock. Production code reads the real
// time; tests pin it so timestamp fallbacks stay deterministic.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

// Now returns the current time from the active clock.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

// UTC returns the current time in UTC.
func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime freezes the clock at t until ResetTime is called.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

// ResetTime restores the real clock.
func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
