package binance

import (
	"sync"
	"time"
)

// timeSync tracks the offset between local and exchange clocks. Signed
// requests must land inside the exchange's recvWindow; on hosts with clock
// drift the measured offset keeps timestamps acceptable.
type timeSync struct {
	mu     sync.RWMutex
	offset int64 // serverTime - localTime, ms
	synced bool
}

// update records a fresh server time sample.
func (t *timeSync) update(serverTimeMs int64) {
	local := time.Now().UnixMilli()
	t.mu.Lock()
	t.offset = serverTimeMs - local
	t.synced = true
	t.mu.Unlock()
}

// nowMilli returns the current time in ms, offset-corrected when a sample
// has been taken.
func (t *timeSync) nowMilli() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	now := time.Now().UnixMilli()
	if t.synced {
		return now + t.offset
	}
	return now
}

// Offset returns the last measured clock offset in ms.
func (t *timeSync) Offset() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.offset
}
