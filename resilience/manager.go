package resilience

import (
	"container/list"
	"sync"
	"time"

	"github.com/juju/clock"
)

// BreakerManager owns one CircuitBreaker per node, evicting breakers that
// have not been touched in InactivityTimeout or once MaxSize is exceeded
// (oldest-used first), so a long-lived composite node that instantiates
// many short-lived sub-plans does not leak breaker state indefinitely.
type BreakerManager struct {
	mu                sync.Mutex
	clk               clock.Clock
	maxSize           int
	inactivityTimeout time.Duration

	entries map[string]*breakerEntry
	lru     *list.List
}

type breakerEntry struct {
	breaker  *CircuitBreaker
	elem     *list.Element
	lastUsed time.Time
}

// NewBreakerManager creates a manager. maxSize <= 0 means unbounded count
// (only the inactivity timeout evicts); inactivityTimeout <= 0 means
// breakers never expire by age.
func NewBreakerManager(maxSize int, inactivityTimeout time.Duration, clk clock.Clock) *BreakerManager {
	if clk == nil {
		clk = clock.WallClock
	}
	return &BreakerManager{
		clk:               clk,
		maxSize:           maxSize,
		inactivityTimeout: inactivityTimeout,
		entries:           make(map[string]*breakerEntry),
		lru:               list.New(),
	}
}

// Get returns nodeID's breaker, creating one from policy on first use.
func (m *BreakerManager) Get(nodeID string, policy CircuitBreakerPolicy) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictLocked()

	if e, ok := m.entries[nodeID]; ok {
		e.lastUsed = m.clk.Now()
		m.lru.MoveToFront(e.elem)
		return e.breaker
	}

	b := NewCircuitBreaker(policy, m.clk)
	elem := m.lru.PushFront(nodeID)
	m.entries[nodeID] = &breakerEntry{breaker: b, elem: elem, lastUsed: m.clk.Now()}
	return b
}

// Len reports how many breakers are currently held, for tests.
func (m *BreakerManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *BreakerManager) evictLocked() {
	if m.inactivityTimeout > 0 {
		now := m.clk.Now()
		for e := m.lru.Back(); e != nil; {
			prev := e.Prev()
			id := e.Value.(string)
			if now.Sub(m.entries[id].lastUsed) > m.inactivityTimeout {
				delete(m.entries, id)
				m.lru.Remove(e)
			}
			e = prev
		}
	}

	for m.maxSize > 0 && len(m.entries) > m.maxSize {
		back := m.lru.Back()
		if back == nil {
			break
		}
		delete(m.entries, back.Value.(string))
		m.lru.Remove(back)
	}
}
