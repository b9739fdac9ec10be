package rpcfacade

import (
	"sync"
	"time"
)

// endpointHealth tracks per-endpoint circuit-breaker state: whether to
// skip an endpoint on the next failover attempt.
type endpointHealth struct {
	consecutiveFailures int
	circuitOpen bool
	lastFailure time.Time
}

// healthTracker is a minimal circuit breaker across a pool of RPC
// endpoints, used by HTTPFacade to fail over instead of hammering a
// downed node.
type healthTracker struct {
	mu sync.RWMutex
	health map[string]*endpointHealth
	failureThreshold int
	circuitOpenWindow time.Duration
}

func newHealthTracker() *healthTracker {
	return &healthTracker{
		health: make(map[string]*endpointHealth),
		failureThreshold: 3,
		circuitOpenWindow: 30 * time.Second,
	}
}

func (t *healthTracker) recordSuccess(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.getOrCreate(endpoint)
	h.consecutiveFailures = 0
	h.circuitOpen = false
}

func (t *healthTracker) recordFailure(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.getOrCreate(endpoint)
	h.consecutiveFailures++
	h.lastFailure = time.Now()
	if h.consecutiveFailures >= t.failureThreshold {
		h.circuitOpen = true
	}
}

func (t *healthTracker) isHealthy(endpoint string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.health[endpoint]
	if !ok {
		return true
	}
	if h.circuitOpen && time.Since(h.lastFailure) < t.circuitOpenWindow {
		return false
	}
	return true
}

func (t *healthTracker) getOrCreate(endpoint string) *endpointHealth {
	h, ok := t.health[endpoint]
	if !ok {
		h = &endpointHealth{}
		t.health[endpoint] = h
	}
	return h
}
