// Package metrics is the hand-rolled Prometheus-style recorder behind
// get_system_metrics and get_canister_health: the same mutex-guarded
// counter/duration-stats shape and textual Export as a per-call-site
// metrics collector, retargeted from per-RPC-method stats to the
// orchestrator's own dimensions (triggers, authentications,
// subscription load, cycle balance) with a four-level health status.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// HealthLevel is the four-way status "get_canister_health" names.
type HealthLevel string

const (
	HealthHealthy HealthLevel = "Healthy"
	HealthDegraded HealthLevel = "Degraded"
	HealthCritical HealthLevel = "Critical"
	HealthOffline HealthLevel = "Offline"
)

// DegradationReason is the closed set of reasons GetHealth can report.
type DegradationReason string

const (
	ReasonLowCycleBalance DegradationReason = "LowCycleBalance"
	ReasonCriticalCycleBalance DegradationReason = "CriticalCycleBalance"
	ReasonHighPaymentFailure DegradationReason = "HighPaymentFailureRate"
	ReasonHighSubscriptionLoad DegradationReason = "HighSubscriptionLoad"
)

// Thresholds backs the degradation-reason checks GetHealth runs.
type Thresholds struct {
	LowCycleBalance uint64
	CriticalCycleBalance uint64
	FailedPaymentsLimit int64 // triggers above 10 failed payments
	SubscriptionLoadLimit int // triggers above 10,000 tracked subscriptions
}

// DefaultThresholds returns the default degradation thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowCycleBalance: 1_000_000_000_000,
		CriticalCycleBalance: 100_000_000_000,
		FailedPaymentsLimit: 10,
		SubscriptionLoadLimit: 10_000,
	}
}

type operationStats struct {
	total, successful, failed int64
	totalDuration time.Duration
}

// Recorder aggregates every counter its health/metrics surface needs.
type Recorder struct {
	mu sync.RWMutex

	rpcStats map[string]*operationStats
	triggerStats *operationStats
	authStats *operationStats

	cycleBalance uint64
	totalSubscriptions int
	totalFailedPayments int64
	lastSuccessfulTrigger time.Time
	thresholds Thresholds
}

// NewRecorder constructs an empty Recorder.
func NewRecorder(thresholds Thresholds) *Recorder {
	return &Recorder{
		rpcStats: make(map[string]*operationStats),
		triggerStats: &operationStats{},
		authStats: &operationStats{},
		thresholds: thresholds,
	}
}

// RecordRPCCall records one façade call's outcome, per method name.
func (r *Recorder) RecordRPCCall(method string, duration time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.rpcStats[method]
	if !ok {
		stats = &operationStats{}
		r.rpcStats[method] = stats
	}
	stats.total++
	stats.totalDuration += duration
	if success {
		stats.successful++
	} else {
		stats.failed++
	}
}

// RecordTrigger records one trigger orchestrator outcome.
func (r *Recorder) RecordTrigger(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggerStats.total++
	if success {
		r.triggerStats.successful++
		r.lastSuccessfulTrigger = time.Now()
	} else {
		r.triggerStats.failed++
	}
}

// RecordAuth records one authentication outcome.
func (r *Recorder) RecordAuth(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authStats.total++
	if success {
		r.authStats.successful++
	} else {
		r.authStats.failed++
	}
}

// SetCycleBalance updates the canister's remaining compute-cycle
// balance (ICP-style), consulted by GetHealth for the two
// cycle-balance degradation reasons.
func (r *Recorder) SetCycleBalance(balance uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycleBalance = balance
}

// SetLoad updates the gauge figures GetHealth consults for
// HighSubscriptionLoad / HighPaymentFailureRate.
func (r *Recorder) SetLoad(totalSubscriptions int, totalFailedPayments int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalSubscriptions = totalSubscriptions
	r.totalFailedPayments = totalFailedPayments
}

// Snapshot is the aggregated figure set returned by get_system_metrics.
type Snapshot struct {
	TotalRPCCalls int64
	TotalTriggers int64
	SuccessfulTriggers int64
	FailedTriggers int64
	TriggerSuccessRate float64
	TotalAuths int64
	SuccessfulAuths int64
	FailedAuths int64
	TotalSubscriptions int
	TotalFailedPayments int64
	CycleBalance uint64
}

// Snapshot returns the current aggregated figures.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var totalRPC int64
	for _, s := range r.rpcStats {
		totalRPC += s.total
	}

	rate := 0.0
	if r.triggerStats.total > 0 {
		rate = float64(r.triggerStats.successful) / float64(r.triggerStats.total)
	}

	return Snapshot{
		TotalRPCCalls: totalRPC,
		TotalTriggers: r.triggerStats.total,
		SuccessfulTriggers: r.triggerStats.successful,
		FailedTriggers: r.triggerStats.failed,
		TriggerSuccessRate: rate,
		TotalAuths: r.authStats.total,
		SuccessfulAuths: r.authStats.successful,
		FailedAuths: r.authStats.failed,
		TotalSubscriptions: r.totalSubscriptions,
		TotalFailedPayments: r.totalFailedPayments,
		CycleBalance: r.cycleBalance,
	}
}

// Health is the result of get_canister_health.
type Health struct {
	Status HealthLevel
	Reasons []DegradationReason
}

// GetHealth runs the get_canister_health degradation logic.
func (r *Recorder) GetHealth() Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reasons []DegradationReason
	if r.cycleBalance <= r.thresholds.CriticalCycleBalance {
		reasons = append(reasons, ReasonCriticalCycleBalance)
	} else if r.cycleBalance <= r.thresholds.LowCycleBalance {
		reasons = append(reasons, ReasonLowCycleBalance)
	}
	if r.totalFailedPayments > r.thresholds.FailedPaymentsLimit {
		reasons = append(reasons, ReasonHighPaymentFailure)
	}
	if r.totalSubscriptions > r.thresholds.SubscriptionLoadLimit {
		reasons = append(reasons, ReasonHighSubscriptionLoad)
	}

	if r.cycleBalance == 0 {
		return Health{Status: HealthOffline, Reasons: reasons}
	}

	hasCritical := false
	for _, reason := range reasons {
		if reason == ReasonCriticalCycleBalance {
			hasCritical = true
		}
	}
	switch {
		case hasCritical:
		return Health{Status: HealthCritical, Reasons: reasons}
		case len(reasons) > 0:
		return Health{Status: HealthDegraded, Reasons: reasons}
		default:
		return Health{Status: HealthHealthy, Reasons: nil}
	}
}

// Export renders the recorder's state in Prometheus text format.
func (r *Recorder) Export() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("# HELP orchestrator_rpc_calls_total Total number of RPC calls\n")
	sb.WriteString("# TYPE orchestrator_rpc_calls_total counter\n")
	for method, stats := range r.rpcStats {
		sb.WriteString(fmt.Sprintf("orchestrator_rpc_calls_total{method=%q,status=\"success\"} %d\n", method, stats.successful))
		sb.WriteString(fmt.Sprintf("orchestrator_rpc_calls_total{method=%q,status=\"failure\"} %d\n", method, stats.failed))
	}

	sb.WriteString("# HELP orchestrator_triggers_total Total number of payment triggers\n")
	sb.WriteString("# TYPE orchestrator_triggers_total counter\n")
	sb.WriteString(fmt.Sprintf("orchestrator_triggers_total{status=\"success\"} %d\n", r.triggerStats.successful))
	sb.WriteString(fmt.Sprintf("orchestrator_triggers_total{status=\"failure\"} %d\n", r.triggerStats.failed))

	sb.WriteString("# HELP orchestrator_cycle_balance Remaining compute-cycle balance\n")
	sb.WriteString("# TYPE orchestrator_cycle_balance gauge\n")
	sb.WriteString(fmt.Sprintf("orchestrator_cycle_balance %d\n", r.cycleBalance))

	sb.WriteString("# HELP orchestrator_subscriptions_total Total tracked subscriptions\n")
	sb.WriteString("# TYPE orchestrator_subscriptions_total gauge\n")
	sb.WriteString(fmt.Sprintf("orchestrator_subscriptions_total %d\n", r.totalSubscriptions))

	return sb.String()
}
