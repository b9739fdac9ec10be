// Package subscription is the subscription store and state machine: an
// id-keyed map with O(1) lookup, preupgrade/postupgrade restart hooks,
// and the Create/Pause/Resume/Cancel/auto-pause/Cleanup transitions.
// Grounded on models.Subscription's field set and on the scheduler's
// re-arm-on-restart contract it drives.
package subscription

import (
	"sync"
	"time"

	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/scheduler"
)

// Store holds the subscription map and wires every transition to the
// scheduler.
type Store struct {
	mu sync.Mutex
	subscriptions map[string]*models.Subscription
	sched *scheduler.Scheduler
	initialized bool
}

// New constructs a Store bound to sched; sched.Schedule/Cancel is
// called on every transition that changes a subscription's
// next_execution or status.
func New(sched *scheduler.Scheduler) *Store {
	return &Store{
		subscriptions: make(map[string]*models.Subscription),
		sched: sched,
	}
}

// MarkInitialized records that initialize_canister has run, gating
// Create's NotInitialized check.
func (s *Store) MarkInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Count returns the number of tracked subscriptions, for the
// QuotaExceeded check.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}

func (s *Store) exists(id string) bool {
	_, ok := s.subscriptions[id]
	return ok
}

// Create validates and inserts req, then schedules its timer.
func (s *Store) Create(req models.CreateSubscriptionRequest, now time.Time) (*models.Subscription, *models.CoreError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cerr := models.ValidateCreateRequest(req, len(s.subscriptions), s.exists, s.initialized); cerr != nil {
		return nil, cerr
	}

	sub := models.NewSubscription(req, now)
	s.subscriptions[sub.ID] = sub
	s.sched.Schedule(sub.ID, sub.NextExecution)
	return sub, nil
}

// Get returns a copy of the subscription by id. Copying (rather than
// returning the pointer) enforces "re-look-up by id, do not hold
// references across suspension points" at the API boundary.
func (s *Store) Get(id string) (models.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return models.Subscription{}, false
	}
	return *sub, true
}

// List returns a copy of every tracked subscription.
func (s *Store) List() []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, *sub)
	}
	return out
}

// Pause sets status to Paused and cancels the timer.
func (s *Store) Pause(id string) *models.CoreError {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return models.NewError(models.KindNotFound, "NotFound", "subscription not found", nil)
	}
	sub.Status = models.StatusPaused
	s.sched.Cancel(id)
	return nil
}

// Resume requires Paused, sets Active, sets next_execution = now +
// interval, and reschedules.
func (s *Store) Resume(id string, now time.Time) *models.CoreError {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return models.NewError(models.KindNotFound, "NotFound", "subscription not found", nil)
	}
	if sub.Status != models.StatusPaused {
		return models.NewValidationError("NotPaused", "subscription must be Paused to resume")
	}
	sub.Status = models.StatusActive
	sub.NextExecution = now.Add(time.Duration(sub.IntervalSeconds) * time.Second)
	s.sched.Schedule(id, sub.NextExecution)
	return nil
}

// Cancel sets status to Cancelled and cancels the timer.
func (s *Store) Cancel(id string) *models.CoreError {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return models.NewError(models.KindNotFound, "NotFound", "subscription not found", nil)
	}
	sub.Status = models.StatusCancelled
	s.sched.Cancel(id)
	return nil
}

// ApplyTriggerSuccess re-reads the subscription by id (the caller must
// have just suspended on an RPC call) and is a no-op if the
// subscription is no longer present or has left Active in the interim.
func (s *Store) ApplyTriggerSuccess(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok || sub.Status != models.StatusActive {
		return
	}
	sub.FailedPaymentCount = 0
	sub.LastFailureTime = time.Time{}
	sub.LastError = ""
	sub.LastTriggered = now
	sub.TriggerCount++
	sub.NextExecution = now.Add(time.Duration(sub.IntervalSeconds) * time.Second)
	s.sched.Schedule(id, sub.NextExecution)
}

// ApplyTriggerFailure increments the failure counters and either
// auto-pauses (at failed_payment_count >= 10) or reschedules with
// exponential backoff.
func (s *Store) ApplyTriggerFailure(id string, now time.Time, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok || sub.Status != models.StatusActive {
		return
	}
	sub.FailedPaymentCount++
	sub.LastFailureTime = now
	sub.LastError = message

	if sub.FailedPaymentCount >= models.MaxFailedPayments {
		sub.Status = models.StatusPaused
		s.sched.Cancel(id)
		return
	}
	mult := models.BackoffMultiplier(sub.FailedPaymentCount)
	sub.NextExecution = now.Add(time.Duration(sub.IntervalSeconds*mult) * time.Second)
	s.sched.Schedule(id, sub.NextExecution)
}

// Cleanup removes every Cancelled/Expired subscription whose
// next_execution is older than threshold before now, cancelling any
// lingering timer.
func (s *Store) Cleanup(olderThan time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sub := range s.subscriptions {
		if sub.Status != models.StatusCancelled && sub.Status != models.StatusExpired {
			continue
		}
		if now.Sub(sub.NextExecution) < olderThan {
			continue
		}
		s.sched.Cancel(id)
		delete(s.subscriptions, id)
		removed++
	}
	return removed
}

// Overdue returns every Active subscription whose next_execution has
// already passed, for get_overdue_subscriptions.
func (s *Store) Overdue(now time.Time) []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range s.subscriptions {
		if sub.Status == models.StatusActive && sub.NextExecution.Before(now) {
			out = append(out, *sub)
		}
	}
	return out
}

// Snapshot is the restart-persisted view of the store: the full
// subscription map, copied.
type Snapshot struct {
	Subscriptions []models.Subscription
	Initialized bool
}

// Preupgrade captures a Snapshot for persistence before restart.
func (s *Store) Preupgrade() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, *sub)
	}
	return Snapshot{Subscriptions: out, Initialized: s.initialized}
}

// Postupgrade restores snap and re-arms exactly one timer per Active
// subscription.
func (s *Store) Postupgrade(snap Snapshot) {
	s.mu.Lock()
	s.subscriptions = make(map[string]*models.Subscription, len(snap.Subscriptions))
	s.initialized = snap.Initialized
	toSchedule := make(map[string]time.Time)
	for i := range snap.Subscriptions {
		sub := snap.Subscriptions[i]
		s.subscriptions[sub.ID] = &sub
		if sub.Status == models.StatusActive {
			toSchedule[sub.ID] = sub.NextExecution
		}
	}
	s.mu.Unlock()

	for id, at := range toSchedule {
		s.sched.Schedule(id, at)
	}
}
