// Package models holds the data types shared across the orchestrator:
// the Subscription entity and its lifecycle, encrypted metadata, and the
// transient authorization types (Session, Reputation, BackoffState,
// RateWindow).
package models

import (
	"regexp"
	"time"
)

// Status is the lifecycle state of a Subscription.
type Status string

const (
	StatusActive Status = "Active"
	StatusPaused Status = "Paused"
	StatusCancelled Status = "Cancelled"
	StatusExpired Status = "Expired"
)

const (
	MinIDLength = 4
	MaxIDLength = 64

	MinIntervalSeconds = 3600
	MaxIntervalSeconds = 31_536_000

	MinAmount = 1
	MaxAmount = 1_000_000_000_000

	MinAddressLength = 32
	MaxAddressLength = 44

	MaxSubscriptions = 10_000

	// MaxFailedPayments is the failure threshold at which a subscription
	// auto-pauses.
	MaxFailedPayments = 10

	// MaxBackoffMultiplier caps the exponential backoff applied to a
	// failed trigger's rescheduled next_execution.
	MaxBackoffMultiplier = 16
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// addressPattern is the base58 alphabet (no 0, O, I or l).
var addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// Subscription is the central entity of the orchestrator. All absolute
// instants are stored as time.Time but the wire/spec representation is
// nanoseconds since epoch (UnixNano); see (*Subscription).NextExecutionNano.
type Subscription struct {
	ID string `json:"id"`
	ContractAddress string `json:"contract_address"`
	PaymentTokenMint string `json:"payment_token_mint"`
	SubscriberAddress string `json:"subscriber_address"`
	MerchantAddress string `json:"merchant_address"`
	IntervalSeconds int64 `json:"interval_seconds"`
	Amount int64 `json:"amount"`
	ReminderDaysBeforePayment int64 `json:"reminder_days_before_payment"`
	NextExecution time.Time `json:"next_execution"`
	Status Status `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	LastTriggered time.Time `json:"last_triggered,omitempty"`
	TriggerCount int64 `json:"trigger_count"`

	FailedPaymentCount int64 `json:"failed_payment_count"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// CreateSubscriptionRequest carries the inputs validated by
// ValidateCreateRequest.
type CreateSubscriptionRequest struct {
	ID string
	ContractAddress string
	PaymentTokenMint string
	SubscriberAddress string
	MerchantAddress string
	IntervalSeconds int64
	Amount int64
	ReminderDaysBeforePayment int64
	StartTime *time.Time // optional; defaults to now + interval
}

// ValidateCreateRequest applies the ordered field checks for creating a
// subscription. Checks run in the documented order so the first
// applicable failure is always the one returned, which the test suite
// depends on.
func ValidateCreateRequest(req CreateSubscriptionRequest, currentCount int, exists func(id string) bool, initialized bool) *CoreError {
	if currentCount >= MaxSubscriptions {
		return NewValidationError("QuotaExceeded", "maximum number of subscriptions reached")
	}
	if len(req.ID) < MinIDLength {
		return NewValidationError("IdTooShort", "subscription id must be at least 4 characters")
	}
	if len(req.ID) > MaxIDLength {
		return NewValidationError("IdTooLong", "subscription id must be at most 64 characters")
	}
	if !idPattern.MatchString(req.ID) {
		return NewValidationError("IdSyntax", "subscription id must match [A-Za-z0-9_-]+")
	}
	if req.IntervalSeconds < MinIntervalSeconds {
		return NewValidationError("IntervalTooSmall", "interval_seconds must be at least 3600")
	}
	if req.IntervalSeconds > MaxIntervalSeconds {
		return NewValidationError("IntervalTooLarge", "interval_seconds must be at most 31536000")
	}
	if req.Amount <= 0 {
		return NewValidationError("AmountZero", "amount must be positive")
	}
	if req.Amount > MaxAmount {
		return NewValidationError("AmountTooLarge", "amount exceeds the maximum of 1,000,000,000,000")
	}
	for _, addr := range []struct {
		name string
		value string
	}{
		{"contract_address", req.ContractAddress},
		{"payment_token_mint", req.PaymentTokenMint},
		{"subscriber_address", req.SubscriberAddress},
		{"merchant_address", req.MerchantAddress},
	} {
		if len(addr.value) < MinAddressLength || len(addr.value) > MaxAddressLength || !addressPattern.MatchString(addr.value) {
			return NewValidationError("AddressInvalid", addr.name+" must be 32-44 base58 characters")
		}
	}
	if exists(req.ID) {
		return NewValidationError("DuplicateId", "subscription id already exists")
	}
	if !initialized {
		return NewValidationError("NotInitialized", "canister must be initialized before creating subscriptions")
	}
	return nil
}

// NewSubscription materializes a Subscription from an already-validated
// request. now is injected so callers can test deterministically.
func NewSubscription(req CreateSubscriptionRequest, now time.Time) *Subscription {
	next := now.Add(time.Duration(req.IntervalSeconds) * time.Second)
	if req.StartTime != nil {
		next = *req.StartTime
	}
	return &Subscription{
		ID: req.ID,
		ContractAddress: req.ContractAddress,
		PaymentTokenMint: req.PaymentTokenMint,
		SubscriberAddress: req.SubscriberAddress,
		MerchantAddress: req.MerchantAddress,
		IntervalSeconds: req.IntervalSeconds,
		Amount: req.Amount,
		ReminderDaysBeforePayment: req.ReminderDaysBeforePayment,
		NextExecution: next,
		Status: StatusActive,
		CreatedAt: now,
	}
}

// NextExecutionNano returns next_execution in nanoseconds since epoch,
// the wire representation used by callers that serialize a Subscription
// outside of JSON.
func (s *Subscription) NextExecutionNano() int64 {
	return s.NextExecution.UnixNano()
}

// BackoffMultiplier returns min(2^failedPaymentCount, MaxBackoffMultiplier).
func BackoffMultiplier(failedPaymentCount int64) int64 {
	if failedPaymentCount < 0 {
		return 1
	}
	mult := int64(1)
	for i := int64(0); i < failedPaymentCount; i++ {
		mult *= 2
		if mult >= MaxBackoffMultiplier {
			return MaxBackoffMultiplier
		}
	}
	return mult
}

// ReminderTime returns the instant at which a reminder trigger (opcode 1)
// should fire for the subscription's current NextExecution.
func (s *Subscription) ReminderTime() time.Time {
	return s.NextExecution.Add(-time.Duration(s.ReminderDaysBeforePayment) * 24 * time.Hour)
}
