// Package trigger wires the transaction builder, threshold signer and
// RPC façade into the per-subscription state machine the timer
// scheduler drives. There is no single source file this composes
// directly, but its capability-interface injection pattern (signer and
// RPC client passed in, never constructed by the consumer) follows the
// same shape used elsewhere in this tree for ThresholdSigner and
// rpcfacade.Facade.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/rpcfacade"
	"github.com/chainsub/orchestrator/internal/services/scheduler"
	"github.com/chainsub/orchestrator/internal/services/signer"
	"github.com/chainsub/orchestrator/internal/services/subscription"
	"github.com/chainsub/orchestrator/internal/services/txbuilder"
)

// WellKnownAccounts bundles the fixed program ids every trigger
// instruction references.
type WellKnownAccounts struct {
	ProgramID [32]byte
	TokenProgram [32]byte
	SystemProgram [32]byte
	MemoProgram [32]byte
	InstructionsSysvar [32]byte
	AssociatedTokenProgramID [32]byte
}

// Orchestrator ties the signer, façade and transaction builder together
// around the subscription store and a secondary reminder scheduler.
type Orchestrator struct {
	store *subscription.Store
	signer signer.ThresholdSigner
	facade rpcfacade.Facade
	accounts WellKnownAccounts
	now func() time.Time

	reminders *scheduler.Scheduler
}

// New constructs an Orchestrator. reminders fires HandleReminder for a
// subscription id when its reminder timer expires; the caller wires
// that callback once the Orchestrator itself exists.
func New(store *subscription.Store, sg signer.ThresholdSigner, facade rpcfacade.Facade, accounts WellKnownAccounts, now func() time.Time, reminders *scheduler.Scheduler) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store: store,
		signer: sg,
		facade: facade,
		accounts: accounts,
		now: now,
		reminders: reminders,
	}
}

// HandleTrigger runs the per-trigger state machine: build, sign and
// send the payment instruction, then record the outcome. It is the
// FireFunc the main scheduler invokes for a subscription id.
func (o *Orchestrator) HandleTrigger(ctx context.Context, id string) {
	// Step 1: read subscription; if not Active, no-op.
	sub, ok := o.store.Get(id)
	if !ok || sub.Status != models.StatusActive {
		return
	}

	now := o.now()

	sig, sendErr := o.buildSignAndSend(ctx, sub, txbuilder.OpcodePayment, now)

	// Suspension point crossed: re-read before mutating.
	if sendErr == nil {
		o.store.ApplyTriggerSuccess(id, o.now())
		_ = sig
		o.rescheduleReminder(id)
		return
	}
	o.store.ApplyTriggerFailure(id, o.now(), sendErr.Error())
	o.rescheduleReminder(id)
}

// HandleReminder sends the notification instruction (opcode 1).
// Reminder failures do not mutate failure counters.
func (o *Orchestrator) HandleReminder(ctx context.Context, id string) {
	sub, ok := o.store.Get(id)
	if !ok || sub.Status != models.StatusActive {
		return
	}
	_, _ = o.buildSignAndSend(ctx, sub, txbuilder.OpcodeNotification, o.now())
}

// RescheduleReminder arms (or re-arms) id's reminder timer at
// reminder_days_before_payment days before its current next_execution.
// Callers invoke this after any transition that changes next_execution
// (Create, Resume, and the two trigger outcomes, handled internally
// above).
func (o *Orchestrator) RescheduleReminder(id string) {
	o.rescheduleReminder(id)
}

func (o *Orchestrator) rescheduleReminder(id string) {
	if o.reminders == nil {
		return
	}
	sub, ok := o.store.Get(id)
	if !ok || sub.Status != models.StatusActive {
		o.reminders.Cancel(id)
		return
	}
	reminderAt := sub.ReminderTime()
	if reminderAt.Before(o.now()) {
		o.reminders.Cancel(id)
		return
	}
	o.reminders.Schedule(id, reminderAt)
}

func (o *Orchestrator) buildSignAndSend(ctx context.Context, sub models.Subscription, opcode txbuilder.Opcode, now time.Time) (string, error) {
	accounts, err := o.deriveTriggerAccounts(sub)
	if err != nil {
		return "", err
	}

	ix := txbuilder.BuildTriggerInstruction(o.accounts.ProgramID, accounts, opcode, sub.ID, now.Unix())

	bh, err := o.facade.LatestBlockhash(ctx, rpcfacade.DefaultCommitment)
	if err != nil {
		return "", err
	}

	msg, err := txbuilder.BuildMessage([]txbuilder.Instruction{ix}, bh.Blockhash)
	if err != nil {
		return "", err
	}

	digest, err := msg.Digest()
	if err != nil {
		return "", err
	}

	sig, err := o.signer.Sign(ctx, signer.MainPath, digest)
	if err != nil {
		return "", err
	}

	envelope, err := txbuilder.SignedTransaction(sig, msg)
	if err != nil {
		return "", err
	}

	signature, err := o.facade.SendTransaction(ctx, rpcfacade.SendTransactionParams{
			Transaction: envelope,
			Encoding: rpcfacade.EncodingBase64,
			Commitment: rpcfacade.DefaultCommitment,
			MaxRetries: 3,
	})
	if err != nil {
		return "", err
	}
	return signature, nil
}

func (o *Orchestrator) deriveTriggerAccounts(sub models.Subscription) (txbuilder.TriggerAccounts, error) {
	subPDA, _, err := txbuilder.SubscriptionPDA(sub.ID, o.accounts.ProgramID)
	if err != nil {
		return txbuilder.TriggerAccounts{}, err
	}
	configPDA, _, err := txbuilder.ConfigPDA(o.accounts.ProgramID)
	if err != nil {
		return txbuilder.TriggerAccounts{}, err
	}

	mint, err := decodeAddress(sub.PaymentTokenMint)
	if err != nil {
		return txbuilder.TriggerAccounts{}, fmt.Errorf("invalid payment_token_mint: %w", err)
	}
	subscriber, err := decodeAddress(sub.SubscriberAddress)
	if err != nil {
		return txbuilder.TriggerAccounts{}, fmt.Errorf("invalid subscriber_address: %w", err)
	}
	merchant, err := decodeAddress(sub.MerchantAddress)
	if err != nil {
		return txbuilder.TriggerAccounts{}, fmt.Errorf("invalid merchant_address: %w", err)
	}

	subscriberATA, _, err := txbuilder.AssociatedTokenAddress(subscriber, o.accounts.TokenProgram, mint, o.accounts.AssociatedTokenProgramID)
	if err != nil {
		return txbuilder.TriggerAccounts{}, err
	}
	merchantATA, _, err := txbuilder.AssociatedTokenAddress(merchant, o.accounts.TokenProgram, mint, o.accounts.AssociatedTokenProgramID)
	if err != nil {
		return txbuilder.TriggerAccounts{}, err
	}

	feeATA, _, err := o.deriveFeeTokenAccount(mint)
	if err != nil {
		return txbuilder.TriggerAccounts{}, err
	}

	triggerAuthority, err := o.signer.Derive(context.Background(), signer.MainPath)
	if err != nil {
		return txbuilder.TriggerAccounts{}, err
	}
	var triggerAuthorityBytes [32]byte
	copy(triggerAuthorityBytes[:], triggerAuthority.Bytes())

	return txbuilder.TriggerAccounts{
		SubscriptionPDA: subPDA,
		ConfigPDA: configPDA,
		TriggerAuthority: triggerAuthorityBytes,
		SubscriberTokenAccount: subscriberATA,
		MerchantTokenAccount: merchantATA,
		FeeTokenAccount: feeATA,
		TokenMint: mint,
		Subscriber: subscriber,
		TokenProgram: o.accounts.TokenProgram,
		SystemProgram: o.accounts.SystemProgram,
		MemoProgram: o.accounts.MemoProgram,
		InstructionsSysvar: o.accounts.InstructionsSysvar,
	}, nil
}

// deriveFeeTokenAccount derives the fee-collection wallet's token
// account. The fee wallet is always internally derived from
// FeeCollectionPath; a caller wanting an external fee wallet can supply
// one via a different FeeCollectionPath-backed signer instead.
func (o *Orchestrator) deriveFeeTokenAccount(mint [32]byte) (addr [32]byte, bump byte, err error) {
	feeOwnerKey, err := o.signer.Derive(context.Background(), signer.FeeCollectionPath)
	if err != nil {
		return [32]byte{}, 0, err
	}
	var feeOwner [32]byte
	copy(feeOwner[:], feeOwnerKey.Bytes())
	return txbuilder.AssociatedTokenAddress(feeOwner, o.accounts.TokenProgram, mint, o.accounts.AssociatedTokenProgramID)
}

func decodeAddress(s string) ([32]byte, error) {
	raw, err := decodeBase58(s)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("address must decode to 32 bytes")
	}
	var out [32]byte
	copy(out[:], raw)
	return out, nil
}
