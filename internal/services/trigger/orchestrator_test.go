package trigger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/rpcfacade"
	"github.com/chainsub/orchestrator/internal/services/scheduler"
	"github.com/chainsub/orchestrator/internal/services/signer"
	"github.com/chainsub/orchestrator/internal/services/subscription"
)

func newWellKnown(seed byte) WellKnownAccounts {
	fill := func(s byte) [32]byte {
		var a [32]byte
		a[0] = s
		return a
	}
	return WellKnownAccounts{
		ProgramID: fill(seed),
		TokenProgram: fill(seed + 1),
		SystemProgram: fill(seed + 2),
		MemoProgram: fill(seed + 3),
		InstructionsSysvar: fill(seed + 4),
		AssociatedTokenProgramID: fill(seed + 5),
	}
}

func testAddress(seed byte) string {
	var raw [32]byte
	for i := range raw {
		raw[i] = seed
	}
	return base58.Encode(raw[:])
}

// fakeFacade scripts a sequence of SendTransaction outcomes, letting
// tests inject a capability interface for deterministic simulation.
type fakeFacade struct {
	sendResults []sendResult
	callIndex int
	capturedData [][]byte
}

type sendResult struct {
	signature string
	err error
}

func (f *fakeFacade) LatestBlockhash(ctx context.Context, c rpcfacade.Commitment) (*rpcfacade.BlockhashResult, error) {
	return &rpcfacade.BlockhashResult{Blockhash: [32]byte{1, 2, 3}, LastValidBlockHeight: 100}, nil
}

func (f *fakeFacade) Balance(ctx context.Context, address string) (uint64, error) { return 0, nil }

func (f *fakeFacade) TokenBalance(ctx context.Context, tokenAccount string) (uint64, error) {
	return 0, nil
}

func (f *fakeFacade) TokenAccountsByOwner(ctx context.Context, owner string, mint *string, programFilter string, encoding rpcfacade.Encoding) ([]rpcfacade.TokenAccount, error) {
	return nil, nil
}

func (f *fakeFacade) SendTransaction(ctx context.Context, params rpcfacade.SendTransactionParams) (string, error) {
	f.capturedData = append(f.capturedData, params.Transaction)
	idx := f.callIndex
	f.callIndex++
	if idx >= len(f.sendResults) {
		return "", fmt.Errorf("fakeFacade: no scripted result for call %d", idx)
	}
	r := f.sendResults[idx]
	return r.signature, r.err
}

func newTestOrchestrator(t *testing.T, facade *fakeFacade, now func() time.Time) (*Orchestrator, *subscription.Store) {
	t.Helper()
	mainSched := scheduler.New(func(string) {}, now)
	reminderSched := scheduler.New(func(string) {}, now)
	store := subscription.New(mainSched)
	store.MarkInitialized()

	sg, err := signer.NewSimulatedSigner([]byte("orchestrator-test-seed-0123456789"))
	require.NoError(t, err)

	orch := New(store, sg, facade, newWellKnown(10), now, reminderSched)
	return orch, store
}

func baseRequest(id string, intervalSeconds int64, startTime *time.Time) models.CreateSubscriptionRequest {
	return models.CreateSubscriptionRequest{
		ID: id,
		ContractAddress: testAddress(1),
		PaymentTokenMint: testAddress(2),
		SubscriberAddress: testAddress(3),
		MerchantAddress: testAddress(4),
		IntervalSeconds: intervalSeconds,
		Amount: 1000,
		ReminderDaysBeforePayment: 1,
		StartTime: startTime,
	}
}

// TestCreateScheduleTickSucceed runs a create then a successful
// trigger tick and checks the resulting subscription state.
func TestCreateScheduleTickSucceed(t *testing.T) {
	clockNow := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return clockNow }

	facade := &fakeFacade{sendResults: []sendResult{{signature: "sigA"}}}
	orch, store := newTestOrchestrator(t, facade, now)

	start := clockNow.Add(3600 * time.Second)
	req := baseRequest("sub_abcd", 3600, &start)
	_, cerr := store.Create(req, clockNow)
	require.Nil(t, cerr)

	clockNow = clockNow.Add(3600 * time.Second)

	orch.HandleTrigger(context.Background(), "sub_abcd")

	require.Len(t, facade.capturedData, 1)
	envelope := facade.capturedData[0]
	// envelope = compact-u16(1) || 64-byte sig || message; discriminator
	// sits at the start of the first instruction's data, well past the
	// header, so just confirm the discriminator bytes appear in the
	// envelope at all as a smoke check on wiring.
	require.Contains(t, string(envelope), string([]byte{0xbd, 0x51, 0x1e, 0xc6, 0x8b, 0xba, 0x73, 0x17}))

	sub, ok := store.Get("sub_abcd")
	require.True(t, ok)
	require.Equal(t, int64(1), sub.TriggerCount)
	require.Equal(t, int64(0), sub.FailedPaymentCount)
	require.Equal(t, clockNow, sub.LastTriggered)
	require.Equal(t, clockNow.Add(3600*time.Second), sub.NextExecution)
}

// TestFailureBackoff runs three consecutive failed trigger ticks and
// checks the failure count and backoff-lengthened next execution.
func TestFailureBackoff(t *testing.T) {
	clockNow := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return clockNow }

	rejectErr := &rpcfacade.FacadeError{Class: rpcfacade.ClassRemoteRejected, Code: 1, Message: "rejected"}
	facade := &fakeFacade{sendResults: []sendResult{
			{err: rejectErr}, {err: rejectErr}, {err: rejectErr},
	}}
	orch, store := newTestOrchestrator(t, facade, now)

	start := clockNow.Add(3600 * time.Second)
	req := baseRequest("sub_abcd", 3600, &start)
	_, cerr := store.Create(req, clockNow)
	require.Nil(t, cerr)

	for i := 0; i < 3; i++ {
		clockNow = clockNow.Add(3600 * time.Second)
		orch.HandleTrigger(context.Background(), "sub_abcd")
	}

	sub, ok := store.Get("sub_abcd")
	require.True(t, ok)
	require.Equal(t, int64(3), sub.FailedPaymentCount)
	require.Equal(t, models.StatusActive, sub.Status)
	require.Equal(t, int64(3600*8), int64(sub.NextExecution.Sub(clockNow).Seconds()))
}

// TestAutoPause runs ten consecutive failed trigger ticks and checks
// that the subscription auto-pauses.
func TestAutoPause(t *testing.T) {
	clockNow := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return clockNow }

	rejectErr := &rpcfacade.FacadeError{Class: rpcfacade.ClassRemoteRejected, Code: 1, Message: "rejected"}
	results := make([]sendResult, 10)
	for i := range results {
		results[i] = sendResult{err: rejectErr}
	}
	facade := &fakeFacade{sendResults: results}
	orch, store := newTestOrchestrator(t, facade, now)

	start := clockNow.Add(3600 * time.Second)
	req := baseRequest("sub_abcd", 3600, &start)
	_, cerr := store.Create(req, clockNow)
	require.Nil(t, cerr)

	for i := 0; i < 10; i++ {
		clockNow = clockNow.Add(3600 * time.Second)
		orch.HandleTrigger(context.Background(), "sub_abcd")
	}

	sub, ok := store.Get("sub_abcd")
	require.True(t, ok)
	require.Equal(t, models.StatusPaused, sub.Status)
	require.NotEmpty(t, sub.LastError)
}

// TestPauseAndResume pauses then resumes a subscription and checks
// next_execution is recomputed from the resume instant.
func TestPauseAndResume(t *testing.T) {
	clockNow := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return clockNow }

	facade := &fakeFacade{}
	_, store := newTestOrchestrator(t, facade, now)

	req := baseRequest("sub_x", 7200, nil)
	_, cerr := store.Create(req, clockNow)
	require.Nil(t, cerr)

	cerr = store.Pause("sub_x")
	require.Nil(t, cerr)

	clockNow = clockNow.Add(100 * time.Second)
	resumeInstant := clockNow
	cerr = store.Resume("sub_x", clockNow)
	require.Nil(t, cerr)

	sub, ok := store.Get("sub_x")
	require.True(t, ok)
	require.Equal(t, models.StatusActive, sub.Status)
	require.Equal(t, resumeInstant.Add(7200*time.Second), sub.NextExecution)
}
