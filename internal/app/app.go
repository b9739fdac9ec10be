// Package app wires the orchestrator's components together and
// implements the process-level restart snapshot: AES-256-GCM over an
// Argon2id-derived key, the same cipher and KDF parameters as an
// encrypted application config blob, generalized here from a single
// config blob to the orchestrator's full persisted-state layout
// (subscription map, encrypted-metadata map, admin/read-only sets,
// configuration).
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"github.com/chainsub/orchestrator/internal/config"
	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/audit"
	"github.com/chainsub/orchestrator/internal/services/authz"
	"github.com/chainsub/orchestrator/internal/services/metrics"
	"github.com/chainsub/orchestrator/internal/services/rpcfacade"
	"github.com/chainsub/orchestrator/internal/services/scheduler"
	"github.com/chainsub/orchestrator/internal/services/signer"
	"github.com/chainsub/orchestrator/internal/services/subscription"
	"github.com/chainsub/orchestrator/internal/services/trigger"
)

// App bundles every long-lived component the HTTP API surface
// (internal/api) dispatches against. One App is constructed per
// process and lives for the process's lifetime, bracketed by
// Preupgrade/Postupgrade around a restart.
type App struct {
	Config *config.Config
	Auth *authz.Manager
	Metadata *MetadataStore
	Metrics *metrics.Recorder
	Audit *audit.Logger
	Subs *subscription.Store
	Signer signer.ThresholdSigner

	trigger *scheduler.Scheduler
	reminders *scheduler.Scheduler
	Orch *trigger.Orchestrator

	passphrase string
}

// New constructs every component from cfg but does not start timers;
// callers must call Postupgrade (first boot: with an empty snapshot,
// or Bootstrap for a genuinely first run) before subscriptions resume
// firing.
func New(cfg *config.Config, passphrase string) (*App, error) {
	auditLogger, err := audit.NewLogger(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	var sg signer.ThresholdSigner
	if cfg.SimulatedSigner {
		sg, err = signer.NewSimulatedSigner([]byte(cfg.SimulatedSignerSeed))
		if err != nil {
			return nil, fmt.Errorf("failed to construct simulated signer: %w", err)
		}
	} else {
		sg = signer.NewHTTPSigner(cfg.SignerEndpoint, cfg.SignerTimeout)
	}

	facade, err := rpcfacade.NewHTTPFacade(cfg.RPCEndpoints, cfg.RPCTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to construct RPC facade: %w", err)
	}

	accounts, err := wellKnownAccountsFrom(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode well-known program accounts: %w", err)
	}

	now := time.Now
	var orch *trigger.Orchestrator
	triggerSched := scheduler.New(func(id string) {
		orch.HandleTrigger(context.Background(), id)
	}, now)
	reminderSched := scheduler.New(func(id string) {
		orch.HandleReminder(context.Background(), id)
	}, now)
	subs := subscription.New(triggerSched)
	orch = trigger.New(subs, sg, facade, accounts, now, reminderSched)

	authzCfg := authz.DefaultConfig()
	authzCfg.GlobalCapPerMinute = cfg.GlobalRateLimitPerMinute
	authzCfg.PerIdentityCapPerMinute = cfg.IdentityRateLimitPerMinute

	a := &App{
		Config: cfg,
		Auth: authz.NewManager(authzCfg, now),
		Metadata: NewMetadataStore(),
		Metrics: metrics.NewRecorder(metrics.DefaultThresholds()),
		Audit: auditLogger,
		Subs: subs,
		Signer: sg,
		trigger: triggerSched,
		reminders: reminderSched,
		Orch: orch,
		passphrase: passphrase,
	}
	return a, nil
}

// Bootstrap initializes a brand-new encrypted snapshot file; used only
// when SnapshotExists reports false.
func (a *App) Bootstrap() error {
	if err := InitializeSnapshot(a.passphrase, a.Config.StateSnapshotPath, a.Config.Network); err != nil {
		return err
	}
	a.Subs.MarkInitialized()
	return nil
}

// Postupgrade loads the encrypted snapshot at the configured path (if
// one exists) and restores every component's state from it, re-arming
// the subscription store's timers. Call once at process start.
func (a *App) Postupgrade() error {
	if !SnapshotExists(a.Config.StateSnapshotPath) {
		return nil
	}
	snap, err := LoadSnapshot(a.passphrase, a.Config.StateSnapshotPath)
	if err != nil {
		return fmt.Errorf("failed to load state snapshot: %w", err)
	}

	a.Subs.Postupgrade(subscription.Snapshot{
		Subscriptions: snap.Subscriptions,
		Initialized: snap.Initialized,
	})
	a.Metadata.Restore(snap.Metadata)
	a.Auth.Restore(snap.Admins, snap.ReadOnlyUsers)
	a.Config.Network = snap.Network

	for _, sub := range snap.Subscriptions {
		if sub.Status == models.StatusActive {
			a.Orch.RescheduleReminder(sub.ID)
		}
	}
	return nil
}

// Preupgrade freezes every component's in-memory state into a
// StateSnapshot and encrypts it to disk. Call before process exit
// (graceful shutdown) and before any deliberate restart.
func (a *App) Preupgrade() error {
	subSnap := a.Subs.Preupgrade()
	admins, readOnly := a.Auth.Snapshot()

	snap := &StateSnapshot{
		Version: "1.0.0",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Subscriptions: subSnap.Subscriptions,
		Metadata: a.Metadata.Snapshot(),
		Admins: admins,
		ReadOnlyUsers: readOnly,
		Network: a.Config.Network,
		Initialized: subSnap.Initialized,
	}
	return SaveSnapshot(snap, a.passphrase, a.Config.StateSnapshotPath)
}

// Shutdown cancels every outstanding timer. Call after Preupgrade
// during graceful shutdown.
func (a *App) Shutdown() {
	a.trigger.Shutdown()
	a.reminders.Shutdown()
}

func wellKnownAccountsFrom(cfg *config.Config) (trigger.WellKnownAccounts, error) {
	var out trigger.WellKnownAccounts
	var err error
	if out.ProgramID, err = decode32(cfg.ProgramID); err != nil {
		return out, fmt.Errorf("ProgramID: %w", err)
	}
	if out.TokenProgram, err = decode32(cfg.TokenProgramID); err != nil {
		return out, fmt.Errorf("TokenProgramID: %w", err)
	}
	if out.SystemProgram, err = decode32(cfg.SystemProgramID); err != nil {
		return out, fmt.Errorf("SystemProgramID: %w", err)
	}
	if out.MemoProgram, err = decode32(cfg.MemoProgramID); err != nil {
		return out, fmt.Errorf("MemoProgramID: %w", err)
	}
	if out.InstructionsSysvar, err = decode32(cfg.InstructionsSysvarID); err != nil {
		return out, fmt.Errorf("InstructionsSysvarID: %w", err)
	}
	if out.AssociatedTokenProgramID, err = decode32(cfg.AssociatedTokenProgramID); err != nil {
		return out, fmt.Errorf("AssociatedTokenProgramID: %w", err)
	}
	return out, nil
}

func decode32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
