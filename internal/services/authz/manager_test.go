package authz

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/chainsub/orchestrator/internal/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(cfg Config) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return NewManager(cfg, clock.Now), clock
}

// TestRateLimitLockout covers: 6 failed
// authentications with max_failed_attempts_before_backoff=5,
// backoff_multiplier=2.0, base=2s. The 6th response is
// TemporarilyBlocked with remaining ~2s; the 7th (immediate) is still
// blocked; after waiting, a valid attempt succeeds and clears backoff.
func TestRateLimitLockout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFailedAttemptsBeforeBackoff = 5
	cfg.BaseBackoff = 2 * time.Second
	cfg.BackoffMultiplier = 2.0
	m, clock := newTestManager(cfg)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	identity := base58.Encode(pub)

	for i := 0; i < 5; i++ {
		_, cerr := m.Authenticate(identity, nil, "bad-nonce", make([]byte, ed25519.SignatureSize), "")
		require.NotNil(t, cerr)
	}

	// 6th failure: backoff should now be active.
	_, cerr := m.Authenticate(identity, nil, "bad-nonce", make([]byte, ed25519.SignatureSize), "")
	require.NotNil(t, cerr)
	require.Equal(t, models.KindTemporarilyBlocked, cerr.Kind)

	// 7th, attempted immediately: still blocked.
	_, cerr = m.Authenticate(identity, nil, "bad-nonce", make([]byte, ed25519.SignatureSize), "")
	require.NotNil(t, cerr)
	require.Equal(t, models.KindTemporarilyBlocked, cerr.Kind)

	// Wait out the backoff window, then a valid attempt succeeds.
	clock.Advance(3 * time.Second)

	ch, err := m.GenerateChallenge(identity)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, []byte(ch.Message))

	session, cerr := m.Authenticate(identity, []models.Permission{models.PermReadSubscription}, ch.Nonce, sig, "")
	require.Nil(t, cerr)
	require.NotNil(t, session)
}

func TestAuthenticateSuccessAndRequestValidation(t *testing.T) {
	cfg := DefaultConfig()
	m, _ := newTestManager(cfg)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	identity := base58.Encode(pub)

	ch, err := m.GenerateChallenge(identity)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, []byte(ch.Message))

	session, cerr := m.Authenticate(identity, models.ReadOnlyPermissions, ch.Nonce, sig, "")
	require.Nil(t, cerr)

	cerr = m.ValidateRequest(identity, session.Token, models.PermReadSubscription, "")
	require.Nil(t, cerr)

	cerr = m.ValidateRequest(identity, session.Token, models.PermManageAdmins, "")
	require.NotNil(t, cerr)
	require.Equal(t, models.KindInsufficientPerms, cerr.Kind)
}

func TestInitializeFirstAdminOnlyOnce(t *testing.T) {
	m, _ := newTestManager(DefaultConfig())

	require.Nil(t, m.InitializeFirstAdmin("alice"))
	cerr := m.InitializeFirstAdmin("bob")
	require.NotNil(t, cerr)
}

func TestRemoveAdminCannotRemoveSelf(t *testing.T) {
	m, _ := newTestManager(DefaultConfig())
	require.Nil(t, m.InitializeFirstAdmin("alice"))
	m.AddAdmin("bob")

	cerr := m.RemoveAdmin("alice", "alice")
	require.NotNil(t, cerr)

	cerr = m.RemoveAdmin("alice", "bob")
	require.Nil(t, cerr)
}
