package authz

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/hkdf"

	"github.com/chainsub/orchestrator/internal/models"
)

// Manager is the single authorization/rate-limit/reputation component,
// holding every process-local table as state: rate windows, the
// backoff table, the reputation table, and the session table, plus the
// admin/read-only principal sets that also restart-snapshot.
//
// Conceptually single-threaded, but the mutex mirrors the rate limiter
// convention of guarding shared counters so Manager stays safe if
// called from more than one goroutine (e.g. concurrent HTTP handlers
// ahead of the orchestrator's single logical thread).
type Manager struct {
	mu sync.Mutex

	cfg Config
	now func() time.Time

	globalWindow *tumblingCounter
	originWindows *tumblingCounter
	identityQuotas map[string]*quotaState

	backoff map[string]*models.BackoffState
	reputation map[string]*models.Reputation
	sessions map[string]*models.Session // token -> session
	challenges map[string]*models.Challenge // nonce -> challenge

	admins map[string]struct{}
	readOnly map[string]struct{}
}

// NewManager constructs a Manager with an injectable clock, so the
// trigger/auth test suite can advance virtual time deterministically.
func NewManager(cfg Config, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg: cfg,
		now: now,
		globalWindow: newTumblingCounter(),
		originWindows: newTumblingCounter(),
		identityQuotas: make(map[string]*quotaState),
		backoff: make(map[string]*models.BackoffState),
		reputation: make(map[string]*models.Reputation),
		sessions: make(map[string]*models.Session),
		challenges: make(map[string]*models.Challenge),
		admins: make(map[string]struct{}),
		readOnly: make(map[string]struct{}),
	}
}

// GenerateChallenge mints a nonce/message pair for identity; the
// message binds identity, nonce, and timestamp, and expires after
// cfg.ChallengeTTL.
func (m *Manager) GenerateChallenge(identity string) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	now := m.now()
	ch := &models.Challenge{
		Identity: identity,
		Nonce: nonce,
		Message: challengeMessage(identity, nonce, now),
		ExpiresAt: now.Add(m.cfg.ChallengeTTL),
	}
	m.challenges[nonce] = ch
	return ch, nil
}

// verificationContext derives a domain-separated context string for
// identity via HKDF under a fixed orchestrator session label (it depends
// on identity only, not on the Manager instance), so the signed
// challenge message is bound to that session domain rather than being a bare
// concatenation a signature over any other "orchestrator-auth:"
// prefixed string could satisfy.
func verificationContext(identity string) string {
	salt := sha256.Sum256([]byte("chainsub-orchestrator-session-v1"))
	r := hkdf.New(sha256.New, []byte(identity), salt[:], []byte("challenge-context"))
	out := make([]byte, 8)
	if _, err := io.ReadFull(r, out); err != nil {
		return hex.EncodeToString(salt[:8])
	}
	return hex.EncodeToString(out)
}

func challengeMessage(identity, nonce string, ts time.Time) string {
	return fmt.Sprintf("orchestrator-auth:%s:%s:%s:%d", identity, verificationContext(identity), nonce, ts.UnixNano())
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Authenticate runs the five ordered checks (global rate limit,
// per-origin rate limit, backoff, nonce lookup, signature
// verification), escalating backoff on any failure past the backoff
// check, and mints a session on success.
func (m *Manager) Authenticate(identity string, requestedPermissions []models.Permission, nonce string, signature []byte, origin string) (*models.Session, *models.CoreError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	// 1. Global rate limit.
	if !m.globalWindow.allow("global", m.cfg.GlobalCapPerMinute, now) {
		return nil, models.NewRateLimitedError(models.RateLimitGlobal)
	}

	// 2. Per-origin rate limit (origin cap is 50% of per-identity cap).
	if origin != "" {
		originCap := m.cfg.PerIdentityCapPerMinute / 2
		if !m.originWindows.allow(origin, originCap, now) {
			return nil, models.NewRateLimitedError(models.RateLimitOrigin)
		}
	}

	// 3. Backoff.
	if bs, ok := m.backoff[identity]; ok && now.Before(bs.BlockedUntil) {
		remaining := bs.BlockedUntil.Sub(now)
		return nil, models.NewBlockedError(remaining.String())
	}

	// 4. Nonce lookup.
	ch, ok := m.challenges[nonce]
	if !ok || ch.Identity != identity || now.After(ch.ExpiresAt) {
		m.recordAuthFailure(identity, now)
		return nil, models.NewError(models.KindNonceInvalid, "NonceInvalid", "challenge nonce is missing or expired", nil)
	}

	// 5. Signature verification.
	if !verifySignature(identity, ch.Message, signature) {
		m.recordAuthFailure(identity, now)
		return nil, models.NewError(models.KindInvalidSignature, "InvalidSignature", "signature does not verify against identity's public key", nil)
	}

	delete(m.challenges, nonce)

	// Success: clear backoff, mint a session, record permissions and quota.
	delete(m.backoff, identity)
	m.recordReputation(identity, true, true)

	token, err := randomNonce()
	if err != nil {
		return nil, models.NewError(models.KindInternal, "Internal", "failed to mint session token", err)
	}
	session := &models.Session{
		Identity: identity,
		Token: token,
		Permissions: requestedPermissions,
		ExpiresAt: now.Add(m.cfg.SessionTTL),
		UsedNonces: make(map[string]struct{}),
		RemainingQuota: m.cfg.PerIdentityCapPerMinute,
		LastRequest: now,
	}
	m.sessions[token] = session
	m.identityQuotas[identity] = &quotaState{remaining: m.cfg.PerIdentityCapPerMinute, windowStart: now}

	return session, nil
}

// recordAuthFailure increments failed_attempts and escalates the
// backoff delay once the failure count reaches
// cfg.MaxFailedAttemptsBeforeBackoff.
func (m *Manager) recordAuthFailure(identity string, now time.Time) {
	m.recordReputation(identity, true, false)

	bs, ok := m.backoff[identity]
	if !ok {
		bs = &models.BackoffState{Identity: identity}
		m.backoff[identity] = bs
	}
	bs.FailedAttempts++

	if bs.FailedAttempts < m.cfg.MaxFailedAttemptsBeforeBackoff {
		return
	}
	exp := bs.FailedAttempts - m.cfg.MaxFailedAttemptsBeforeBackoff
	delay := time.Duration(float64(m.cfg.BaseBackoff) * math.Pow(m.cfg.BackoffMultiplier, float64(exp)))
	if delay > m.cfg.MaxBackoff {
		delay = m.cfg.MaxBackoff
	}
	bs.BackoffDuration = delay
	bs.BlockedUntil = now.Add(delay)
}

// verifySignature checks signature over message under identity,
// treating identity as a base58-encoded Ed25519 public key.
func verifySignature(identity, message string, signature []byte) bool {
	pub, err := base58.Decode(identity)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), signature)
}

// ValidateRequest validates a single privileged operation: rate
// limits, session lookup/expiry, per-identity quota, and permission
// check, in that order.
func (m *Manager) ValidateRequest(identity, sessionToken string, required models.Permission, origin string) *models.CoreError {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if !m.globalWindow.allow("global", m.cfg.GlobalCapPerMinute, now) {
		return models.NewRateLimitedError(models.RateLimitGlobal)
	}
	if origin != "" {
		originCap := m.cfg.PerIdentityCapPerMinute / 2
		if !m.originWindows.allow(origin, originCap, now) {
			return models.NewRateLimitedError(models.RateLimitOrigin)
		}
	}
	if bs, ok := m.backoff[identity]; ok && now.Before(bs.BlockedUntil) {
		return models.NewBlockedError(bs.BlockedUntil.Sub(now).String())
	}

	session, ok := m.sessions[sessionToken]
	if !ok {
		m.recordReputation(identity, false, false)
		return models.NewError(models.KindUnauthorized, "Unauthorized", "no session for supplied token", nil)
	}
	if now.After(session.ExpiresAt) {
		delete(m.sessions, sessionToken)
		m.recordReputation(identity, false, false)
		return models.NewError(models.KindSessionExpired, "SessionExpired", "session has expired", nil)
	}
	if session.Identity != identity {
		m.recordReputation(identity, false, false)
		return models.NewError(models.KindUnauthorized, "Unauthorized", "session token does not belong to identity", nil)
	}

	quota, ok := m.identityQuotas[identity]
	if !ok {
		quota = &quotaState{}
		m.identityQuotas[identity] = quota
	}
	if !quota.take(m.cfg.PerIdentityCapPerMinute, now) {
		m.recordReputation(identity, false, false)
		return models.NewRateLimitedError(models.RateLimitIdentity)
	}

	if !session.HasPermission(required) {
		m.recordReputation(identity, false, false)
		return models.NewError(models.KindInsufficientPerms, "InsufficientPermissions", fmt.Sprintf("missing permission %s", required), nil)
	}

	session.LastRequest = now
	m.recordReputation(identity, false, true)
	return nil
}

func (m *Manager) recordReputation(identity string, isAuth, success bool) {
	r, ok := m.reputation[identity]
	if !ok {
		r = &models.Reputation{Identity: identity}
		m.reputation[identity] = r
	}
	r.TotalRequests++
	switch {
		case isAuth && success:
		r.SuccessfulAuths++
		r.Score += models.ReputationSuccessDelta
		case isAuth && !success:
		r.FailedAuths++
		r.Score += models.ReputationFailureDelta
		case !isAuth && success:
		r.SuccessfulOps++
		r.Score += models.ReputationSuccessDelta
		default:
		r.FailedOps++
		r.Score += models.ReputationFailureDelta
	}
}

// Reputation returns a copy of identity's reputation counters, or the
// zero value if none recorded yet.
func (m *Manager) Reputation(identity string) models.Reputation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reputation[identity]; ok {
		return *r
	}
	return models.Reputation{Identity: identity}
}
