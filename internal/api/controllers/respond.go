package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/audit"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeCoreError(w http.ResponseWriter, err *models.CoreError) {
	writeJSON(w, statusForKind(err.Kind), map[string]any{
			"kind": err.Kind,
			"code": err.Code,
			"message": err.Message,
	})
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
		case models.KindValidation, models.KindDuplicateID:
		return http.StatusBadRequest
		case models.KindNotFound:
		return http.StatusNotFound
		case models.KindUnauthorized, models.KindInvalidSignature, models.KindNonceInvalid:
		return http.StatusUnauthorized
		case models.KindSessionExpired:
		return http.StatusUnauthorized
		case models.KindInsufficientPerms:
		return http.StatusForbidden
		case models.KindRateLimited, models.KindTemporarilyBlocked:
		return http.StatusTooManyRequests
		case models.KindNotInitialized:
		return http.StatusPreconditionFailed
		case models.KindRemoteUnavailable, models.KindRemoteRejected, models.KindSigningFailed:
		return http.StatusBadGateway
		default:
		return http.StatusInternalServerError
	}
}

// requestIdentity pulls the caller's claimed identity, session token
// and origin out of the request, following the header convention every
// handler in this package authenticates against.
func requestIdentity(r *http.Request) (identity, sessionToken, origin string) {
	identity = r.Header.Get("X-Identity")
	sessionToken = r.Header.Get("X-Session-Token")
	origin = r.Header.Get("Origin")
	if origin == "" {
		origin = r.RemoteAddr
	}
	return
}

// authorize validates the caller's session against required and writes
// the error response itself on failure. The outcome is not recorded in
// metrics. Returns false when the caller should stop handling the
// request.
func authorize(w http.ResponseWriter, a *app.App, r *http.Request, required models.Permission) bool {
	identity, token, origin := requestIdentity(r)
	if coreErr := a.Auth.ValidateRequest(identity, token, required, origin); coreErr != nil {
		writeCoreError(w, coreErr)
		return false
	}
	return true
}

func auditID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// auditEntry builds an audit.LogEntry for the given outcome. Callers
// pass "" for failureReason on success.
func auditEntry(identity, subID, origin string, op audit.Operation, success bool, failureReason string) audit.LogEntry {
	status := audit.StatusSuccess
	if !success {
		status = audit.StatusFailure
	}
	return audit.LogEntry{
		ID: auditID(),
		SubscriptionID: subID,
		Identity: identity,
		Timestamp: time.Now(),
		Operation: op,
		Status: status,
		FailureReason: failureReason,
		Origin: origin,
	}
}
