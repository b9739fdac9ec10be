// Application-level restart snapshot.
//
// This module defines StateSnapshot, the structure persisted to
// state.snapshot.enc across restarts:
// - the subscription map
// - the encrypted-metadata map
// - admin and read-only principal sets
// - configuration (network env)
//
// Security:
// - Encrypted with AES-256-GCM using a key derived from the
// operator-supplied passphrase
// - Passphrase derived using Argon2id
// - Stored at the configured state-snapshot path

package app

import (
	"encoding/json"
	"time"

	"github.com/chainsub/orchestrator/internal/config"
	"github.com/chainsub/orchestrator/internal/models"
)

// StateSnapshot is the top-level persisted-state layout: the full
// subscription map, the encrypted-metadata map, the admin and
// read-only principal sets, and configuration (network env). No other
// state is required across a restart.
type StateSnapshot struct {
	Version string `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Subscriptions []models.Subscription `json:"subscriptions"`
	Metadata []models.EncryptedMetadata `json:"metadata"`
	Admins []string `json:"admins"`
	ReadOnlyUsers []string `json:"readOnlyUsers"`
	Network config.NetworkEnv `json:"network"`
	Initialized bool `json:"initialized"`
}

// NewStateSnapshot creates an empty snapshot with the given network env.
func NewStateSnapshot(network config.NetworkEnv) *StateSnapshot {
	now := time.Now()
	return &StateSnapshot{
		Version: "1.0.0",
		CreatedAt: now,
		UpdatedAt: now,
		Subscriptions: []models.Subscription{},
		Metadata: []models.EncryptedMetadata{},
		Admins: []string{},
		ReadOnlyUsers: []string{},
		Network: network,
	}
}

// ToJSON serializes the snapshot to JSON.
func (s *StateSnapshot) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", " ")
}

// FromJSON deserializes a StateSnapshot from JSON.
func FromJSON(data []byte) (*StateSnapshot, error) {
	var snap StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
