package models

import "time"

// EncryptedMetadata is a per-subscription opaque blob. The
// core never inspects Data; it only guarantees integrity of storage and
// retrieval and admin-gated erasure.
type EncryptedMetadata struct {
	SubscriptionID string `json:"subscription_id"`
	Data []byte `json:"data"`
	IV []byte `json:"iv"`
	DataHash string `json:"data_hash"`
	EncryptedBy string `json:"encrypted_by"`
	Version int `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}
