/**
* Persisted-state snapshot storage with encryption
* Feature: state.snapshot.enc load/save across restarts
*
* Handles encryption/decryption of the state snapshot using:
* - Argon2id for passphrase derivation
* - AES-256-GCM for encryption
* - Salt stored alongside the encrypted file
*/

package app

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"

	"github.com/chainsub/orchestrator/internal/config"
	"github.com/chainsub/orchestrator/internal/services/crypto"
)

const (
	// DefaultStateSnapshotFileName is used when the configured path is a directory.
	DefaultStateSnapshotFileName = "state.snapshot.enc"

	// Argon2id parameters (same across every encrypted-at-rest blob for consistency)
	Argon2Time = 1
	Argon2Memory = 64 * 1024
	Argon2Threads = 4
	Argon2KeyLen = 32
)

// EncryptedBlob represents the structure of the on-disk encrypted snapshot file.
type EncryptedBlob struct {
	Salt string `json:"salt"` // Base64-encoded salt for Argon2id
	Nonce string `json:"nonce"` // Base64-encoded nonce for AES-GCM
	Ciphertext string `json:"ciphertext"` // Base64-encoded encrypted data
}

// resolvePath returns path itself if it names a file, or path joined
// with the default file name if it names a directory.
func resolvePath(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, DefaultStateSnapshotFileName)
	}
	return path
}

// SnapshotExists checks whether an encrypted state snapshot exists at path.
func SnapshotExists(path string) bool {
	_, err := os.Stat(resolvePath(path))
	return err == nil
}

// InitializeSnapshot creates a new, empty encrypted state snapshot file.
// Called on first-time setup, before initialize_canister has ever run.
func InitializeSnapshot(passphrase, path string, network config.NetworkEnv) error {
	snap := NewStateSnapshot(network)
	return SaveSnapshot(snap, passphrase, path)
}

// LoadSnapshot loads and decrypts the state snapshot at path.
func LoadSnapshot(passphrase, path string) (*StateSnapshot, error) {
	snapPath := resolvePath(path)

	data, err := os.ReadFile(snapPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read state snapshot: %w", err)
	}

	var blob EncryptedBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("failed to parse state snapshot: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(blob.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
	defer crypto.ClearBytes(key)

	plaintext, err := decryptAESGCM(key, nonce, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state snapshot (incorrect passphrase?): %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	snap, err := FromJSON(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decrypted snapshot: %w", err)
	}

	return snap, nil
}

// SaveSnapshot encrypts and saves snap to path.
func SaveSnapshot(snap *StateSnapshot, passphrase, path string) error {
	plaintext, err := snap.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
	defer crypto.ClearBytes(key)

	nonce, ciphertext, err := encryptAESGCM(key, plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}

	blob := EncryptedBlob{
		Salt: base64.StdEncoding.EncodeToString(salt),
		Nonce: base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}

	blobData, err := json.MarshalIndent(blob, "", " ")
	if err != nil {
		return fmt.Errorf("failed to serialize encrypted blob: %w", err)
	}

	snapPath := resolvePath(path)
	if dir := filepath.Dir(snapPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create state snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(snapPath, blobData, 0600); err != nil {
		return fmt.Errorf("failed to write state snapshot: %w", err)
	}

	return nil
}

// VerifyPassphrase verifies passphrase by attempting to decrypt the snapshot at path.
func VerifyPassphrase(passphrase, path string) error {
	_, err := LoadSnapshot(passphrase, path)
	return err
}

// encryptAESGCM encrypts plaintext using AES-256-GCM
func encryptAESGCM(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// decryptAESGCM decrypts ciphertext using AES-256-GCM
func decryptAESGCM(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	return plaintext, nil
}

// ComputePassphraseHash computes a SHA-256 hash of passphrase for quick
// verification. Not used for encryption, only as a fast pre-check.
func ComputePassphraseHash(passphrase string) string {
	hash := sha256.Sum256([]byte(passphrase))
	return base64.StdEncoding.EncodeToString(hash[:])
}
