// Package config loads the orchestrator's environment-driven
// configuration: a .env file loaded via godotenv, then read through
// os.Getenv with typed defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// NetworkEnv is the external-chain environment set_network selects
// among.
type NetworkEnv string

const (
	NetworkMainnet NetworkEnv = "Mainnet"
	NetworkDevnet NetworkEnv = "Devnet"
	NetworkTestnet NetworkEnv = "Testnet"
)

// Config bundles every environment-driven setting the orchestrator
// reads at startup.
type Config struct {
	ListenAddr string

	RPCEndpoints []string
	RPCTimeout time.Duration

	SignerEndpoint string
	SignerTimeout time.Duration
	SimulatedSigner bool
	SimulatedSignerSeed string

	ProgramID string
	TokenProgramID string
	SystemProgramID string
	MemoProgramID string
	InstructionsSysvarID string
	AssociatedTokenProgramID string

	Network NetworkEnv

	AuditLogPath string
	StateSnapshotPath string
	MetadataKeyHex string // read from the environment but not used by any component; metadata is encrypted at rest only inside the state snapshot

	GlobalRateLimitPerMinute int
	IdentityRateLimitPerMinute int
}

// Load reads a .env file (if present) then environment variables,
// applying a sane default for anything left unset.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		ListenAddr: getEnv("ORCHESTRATOR_LISTEN_ADDR", ":8080"),
		RPCEndpoints: splitCSV(getEnv("ORCHESTRATOR_RPC_ENDPOINTS", "https://api.devnet.solana.com")),
		RPCTimeout: getDurationSeconds("ORCHESTRATOR_RPC_TIMEOUT_SECONDS", 10),
		SignerEndpoint: getEnv("ORCHESTRATOR_SIGNER_ENDPOINT", ""),
		SignerTimeout: getDurationSeconds("ORCHESTRATOR_SIGNER_TIMEOUT_SECONDS", 10),
		SimulatedSigner: getEnv("ORCHESTRATOR_SIMULATED_SIGNER", "true") == "true",
		SimulatedSignerSeed: getEnv("ORCHESTRATOR_SIMULATED_SIGNER_SEED", "change-me-in-production-please"),
		ProgramID: getEnv("ORCHESTRATOR_PROGRAM_ID", ""),
		TokenProgramID: getEnv("ORCHESTRATOR_TOKEN_PROGRAM_ID", "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
		SystemProgramID: getEnv("ORCHESTRATOR_SYSTEM_PROGRAM_ID", "11111111111111111111111111111111"),
		MemoProgramID: getEnv("ORCHESTRATOR_MEMO_PROGRAM_ID", "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"),
		InstructionsSysvarID: getEnv("ORCHESTRATOR_INSTRUCTIONS_SYSVAR_ID", "Sysvar1nstructions1111111111111111111111111"),
		AssociatedTokenProgramID: getEnv("ORCHESTRATOR_ASSOCIATED_TOKEN_PROGRAM_ID", "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"),
		Network: NetworkEnv(getEnv("ORCHESTRATOR_NETWORK", string(NetworkDevnet))),
		AuditLogPath: getEnv("ORCHESTRATOR_AUDIT_LOG_PATH", "./data/audit.ndjson"),
		StateSnapshotPath: getEnv("ORCHESTRATOR_STATE_SNAPSHOT_PATH", "./data/state.snapshot.enc"),
		MetadataKeyHex: getEnv("ORCHESTRATOR_METADATA_KEY_HEX", ""),
		GlobalRateLimitPerMinute: getInt("ORCHESTRATOR_GLOBAL_RATE_LIMIT_PER_MINUTE", 1000),
		IdentityRateLimitPerMinute: getInt("ORCHESTRATOR_IDENTITY_RATE_LIMIT_PER_MINUTE", 60),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationSeconds(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getInt(key, fallbackSeconds)) * time.Second
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
