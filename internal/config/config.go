// Package config loads client configuration from environment variables.
// A .env file in the working directory is honored when present.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/chitpool/chitpool/internal/currency"
)

// DefaultWalletLink is the wallet app's universal link, surfaced as the
// remediation hint when no signing key is configured.
const DefaultWalletLink = "https://metamask.app.link"

// defaultStake is the fixed stake carried by joinGroup, in native units.
const defaultStake = "0.01"

// Config holds everything the client needs to reach the deployed contract.
// Required fields are validated up front so a bad environment fails fast.
type Config struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64

	// PrivateKey is a hex-encoded secp256k1 key. Optional: without it the
	// client runs read-only and every action fails with a wallet hint.
	PrivateKey string

	// ABIPath optionally overrides the embedded union ABI, selecting which
	// method spellings the bound contract exposes.
	ABIPath string

	// LedgerCachePath is the DuckDB file holding the local event archive.
	// Empty disables the cache.
	LedgerCachePath string

	StakeWei   *big.Int
	INRRate    int64
	WalletLink string
	LogLevel   string
}

// Load reads configuration from the environment, applying defaults and
// collecting every validation failure into one error.
func Load() (*Config, error) {
	// Ignore a missing .env; explicit environment always wins.
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	cfg.RPCURL = os.Getenv("CHITPOOL_RPC_URL")
	if cfg.RPCURL == "" {
		errs = append(errs, fmt.Errorf("CHITPOOL_RPC_URL is required"))
	}

	cfg.ContractAddress = os.Getenv("CHITPOOL_CONTRACT_ADDRESS")
	if cfg.ContractAddress == "" {
		errs = append(errs, fmt.Errorf("CHITPOOL_CONTRACT_ADDRESS is required"))
	} else if !common.IsHexAddress(cfg.ContractAddress) {
		errs = append(errs, fmt.Errorf("CHITPOOL_CONTRACT_ADDRESS %q is not a hex address", cfg.ContractAddress))
	}

	chainID, err := parseInt64("CHITPOOL_CHAIN_ID", "1")
	if err != nil {
		errs = append(errs, err)
	}
	cfg.ChainID = chainID

	cfg.PrivateKey = os.Getenv("CHITPOOL_PRIVATE_KEY")
	cfg.ABIPath = os.Getenv("CHITPOOL_ABI_PATH")

	cfg.LedgerCachePath = os.Getenv("CHITPOOL_LEDGER_CACHE")
	if cfg.LedgerCachePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.LedgerCachePath = filepath.Join(home, ".chitpool", "ledger.duckdb")
		}
	}

	stake := getEnvOrDefault("CHITPOOL_STAKE", defaultStake)
	stakeWei, err := currency.DecimalToWei(stake)
	if err != nil {
		errs = append(errs, fmt.Errorf("CHITPOOL_STAKE: %w", err))
	}
	cfg.StakeWei = stakeWei

	rate, err := parseInt64("CHITPOOL_INR_RATE", strconv.FormatInt(currency.DefaultINRRate, 10))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.INRRate = rate

	cfg.WalletLink = getEnvOrDefault("CHITPOOL_WALLET_LINK", DefaultWalletLink)
	cfg.LogLevel = getEnvOrDefault("CHITPOOL_LOG_LEVEL", "info")

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// ReadOnly reports whether the client has no signing key and can therefore
// only issue view calls.
func (c *Config) ReadOnly() bool {
	return c.PrivateKey == ""
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt64(key, fallback string) (int64, error) {
	raw := getEnvOrDefault(key, fallback)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", key, raw)
	}
	return v, nil
}
