package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const publicKeyLength = 32

// EncodeBytesToBase58 encodes bytes directly to base58
func EncodeBytesToBase58(bytes []byte) string {
	return base58.Encode(bytes)
}

// DecodeBase58ToBytes decodes base58 string to bytes
func DecodeBase58ToBytes(base58Str string) ([]byte, error) {
	bytes, err := base58.Decode(base58Str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 string: %w", err)
	}
	return bytes, nil
}

// ParsePublicKey parses a base58 encoded 32 byte key
func ParsePublicKey(s string) (solana.PublicKey, error) {
	raw, err := DecodeBase58ToBytes(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, err
	}
	if len(raw) != publicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("invalid public key length %d for %q", len(raw), s)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// ParsePublicKeys parses every entry and fails on the first invalid one.
func ParsePublicKeys(list []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(list))
	for _, s := range list {
		k, err := ParsePublicKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// LoadPrivateKeyFile reads a base58 encoded ed25519 private key (64 bytes)
func LoadPrivateKeyFile(path string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
	}
	raw, err := DecodeBase58ToBytes(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, err
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid private key length %d in %s", len(raw), path)
	}
	return solana.PrivateKey(raw), nil
}

// WritePrivateKeyFile stores the key as base58 with owner-only permissions
func WritePrivateKeyFile(path string, key solana.PrivateKey) error {
	return os.WriteFile(path, []byte(base58.Encode(key)), 0o600)
}
