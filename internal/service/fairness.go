package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
)

// FairnessEngine implements the commit/reveal roll protocol. Every function
// is deterministic for fixed inputs and reproducible offline by a third
// party: seeds are hex strings, the commitment is SHA-256 over the decoded
// seed bytes, and the roll is derived from HMAC-SHA256 with the decoded
// seed as key over "clientSeed:nonce".
type FairnessEngine struct {
	secret []byte // operator secret mixed into seed generation
}

// NewFairnessEngine creates a fairness engine with the operator secret.
func NewFairnessEngine(secret string) *FairnessEngine {
	return &FairnessEngine{secret: []byte(secret)}
}

// GenerateServerSeed produces a fresh server seed: 32 random bytes passed
// through HMAC-SHA256 keyed by the operator secret. Mixing the secret into
// external randomness means the operator cannot claim a convenient raw
// random value was predetermined, while still being able to audit its own
// secret. Returns 64 hex characters (32 seed bytes).
func (e *FairnessEngine) GenerateServerSeed() (string, error) {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("reading randomness: %w", err)
	}

	mac := hmac.New(sha256.New, e.secret)
	mac.Write([]byte(hex.EncodeToString(random)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// HashServerSeed returns the public commitment: SHA-256 over the decoded
// seed bytes, hex-encoded.
func (e *FairnessEngine) HashServerSeed(seedHex string) (string, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return "", fmt.Errorf("decoding server seed: %w", err)
	}
	sum := sha256.Sum256(seed)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyServerSeed recomputes the commitment and compares.
func (e *FairnessEngine) VerifyServerSeed(seedHex, expectedHash string) bool {
	actual, err := e.HashServerSeed(seedHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}

// ComputeRoll derives the deterministic roll in [0,100):
// HMAC-SHA256(key = decoded seed bytes, message = clientSeed + ":" + nonce),
// first 8 digest bytes as a big-endian unsigned 64-bit integer v,
// roll = v * 100 / 2^64. The multiply is done wide (math/big) so the
// mapping is identical on every platform; truncation bias is below one
// part in 2^56.
func (e *FairnessEngine) ComputeRoll(seedHex, clientSeed string, nonce int64) (int, error) {
	key, err := hex.DecodeString(seedHex)
	if err != nil {
		return 0, fmt.Errorf("decoding server seed: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s:%d", clientSeed, nonce)
	digest := mac.Sum(nil)

	v := binary.BigEndian.Uint64(digest[:8])
	n := new(big.Int).SetUint64(v)
	n.Mul(n, big.NewInt(100))
	n.Rsh(n, 64)
	return int(n.Int64()), nil
}
